// Package jobs provides scheduled background tasks for the dispatch system.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3
// to handle periodic operations required for delivery tracking.
//
// # Available Jobs
//
// 1. StatusPollingJob - Periodically polls every courier for the current
// status of each active delivery, covering providers whose webhooks are
// unreliable or missing.
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	jobManager, err := jobs.NewJobManager(pollingJob)
//	if err != nil {
//		log.Fatal("Failed to build jobs:", err)
//	}
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	defer jobManager.StopAll()
//
// # Error Handling
//
// A poll cycle never aborts because one delivery failed: transport errors
// are retried with exponential backoff and then skipped until the next
// cycle, and normalization outcomes (unmapped codes, regressions) are
// absorbed inside the ingestion handler. Only persistence failures are
// logged as errors.
package jobs
