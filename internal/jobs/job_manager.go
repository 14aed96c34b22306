package jobs

import (
	"fmt"

	"dispatch/internal/pkg/errs"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	statusPollingJob *StatusPollingJob
}

// NewJobManager creates a job manager over the given jobs.
func NewJobManager(statusPollingJob *StatusPollingJob) (*JobManager, error) {
	if statusPollingJob == nil {
		return nil, errs.NewValueIsRequiredError("statusPollingJob")
	}

	return &JobManager{statusPollingJob: statusPollingJob}, nil
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.statusPollingJob.Start(); err != nil {
		return fmt.Errorf("failed to start status polling job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.statusPollingJob.Stop()
}
