package cmd

import "time"

type Config struct {
	HTTPPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	KafkaBrokers               []string
	KafkaConsumerGroup         string
	KafkaDispatchRequestsTopic string
	KafkaOrderEventsTopic      string

	G4SBaseURL    string
	G4SAPIToken   string
	FargoBaseURL  string
	FargoAPIKey   string

	// CourierTimeout bounds every synchronous courier API call.
	CourierTimeout time.Duration

	// StatusPollSchedule is a cron expression with a seconds field.
	StatusPollSchedule string
}
