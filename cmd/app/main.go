package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dispatch/cmd"
	inkafka "dispatch/internal/adapters/in/kafka"
	outkafka "dispatch/internal/adapters/out/kafka"
	"dispatch/internal/adapters/out/postgres/migrations"
)

func main() {
	configs := getConfigs()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dsn := postgresDSN(configs)
	if err := migrations.Up(dsn); err != nil {
		log.Fatalf("Error applying migrations: %v", err)
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	producer, err := outkafka.NewSyncProducer(configs.KafkaBrokers)
	if err != nil {
		log.Fatalf("Error connecting kafka producer: %v", err)
	}
	defer producer.Close()

	app, err := cmd.NewCompositionRoot(configs, gormDB, producer, logger)
	if err != nil {
		log.Fatalf("Error building composition root: %v", err)
	}

	jobManager, err := app.CreateJobManager()
	if err != nil {
		log.Fatalf("Error building jobs: %v", err)
	}
	if err = jobManager.StartAll(); err != nil {
		log.Fatalf("Error starting jobs: %v", err)
	}
	defer jobManager.StopAll()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, err := inkafka.NewConsumerGroup(configs.KafkaBrokers, configs.KafkaConsumerGroup)
	if err != nil {
		log.Fatalf("Error connecting kafka consumer group: %v", err)
	}
	defer group.Close()

	consumer, err := app.CreateDispatchConsumer(group)
	if err != nil {
		log.Fatalf("Error building dispatch consumer: %v", err)
	}

	go func() {
		if consumeErr := consumer.Run(ctx); consumeErr != nil {
			logger.Error("dispatch consumer exited", "error", consumeErr)
			stop()
		}
	}()

	startWebServer(ctx, app, configs.HTTPPort, logger)
}

func getConfigs() cmd.Config {
	config := cmd.Config{
		HTTPPort:                   goDotEnvVariable("HTTP_PORT"),
		DBHost:                     goDotEnvVariable("DB_HOST"),
		DBPort:                     goDotEnvVariable("DB_PORT"),
		DBUser:                     goDotEnvVariable("DB_USER"),
		DBPassword:                 goDotEnvVariable("DB_PASSWORD"),
		DBName:                     goDotEnvVariable("DB_NAME"),
		DBSslMode:                  goDotEnvVariable("DB_SSLMODE"),
		KafkaBrokers:               strings.Split(goDotEnvVariable("KAFKA_BROKERS"), ","),
		KafkaConsumerGroup:         goDotEnvVariable("KAFKA_CONSUMER_GROUP"),
		KafkaDispatchRequestsTopic: goDotEnvVariable("KAFKA_DISPATCH_REQUESTS_TOPIC"),
		KafkaOrderEventsTopic:      goDotEnvVariable("KAFKA_ORDER_EVENTS_TOPIC"),
		G4SBaseURL:                 goDotEnvVariable("G4S_BASE_URL"),
		G4SAPIToken:                goDotEnvVariable("G4S_API_TOKEN"),
		FargoBaseURL:               goDotEnvVariable("FARGO_BASE_URL"),
		FargoAPIKey:                goDotEnvVariable("FARGO_API_KEY"),
		CourierTimeout:             durationEnvVariable("COURIER_TIMEOUT"),
		StatusPollSchedule:         goDotEnvVariable("STATUS_POLL_SCHEDULE"),
	}
	return config
}

func goDotEnvVariable(key string) string {
	err := godotenv.Load(".env")
	if err != nil {
		log.Fatalf("Error loading .env file")
	}
	return os.Getenv(key)
}

func durationEnvVariable(key string) time.Duration {
	value, err := time.ParseDuration(goDotEnvVariable(key))
	if err != nil {
		log.Fatalf("Error parsing %s: %v", key, err)
	}
	return value
}

func postgresDSN(configs cmd.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		configs.DBHost,
		configs.DBPort,
		configs.DBUser,
		configs.DBPassword,
		configs.DBName,
		configs.DBSslMode,
	)
}

func startWebServer(ctx context.Context, app *cmd.CompositionRoot, port string, logger *slog.Logger) {
	e := echo.New()
	e.HideBanner = true

	app.CreateHTTPServer().RegisterRoutes(e)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", "error", err)
		}
	}()

	if err := e.Start(fmt.Sprintf("0.0.0.0:%s", port)); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Error running http server: %v", err)
	}
}
