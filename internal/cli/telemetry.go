package cli

import (
	"log"
	"os"

	"github.com/cloo-solutions/skumatch/internal/telemetry"
)

// InitTelemetry starts Sentry when SENTRY_DSN is set and returns the flush
// function to defer. Development samples every trace, other environments 10%.
func InitTelemetry(debug bool) func() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return func() {}
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}
	sampleRate := 0.1
	if environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              dsn,
		Environment:      environment,
		TracesSampleRate: sampleRate,
		Debug:            debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}
