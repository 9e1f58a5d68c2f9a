package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName string
	Port    string

	DatabaseURL string
	JWTSecret   string

	AMQPURL string

	SendGridAPIKey string
	NotifyFrom     string
	NotifyTo       string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioTo         string

	CronOverdueSpec   string
	CronReconcileSpec string
}

// LoadConfig reads .env (when present) and the environment. DATABASE_URL
// and JWT_SECRET are required; everything else has a default or disables
// the feature when empty.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName: getEnv("APP_NAME", "booking-service"),
		Port:    getEnv("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		AMQPURL: os.Getenv("AMQP_URL"),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		NotifyFrom:     getEnv("NOTIFY_FROM_EMAIL", "noreply@casaflow.io"),
		NotifyTo:       os.Getenv("NOTIFY_TO_EMAIL"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioTo:         os.Getenv("TWILIO_TO_NUMBER"),

		CronOverdueSpec:   getEnv("CRON_OVERDUE_SPEC", "0 2 * * *"),
		CronReconcileSpec: getEnv("CRON_RECONCILE_SPEC", "30 2 * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
