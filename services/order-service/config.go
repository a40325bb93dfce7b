package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	awspkg "github.com/agrigrocer/marketplace-backend/pkg/aws"
)

type Config struct {
	Port             string
	Env              string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string
	RedisURL         string
	StripeSecretKey  string
	StripeWebhookKey string
	JWTSecret        string
	EmailQueueName   string
	OrderSNSTopicARN string
	PublicBaseURL    string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8083"),
		Env:              getEnv("APP_ENV", "development"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		RedisURL:         getEnv("REDIS_URL", "redis://redis:6379"),
		StripeSecretKey:  os.Getenv("STRIPE_API_KEY"),
		StripeWebhookKey: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		EmailQueueName:   getEnv("EMAIL_QUEUE_NAME", "order-confirmation-emails"),
		OrderSNSTopicARN: getEnv("ORDER_SNS_TOPIC_ARN", "arn:aws:sns:eu-west-2:000000000000:order-events"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadConfig(context.Background()); err == nil {
			sm := awspkg.NewSecretsClient(awsCfg)

			if dbjson, err := sm.GetSecret(context.Background(), "order/DB_CREDENTIALS"); err == nil && dbjson != "" {
				var m map[string]string
				if err := json.Unmarshal([]byte(dbjson), &m); err == nil {
					if v, ok := m["POSTGRES_USER"]; ok && v != "" {
						cfg.PostgresUser = v
					}
					if v, ok := m["POSTGRES_PASSWORD"]; ok && v != "" {
						cfg.PostgresPassword = v
					}
					if v, ok := m["POSTGRES_DB"]; ok && v != "" {
						cfg.PostgresDB = v
					}
					if v, ok := m["POSTGRES_HOST"]; ok && v != "" {
						cfg.PostgresHost = v
					}
					if v, ok := m["POSTGRES_PORT"]; ok && v != "" {
						cfg.PostgresPort = v
					}
				}
			}

			if stripejson, err := sm.GetSecret(context.Background(), "order/STRIPE_KEYS"); err == nil && stripejson != "" {
				var m map[string]string
				if err := json.Unmarshal([]byte(stripejson), &m); err == nil {
					if v, ok := m["STRIPE_API_KEY"]; ok && v != "" {
						cfg.StripeSecretKey = v
					}
					if v, ok := m["STRIPE_WEBHOOK_SECRET"]; ok && v != "" {
						cfg.StripeWebhookKey = v
					}
				}
			}
		}
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if cfg.StripeSecretKey == "" || cfg.StripeWebhookKey == "" {
		return nil, fmt.Errorf("stripe config incomplete")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
