package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Settings struct {
	ServerPort     string
	FrontendOrigin string

	PayPalBaseURL      string
	PayPalClientID     string
	PayPalClientSecret string
	PayPalEnvironment  string

	DefaultCurrency  string
	OrderDescription string

	RedisAddr  string
	BindingTTL time.Duration

	ProcessorTimeout time.Duration
}

// Load reads configuration from the environment, with a .env file as a
// development convenience. Credentials are required; everything else
// has a sandbox-friendly default.
func Load() *Settings {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Settings{
		ServerPort:     getEnvironmentVariable("PORT", "5000"),
		FrontendOrigin: getEnvironmentVariable("FRONTEND_ORIGIN", "http://localhost:5173"),

		PayPalBaseURL:      getEnvironmentVariable("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
		PayPalClientID:     os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret: os.Getenv("PAYPAL_CLIENT_SECRET"),
		PayPalEnvironment:  getEnvironmentVariable("PAYPAL_ENV", "sandbox"),

		DefaultCurrency:  getEnvironmentVariable("DEFAULT_CURRENCY", "USD"),
		OrderDescription: getEnvironmentVariable("ORDER_DESCRIPTION", "Test Payment Product"),

		RedisAddr:  os.Getenv("REDIS_ADDR"),
		BindingTTL: getDurationEnvironmentVariable("ORDER_BINDING_TTL_MINUTES", 30, time.Minute),

		ProcessorTimeout: getDurationEnvironmentVariable("PROCESSOR_TIMEOUT_SECONDS", 15, time.Second),
	}
}

func getEnvironmentVariable(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvironmentVariable(key string, defaultValue int, unit time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil && value > 0 {
			return time.Duration(value) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
