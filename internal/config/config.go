package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Storage backend: "firestore" (the app's own backend) or "postgres"
	// for self-hosted deployments.
	StoreBackend string
	DatabaseURL  string

	// Firebase (auth, push, Firestore)
	FirebaseCredentialsPath string
	FirebaseProjectID       string

	// Chat
	InferenceURL string

	// Scheduling
	DispatchIntervalSeconds int
	ResyncIntervalMinutes   int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️  No .env file found, reading environment variables from the system.")
	}

	return &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),

		StoreBackend: getEnvWithDefault("STORE_BACKEND", "firestore"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),

		InferenceURL: getEnvWithDefault("INFERENCE_URL", "http://localhost:5000/chat"),

		DispatchIntervalSeconds: getEnvInt("DISPATCH_INTERVAL", 15),
		ResyncIntervalMinutes:   getEnvInt("RESYNC_INTERVAL", 60),
	}, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate checks that every required setting is present.
func (c *Config) Validate() error {
	if c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	switch c.StoreBackend {
	case "firestore":
		// Project ID falls back to the service account's.
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.DispatchIntervalSeconds < 1 {
		return fmt.Errorf("DISPATCH_INTERVAL must be at least 1 second")
	}
	return nil
}
