// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port        string
	AppEnv      string
	DatabaseURL string

	// Object storage (S3-compatible: MinIO locally, any S3 provider in production)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StorageUseSSL    bool
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:    os.Getenv("STORAGE_BUCKET"),
		StorageRegion:    getEnv("STORAGE_REGION", "us-east-1"),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "false") == "true",
	}
}

// Validate reports every required setting that is missing, so a misconfigured
// deployment fails at startup instead of at the first database or storage call.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", c.DatabaseURL},
		{"STORAGE_ENDPOINT", c.StorageEndpoint},
		{"STORAGE_ACCESS_KEY", c.StorageAccessKey},
		{"STORAGE_SECRET_KEY", c.StorageSecretKey},
		{"STORAGE_BUCKET", c.StorageBucket},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
