// Package config loads the CLI configuration from environment variables,
// with optional .env file support.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the application's configuration.
type Config struct {
	// ThingSpeak
	BaseURL   string
	APIKey    string
	ChannelID int64

	// InfluxDB export (optional; only validated when export is requested)
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// Logging
	LogLevel  string
	LogPretty bool
}

// Load reads the configuration from environment variables. A .env file in
// the working directory is honored when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, relying on system environment variables")
	}

	cfg := Config{
		BaseURL:      getEnv("THINGSPEAK_URL", ""),
		APIKey:       os.Getenv("THINGSPEAK_API_KEY"),
		InfluxURL:    os.Getenv("INFLUXDB_URL"),
		InfluxToken:  os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUXDB_ORG"),
		InfluxBucket: getEnv("INFLUXDB_BUCKET", "telemetry"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    os.Getenv("LOG_PRETTY") == "true",
	}

	if raw := os.Getenv("THINGSPEAK_CHANNEL_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse THINGSPEAK_CHANNEL_ID: %w", err)
		}
		cfg.ChannelID = id
	}

	return cfg, nil
}

// ValidateInflux checks that the InfluxDB export settings are complete.
func (c Config) ValidateInflux() error {
	if c.InfluxURL == "" || c.InfluxToken == "" || c.InfluxOrg == "" {
		return fmt.Errorf("InfluxDB configuration is incomplete: set INFLUXDB_URL, INFLUXDB_TOKEN, and INFLUXDB_ORG")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
