package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"THINGSPEAK_URL", "THINGSPEAK_API_KEY", "THINGSPEAK_CHANNEL_ID",
		"INFLUXDB_URL", "INFLUXDB_TOKEN", "INFLUXDB_ORG", "INFLUXDB_BUCKET",
		"LOG_LEVEL", "LOG_PRETTY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.InfluxBucket != "telemetry" {
		t.Errorf("InfluxBucket = %q, want telemetry", cfg.InfluxBucket)
	}
	if cfg.ChannelID != 0 {
		t.Errorf("ChannelID = %d, want 0 when unset", cfg.ChannelID)
	}
	if cfg.LogPretty {
		t.Error("LogPretty = true, want false by default")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("THINGSPEAK_URL", "http://localhost:9090")
	t.Setenv("THINGSPEAK_API_KEY", "SECRETKEY")
	t.Setenv("THINGSPEAK_CHANNEL_ID", "42")
	t.Setenv("INFLUXDB_BUCKET", "tanks")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BaseURL != "http://localhost:9090" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.APIKey != "SECRETKEY" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.ChannelID != 42 {
		t.Errorf("ChannelID = %d, want 42", cfg.ChannelID)
	}
	if cfg.InfluxBucket != "tanks" {
		t.Errorf("InfluxBucket = %q, want tanks", cfg.InfluxBucket)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.LogPretty {
		t.Error("LogPretty = false, want true")
	}
}

func TestLoad_BadChannelID(t *testing.T) {
	t.Setenv("THINGSPEAK_CHANNEL_ID", "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("Load() with a non-numeric channel ID should fail")
	}
}

func TestValidateInflux(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name: "complete",
			config: Config{
				InfluxURL:   "http://localhost:8086",
				InfluxToken: "token",
				InfluxOrg:   "sensorlab",
			},
			expectError: false,
		},
		{
			name:        "all missing",
			config:      Config{},
			expectError: true,
		},
		{
			name: "missing token",
			config: Config{
				InfluxURL: "http://localhost:8086",
				InfluxOrg: "sensorlab",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.ValidateInflux()
			if tt.expectError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
