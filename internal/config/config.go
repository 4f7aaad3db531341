/*
 * This file is part of Leining App (https://github.com/binyominzeev/leining-app).
 * Copyright (C) 2025 Binyomin Zeev
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Leining hub
type Config struct {
	Server  ServerConfig
	Whisper WhisperConfig
	Storage StorageConfig
	Logging LoggingConfig
	NATS    NATSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WhisperConfig holds speech-to-text engine configuration
type WhisperConfig struct {
	ModelsDir  string // Directory containing ggml-<size>.bin model files
	ModelSize  string // tiny, base, small, medium, large
	Language   string // ISO language code passed to the engine
	SampleRate int    // Expected audio sample rate in Hz
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	DBPath   string // SQLite database path
	AudioDir string // Directory for uploaded reference audio
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// NATSConfig holds NATS messaging configuration
type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("LEINING_HOST", "0.0.0.0"),
			Port:         getEnvInt("LEINING_PORT", 8000),
			ReadTimeout:  getEnvDuration("LEINING_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("LEINING_WRITE_TIMEOUT", 30*time.Second),
		},
		Whisper: WhisperConfig{
			ModelsDir:  getEnvString("WHISPER_MODELS_DIR", "./models"),
			ModelSize:  getEnvString("WHISPER_MODEL_SIZE", "tiny"),
			Language:   getEnvString("WHISPER_LANGUAGE", "he"),
			SampleRate: getEnvInt("WHISPER_SAMPLE_RATE", 16000),
		},
		Storage: StorageConfig{
			DBPath:   getEnvString("LEINING_DB_PATH", "./data/leining.db"),
			AudioDir: getEnvString("LEINING_AUDIO_DIR", "./reference_audio"),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnvString("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnvString("NATS_SUBJECT_PREFIX", "leining.practice"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Whisper.ModelsDir == "" {
		return fmt.Errorf("whisper models directory must be provided")
	}

	if c.Whisper.SampleRate <= 0 {
		return fmt.Errorf("whisper sample rate must be positive: %d", c.Whisper.SampleRate)
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("database path must be provided")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("NATS URL must be provided when NATS is enabled")
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
