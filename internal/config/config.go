// Package config provides environment configuration for the API server and bot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Default upstream hosts (RapidAPI).
const (
	DefaultTempMailHost      = "https://temp-mail44.p.rapidapi.com"
	DefaultVirtualNumberHost = "https://virtual-number.p.rapidapi.com"
)

// Server holds configuration for the HTTP API server.
type Server struct {
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	TempMailAPIKey    string
	TempMailHost      string
	VirtualNumAPIKey  string
	VirtualNumberHost string
}

// Bot holds configuration for the Telegram bot.
type Bot struct {
	Token      string
	APIBaseURL string
}

// LoadServer reads server configuration from the environment.
// Both upstream API keys are required; missing keys fail at startup
// rather than at first use.
func LoadServer() (*Server, error) {
	if err := requireEnv("TEMP_MAIL_API_KEY", "VIRTUAL_NUMBER_API_KEY"); err != nil {
		return nil, err
	}

	return &Server{
		Port:              GetEnvOrDefault("PORT", "5000"),
		ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		TempMailAPIKey:    os.Getenv("TEMP_MAIL_API_KEY"),
		TempMailHost:      GetEnvOrDefault("TEMP_MAIL_HOST", DefaultTempMailHost),
		VirtualNumAPIKey:  os.Getenv("VIRTUAL_NUMBER_API_KEY"),
		VirtualNumberHost: GetEnvOrDefault("VIRTUAL_NUMBER_HOST", DefaultVirtualNumberHost),
	}, nil
}

// LoadBot reads bot configuration from the environment.
func LoadBot() (*Bot, error) {
	if err := requireEnv("BOT_TOKEN"); err != nil {
		return nil, err
	}

	return &Bot{
		Token:      os.Getenv("BOT_TOKEN"),
		APIBaseURL: GetEnvOrDefault("API_BASE_URL", "http://localhost:5000"),
	}, nil
}

// requireEnv validates that all required environment variables are set
func requireEnv(vars ...string) error {
	var missing []string
	for _, name := range vars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetEnvOrDefault retrieves an environment variable or returns a default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
