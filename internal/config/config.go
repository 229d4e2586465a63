// Package config loads settings from the environment, reading a .env file
// first when one exists.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Client configures the splitsync command line client.
type Client struct {
	// APIURL is the REST base URL including the /api prefix.
	APIURL string
	// ChannelURL is the WebSocket endpoint of the event channel.
	ChannelURL string
	// TokenFile stores the credential between invocations.
	TokenFile string
	// PollInterval is how often the ledger is reloaded while the channel
	// has given up reconnecting.
	PollInterval time.Duration
}

// Server configures the collaborator backend.
type Server struct {
	Port      int
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration
	// RedisURL enables cross-instance event fan-out when set.
	RedisURL string
}

// LoadClient reads the client configuration.
func LoadClient() (Client, error) {
	loadDotEnv()

	poll, err := getDuration("SPLITSYNC_POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return Client{}, err
	}
	return Client{
		APIURL:       getEnv("SPLITSYNC_API_URL", "http://localhost:8080/api"),
		ChannelURL:   getEnv("SPLITSYNC_CHANNEL_URL", "ws://localhost:8080/ws"),
		TokenFile:    getEnv("SPLITSYNC_TOKEN_FILE", defaultTokenFile()),
		PollInterval: poll,
	}, nil
}

// LoadServer reads the backend configuration.
func LoadServer() (Server, error) {
	loadDotEnv()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return Server{}, fmt.Errorf("invalid PORT: %w", err)
	}
	ttl, err := getDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return Server{}, err
	}
	return Server{
		Port:      port,
		DBPath:    getEnv("DB_PATH", "./data/splitsync.db"),
		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:  ttl,
		RedisURL:  getEnv("REDIS_URL", ""),
	}, nil
}

func loadDotEnv() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".splitsync-token"
	}
	return filepath.Join(dir, "splitsync", "token")
}
