package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Remote store; both empty selects the in-memory store.
	DatabaseURL string
	RedisURL    string

	// Identity
	IdentityPath string

	// Geolocation
	GeoLatitude  *float64
	GeoLongitude *float64
	GeoLookupURL string
	GeoTimeout   time.Duration

	// Presence
	HeartbeatInterval  time.Duration
	RosterPollInterval time.Duration
	ExpiryWindow       time.Duration
	ChatHistoryLimit   int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Env:                getEnvOrDefault("ENV", "development"),
		DatabaseURL:        getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:           getEnvOrDefault("REDIS_URL", ""),
		IdentityPath:       getEnvOrDefault("IDENTITY_PATH", defaultIdentityPath()),
		GeoLatitude:        getEnvAsFloat("GEO_LATITUDE"),
		GeoLongitude:       getEnvAsFloat("GEO_LONGITUDE"),
		GeoLookupURL:       getEnvOrDefault("GEO_LOOKUP_URL", ""),
		GeoTimeout:         getEnvAsDurationOrDefault("GEO_TIMEOUT", 10*time.Second),
		HeartbeatInterval:  getEnvAsDurationOrDefault("HEARTBEAT_INTERVAL", 180*time.Second),
		RosterPollInterval: getEnvAsDurationOrDefault("ROSTER_POLL_INTERVAL", 15*time.Second),
		ExpiryWindow:       getEnvAsDurationOrDefault("EXPIRY_WINDOW", 10*time.Minute),
		ChatHistoryLimit:   getEnvAsIntOrDefault("CHAT_HISTORY_LIMIT", 100),
		FrontendURL:        getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// Validate rejects settings that would let a live session expire between two heartbeats.
func (c *Config) Validate() error {
	if c.HeartbeatInterval <= 0 || c.RosterPollInterval <= 0 || c.ExpiryWindow <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.HeartbeatInterval >= c.ExpiryWindow/2 {
		return fmt.Errorf("HEARTBEAT_INTERVAL (%s) must be shorter than half of EXPIRY_WINDOW (%s)", c.HeartbeatInterval, c.ExpiryWindow)
	}
	if (c.DatabaseURL == "") != (c.RedisURL == "") {
		return fmt.Errorf("DATABASE_URL and REDIS_URL must be set together")
	}
	if (c.GeoLatitude == nil) != (c.GeoLongitude == nil) {
		return fmt.Errorf("GEO_LATITUDE and GEO_LONGITUDE must be set together")
	}
	if c.ChatHistoryLimit <= 0 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must be positive")
	}
	return nil
}

// UsesMemoryStore reports whether no hosted store is configured.
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == ""
}

func defaultIdentityPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".focusglobe", "identity.json")
	}
	return filepath.Join(dir, "focusglobe", "identity.json")
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvAsFloat(key string) *float64 {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &f
}
