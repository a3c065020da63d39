// Package config loads server and agent settings from the environment,
// with an optional .env file for local runs.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server holds the monitoring server settings.
type Server struct {
	// Listen address, e.g. ":8080".
	Port string
	// Path of the sqlite database file.
	DBName string
	// Root directory for uploaded screenshots.
	UploadDir string
	// Bearer token guarding the admin API. Empty disables the check;
	// operator authentication is expected to sit in front of the server.
	AdminToken string
	// An employee whose last report is older than this is swept offline.
	OfflineAfter time.Duration
	LogLevel     string
}

// Agent holds the remote agent settings.
type Agent struct {
	ServerURL          string
	APIKey             string
	ActivityInterval   time.Duration
	ScreenshotInterval time.Duration
	IdleThreshold      time.Duration
	PollInterval       time.Duration
}

// LoadServer reads server settings, preferring a .env file when present.
func LoadServer() *Server {
	godotenv.Load()

	return &Server{
		Port:         getEnv("SERVER_PORT", ":8080"),
		DBName:       getEnv("DB_NAME", "monitor.db"),
		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),
		OfflineAfter: getEnvSeconds("OFFLINE_AFTER_SEC", 300),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// LoadAgent reads agent settings, preferring a .env file when present.
func LoadAgent() *Agent {
	godotenv.Load()

	return &Agent{
		ServerURL:          getEnv("SERVER_URL", "http://localhost:8080"),
		APIKey:             getEnv("API_KEY", ""),
		ActivityInterval:   getEnvSeconds("ACTIVITY_INTERVAL_SEC", 30),
		ScreenshotInterval: getEnvSeconds("SCREENSHOT_INTERVAL_SEC", 600),
		IdleThreshold:      getEnvSeconds("IDLE_THRESHOLD_SEC", 300),
		PollInterval:       getEnvSeconds("POLL_INTERVAL_SEC", 10),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	seconds := fallback
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			seconds = n
		}
	}
	return time.Duration(seconds) * time.Second
}
