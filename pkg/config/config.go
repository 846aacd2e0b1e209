package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Enricher EnricherConfig
	Cache    CacheConfig
	Workers  WorkersConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	// GraphQLURL and BaseURL are overridable for tests and GHE deployments.
	GraphQLURL string
	BaseURL    string
	// RequestsPerSecond throttles all outbound GitHub calls.
	RequestsPerSecond float64
	EventsMaxPages    int
}

type EnricherConfig struct {
	Enabled   bool
	BatchSize int
}

type CacheConfig struct {
	StatsTTL time.Duration
	LRUSize  int
}

type WorkersConfig struct {
	RefreshWorkers int
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./yearbook.db"),
		},
		GitHub: GitHubConfig{
			GraphQLURL:        getEnv("GITHUB_GRAPHQL_URL", "https://api.github.com/graphql"),
			BaseURL:           getEnv("GITHUB_BASE_URL", ""),
			RequestsPerSecond: getEnvAsFloat("GITHUB_RPS", 2.0),
			EventsMaxPages:    getEnvAsInt("EVENTS_MAX_PAGES", 10),
		},
		Enricher: EnricherConfig{
			Enabled:   getEnvAsBool("ENRICHER_ENABLED", false),
			BatchSize: getEnvAsInt("ENRICHER_BATCH_SIZE", 5),
		},
		Cache: CacheConfig{
			StatsTTL: time.Duration(getEnvAsInt("STATS_TTL_HOURS", 24)) * time.Hour,
			LRUSize:  getEnvAsInt("STATS_LRU_SIZE", 256),
		},
		Workers: WorkersConfig{
			RefreshWorkers: getEnvAsInt("REFRESH_WORKERS", 1),
		},
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
