package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// OpenAI-compatible completion provider.
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// External calendar bridge. Empty means the in-memory backend is used,
	// which is only suitable for development.
	CalendarBaseURL string
	CalendarAPIKey  string

	// Clinic civil time. Guatemala has no DST, so a fixed offset is enough.
	ClinicUTCOffsetHours int

	// When true, a calendar write failure after a successful database write
	// is reported to the user instead of only being logged.
	SurfaceCalendarErrors bool

	ChatRatePerSecond float64
	ChatRateBurst     int

	SessionCookieName string
	SessionTTL        time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		CalendarBaseURL: getEnv("CALENDAR_BASE_URL", ""),
		CalendarAPIKey:  getEnv("CALENDAR_API_KEY", ""),

		ClinicUTCOffsetHours: getEnvAsInt("CLINIC_UTC_OFFSET_HOURS", -6),

		SurfaceCalendarErrors: getEnvAsBool("ASSISTANT_SURFACE_CALENDAR_ERRORS", false),

		ChatRatePerSecond: getEnvAsFloat("CHAT_RATE_PER_SECOND", 2),
		ChatRateBurst:     getEnvAsInt("CHAT_RATE_BURST", 5),

		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "clinica_session"),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
