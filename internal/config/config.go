package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Billing backend
	BillingBaseURL string
	SubmitTimeout  time.Duration
	StatusTimeout  time.Duration

	// Polling
	PollInterval    time.Duration
	PollMaxAttempts int

	// Portal server
	PortalPort  int
	CORSOrigins []string

	// Router
	RouterIdentity string

	// Database
	DBPath string

	// Operator alerts
	BotToken    string
	AdminChatID int64
}

func Load() *Config {
	return &Config{
		// Billing backend
		BillingBaseURL: strings.TrimSuffix(getEnv("BILLING_BASE_URL", ""), "/"),
		SubmitTimeout:  time.Duration(getEnvInt("SUBMIT_TIMEOUT_S", 60)) * time.Second,
		StatusTimeout:  time.Duration(getEnvInt("STATUS_TIMEOUT_S", 10)) * time.Second,

		// Polling
		PollInterval:    time.Duration(getEnvInt("POLL_INTERVAL_MS", 2500)) * time.Millisecond,
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 24),

		// Portal server
		PortalPort:  getEnvInt("PORTAL_PORT", 8080),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		// Router
		RouterIdentity: getEnv("ROUTER_IDENTITY", ""),

		// Database
		DBPath: getEnv("DB_PATH", "./portal.db"),

		// Operator alerts
		BotToken:    getEnv("BOT_TOKEN", ""),
		AdminChatID: getEnvInt64("ADMIN_CHAT_ID", 0),
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}
