package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Mailbox
	WatchedEmail   string
	WatchedFolders []string
	PollInterval   time.Duration
	BackfillWindow time.Duration

	// Processing
	ProcessedTagPrefix string
	ReplySentinel      string
	ApprovalMode       bool
	RejectFolder       string
	RoutingPolicyPath  string
	CorrelationTTL     time.Duration

	// Storage
	DatabaseURL   string
	CursorBackend string
	CursorDir     string

	// Google / Gmail
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GoogleProjectID    string
	GooglePubSubTopic  string
	GoogleCredentials  string

	// AI providers
	AIProvider    string
	OpenAIAPIKey  string
	OpenAIModel   string
	GeminiAPIKey  string
	OllamaBaseURL string
	OllamaModel   string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),

		WatchedEmail:   getEnv("WATCHED_EMAIL", ""),
		WatchedFolders: getEnvList("WATCHED_FOLDERS", []string{"INBOX", "SPAM"}),
		PollInterval:   getEnvDuration("POLL_INTERVAL", 10*time.Second),
		BackfillWindow: getEnvDuration("BACKFILL_WINDOW", 24*time.Hour),

		ProcessedTagPrefix: getEnv("PROCESSED_TAG_PREFIX", "Processed"),
		ReplySentinel:      getEnv("REPLY_SENTINEL", "Triage_Reply_Reference_ID"),
		ApprovalMode:       getEnvBool("APPROVAL_MODE", false),
		RejectFolder:       getEnv("REJECT_FOLDER", ""),
		RoutingPolicyPath:  getEnv("ROUTING_POLICY_PATH", ""),
		CorrelationTTL:     getEnvDuration("CORRELATION_TTL", 30*24*time.Hour),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		CursorBackend: getEnv("CURSOR_BACKEND", "file"),
		CursorDir:     getEnv("CURSOR_DIR", "."),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:  getEnv("GOOGLE_CREDENTIALS", ""),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3.1"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
