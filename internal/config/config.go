package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinContextLength leaves room for the rules, the truncation marker and the message
const MinContextLength = 500

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	SMTP         SMTPConfig
	Security     SecurityConfig
	Ai           AIConfig
	Conversation ConversationConfig
	Storage      StorageConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	WidgetVersion      string
	DebugMode          bool
	LogTokenUsage      bool
}

type DatabaseConfig struct {
	// Empty disables the turn audit log
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
	// EscalationRecipient receives emergency escalation mails; empty disables them
	EscalationRecipient string
}

type SecurityConfig struct {
	AdminAPIKey            string
	JWTSecret              string
	MaxMessageLength       int
	MaxContextLength       int
	MaxKnowledgeEntries    int
	RateLimitRequests      int
	RateLimitWindow        time.Duration
	ExpandKnowledgeEnabled bool
}

type AIConfig struct {
	LLMProvider       string // "groq", "gemini" or "ollama"
	LLMModel          string
	FallbackProvider  string // optional secondary provider for chat
	ExpansionProvider string // provider used for knowledge extraction
	GroqAPIKey        string
	GroqBaseURL       string
	GeminiAPIKey      string
	GeminiModel       string
	OllamaBaseURL     string
	OllamaModel       string
	APITimeout        time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

type ConversationConfig struct {
	MaxHistory      int
	TokenLimit      int
	SessionTTL      time.Duration
	FollowupAfter   int
	ConclusionAfter int
	TurnCeiling     int
}

type StorageConfig struct {
	KnowledgeDir string
	RulesDir     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			WidgetVersion:      getEnv("WIDGET_VERSION", "1.0.0"),
			DebugMode:          getEnvAsBool("DEBUG_MODE", false),
			LogTokenUsage:      getEnvAsBool("LOG_TOKEN_USAGE", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:                getEnv("SMTP_HOST", ""),
			Port:                getEnvAsInt("SMTP_PORT", 587),
			Email:               getEnv("SMTP_EMAIL", ""),
			Password:            getEnv("SMTP_PASSWORD", ""),
			SenderName:          getEnv("SMTP_SENDER_NAME", "Chatbot Engine"),
			EscalationRecipient: getEnv("ESCALATION_EMAIL", ""),
		},
		Security: SecurityConfig{
			AdminAPIKey:            getEnv("ADMIN_API_KEY", ""),
			JWTSecret:              getEnv("JWT_SECRET", ""),
			MaxMessageLength:       getEnvAsInt("MAX_MESSAGE_LENGTH", 2000),
			MaxContextLength:       getEnvAsInt("MAX_CONTEXT_LENGTH", 8000),
			MaxKnowledgeEntries:    getEnvAsInt("MAX_KNOWLEDGE_ENTRIES", 10),
			RateLimitRequests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
			RateLimitWindow:        getEnvAsSeconds("RATE_LIMIT_WINDOW", 60*time.Second),
			ExpandKnowledgeEnabled: getEnvAsBool("EXPAND_KNOWLEDGE_ENABLED", true),
		},
		Ai: AIConfig{
			LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "groq")),
			LLMModel:          getEnv("LLM_MODEL", ""),
			FallbackProvider:  strings.ToLower(getEnv("FALLBACK_PROVIDER", "")),
			ExpansionProvider: strings.ToLower(getEnv("EXPANSION_PROVIDER", "gemini")),
			GroqAPIKey:        getEnv("GROQ_API_KEY", getEnv("GROK_API_KEY", "")),
			GroqBaseURL:       getEnv("GROQ_BASE_URL", ""),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			GeminiModel:       getEnv("GEMINI_MODEL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_MODEL", "llama3"),
			APITimeout:        getEnvAsSeconds("API_TIMEOUT", 30*time.Second),
			MaxRetries:        getEnvAsInt("MAX_RETRIES", 3),
			RetryDelay:        getEnvAsSeconds("RETRY_DELAY", time.Second),
		},
		Conversation: ConversationConfig{
			MaxHistory:      getEnvAsInt("MAX_CONVERSATION_HISTORY", 10),
			TokenLimit:      getEnvAsInt("CONVERSATION_TOKEN_LIMIT", 4000),
			SessionTTL:      getEnvAsSeconds("WIDGET_SESSION_TIMEOUT", time.Hour),
			FollowupAfter:   getEnvAsInt("STAGE_FOLLOWUP_AFTER", 2),
			ConclusionAfter: getEnvAsInt("STAGE_CONCLUSION_AFTER", 4),
			TurnCeiling:     getEnvAsInt("STAGE_TURN_CEILING", 5),
		},
		Storage: StorageConfig{
			KnowledgeDir: getEnv("KNOWLEDGE_DIR", "knowledge"),
			RulesDir:     getEnv("RULES_DIR", "rules"),
		},
	}
}

// Validate reports every missing or inconsistent setting at once
func (c *Config) Validate() error {
	var errs []error

	if err := c.requireProviderKey(c.Ai.LLMProvider); err != nil {
		errs = append(errs, err)
	}
	if c.Ai.FallbackProvider != "" {
		if err := c.requireProviderKey(c.Ai.FallbackProvider); err != nil {
			errs = append(errs, fmt.Errorf("fallback: %w", err))
		}
	}
	if c.Security.ExpandKnowledgeEnabled {
		if c.Security.AdminAPIKey == "" && c.Security.JWTSecret == "" {
			errs = append(errs, errors.New("ADMIN_API_KEY or JWT_SECRET is required when EXPAND_KNOWLEDGE_ENABLED=true"))
		}
		if err := c.requireProviderKey(c.Ai.ExpansionProvider); err != nil {
			errs = append(errs, fmt.Errorf("expansion: %w", err))
		}
	}
	if c.Ai.MaxRetries < 1 {
		errs = append(errs, errors.New("MAX_RETRIES must be at least 1"))
	}
	if c.Ai.APITimeout <= 0 {
		errs = append(errs, errors.New("API_TIMEOUT must be positive"))
	}
	if c.Security.MaxMessageLength <= 0 {
		errs = append(errs, errors.New("MAX_MESSAGE_LENGTH must be positive"))
	}
	if c.Security.MaxContextLength < MinContextLength {
		errs = append(errs, fmt.Errorf("MAX_CONTEXT_LENGTH must be at least %d", MinContextLength))
	}

	return errors.Join(errs...)
}

func (c *Config) requireProviderKey(provider string) error {
	switch provider {
	case "groq", "grok":
		if c.Ai.GroqAPIKey == "" {
			return errors.New("GROQ_API_KEY is required")
		}
	case "gemini":
		if c.Ai.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required")
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported provider %q", provider)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsSeconds reads a number of seconds ("30", "1.5") or a Go duration ("750ms")
func getEnvAsSeconds(key string, fallback time.Duration) time.Duration {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	if secs, err := strconv.ParseFloat(strValue, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	return fallback
}
