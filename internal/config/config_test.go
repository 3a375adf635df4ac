package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("RETRY_DELAY", "1.5")
	t.Setenv("API_TIMEOUT", "750ms")

	cfg := Load()

	assert.Equal(t, "groq", cfg.Ai.LLMProvider)
	assert.Equal(t, "gsk_test", cfg.Ai.GroqAPIKey)
	assert.Equal(t, 1500*time.Millisecond, cfg.Ai.RetryDelay)
	assert.Equal(t, 750*time.Millisecond, cfg.Ai.APITimeout)
	assert.Equal(t, 2000, cfg.Security.MaxMessageLength)
	assert.Equal(t, 8000, cfg.Security.MaxContextLength)
	assert.Equal(t, 10, cfg.Conversation.MaxHistory)
	assert.Equal(t, 4000, cfg.Conversation.TokenLimit)
	assert.Equal(t, "1.0.0", cfg.App.WidgetVersion)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Security: SecurityConfig{
				AdminAPIKey:            "admin",
				MaxMessageLength:       2000,
				MaxContextLength:       8000,
				ExpandKnowledgeEnabled: true,
			},
			Ai: AIConfig{
				LLMProvider:       "groq",
				ExpansionProvider: "gemini",
				GroqAPIKey:        "g",
				GeminiAPIKey:      "m",
				APITimeout:        time.Second,
				MaxRetries:        3,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing groq key", func(c *Config) { c.Ai.GroqAPIKey = "" }, "GROQ_API_KEY"},
		{"missing admin credential", func(c *Config) { c.Security.AdminAPIKey = "" }, "ADMIN_API_KEY"},
		{"jwt secret is enough", func(c *Config) { c.Security.AdminAPIKey = ""; c.Security.JWTSecret = "s" }, ""},
		{"expansion disabled needs no admin", func(c *Config) {
			c.Security.ExpandKnowledgeEnabled = false
			c.Security.AdminAPIKey = ""
			c.Ai.GeminiAPIKey = ""
		}, ""},
		{"unknown provider", func(c *Config) { c.Ai.LLMProvider = "openai" }, "unsupported provider"},
		{"fallback needs key", func(c *Config) { c.Ai.FallbackProvider = "gemini"; c.Ai.GeminiAPIKey = "" }, "fallback"},
		{"ollama needs no key", func(c *Config) { c.Ai.LLMProvider = "ollama"; c.Ai.GroqAPIKey = "" }, ""},
		{"zero retries", func(c *Config) { c.Ai.MaxRetries = 0 }, "MAX_RETRIES"},
		{"tiny context bound", func(c *Config) { c.Security.MaxContextLength = 40 }, "MAX_CONTEXT_LENGTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
