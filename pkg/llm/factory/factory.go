package factory

import (
	"fmt"
	"net/http"
	"strings"

	"chatbot-engine-be/pkg/llm"
	"chatbot-engine-be/pkg/llm/gemini"
	"chatbot-engine-be/pkg/llm/groq"
	"chatbot-engine-be/pkg/llm/ollama"
)

// ProviderConfig carries everything a backend needs to be constructed
type ProviderConfig struct {
	Type    string
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch strings.ToLower(cfg.Type) {
	case "groq", "grok":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("groq provider requires an api key")
		}
		return groq.NewGroqProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Client), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return gemini.NewGeminiProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Client), nil
	case "ollama":
		p := ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model)
		if cfg.Client != nil {
			p.Client = cfg.Client
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}
