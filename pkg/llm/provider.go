package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrRateLimited       = errors.New("llm: rate limited")
	ErrSafetyBlocked     = errors.New("llm: content blocked by safety filter")
	ErrEmptyResponse     = errors.New("llm: empty response")
	ErrMalformedResponse = errors.New("llm: malformed response")
)

// StatusError is returned when the upstream answers with a non-200 status.
// errors.Is(err, ErrRateLimited) reports true for 429.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.Code == http.StatusTooManyRequests
}

// NewStatusError keeps at most 200 bytes of the upstream body
func NewStatusError(provider string, code int, body []byte) *StatusError {
	if len(body) > 200 {
		body = body[:200]
	}
	return &StatusError{Provider: provider, Code: code, Body: string(body)}
}

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage is the token accounting reported by the upstream, when it reports one
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Response struct {
	Text  string
	Usage *Usage
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	System      string // Prepended as a system message when set
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithSystem(system string) Option {
	return func(o *Options) {
		o.System = system
	}
}

// LLMProvider defines the contract for any LLM backend. Implementations
// validate the response structure and return ErrEmptyResponse or
// ErrMalformedResponse instead of a zero Response.
type LLMProvider interface {
	// Name identifies the backend in logs and failure counters
	Name() string

	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (*Response, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (*Response, error)
}
