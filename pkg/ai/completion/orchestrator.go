// Package completion wraps one or more LLM providers with per-attempt
// timeouts, bounded retries and a fixed fallback reply. Callers never see
// an upstream error.
package completion

import (
	"context"
	"errors"
	"time"

	"chatbot-engine-be/pkg/ai/retry"
	"chatbot-engine-be/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultFallbackText = "I'm having trouble connecting to my AI service. Please try again in a moment."

// FailureRecorder receives one call per failed attempt
type FailureRecorder interface {
	RecordAPIFailure(provider string)
}

type Config struct {
	MaxRetries     int
	BaseDelay      time.Duration
	Timeout        time.Duration
	RateLimitDelay time.Duration
	FallbackText   string
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		Timeout:        30 * time.Second,
		RateLimitDelay: 2 * time.Second,
		FallbackText:   DefaultFallbackText,
	}
}

// Result is the outcome of Complete. Usage is nil on fallback or when the
// upstream reported none.
type Result struct {
	Text     string
	Usage    *llm.Usage
	Provider string
	Attempts int
	Fallback bool
}

type Orchestrator struct {
	providers []llm.LLMProvider
	cfg       Config
	clock     retry.Clock
	failures  FailureRecorder
	llmOpts   []llm.Option
	tracer    trace.Tracer
}

type Option func(*Orchestrator)

// WithSecondary adds a provider tried with the same policy once the primary is exhausted
func WithSecondary(p llm.LLMProvider) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.providers = append(o.providers, p)
		}
	}
}

func WithClock(c retry.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

func WithFailureRecorder(r FailureRecorder) Option {
	return func(o *Orchestrator) { o.failures = r }
}

// WithLLMOptions forwards request options (temperature, system prompt...) to every call
func WithLLMOptions(opts ...llm.Option) Option {
	return func(o *Orchestrator) { o.llmOpts = append(o.llmOpts, opts...) }
}

func New(primary llm.LLMProvider, cfg Config, opts ...Option) *Orchestrator {
	def := DefaultConfig()
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FallbackText == "" {
		cfg.FallbackText = def.FallbackText
	}

	o := &Orchestrator{
		providers: []llm.LLMProvider{primary},
		cfg:       cfg,
		clock:     retry.RealClock,
		tracer:    otel.Tracer("chatbot-engine-be/completion"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete returns the first successful completion, or the fallback text
// once every provider has used up its attempts.
func (o *Orchestrator) Complete(ctx context.Context, payload string) Result {
	res, err := o.Try(ctx, payload)
	if err != nil {
		return Result{Text: o.cfg.FallbackText, Attempts: res.Attempts, Fallback: true}
	}
	return res
}

// Try runs the same policy as Complete but reports exhaustion as an error
// wrapping retry.ErrExhausted (or the context error) instead of falling back.
func (o *Orchestrator) Try(ctx context.Context, payload string) (Result, error) {
	total := 0
	var lastErr error
	for _, p := range o.providers {
		provider := p
		resp, n, err := retry.Do(ctx, retry.Options{
			MaxAttempts: o.cfg.MaxRetries,
			Policy:      retry.Linear(o.cfg.BaseDelay),
			Clock:       o.clock,
			OnFailure: func(int, error) {
				if o.failures != nil {
					o.failures.RecordAPIFailure(provider.Name())
				}
			},
		}, func(ctx context.Context, attempt int) (*llm.Response, error) {
			return o.attempt(ctx, provider, payload, attempt)
		})
		total += n
		if err == nil {
			return Result{
				Text:     resp.Text,
				Usage:    resp.Usage,
				Provider: provider.Name(),
				Attempts: total,
			}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return Result{Attempts: total}, lastErr
}

// Go runs Complete in the background. The channel receives exactly one Result.
func (o *Orchestrator) Go(ctx context.Context, payload string) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		out <- o.Complete(ctx, payload)
	}()
	return out
}

func (o *Orchestrator) attempt(ctx context.Context, p llm.LLMProvider, payload string, n int) (*llm.Response, error) {
	ctx, span := o.tracer.Start(ctx, "completion.attempt", trace.WithAttributes(
		attribute.String("llm.provider", p.Name()),
		attribute.Int("llm.attempt", n),
		attribute.Int("llm.payload_length", len(payload)),
	))
	defer span.End()

	resp, err := o.call(ctx, p, payload)
	if errors.Is(err, llm.ErrRateLimited) {
		// one extra call inside the same attempt
		span.AddEvent("rate_limited")
		if err := o.clock.Sleep(ctx, o.cfg.RateLimitDelay); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		resp, err = o.call(ctx, p, payload)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion attempt failed")
		return nil, err
	}
	if resp == nil || resp.Text == "" {
		span.SetStatus(codes.Error, "empty response")
		return nil, llm.ErrEmptyResponse
	}
	return resp, nil
}

func (o *Orchestrator) call(ctx context.Context, p llm.LLMProvider, payload string) (*llm.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	return p.Generate(ctx, payload, o.llmOpts...)
}
