package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chatbot-engine-be/pkg/ai/retry"
	"chatbot-engine-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedProvider returns the queued outcomes in order, then repeats the last one
type scriptedProvider struct {
	name string

	mu       sync.Mutex
	outcomes []error
	calls    int
	block    bool
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Chat(ctx context.Context, _ []llm.Message, _ ...llm.Option) (*llm.Response, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	block := p.block
	var err error
	if len(p.outcomes) > 0 {
		if idx >= len(p.outcomes) {
			idx = len(p.outcomes) - 1
		}
		err = p.outcomes[idx]
	}
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &llm.Response{Text: p.name + " reply", Usage: &llm.Usage{TotalTokens: 7}}, nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Response, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	return ctx.Err()
}

type counter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *counter) RecordAPIFailure(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[provider]++
}

func (c *counter) Get(provider string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[provider]
}

var errTransport = errors.New("connection reset")

func testConfig() Config {
	return Config{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		Timeout:        time.Second,
		RateLimitDelay: 2 * time.Second,
		FallbackText:   DefaultFallbackText,
	}
}

func TestComplete_FailsTwiceThenSucceeds(t *testing.T) {
	p := &scriptedProvider{name: "groq", outcomes: []error{errTransport, llm.ErrEmptyResponse, nil}}
	clock := &fakeClock{}
	failures := &counter{}
	o := New(p, testConfig(), WithClock(clock), WithFailureRecorder(failures))

	res := o.Complete(context.Background(), "payload")

	assert.False(t, res.Fallback)
	assert.Equal(t, "groq reply", res.Text)
	assert.Equal(t, "groq", res.Provider)
	assert.Equal(t, 3, res.Attempts)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 2, failures.Get("groq"))
	// linear schedule: 1x, 2x base
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.waits)
}

func TestComplete_AlwaysFailsReturnsFallback(t *testing.T) {
	p := &scriptedProvider{name: "groq", outcomes: []error{&llm.StatusError{Provider: "groq", Code: 500}}}
	failures := &counter{}
	o := New(p, testConfig(), WithClock(&fakeClock{}), WithFailureRecorder(failures))

	res := o.Complete(context.Background(), "payload")

	assert.True(t, res.Fallback)
	assert.Equal(t, DefaultFallbackText, res.Text)
	assert.Nil(t, res.Usage)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, p.Calls())
	assert.Equal(t, 3, failures.Get("groq"))
}

func TestComplete_RateLimitRetriesOnceWithinAttempt(t *testing.T) {
	p := &scriptedProvider{name: "groq", outcomes: []error{llm.ErrRateLimited, nil}}
	clock := &fakeClock{}
	failures := &counter{}
	o := New(p, testConfig(), WithClock(clock), WithFailureRecorder(failures))

	res := o.Complete(context.Background(), "payload")

	assert.False(t, res.Fallback)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 2, p.Calls())
	assert.Zero(t, failures.Get("groq"))
	assert.Equal(t, []time.Duration{2 * time.Second}, clock.waits)
}

func TestComplete_RateLimitTwiceCountsOneFailure(t *testing.T) {
	p := &scriptedProvider{name: "groq", outcomes: []error{llm.ErrRateLimited, llm.ErrRateLimited, nil}}
	clock := &fakeClock{}
	failures := &counter{}
	o := New(p, testConfig(), WithClock(clock), WithFailureRecorder(failures))

	res := o.Complete(context.Background(), "payload")

	assert.False(t, res.Fallback)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, failures.Get("groq"))
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, clock.waits)
}

func TestComplete_SecondaryProvider(t *testing.T) {
	primary := &scriptedProvider{name: "groq", outcomes: []error{errTransport}}
	secondary := &scriptedProvider{name: "gemini"}
	failures := &counter{}
	o := New(primary, testConfig(), WithSecondary(secondary), WithClock(&fakeClock{}), WithFailureRecorder(failures))

	res := o.Complete(context.Background(), "payload")

	assert.False(t, res.Fallback)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, 4, res.Attempts)
	assert.Equal(t, 3, failures.Get("groq"))
	assert.Zero(t, failures.Get("gemini"))
}

func TestComplete_AttemptTimeout(t *testing.T) {
	p := &scriptedProvider{name: "groq", block: true}
	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond
	failures := &counter{}
	o := New(p, cfg, WithClock(&fakeClock{}), WithFailureRecorder(failures))

	res := o.Complete(context.Background(), "payload")

	assert.True(t, res.Fallback)
	assert.Equal(t, 3, failures.Get("groq"))
}

func TestComplete_CallerCancellation(t *testing.T) {
	p := &scriptedProvider{name: "groq", block: true}
	secondary := &scriptedProvider{name: "gemini"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(p, testConfig(), WithSecondary(secondary), WithClock(&fakeClock{}))
	res := o.Complete(ctx, "payload")

	assert.True(t, res.Fallback)
	assert.Zero(t, secondary.Calls())
}

func TestTry_ReportsExhaustion(t *testing.T) {
	p := &scriptedProvider{name: "gemini", outcomes: []error{llm.ErrSafetyBlocked}}
	o := New(p, testConfig(), WithClock(&fakeClock{}))

	res, err := o.Try(context.Background(), "payload")

	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, llm.ErrSafetyBlocked)
	assert.Equal(t, 3, res.Attempts)
	assert.Empty(t, res.Text)
}

func TestGo_DeliversOneResult(t *testing.T) {
	p := &scriptedProvider{name: "groq"}
	o := New(p, testConfig(), WithClock(&fakeClock{}))

	select {
	case res := <-o.Go(context.Background(), "payload"):
		assert.Equal(t, "groq reply", res.Text)
	case <-time.After(time.Second):
		t.Fatal("no result delivered")
	}
}

func TestNew_Defaults(t *testing.T) {
	o := New(&scriptedProvider{name: "x"}, Config{})
	assert.Equal(t, 3, o.cfg.MaxRetries)
	assert.Equal(t, DefaultFallbackText, o.cfg.FallbackText)
	assert.Equal(t, 30*time.Second, o.cfg.Timeout)
}
