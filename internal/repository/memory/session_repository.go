package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"chatbot-engine-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// CharsPerToken is the rough estimate used for every token budget
const CharsPerToken = 4

type SessionConfig struct {
	// TTL evicts idle sessions
	TTL             time.Duration
	CleanupInterval time.Duration
	// MaxHistory caps the number of turns kept per session
	MaxHistory int
	// TokenLimit caps the estimated size of the kept history
	TokenLimit int
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:             time.Hour,
		CleanupInterval: 10 * time.Minute,
		MaxHistory:      10,
		TokenLimit:      4000,
	}
}

type turnGate struct {
	slot chan struct{}
	refs int
}

// SessionRepository keeps conversation state in memory. Whole turns on the
// same session are serialized through BeginTurn; the state lock itself is
// only held while a session is read or mutated, never across upstream calls.
type SessionRepository struct {
	cache *cache.Cache
	cfg   SessionConfig

	mu sync.Mutex

	gatesMu sync.Mutex
	gates   map[string]*turnGate

	now func() time.Time
}

func NewSessionRepository(cfg SessionConfig) *SessionRepository {
	def := DefaultSessionConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.TokenLimit <= 0 {
		cfg.TokenLimit = def.TokenLimit
	}

	return &SessionRepository{
		cache: cache.New(cfg.TTL, cfg.CleanupInterval),
		cfg:   cfg,
		gates: make(map[string]*turnGate),
		now:   time.Now,
	}
}

// BeginTurn blocks until no other turn is running on sessionID. The returned
// release func must be called exactly once; extra calls are no-ops.
func (r *SessionRepository) BeginTurn(ctx context.Context, sessionID string) (func(), error) {
	r.gatesMu.Lock()
	g, ok := r.gates[sessionID]
	if !ok {
		g = &turnGate{slot: make(chan struct{}, 1)}
		r.gates[sessionID] = g
	}
	g.refs++
	r.gatesMu.Unlock()

	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		r.dropGate(sessionID, g)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-g.slot
			r.dropGate(sessionID, g)
		})
	}, nil
}

func (r *SessionRepository) dropGate(sessionID string, g *turnGate) {
	r.gatesMu.Lock()
	defer r.gatesMu.Unlock()
	g.refs--
	if g.refs == 0 {
		delete(r.gates, sessionID)
	}
}

// Snapshot returns a copy of the session, if present
func (r *SessionRepository) Snapshot(sessionID string) (store.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.get(sessionID)
	if !ok {
		return store.Session{}, false
	}
	return s.Clone(), true
}

// ApplyStage sets the stage, creating the session on first use. reset drops
// the history and the user turn count first.
func (r *SessionRepository) ApplyStage(sessionID string, stage store.Stage, reset bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreate(sessionID)
	if reset {
		s.History = nil
		s.UserTurns = 0
	}
	s.Stage = stage
	s.UpdatedAt = r.now()
	r.cache.SetDefault(sessionID, s)
}

// RecordTurn appends a completed turn and trims the history
func (r *SessionRepository) RecordTurn(sessionID, utterance, reply string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getOrCreate(sessionID)
	now := r.now()
	s.History = append(s.History, store.Turn{
		Utterance: utterance,
		Reply:     reply,
		Timestamp: now,
	})
	s.UserTurns++
	s.UpdatedAt = now
	r.trim(s)
	r.cache.SetDefault(sessionID, s)
}

func (r *SessionRepository) Clear(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// ConversationContext renders the most recent turns, oldest first, that fit
// in maxTokens. maxTokens <= 0 uses the configured limit.
func (r *SessionRepository) ConversationContext(sessionID string, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = r.cfg.TokenLimit
	}

	snap, ok := r.Snapshot(sessionID)
	if !ok || len(snap.History) == 0 {
		return ""
	}

	var parts []string
	used := 0
	for i := len(snap.History) - 1; i >= 0; i-- {
		t := snap.History[i]
		user := "User: " + t.Utterance
		assistant := "Assistant: " + t.Reply
		cost := (len(user) + len(assistant)) / CharsPerToken
		if used+cost > maxTokens {
			break
		}
		parts = append([]string{user, assistant}, parts...)
		used += cost
	}
	return strings.Join(parts, "\n")
}

func (r *SessionRepository) get(sessionID string) (*store.Session, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session), true
	}
	return nil, false
}

func (r *SessionRepository) getOrCreate(sessionID string) *store.Session {
	if s, ok := r.get(sessionID); ok {
		return s
	}
	now := r.now()
	return &store.Session{
		ID:        sessionID,
		Stage:     store.StageGreeting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// trim drops turns from the oldest end until both limits hold. The newest
// turn is always kept.
func (r *SessionRepository) trim(s *store.Session) {
	if len(s.History) > r.cfg.MaxHistory {
		s.History = append([]store.Turn(nil), s.History[len(s.History)-r.cfg.MaxHistory:]...)
	}

	total := 0
	for _, t := range s.History {
		total += turnTokens(t)
	}
	drop := 0
	for total > r.cfg.TokenLimit && drop < len(s.History)-1 {
		total -= turnTokens(s.History[drop])
		drop++
	}
	if drop > 0 {
		s.History = append([]store.Turn(nil), s.History[drop:]...)
	}
}

func turnTokens(t store.Turn) int {
	return (len(t.Utterance) + len(t.Reply)) / CharsPerToken
}
