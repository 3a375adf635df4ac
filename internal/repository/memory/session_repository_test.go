package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chatbot-engine-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_Lifecycle(t *testing.T) {
	repo := NewSessionRepository(DefaultSessionConfig())

	_, ok := repo.Snapshot("s1")
	assert.False(t, ok)

	repo.ApplyStage("s1", store.StageGathering, false)
	repo.RecordTurn("s1", "I have a rash", "Where is it?")

	s, ok := repo.Snapshot("s1")
	require.True(t, ok)
	assert.Equal(t, store.StageGathering, s.Stage)
	assert.Equal(t, 1, s.UserTurns)
	require.Len(t, s.History, 1)
	assert.Equal(t, "I have a rash", s.History[0].Utterance)

	repo.Clear("s1")
	_, ok = repo.Snapshot("s1")
	assert.False(t, ok)
}

func TestSessionRepository_ResetDropsHistory(t *testing.T) {
	repo := NewSessionRepository(DefaultSessionConfig())
	repo.RecordTurn("s", "a", "b")
	repo.RecordTurn("s", "c", "d")

	repo.ApplyStage("s", store.StageGreeting, true)

	s, _ := repo.Snapshot("s")
	assert.Empty(t, s.History)
	assert.Zero(t, s.UserTurns)
	assert.Equal(t, store.StageGreeting, s.Stage)
}

func TestSessionRepository_SnapshotIsACopy(t *testing.T) {
	repo := NewSessionRepository(DefaultSessionConfig())
	repo.RecordTurn("s", "a", "b")

	s, _ := repo.Snapshot("s")
	s.History[0].Utterance = "changed"

	again, _ := repo.Snapshot("s")
	assert.Equal(t, "a", again.History[0].Utterance)
}

func TestSessionRepository_TrimsByCount(t *testing.T) {
	repo := NewSessionRepository(SessionConfig{MaxHistory: 3, TokenLimit: 10000})
	for i := 0; i < 5; i++ {
		repo.RecordTurn("s", fmt.Sprintf("u%d", i), fmt.Sprintf("r%d", i))
	}

	s, _ := repo.Snapshot("s")
	require.Len(t, s.History, 3)
	assert.Equal(t, "u2", s.History[0].Utterance)
	assert.Equal(t, "u4", s.History[2].Utterance)
	assert.Equal(t, 5, s.UserTurns)
}

func TestSessionRepository_TrimsByTokens(t *testing.T) {
	repo := NewSessionRepository(SessionConfig{MaxHistory: 10, TokenLimit: 50})
	long := strings.Repeat("x", 80) // 20 tokens per utterance/reply pair of 80 chars

	for i := 0; i < 4; i++ {
		repo.RecordTurn("s", long, "")
	}

	s, _ := repo.Snapshot("s")
	assert.Len(t, s.History, 2)

	// a single oversized turn is still kept
	repo.RecordTurn("big", strings.Repeat("y", 1000), "")
	b, _ := repo.Snapshot("big")
	assert.Len(t, b.History, 1)
}

func TestSessionRepository_ConversationContext(t *testing.T) {
	repo := NewSessionRepository(DefaultSessionConfig())
	assert.Empty(t, repo.ConversationContext("missing", 0))

	repo.RecordTurn("s", "first", "one")
	repo.RecordTurn("s", "second", "two")

	assert.Equal(t, "User: first\nAssistant: one\nUser: second\nAssistant: two", repo.ConversationContext("s", 0))

	// budget only fits the newest pair: "User: second" + "Assistant: two" = 26 chars = 6 tokens
	assert.Equal(t, "User: second\nAssistant: two", repo.ConversationContext("s", 6))
}

func TestSessionRepository_BeginTurnSerializes(t *testing.T) {
	repo := NewSessionRepository(DefaultSessionConfig())
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release, err := repo.BeginTurn(ctx, "shared")
			require.NoError(t, err)
			defer release()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			repo.RecordTurn("shared", fmt.Sprintf("u%d", i), "r")
			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	s, _ := repo.Snapshot("shared")
	assert.Equal(t, 20, s.UserTurns)

	repo.gatesMu.Lock()
	assert.Empty(t, repo.gates)
	repo.gatesMu.Unlock()
}

func TestSessionRepository_BeginTurnDifferentSessions(t *testing.T) {
	repo := NewSessionRepository(DefaultSessionConfig())

	releaseA, err := repo.BeginTurn(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := repo.BeginTurn(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestSessionRepository_BeginTurnHonorsContext(t *testing.T) {
	repo := NewSessionRepository(DefaultSessionConfig())

	release, err := repo.BeginTurn(context.Background(), "s")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = repo.BeginTurn(ctx, "s")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op

	again, err := repo.BeginTurn(context.Background(), "s")
	require.NoError(t, err)
	again()
}
