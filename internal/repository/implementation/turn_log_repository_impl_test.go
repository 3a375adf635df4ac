package implementation

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"chatbot-engine-be/internal/entity"
	"chatbot-engine-be/internal/model"
	"chatbot-engine-be/internal/repository/specification"
	"chatbot-engine-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Postgres; skipped unless DB_CONNECTION_STRING is set.
func TestTurnLogRepository_Postgres(t *testing.T) {
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.TurnLog{}))

	repo := NewTurnLogRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))

	// unique hash keeps runs against a shared database apart
	sessionHash := uuid.NewString()[:16]
	t.Cleanup(func() {
		db.Where("session_hash = ?", sessionHash).Delete(&model.TurnLog{})
	})

	started := time.Now().Add(-time.Second)
	rows := []*entity.TurnLog{
		{SessionHash: sessionHash, ClientHash: "c1", Stage: "greeting", Rule: "progression", Provider: "groq", Attempts: 1, CreatedAt: time.Now()},
		{SessionHash: sessionHash, ClientHash: "c1", Stage: "emergency", Rule: "emergency", Provider: "groq", Attempts: 3, Fallback: true,
			TokenUsage: &entity.TokenUsage{TotalTokens: 99}, CreatedAt: time.Now().Add(time.Millisecond)},
	}
	for _, r := range rows {
		require.NoError(t, repo.Create(ctx, r))
		assert.NotEqual(t, uuid.Nil, r.Id)
	}

	t.Run("FindAll newest first", func(t *testing.T) {
		found, err := repo.FindAll(ctx, specification.BySessionHash{SessionHash: sessionHash})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "emergency", found[0].Stage)
		require.NotNil(t, found[0].TokenUsage)
		assert.Equal(t, 99, found[0].TokenUsage.TotalTokens)
	})

	t.Run("Count with specifications", func(t *testing.T) {
		n, err := repo.Count(ctx,
			specification.BySessionHash{SessionHash: sessionHash},
			specification.CreatedAfter{Since: started},
			specification.FallbackOnly{},
		)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
