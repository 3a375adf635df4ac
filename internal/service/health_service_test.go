package service

import (
	"context"
	"errors"
	"testing"

	"chatbot-engine-be/internal/pkg/metrics"

	"github.com/stretchr/testify/assert"
)

type knowledgeStatus struct {
	count int
	err   error
}

func (k knowledgeStatus) Count() int       { return k.count }
func (k knowledgeStatus) LoadError() error { return k.err }

type sessionCount int

func (s sessionCount) Count() int { return int(s) }

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestHealth_Healthy(t *testing.T) {
	svc := NewHealthService("1.0.0", knowledgeStatus{count: 12}, sessionCount(3), metrics.NewRecorder(),
		HealthCheck{Name: "groq", Check: ok},
		HealthCheck{Name: "redis", Optional: true, Check: down},
	)

	resp := svc.Check(context.Background())

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, 12, resp.Knowledge.Entries)
	assert.Equal(t, 3, resp.Sessions)
	assert.Equal(t, "healthy", resp.Services["knowledge_base"])
	assert.Equal(t, "healthy", resp.Services["groq"])
	assert.Equal(t, "unhealthy", resp.Dependencies["redis"])
}

func TestHealth_Degraded(t *testing.T) {
	t.Run("required check fails", func(t *testing.T) {
		svc := NewHealthService("1.0.0", knowledgeStatus{count: 1}, sessionCount(0), metrics.NewRecorder(),
			HealthCheck{Name: "groq", Check: down},
		)
		resp := svc.Check(context.Background())
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unhealthy", resp.Services["groq"])
	})

	t.Run("knowledge file corrupt", func(t *testing.T) {
		svc := NewHealthService("1.0.0", knowledgeStatus{err: errors.New("bad json")}, sessionCount(0), metrics.NewRecorder())
		resp := svc.Check(context.Background())
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unhealthy", resp.Services["knowledge_base"])
		assert.NotEmpty(t, resp.Knowledge.LoadError)
	})
}
