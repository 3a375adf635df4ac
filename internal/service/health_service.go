package service

import (
	"context"
	"time"

	"chatbot-engine-be/internal/dto"
	"chatbot-engine-be/internal/pkg/metrics"
)

// HealthCheck reports one subsystem. A nil error means healthy.
type HealthCheck struct {
	Name string
	// Optional dependencies are reported but never degrade the service
	Optional bool
	Check    func(ctx context.Context) error
}

type IHealthService interface {
	Check(ctx context.Context) *dto.HealthResponse
}

type KnowledgeStatus interface {
	Count() int
	LoadError() error
}

type SessionCounter interface {
	Count() int
}

type healthService struct {
	version   string
	checks    []HealthCheck
	knowledge KnowledgeStatus
	sessions  SessionCounter
	metrics   *metrics.Recorder
	now       func() time.Time
}

func NewHealthService(version string, knowledge KnowledgeStatus, sessions SessionCounter, metrics *metrics.Recorder, checks ...HealthCheck) IHealthService {
	return &healthService{
		version:   version,
		checks:    checks,
		knowledge: knowledge,
		sessions:  sessions,
		metrics:   metrics,
		now:       time.Now,
	}
}

func (s *healthService) Check(ctx context.Context) *dto.HealthResponse {
	resp := &dto.HealthResponse{
		Status:       "healthy",
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		Version:      s.version,
		Services:     map[string]string{},
		Dependencies: map[string]string{},
		Metrics:      s.metrics.Snapshot(),
		Sessions:     s.sessions.Count(),
	}

	resp.Knowledge.Entries = s.knowledge.Count()
	resp.Services["knowledge_base"] = "healthy"
	if err := s.knowledge.LoadError(); err != nil {
		resp.Services["knowledge_base"] = "unhealthy"
		resp.Knowledge.LoadError = "knowledge files could not be parsed"
		resp.Status = "degraded"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for _, c := range s.checks {
		target := resp.Services
		if c.Optional {
			target = resp.Dependencies
		}
		if err := c.Check(ctx); err != nil {
			target[c.Name] = "unhealthy"
			if !c.Optional {
				resp.Status = "degraded"
			}
			continue
		}
		target[c.Name] = "healthy"
	}

	return resp
}
