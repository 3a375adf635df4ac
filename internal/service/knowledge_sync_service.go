package service

import (
	"context"

	"chatbot-engine-be/internal/pkg/logger"
	"chatbot-engine-be/pkg/events"
)

// KnowledgeReloader re-reads the knowledge files from disk
type KnowledgeReloader interface {
	Reload() error
	Count() int
}

type IKnowledgeSyncService interface {
	Handle(ctx context.Context, event events.Event) error
}

type knowledgeSyncService struct {
	knowledge KnowledgeReloader
	logger    logger.ILogger
}

// NewKnowledgeSyncService keeps instances sharing one knowledge directory in
// step: any KNOWLEDGE_EXPANDED seen on the cluster bus triggers a reload.
func NewKnowledgeSyncService(knowledge KnowledgeReloader, logger logger.ILogger) IKnowledgeSyncService {
	return &knowledgeSyncService{knowledge: knowledge, logger: logger}
}

func (s *knowledgeSyncService) Handle(_ context.Context, event events.Event) error {
	if event.EventType() != events.TypeKnowledgeExpanded {
		return nil
	}

	// a corrupt file is reported through health; redelivery would not fix it
	if err := s.knowledge.Reload(); err != nil {
		s.logger.Warn("knowledge_sync", "reload failed", map[string]interface{}{"event_id": event.EventID(), "error": err.Error()})
		return nil
	}

	s.logger.Info("knowledge_sync", "knowledge reloaded", map[string]interface{}{
		"event_id": event.EventID(),
		"entries":  s.knowledge.Count(),
	})
	return nil
}
