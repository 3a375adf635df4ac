package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"chatbot-engine-be/internal/dto"
	"chatbot-engine-be/internal/pkg/logger"
	"chatbot-engine-be/internal/pkg/metrics"
	"chatbot-engine-be/internal/pkg/serverutils"
	"chatbot-engine-be/pkg/ai/completion"
	"chatbot-engine-be/pkg/events"
	"chatbot-engine-be/pkg/rag/ingest"
	"chatbot-engine-be/pkg/store"
)

type IKnowledgeService interface {
	Expand(ctx context.Context, req *dto.ExpandKnowledgeRequest) (*dto.ExpandKnowledgeResponse, error)
}

type KnowledgeWriter interface {
	AppendExpanded(entries []store.KnowledgeEntry) error
	AppendCore(entries []store.KnowledgeEntry) error
}

const (
	TargetExpanded = "expanded"
	TargetCore     = "core"
)

// Extractor fails once retries are exhausted; expansion has no fallback text
type Extractor interface {
	Try(ctx context.Context, payload string) (completion.Result, error)
}

type KnowledgeConfig struct {
	Enabled       bool
	MaxTextLength int
}

type knowledgeService struct {
	cfg       KnowledgeConfig
	extractor Extractor
	store     KnowledgeWriter
	metrics   *metrics.Recorder
	publisher IPublisherService
	logger    logger.ILogger
}

func NewKnowledgeService(
	cfg KnowledgeConfig,
	extractor Extractor,
	store KnowledgeWriter,
	metrics *metrics.Recorder,
	publisher IPublisherService,
	logger logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		cfg:       cfg,
		extractor: extractor,
		store:     store,
		metrics:   metrics,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *knowledgeService) Expand(ctx context.Context, req *dto.ExpandKnowledgeRequest) (*dto.ExpandKnowledgeResponse, error) {
	if !s.cfg.Enabled {
		s.logger.Warn("security", "disabled_endpoint_access", map[string]interface{}{"endpoint": "/expand-knowledge"})
		return nil, serverutils.Forbidden("Knowledge expansion is disabled")
	}

	domain := req.Domain
	if domain == "" {
		domain = "general"
	}
	textLen := utf8.RuneCountInString(req.RawText)
	if s.cfg.MaxTextLength > 0 && textLen > s.cfg.MaxTextLength {
		s.metrics.RecordError("knowledge_expansion_http")
		return nil, serverutils.BadRequest("Text too long")
	}

	payload := ingest.BuildExpansionPrompt(req.RawText, req.SourceTag, domain, s.cfg.MaxTextLength)
	res, err := s.extractor.Try(ctx, payload)
	if err != nil {
		s.logger.Error("knowledge_expansion", "extraction failed", map[string]interface{}{
			"source_tag":  req.SourceTag,
			"text_length": textLen,
			"domain":      domain,
			"attempts":    res.Attempts,
			"error":       err.Error(),
		})
		s.metrics.RecordError("knowledge_expansion_general")
		return nil, serverutils.Internal("Knowledge expansion failed", err)
	}

	parsed, err := ingest.Parse(res.Text)
	if err != nil {
		s.logExpansion(req.SourceTag, textLen, 0, parsed.Rejected, false)
		s.metrics.RecordError("knowledge_expansion_http")
		if errors.Is(err, ingest.ErrNoValidEntry) || errors.Is(err, ingest.ErrNotJSON) || errors.Is(err, ingest.ErrEmptyResponse) {
			return nil, serverutils.NewAppError(400, "No valid knowledge extracted", err)
		}
		return nil, serverutils.Internal("Knowledge expansion failed", err)
	}

	entries := ingest.Stamp(parsed.Entries, domain, req.SourceTag)
	target := req.Target
	if target == "" {
		target = TargetExpanded
	}
	write := s.store.AppendExpanded
	if target == TargetCore {
		write = s.store.AppendCore
	}
	if err := write(entries); err != nil {
		s.logger.Error("knowledge_expansion", "store write failed", map[string]interface{}{"error": err.Error()})
		s.metrics.RecordError("knowledge_expansion_general")
		return nil, serverutils.Internal("Knowledge expansion failed", err)
	}

	s.logExpansion(req.SourceTag, textLen, len(entries), parsed.Rejected, true)

	if s.publisher != nil {
		event := events.New(events.TypeKnowledgeExpanded, map[string]interface{}{
			"source_tag":    req.SourceTag,
			"domain":        domain,
			"entries_added": len(entries),
			"target":        target,
			"rejected":      parsed.Rejected,
			"provider":      res.Provider,
		})
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("events", "publish failed", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
		}
	}

	return &dto.ExpandKnowledgeResponse{
		Status:       "success",
		EntriesAdded: len(entries),
		Domain:       domain,
		Target:       target,
	}, nil
}

func (s *knowledgeService) logExpansion(source string, textLen, added, rejected int, ok bool) {
	s.logger.Info("knowledge_expansion", "expansion processed", map[string]interface{}{
		"source_tag":    source,
		"text_length":   textLen,
		"entries_added": added,
		"rejected":      rejected,
		"success":       ok,
	})
}
