package service

import (
	"context"
	"errors"
	"time"

	"chatbot-engine-be/internal/dto"
	"chatbot-engine-be/internal/pkg/logger"
	"chatbot-engine-be/internal/pkg/serverutils"
	"chatbot-engine-be/internal/repository/contract"
	"chatbot-engine-be/internal/repository/specification"
	"chatbot-engine-be/pkg/store"
)

const (
	defaultLogLimit  = 50
	defaultTurnLimit = 50
)

type IAdminService interface {
	GetSystemLogs(ctx context.Context, query dto.LogQuery) ([]*dto.LogListResponse, error)
	GetLogDetail(ctx context.Context, logId string) (*dto.LogDetailResponse, error)
	GetTurnStats(ctx context.Context, window time.Duration) (*dto.TurnStatsResponse, error)
	GetRecentTurns(ctx context.Context, query dto.TurnQuery) ([]*dto.TurnLogResponse, error)
}

type adminService struct {
	logger   logger.ILogger
	turnLogs contract.TurnLogRepository
	now      func() time.Time
}

// NewAdminService serves the operator views. turnLogs may be nil when the
// audit database is not configured.
func NewAdminService(logger logger.ILogger, turnLogs contract.TurnLogRepository) IAdminService {
	return &adminService{logger: logger, turnLogs: turnLogs, now: time.Now}
}

func (s *adminService) GetSystemLogs(ctx context.Context, query dto.LogQuery) ([]*dto.LogListResponse, error) {
	if query.Limit <= 0 {
		query.Limit = defaultLogLimit
	}

	logs, err := s.logger.GetLogs(query.Level, query.Limit, query.Offset)
	if err != nil {
		return nil, serverutils.Internal("Failed to read logs", err)
	}

	res := make([]*dto.LogListResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, &dto.LogListResponse{
			Id:        l.Id,
			Level:     l.Level,
			Module:    l.Module,
			Message:   l.Message,
			Timestamp: l.Timestamp,
		})
	}
	return res, nil
}

func (s *adminService) GetLogDetail(ctx context.Context, logId string) (*dto.LogDetailResponse, error) {
	l, err := s.logger.GetLogById(logId)
	if err != nil {
		if errors.Is(err, logger.ErrLogNotFound) {
			return nil, serverutils.NewAppError(404, "Log not found", err)
		}
		return nil, serverutils.Internal("Failed to read logs", err)
	}

	return &dto.LogDetailResponse{
		LogListResponse: dto.LogListResponse{
			Id:        l.Id,
			Level:     l.Level,
			Module:    l.Module,
			Message:   l.Message,
			Timestamp: l.Timestamp,
		},
		Details: l.Details,
	}, nil
}

func (s *adminService) GetTurnStats(ctx context.Context, window time.Duration) (*dto.TurnStatsResponse, error) {
	if s.turnLogs == nil {
		return nil, serverutils.NewAppError(503, "Turn audit log is not configured", nil)
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	since := specification.CreatedAfter{Since: s.now().Add(-window)}

	turns, err := s.turnLogs.Count(ctx, since)
	if err != nil {
		return nil, serverutils.Internal("Failed to read turn audit", err)
	}
	fallbacks, err := s.turnLogs.Count(ctx, since, specification.FallbackOnly{})
	if err != nil {
		return nil, serverutils.Internal("Failed to read turn audit", err)
	}
	escalations, err := s.turnLogs.Count(ctx, since, specification.ByStage{Stage: string(store.StageEmergency)})
	if err != nil {
		return nil, serverutils.Internal("Failed to read turn audit", err)
	}

	return &dto.TurnStatsResponse{
		Since:       since.Since.UTC().Format(time.RFC3339),
		Turns:       turns,
		Fallbacks:   fallbacks,
		Escalations: escalations,
	}, nil
}

func (s *adminService) GetRecentTurns(ctx context.Context, query dto.TurnQuery) ([]*dto.TurnLogResponse, error) {
	if s.turnLogs == nil {
		return nil, serverutils.NewAppError(503, "Turn audit log is not configured", nil)
	}
	if query.Limit <= 0 {
		query.Limit = defaultTurnLimit
	}

	var specs []specification.Specification
	if query.SessionHash != "" {
		specs = append(specs, specification.BySessionHash{SessionHash: query.SessionHash})
	}
	if query.Stage != "" {
		specs = append(specs, specification.ByStage{Stage: query.Stage})
	}
	specs = append(specs, specification.Pagination{Limit: query.Limit, Offset: query.Offset})

	rows, err := s.turnLogs.FindAll(ctx, specs...)
	if err != nil {
		return nil, serverutils.Internal("Failed to read turn audit", err)
	}

	res := make([]*dto.TurnLogResponse, 0, len(rows))
	for _, row := range rows {
		item := &dto.TurnLogResponse{
			Id:               row.Id.String(),
			SessionHash:      row.SessionHash,
			Stage:            row.Stage,
			Rule:             row.Rule,
			Provider:         row.Provider,
			Attempts:         row.Attempts,
			Fallback:         row.Fallback,
			KnowledgeMatches: row.KnowledgeMatches,
			LatencyMs:        row.LatencyMs,
			CreatedAt:        row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if row.TokenUsage != nil {
			item.TotalTokens = row.TokenUsage.TotalTokens
		}
		res = append(res, item)
	}
	return res, nil
}
