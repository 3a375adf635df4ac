package mapper

import (
	"encoding/json"

	"chatbot-engine-be/internal/entity"
	"chatbot-engine-be/internal/model"

	"gorm.io/datatypes"
)

type TurnLogMapper struct{}

func NewTurnLogMapper() *TurnLogMapper {
	return &TurnLogMapper{}
}

func (m *TurnLogMapper) ToModel(e *entity.TurnLog) *model.TurnLog {
	if e == nil {
		return nil
	}

	var usage datatypes.JSON
	if e.TokenUsage != nil {
		if b, err := json.Marshal(e.TokenUsage); err == nil {
			usage = datatypes.JSON(b)
		}
	}

	return &model.TurnLog{
		Id:               e.Id,
		SessionHash:      e.SessionHash,
		ClientHash:       e.ClientHash,
		Stage:            e.Stage,
		Rule:             e.Rule,
		Provider:         e.Provider,
		Attempts:         e.Attempts,
		Fallback:         e.Fallback,
		KnowledgeMatches: e.KnowledgeMatches,
		LatencyMs:        e.LatencyMs,
		TokenUsage:       usage,
		CreatedAt:        e.CreatedAt,
	}
}

func (m *TurnLogMapper) ToEntity(t *model.TurnLog) *entity.TurnLog {
	if t == nil {
		return nil
	}

	var usage *entity.TokenUsage
	if len(t.TokenUsage) > 0 {
		var u entity.TokenUsage
		if err := json.Unmarshal(t.TokenUsage, &u); err == nil {
			usage = &u
		}
	}

	return &entity.TurnLog{
		Id:               t.Id,
		SessionHash:      t.SessionHash,
		ClientHash:       t.ClientHash,
		Stage:            t.Stage,
		Rule:             t.Rule,
		Provider:         t.Provider,
		Attempts:         t.Attempts,
		Fallback:         t.Fallback,
		KnowledgeMatches: t.KnowledgeMatches,
		LatencyMs:        t.LatencyMs,
		TokenUsage:       usage,
		CreatedAt:        t.CreatedAt,
	}
}
