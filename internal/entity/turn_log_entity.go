package entity

import (
	"time"

	"github.com/google/uuid"
)

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type TurnLog struct {
	Id               uuid.UUID
	SessionHash      string
	ClientHash       string
	Stage            string
	Rule             string
	Provider         string
	Attempts         int
	Fallback         bool
	KnowledgeMatches int
	LatencyMs        int64
	TokenUsage       *TokenUsage
	CreatedAt        time.Time
}
