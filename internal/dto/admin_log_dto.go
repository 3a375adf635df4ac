package dto

// Log ids are content digests, not UUIDs

type LogQuery struct {
	Level  string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type LogListResponse struct {
	Id        string `json:"id"`
	Level     string `json:"level"`
	Module    string `json:"module"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type LogDetailResponse struct {
	LogListResponse
	Details map[string]interface{} `json:"details"`
}

type TurnStatsResponse struct {
	Since       string `json:"since"`
	Turns       int64  `json:"turns"`
	Fallbacks   int64  `json:"fallbacks"`
	Escalations int64  `json:"escalations"`
}

type TurnQuery struct {
	SessionHash string `query:"session_hash" validate:"omitempty,max=64"`
	Stage       string `query:"stage" validate:"omitempty,oneof=greeting gathering followup conclusion farewell emergency"`
	Limit       int    `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset      int    `query:"offset" validate:"omitempty,min=0"`
}

type TurnLogResponse struct {
	Id               string `json:"id"`
	SessionHash      string `json:"session_hash"`
	Stage            string `json:"stage"`
	Rule             string `json:"rule"`
	Provider         string `json:"provider"`
	Attempts         int    `json:"attempts"`
	Fallback         bool   `json:"fallback"`
	KnowledgeMatches int    `json:"knowledge_matches"`
	LatencyMs        int64  `json:"latency_ms"`
	TotalTokens      int    `json:"total_tokens,omitempty"`
	CreatedAt        string `json:"created_at"`
}
