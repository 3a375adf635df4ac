package dto

type ChatRequest struct {
	Utterance string `json:"utterance"`
	// Message is the legacy widget field; used when utterance is empty
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,max=128"`
}

func (r *ChatRequest) Text() string {
	if r.Utterance != "" {
		return r.Utterance
	}
	return r.Message
}

type ChatResponse struct {
	Response  string     `json:"response"`
	SessionID string     `json:"session_id"`
	Stage     string     `json:"stage"`
	Version   string     `json:"version"`
	Debug     *DebugInfo `json:"debug,omitempty"`
}

type EndSessionResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

type DebugInfo struct {
	KnowledgeMatches []KnowledgeMatch `json:"knowledge_matches"`
	ContextLength    int              `json:"context_length"`
	PromptLength     int              `json:"prompt_length"`
	PromptPreview    string           `json:"prompt_preview"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	TokenUsage       *TokenUsage      `json:"token_usage,omitempty"`
	Stage            string           `json:"stage"`
	StageRule        string           `json:"stage_rule"`
	Provider         string           `json:"provider,omitempty"`
	Attempts         int              `json:"attempts"`
	Fallback         bool             `json:"fallback"`
}

type KnowledgeMatch struct {
	Topic      string  `json:"topic"`
	Domain     string  `json:"domain,omitempty"`
	Confidence float64 `json:"confidence"`
	RiskLevel  string  `json:"risk_level"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
