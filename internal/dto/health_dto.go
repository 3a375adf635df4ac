package dto

import "chatbot-engine-be/internal/pkg/metrics"

type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Version      string            `json:"version"`
	Services     map[string]string `json:"services"`
	Dependencies map[string]string `json:"dependencies"`
	Metrics      metrics.Snapshot  `json:"metrics"`
	Knowledge    KnowledgeStats    `json:"knowledge"`
	Sessions     int               `json:"active_sessions"`
}

type KnowledgeStats struct {
	Entries   int    `json:"entries"`
	LoadError string `json:"load_error,omitempty"`
}
