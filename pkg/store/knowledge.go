package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RiskLevel classifies how much harm a wrong answer on a topic could cause
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel normalizes s and checks it against the closed set
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch r := RiskLevel(strings.ToLower(strings.TrimSpace(s))); r {
	case RiskLow, RiskMedium, RiskHigh:
		return r, nil
	default:
		return "", fmt.Errorf("unknown risk level %q", s)
	}
}

// KnowledgeEntry is a stored fact used to ground model responses.
// Field names match the persisted JSON layout of the knowledge files.
type KnowledgeEntry struct {
	Topic      string    `json:"topic"`
	Keywords   []string  `json:"symptoms_or_keywords"`
	Guidance   string    `json:"response_guidance"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Confidence float64   `json:"confidence"`
	Domain     string    `json:"domain,omitempty"`
	Source     string    `json:"source,omitempty"`
}

var (
	ErrEmptyTopic        = errors.New("knowledge entry has empty topic")
	ErrNoKeywords        = errors.New("knowledge entry has no keywords")
	ErrInvalidRisk       = errors.New("knowledge entry has invalid risk level")
	ErrInvalidConfidence = errors.New("knowledge entry confidence out of range")
)

// Validate checks the entry invariants: non-empty topic and keyword set,
// risk level in the closed set, confidence within [0,1].
func (e KnowledgeEntry) Validate() error {
	if strings.TrimSpace(e.Topic) == "" {
		return ErrEmptyTopic
	}
	hasKeyword := false
	for _, k := range e.Keywords {
		if strings.TrimSpace(k) != "" {
			hasKeyword = true
			break
		}
	}
	if !hasKeyword {
		return ErrNoKeywords
	}
	if _, err := ParseRiskLevel(string(e.RiskLevel)); err != nil {
		return ErrInvalidRisk
	}
	if math.IsNaN(e.Confidence) || e.Confidence < 0 || e.Confidence > 1 {
		return ErrInvalidConfidence
	}
	return nil
}

// UnmarshalJSON accepts confidence either as a number or as a numeric
// string, since extracted entries often carry it quoted.
func (e *KnowledgeEntry) UnmarshalJSON(data []byte) error {
	type plain KnowledgeEntry
	aux := struct {
		*plain
		Confidence json.RawMessage `json:"confidence"`
	}{plain: (*plain)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c, err := parseConfidence(aux.Confidence)
	if err != nil {
		return err
	}
	e.Confidence = c
	return nil
}

func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0.5, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("confidence: %w", err)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("confidence %q: %w", s, ErrInvalidConfidence)
	}
	return f, nil
}
