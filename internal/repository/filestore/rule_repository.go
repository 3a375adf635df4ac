package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	RulesFile = "rules.txt"

	// FallbackRules is used whenever the rules file cannot be read
	FallbackRules = "Be helpful and accurate."
)

const defaultRules = `# Chatbot Rules

## Core Behavior
- Always be helpful and accurate
- If you don't know something, say so
- Use the provided knowledge base to answer questions
- Be concise but thorough

## Safety Guidelines
- Never provide medical advice - always recommend consulting professionals
- Don't make definitive diagnoses
- Include appropriate disclaimers when discussing health topics

## Response Format
- Use clear, easy-to-understand language
- Structure responses with bullet points when helpful
- Always cite knowledge sources when available
`

type RuleRepository struct {
	path string
}

// NewRuleRepository writes the default rules file when none exists
func NewRuleRepository(dir string) (*RuleRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create rules dir: %w", err)
	}
	r := &RuleRepository{path: filepath.Join(dir, RulesFile)}
	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		if err := r.Update(defaultRules); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Load returns the rules text. A missing file is recreated with the
// defaults; any other failure is returned alongside FallbackRules.
func (r *RuleRepository) Load() (string, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := r.Update(defaultRules); err != nil {
			return FallbackRules, err
		}
		return defaultRules, nil
	}
	if err != nil {
		return FallbackRules, fmt.Errorf("read rules: %w", err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return FallbackRules, nil
	}
	return text, nil
}

func (r *RuleRepository) Update(rules string) error {
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(rules), 0o644); err != nil {
		return fmt.Errorf("write rules: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace rules: %w", err)
	}
	return nil
}
