// Package ingest turns free text into validated knowledge entries through a
// single extraction prompt.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chatbot-engine-be/pkg/store"
)

const MaxEntries = 10

var (
	ErrNotJSON       = errors.New("ingest: response is not valid JSON")
	ErrNoValidEntry  = errors.New("ingest: no valid knowledge entries in response")
	ErrEmptyResponse = errors.New("ingest: empty response")
)

const promptTemplate = `Process the following raw text into structured knowledge entries. Extract multiple knowledge entries if applicable.

Raw Text: %s
Source: %s
Domain: %s

Requirements:
1. Extract all relevant topics/concepts
2. Remove any hallucinations or unverified claims
3. Add confidence scores (0.0-1.0) based on information quality
4. Add risk levels (low/medium/high) based on potential impact
5. Output valid JSON array only
6. Maximum %d entries

Output Format (JSON Array):
[
  {
    "topic": "specific topic name",
    "symptoms_or_keywords": ["keyword1", "keyword2"],
    "response_guidance": "how to respond about this topic",
    "risk_level": "low/medium/high",
    "confidence": 0.8,
    "source": "%s"
  }
]

Return only the JSON array, no other text or formatting.`

// BuildExpansionPrompt renders the extraction prompt. raw is cut to maxLen runes.
func BuildExpansionPrompt(raw, source, domain string, maxLen int) string {
	if r := []rune(raw); maxLen > 0 && len(r) > maxLen {
		raw = string(r[:maxLen])
	}
	if domain == "" {
		domain = "general"
	}
	return fmt.Sprintf(promptTemplate, raw, source, domain, MaxEntries, source)
}

// Result separates accepted entries from the ones dropped by validation
type Result struct {
	Entries  []store.KnowledgeEntry
	Rejected int
}

// Parse decodes a model reply into entries. It strips markdown fences,
// accepts a single object or an array, keeps at most MaxEntries and drops
// entries that fail validation. It fails only when nothing usable remains.
func Parse(text string) (Result, error) {
	body := stripFences(text)
	if body == "" {
		return Result{}, ErrEmptyResponse
	}

	var raws []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal([]byte(body), &raws); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrNotJSON, err)
		}
	case '{':
		raws = []json.RawMessage{json.RawMessage(body)}
	default:
		return Result{}, ErrNotJSON
	}

	if len(raws) > MaxEntries {
		raws = raws[:MaxEntries]
	}

	var res Result
	for _, raw := range raws {
		entry, err := decodeEntry(raw)
		if err != nil {
			res.Rejected++
			continue
		}
		res.Entries = append(res.Entries, entry)
	}

	if len(res.Entries) == 0 {
		return res, ErrNoValidEntry
	}
	return res, nil
}

// Stamp sets domain and, when missing, source on every entry
func Stamp(entries []store.KnowledgeEntry, domain, source string) []store.KnowledgeEntry {
	if domain == "" {
		domain = "general"
	}
	out := make([]store.KnowledgeEntry, len(entries))
	for i, e := range entries {
		e.Domain = domain
		if e.Source == "" {
			e.Source = source
		}
		out[i] = e
	}
	return out
}

func decodeEntry(raw json.RawMessage) (store.KnowledgeEntry, error) {
	var e store.KnowledgeEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, err
	}

	risk, err := store.ParseRiskLevel(string(e.RiskLevel))
	if err != nil {
		return e, store.ErrInvalidRisk
	}
	e.RiskLevel = risk
	e.Topic = strings.TrimSpace(e.Topic)

	keywords := e.Keywords[:0]
	for _, k := range e.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	e.Keywords = keywords

	if err := e.Validate(); err != nil {
		return e, err
	}
	return e, nil
}

func stripFences(text string) string {
	b := bytes.TrimSpace([]byte(text))
	b = bytes.TrimPrefix(b, []byte("```json"))
	b = bytes.TrimPrefix(b, []byte("```"))
	b = bytes.TrimSuffix(b, []byte("```"))
	return string(bytes.TrimSpace(b))
}
