package search

import (
	"sort"
	"strings"

	"chatbot-engine-be/pkg/store"
)

// Weights tune the relevance score
type Weights struct {
	Topic   float64 // topic appears verbatim in the utterance
	Keyword float64 // per keyword appearing verbatim
	Partial float64 // per keyword sharing at least one word with the utterance
}

func DefaultWeights() Weights {
	return Weights{Topic: 3.0, Keyword: 1.0, Partial: 0.3}
}

// Ranker selects the knowledge entries worth injecting into a prompt
type Ranker struct {
	weights Weights
}

func NewRanker(w Weights) *Ranker {
	return &Ranker{weights: w}
}

// scored only lives for the duration of one Rank call
type scored struct {
	entry store.KnowledgeEntry
	score float64
}

// Rank returns at most maxResults entries ordered by score then confidence.
// Entries that score zero are dropped; equal entries keep store order.
func (r *Ranker) Rank(utterance string, entries []store.KnowledgeEntry, maxResults int) []store.KnowledgeEntry {
	if len(entries) == 0 || maxResults <= 0 {
		return []store.KnowledgeEntry{}
	}

	lower := strings.ToLower(utterance)
	candidates := make([]scored, 0, len(entries))
	for _, e := range entries {
		if s := r.Score(e, lower); s > 0 {
			candidates = append(candidates, scored{entry: e, score: s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.Confidence > candidates[j].entry.Confidence
	})

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	out := make([]store.KnowledgeEntry, len(candidates))
	for i, c := range candidates {
		out[i] = c.entry
	}
	return out
}

// Score computes the relevance of one entry against an already lower-cased utterance
func (r *Ranker) Score(e store.KnowledgeEntry, lowerUtterance string) float64 {
	var score float64

	if topic := strings.ToLower(strings.TrimSpace(e.Topic)); topic != "" && strings.Contains(lowerUtterance, topic) {
		score += r.weights.Topic
	}

	for _, kw := range e.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lowerUtterance, kw) {
			score += r.weights.Keyword
		}
		for _, w := range strings.Fields(kw) {
			if strings.Contains(lowerUtterance, w) {
				score += r.weights.Partial
				break
			}
		}
	}

	// Confidence amplifies rather than gates
	return score * (0.5 + e.Confidence)
}
