package store

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry() KnowledgeEntry {
	return KnowledgeEntry{
		Topic:      "dehydration",
		Keywords:   []string{"thirst", "dry mouth"},
		Guidance:   "suggest fluids",
		RiskLevel:  RiskMedium,
		Confidence: 0.7,
	}
}

func TestKnowledgeEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *KnowledgeEntry)
		wantErr error
	}{
		{"valid", func(*KnowledgeEntry) {}, nil},
		{"blank topic", func(e *KnowledgeEntry) { e.Topic = "  " }, ErrEmptyTopic},
		{"no keywords", func(e *KnowledgeEntry) { e.Keywords = nil }, ErrNoKeywords},
		{"blank keywords", func(e *KnowledgeEntry) { e.Keywords = []string{"", " "} }, ErrNoKeywords},
		{"unknown risk", func(e *KnowledgeEntry) { e.RiskLevel = "severe" }, ErrInvalidRisk},
		{"confidence above one", func(e *KnowledgeEntry) { e.Confidence = 1.2 }, ErrInvalidConfidence},
		{"negative confidence", func(e *KnowledgeEntry) { e.Confidence = -0.1 }, ErrInvalidConfidence},
		{"nan confidence", func(e *KnowledgeEntry) { e.Confidence = math.NaN() }, ErrInvalidConfidence},
		{"boundary confidence", func(e *KnowledgeEntry) { e.Confidence = 1 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestKnowledgeEntry_UnmarshalConfidence(t *testing.T) {
	var numeric, quoted, missing KnowledgeEntry

	require.NoError(t, json.Unmarshal([]byte(`{"topic":"a","symptoms_or_keywords":["x"],"risk_level":"low","confidence":0.9}`), &numeric))
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"a","symptoms_or_keywords":["x"],"risk_level":"low","confidence":"0.8"}`), &quoted))
	require.NoError(t, json.Unmarshal([]byte(`{"topic":"a","symptoms_or_keywords":["x"],"risk_level":"low"}`), &missing))

	assert.Equal(t, 0.9, numeric.Confidence)
	assert.Equal(t, 0.8, quoted.Confidence)
	assert.Equal(t, 0.5, missing.Confidence)
	assert.Equal(t, []string{"x"}, quoted.Keywords)
	assert.Equal(t, RiskLow, quoted.RiskLevel)

	var bad KnowledgeEntry
	err := json.Unmarshal([]byte(`{"topic":"a","confidence":"high"}`), &bad)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestParseRiskLevel(t *testing.T) {
	r, err := ParseRiskLevel(" HIGH ")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, r)

	_, err = ParseRiskLevel("extreme")
	assert.Error(t, err)
}

func TestStage(t *testing.T) {
	assert.True(t, StageConclusion.Terminal())
	assert.True(t, StageFarewell.Terminal())
	assert.False(t, StageEmergency.Terminal())
	assert.True(t, StageFollowup.Valid())
	assert.False(t, Stage("lost").Valid())
}
