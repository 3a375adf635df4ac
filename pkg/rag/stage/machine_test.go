package stage

import (
	"fmt"
	"testing"

	"chatbot-engine-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turns(n int) []store.Turn {
	out := make([]store.Turn, n)
	for i := range out {
		out[i] = store.Turn{Utterance: fmt.Sprintf("u%d", i), Reply: fmt.Sprintf("r%d", i)}
	}
	return out
}

func TestNext_EmergencyFromAnyStage(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	for _, current := range append(store.Stages, store.Stage("bogus")) {
		t.Run(string(current), func(t *testing.T) {
			d := m.Next(current, "My dad has crushing CHEST PAIN!", turns(3), 3)
			assert.Equal(t, store.StageEmergency, d.Stage)
			assert.Equal(t, RuleEmergency, d.Rule)
			assert.False(t, d.Reset)
		})
	}
}

func TestNext_Rules(t *testing.T) {
	m := NewMachine(DefaultThresholds())

	tests := []struct {
		name      string
		current   store.Stage
		utterance string
		history   int
		count     int
		want      store.Stage
		wantRule  string
		wantReset bool
	}{
		{"treatment request before threshold", store.StageGathering, "tell me the treatment", 0, 1, store.StageConclusion, RuleDirectRequest, false},
		{"treatment request with history", store.StageGathering, "now tell me the treatment", 1, 2, store.StageConclusion, RuleDirectRequest, false},
		{"treatment request from farewell", store.StageFarewell, "what remedy should I use?", 4, 6, store.StageConclusion, RuleDirectRequest, false},
		{"restart from conclusion", store.StageConclusion, "hi", 4, 6, store.StageGreeting, RuleRestart, true},
		{"restart tolerates punctuation and case", store.StageConclusion, "Hello!!", 4, 6, store.StageGreeting, RuleRestart, true},
		{"restart by whole word", store.StageFarewell, "hey there", 5, 7, store.StageGreeting, RuleRestart, true},
		{"greeting word inside another word", store.StageConclusion, "this is fine", 4, 6, store.StageFarewell, RuleProgression, false},
		{"greeting outside terminal stages does not reset", store.StageGathering, "hello again", 1, 2, store.StageGathering, RuleProgression, false},
		{"ambivalent reply holds conclusion", store.StageConclusion, "ok", 4, 6, store.StageConclusion, RuleEarlyExit, false},
		{"ambivalent reply with punctuation", store.StageConclusion, "OK.", 4, 6, store.StageConclusion, RuleEarlyExit, false},
		{"clarification with history", store.StageFollowup, "huh?", 2, 3, store.StageConclusion, RuleClarification, false},
		{"clarification without enough history", store.StageGathering, "what?", 1, 2, store.StageGathering, RuleProgression, false},
		{"terse reply forces conclusion", store.StageGathering, "idk", 1, 2, store.StageConclusion, RuleEarlyExit, false},
		{"unserious reply forces conclusion", store.StageFollowup, "lol just kidding", 2, 3, store.StageConclusion, RuleEarlyExit, false},
		{"turn ceiling forces conclusion", store.StageGathering, "it also itches", 4, 5, store.StageConclusion, RuleEarlyExit, false},
		{"ceiling does not apply in farewell", store.StageFarewell, "it also itches", 6, 8, store.StageFarewell, RuleProgression, false},
		{"closing phrase", store.StageFollowup, "thanks, bye", 2, 3, store.StageFarewell, RuleFarewell, false},
		{"thank you leaves conclusion", store.StageConclusion, "thank you", 4, 6, store.StageFarewell, RuleFarewell, false},
		{"bare greeting stays in greeting", store.StageGreeting, "hello", 0, 1, store.StageGreeting, RuleProgression, false},
		{"greeting advances to gathering", store.StageGreeting, "I have a headache", 0, 1, store.StageGathering, RuleProgression, false},
		{"gathering holds until threshold", store.StageGathering, "since yesterday", 1, 2, store.StageGathering, RuleProgression, false},
		{"gathering passes threshold", store.StageGathering, "since yesterday", 2, 3, store.StageFollowup, RuleProgression, false},
		{"followup holds until threshold", store.StageFollowup, "a bit worse at night", 3, 4, store.StageFollowup, RuleProgression, false},
		{"conclusion moves to farewell", store.StageConclusion, "my knee still hurts", 4, 6, store.StageFarewell, RuleProgression, false},
		{"emergency settles into conclusion", store.StageEmergency, "it is calmer now", 2, 3, store.StageConclusion, RuleProgression, false},
		{"unknown stage resets to greeting", store.Stage("bogus"), "anything", 0, 1, store.StageGreeting, RuleProgression, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Next(tt.current, tt.utterance, turns(tt.history), tt.count)
			assert.Equal(t, tt.want, d.Stage)
			assert.Equal(t, tt.wantRule, d.Rule)
			assert.Equal(t, tt.wantReset, d.Reset)
		})
	}
}

func TestNext_ForwardOnlyProgression(t *testing.T) {
	m := NewMachine(DefaultThresholds())
	order := map[store.Stage]int{
		store.StageGreeting:   0,
		store.StageGathering:  1,
		store.StageFollowup:   2,
		store.StageConclusion: 3,
		store.StageFarewell:   4,
	}

	current := store.StageGreeting
	var history []store.Turn
	var seen []store.Stage
	for count := 1; count <= 7; count++ {
		d := m.Next(current, fmt.Sprintf("symptom detail %d", count), history, count)
		require.False(t, d.Reset)
		require.GreaterOrEqual(t, order[d.Stage], order[current], "stage went backwards at turn %d", count)
		require.LessOrEqual(t, order[d.Stage]-order[current], 1, "stage skipped at turn %d", count)
		if d.Stage == store.StageFollowup {
			require.Greater(t, count, m.Thresholds().FollowupAfter)
		}
		current = d.Stage
		seen = append(seen, current)
		history = append(history, store.Turn{Utterance: "u", Reply: "r"})
	}

	assert.Equal(t, []store.Stage{
		store.StageGathering,
		store.StageGathering,
		store.StageFollowup,
		store.StageFollowup,
		store.StageConclusion,
		store.StageFarewell,
		store.StageFarewell,
	}, seen)
}

func TestNext_CustomThresholds(t *testing.T) {
	m := NewMachine(Thresholds{FollowupAfter: 1, ConclusionAfter: 2, TurnCeiling: 10})

	assert.Equal(t, store.StageFollowup, m.Next(store.StageGathering, "more detail", turns(1), 2).Stage)
	assert.Equal(t, store.StageConclusion, m.Next(store.StageFollowup, "more detail", turns(2), 3).Stage)
	assert.Equal(t, store.StageGathering, m.Next(store.StageGathering, "more detail", nil, 1).Stage)
}

func TestNewMachine_ZeroThresholdsUseDefaults(t *testing.T) {
	m := NewMachine(Thresholds{})
	assert.Equal(t, DefaultThresholds(), m.Thresholds())
}

func TestNext_Deterministic(t *testing.T) {
	m := NewMachine(DefaultThresholds())
	first := m.Next(store.StageFollowup, "what should i do about it?", turns(2), 3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Next(store.StageFollowup, "what should i do about it?", turns(2), 3))
	}
}

func TestDirective(t *testing.T) {
	for _, s := range store.Stages {
		assert.Contains(t, Directive(s), "Stage: "+string(s))
	}
	assert.Equal(t, Directive(store.StageGreeting), Directive(store.Stage("bogus")))
}
