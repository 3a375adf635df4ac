package stage

import (
	"chatbot-engine-be/pkg/store"
)

// Rule names reported in a Decision, in evaluation order
const (
	RuleEmergency     = "emergency"
	RuleRestart       = "restart"
	RuleDirectRequest = "direct_request"
	RuleClarification = "clarification"
	RuleEarlyExit     = "early_exit"
	RuleFarewell      = "farewell"
	RuleProgression   = "progression"
)

// Thresholds are the user-turn counts that drive the default progression.
type Thresholds struct {
	// gathering -> followup once the user turn count passes this value
	FollowupAfter int
	// followup -> conclusion once the user turn count passes this value
	ConclusionAfter int
	// any non-terminal stage is forced to conclusion when the count reaches this value
	TurnCeiling int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		FollowupAfter:   2,
		ConclusionAfter: 4,
		TurnCeiling:     5,
	}
}

// Decision is the outcome of one transition
type Decision struct {
	Stage store.Stage
	// Reset asks the caller to drop the session history before recording this turn
	Reset bool
	// Rule names the transition rule that fired
	Rule string
}

// Machine computes stage transitions. It holds no per-session state; the
// same Machine is shared by every session.
type Machine struct {
	thresholds Thresholds
}

// NewMachine creates a stage machine. Zero threshold fields fall back to defaults.
func NewMachine(t Thresholds) *Machine {
	def := DefaultThresholds()
	if t.FollowupAfter <= 0 {
		t.FollowupAfter = def.FollowupAfter
	}
	if t.ConclusionAfter <= 0 {
		t.ConclusionAfter = def.ConclusionAfter
	}
	if t.TurnCeiling <= 0 {
		t.TurnCeiling = def.TurnCeiling
	}
	return &Machine{thresholds: t}
}

// Thresholds returns the effective thresholds
func (m *Machine) Thresholds() Thresholds {
	return m.thresholds
}

// Next decides the stage for the incoming utterance. userTurnCount counts user
// turns only and includes the current one. Rules are evaluated in a fixed
// priority order and the first match wins.
func (m *Machine) Next(current store.Stage, raw string, history []store.Turn, userTurnCount int) Decision {
	u := normalize(raw)

	// 1. Emergency override, from any stage
	if emergencyMarkers.Contains(u) {
		return Decision{Stage: store.StageEmergency, Rule: RuleEmergency}
	}

	// 2. Restart after a finished dialog
	if current.Terminal() && (greetingPhrases.Matches(u) || greetingPhrases.Contains(u)) {
		return Decision{Stage: store.StageGreeting, Reset: true, Rule: RuleRestart}
	}

	// 3. Direct request for resolution
	if treatmentPhrases.Contains(u) {
		return Decision{Stage: store.StageConclusion, Rule: RuleDirectRequest}
	}

	// 4. Clarification: re-summarize rather than restart
	if confusionTokens.Matches(u) && len(history) > 1 {
		return Decision{Stage: store.StageConclusion, Rule: RuleClarification}
	}

	// 5. Frustration / early exit
	frustrated := terseReplies.Matches(u) || earlyExitPhrases.Contains(u)
	switch {
	case current == store.StageConclusion && frustrated:
		// An ambivalent reply to a summary keeps the summary going
		return Decision{Stage: store.StageConclusion, Rule: RuleEarlyExit}
	case !current.Terminal() && (frustrated || userTurnCount >= m.thresholds.TurnCeiling):
		return Decision{Stage: store.StageConclusion, Rule: RuleEarlyExit}
	}

	// 6. Farewell
	if closingPhrases.Contains(u) {
		return Decision{Stage: store.StageFarewell, Rule: RuleFarewell}
	}

	// 7. Default progression
	return Decision{Stage: m.progress(current, u, userTurnCount), Rule: RuleProgression}
}

func (m *Machine) progress(current store.Stage, u utterance, userTurnCount int) store.Stage {
	switch current {
	case store.StageGreeting:
		if greetingPhrases.Matches(u) {
			return store.StageGreeting
		}
		return store.StageGathering
	case store.StageGathering:
		if userTurnCount > m.thresholds.FollowupAfter {
			return store.StageFollowup
		}
		return store.StageGathering
	case store.StageFollowup:
		if userTurnCount > m.thresholds.ConclusionAfter {
			return store.StageConclusion
		}
		return store.StageFollowup
	case store.StageConclusion:
		return store.StageFarewell
	case store.StageEmergency:
		return store.StageConclusion
	case store.StageFarewell:
		return store.StageFarewell
	default:
		return store.StageGreeting
	}
}
