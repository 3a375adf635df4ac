package store

import "time"

// Stage is the dialog phase attached to every session
type Stage string

const (
	StageGreeting   Stage = "greeting"
	StageGathering  Stage = "gathering"
	StageFollowup   Stage = "followup"
	StageConclusion Stage = "conclusion"
	StageEmergency  Stage = "emergency"
	StageFarewell   Stage = "farewell"
)

// Stages lists every valid stage in progression order (emergency last)
var Stages = []Stage{
	StageGreeting,
	StageGathering,
	StageFollowup,
	StageConclusion,
	StageFarewell,
	StageEmergency,
}

// Valid reports whether s is one of the known stages
func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the stage closes a dialog (restart is allowed from here)
func (s Stage) Terminal() bool {
	return s == StageConclusion || s == StageFarewell
}

// Turn is one utterance/reply pair
type Turn struct {
	Utterance string    `json:"utterance"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents the active conversation state in memory
type Session struct {
	ID    string `json:"id"`
	Stage Stage  `json:"stage"`

	// Oldest first, trimmed by the session repository
	History []Turn `json:"history"`

	// Number of user turns recorded since creation or the last reset
	UserTurns int `json:"user_turns"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand out of the repository lock
func (s *Session) Clone() Session {
	out := *s
	out.History = make([]Turn, len(s.History))
	copy(out.History, s.History)
	return out
}
