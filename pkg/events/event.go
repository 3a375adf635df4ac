package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeTurnCompleted     = "TURN_COMPLETED"
	TypeEscalationRaised  = "ESCALATION_RAISED"
	TypeKnowledgeExpanded = "KNOWLEDGE_EXPANDED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventID is unique per emitted event
	EventID() string

	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Encode serializes any Event into the envelope shared by every transport
func Encode(e Event) ([]byte, error) {
	return json.Marshal(BaseEvent{
		ID:         e.EventID(),
		Type:       e.EventType(),
		Data:       e.Payload(),
		OccurredAt: e.Timestamp(),
	})
}

func Decode(data []byte) (BaseEvent, error) {
	var e BaseEvent
	err := json.Unmarshal(data, &e)
	return e, err
}
