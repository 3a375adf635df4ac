package nats

import (
	"testing"

	"chatbot-engine-be/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "chatbot.turn_completed", Subject(events.TypeTurnCompleted))
	assert.Equal(t, "chatbot.escalation_raised", Subject(events.TypeEscalationRaised))
}

func TestPublisher_ConnectedNil(t *testing.T) {
	var p *Publisher
	assert.False(t, p.Connected())
}
