package service

import (
	"context"
	"encoding/json"
	"time"

	"chatbot-engine-be/internal/entity"
	"chatbot-engine-be/internal/pkg/logger"
	"chatbot-engine-be/internal/pkg/mailer"
	"chatbot-engine-be/internal/repository/contract"
	"chatbot-engine-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// EventForwarder relays events to the cluster bus (NATS JetStream)
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

// EscalationNotifier pushes escalations to live operator consoles
type EscalationNotifier interface {
	Broadcast(event events.Event)
}

type ConsumerDeps struct {
	Forwarder           EventForwarder
	TurnLogs            contract.TurnLogRepository
	Notifier            EscalationNotifier
	Mailer              mailer.IEmailService
	EscalationRecipient string
	Logger              logger.ILogger
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	ConsumerDeps
}

// NewConsumerService fans events from the in-process bus out to the optional
// sinks. A nil sink is skipped.
func NewConsumerService(subscriber message.Subscriber, topicName string, deps ConsumerDeps) IConsumerService {
	return &consumerService{subscriber: subscriber, topicName: topicName, ConsumerDeps: deps}
}

// Consume subscribes and processes messages until ctx is cancelled
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. Sinks are best effort and a Nack on the
// in-process bus would redeliver immediately.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.Logger.Error("consumer", "undecodable event", map[string]interface{}{"message_id": msg.UUID, "error": err.Error()})
		return
	}

	if cs.Forwarder != nil {
		if err := cs.Forwarder.Publish(ctx, event); err != nil {
			cs.Logger.Warn("consumer", "forward to NATS failed", map[string]interface{}{"type": event.Type, "error": err.Error()})
		}
	}

	switch event.Type {
	case events.TypeTurnCompleted:
		cs.auditTurn(ctx, event)
	case events.TypeEscalationRaised:
		cs.escalate(event)
	}
}

func (cs *consumerService) auditTurn(ctx context.Context, event events.BaseEvent) {
	if cs.TurnLogs == nil {
		return
	}

	row, err := turnLogFromEvent(event)
	if err != nil {
		cs.Logger.Warn("consumer", "malformed turn event", map[string]interface{}{"event_id": event.ID, "error": err.Error()})
		return
	}
	if err := cs.TurnLogs.Create(ctx, row); err != nil {
		cs.Logger.Error("consumer", "turn audit write failed", map[string]interface{}{"event_id": event.ID, "error": err.Error()})
	}
}

func (cs *consumerService) escalate(event events.BaseEvent) {
	if cs.Notifier != nil {
		cs.Notifier.Broadcast(event)
	}
	if cs.Mailer == nil || cs.EscalationRecipient == "" {
		return
	}

	sessionHash, _ := event.Data["session_hash"].(string)
	rule, _ := event.Data["rule"].(string)
	stage, _ := event.Data["stage"].(string)

	// SMTP can be slow; never hold up the bus
	go func() {
		err := cs.Mailer.SendEscalation(cs.EscalationRecipient, mailer.Escalation{
			EventID:     event.ID,
			SessionHash: sessionHash,
			Stage:       stage,
			Rule:        rule,
			OccurredAt:  event.OccurredAt,
		})
		if err != nil {
			cs.Logger.Error("consumer", "escalation mail failed", map[string]interface{}{"event_id": event.ID, "error": err.Error()})
		}
	}()
}

// turnEventData mirrors the TURN_COMPLETED payload
type turnEventData struct {
	SessionHash      string             `json:"session_hash"`
	ClientHash       string             `json:"client_hash"`
	Stage            string             `json:"stage"`
	Rule             string             `json:"rule"`
	Provider         string             `json:"provider"`
	Attempts         int                `json:"attempts"`
	Fallback         bool               `json:"fallback"`
	KnowledgeMatches int                `json:"knowledge_matches"`
	LatencyMs        int64              `json:"latency_ms"`
	TokenUsage       *entity.TokenUsage `json:"token_usage"`
}

func turnLogFromEvent(event events.BaseEvent) (*entity.TurnLog, error) {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	var d turnEventData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}

	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &entity.TurnLog{
		SessionHash:      d.SessionHash,
		ClientHash:       d.ClientHash,
		Stage:            d.Stage,
		Rule:             d.Rule,
		Provider:         d.Provider,
		Attempts:         d.Attempts,
		Fallback:         d.Fallback,
		KnowledgeMatches: d.KnowledgeMatches,
		LatencyMs:        d.LatencyMs,
		TokenUsage:       d.TokenUsage,
		CreatedAt:        createdAt,
	}, nil
}
