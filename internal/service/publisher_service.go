package service

import (
	"context"
	"fmt"

	"chatbot-engine-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventsTopic is the in-process topic every domain event goes through
const EventsTopic = "chatbot.events"

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	topic  string
	pubSub message.Publisher
}

func NewPublisherService(topic string, pubSub message.Publisher) IPublisherService {
	return &publisherService{topic: topic, pubSub: pubSub}
}

func (s *publisherService) Publish(_ context.Context, event events.Event) error {
	payload, err := events.Encode(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventType(), err)
	}

	msg := message.NewMessage(event.EventID(), payload)
	msg.Metadata.Set("event_type", event.EventType())

	return s.pubSub.Publish(s.topic, msg)
}
