package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chatbot-engine-be/pkg/events"
	pktNats "chatbot-engine-be/pkg/nats"

	"github.com/fatih/color"
)

// event_tail prints domain events from the cluster bus as they arrive.
func main() {
	url := flag.String("nats", os.Getenv("NATS_URL"), "NATS server URL")
	eventType := flag.String("type", "", "only show this event type, e.g. ESCALATION_RAISED")
	flag.Parse()

	if *url == "" {
		log.Fatal("set -nats or NATS_URL")
	}

	sub, err := pktNats.NewSubscriber(*url)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer sub.Close()

	subject := pktNats.SubjectPrefix + ".>"
	if *eventType != "" {
		subject = pktNats.Subject(*eventType)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, subject, "", func(_ context.Context, e events.Event) error {
		printEvent(e)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	color.Cyan("Tailing %s (Ctrl+C to stop)", subject)
	<-ctx.Done()
}

func printEvent(e events.Event) {
	data, _ := json.Marshal(e.Payload())
	stamp := e.Timestamp().Format("15:04:05")

	switch e.EventType() {
	case events.TypeEscalationRaised:
		color.Red("%s %-20s %s", stamp, e.EventType(), data)
	case events.TypeKnowledgeExpanded:
		color.Green("%s %-20s %s", stamp, e.EventType(), data)
	default:
		fmt.Printf("%s %-20s %s\n", stamp, e.EventType(), data)
	}
}
