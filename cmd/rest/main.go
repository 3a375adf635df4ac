package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"chatbot-engine-be/internal/bootstrap"
	"chatbot-engine-be/internal/config"
	"chatbot-engine-be/internal/server"
	"chatbot-engine-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] Invalid configuration:\n%v", err)
	}

	// 2. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.WidgetVersion)

	// 3. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("[FATAL] Failed to bootstrap: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, container)
	g, gctx := errgroup.WithContext(ctx)

	// 4. Start Background Services
	g.Go(func() error {
		container.WebSocketHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Println("Background: Starting Consumer Service...")
		return container.ConsumerService.Consume(gctx)
	})
	g.Go(func() error {
		if err := container.StartKnowledgeSync(gctx); err != nil {
			// sync is an optimisation; a missing stream must not stop the server
			log.Printf("[WARN] Knowledge sync disabled: %v", err)
		}
		return nil
	})

	// 5. Run Server
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("[ERROR] %v", err)
	}

	container.Close()
	if err := shutdownTracer(context.Background()); err != nil {
		log.Printf("[WARN] tracer shutdown: %v", err)
	}
}
