package bootstrap

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"chatbot-engine-be/internal/config"
	"chatbot-engine-be/internal/controller"
	"chatbot-engine-be/internal/model"
	"chatbot-engine-be/internal/pkg/logger"
	"chatbot-engine-be/internal/pkg/mailer"
	"chatbot-engine-be/internal/pkg/metrics"
	"chatbot-engine-be/internal/pkg/serverutils"
	"chatbot-engine-be/internal/repository/contract"
	"chatbot-engine-be/internal/repository/filestore"
	"chatbot-engine-be/internal/repository/implementation"
	"chatbot-engine-be/internal/repository/memory"
	"chatbot-engine-be/internal/service"
	"chatbot-engine-be/internal/websocket"
	"chatbot-engine-be/pkg/ai/completion"
	"chatbot-engine-be/pkg/database"
	"chatbot-engine-be/pkg/events"
	"chatbot-engine-be/pkg/llm"
	"chatbot-engine-be/pkg/llm/factory"
	"chatbot-engine-be/pkg/rag/search"
	"chatbot-engine-be/pkg/rag/stage"
	"chatbot-engine-be/pkg/safety"

	pktNats "chatbot-engine-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// expansionRateLimitDelay is longer than the chat one; extraction prompts
// are large and the expansion provider's free tier is tight.
const expansionRateLimitDelay = 5 * time.Second

type Container struct {
	// Controllers
	ChatbotController   controller.IChatbotController
	KnowledgeController controller.IKnowledgeController
	HealthController    controller.IHealthController
	AdminController     controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	KnowledgeSync   service.IKnowledgeSyncService

	WebSocketHub *websocket.Hub
	AdminAuth    *serverutils.AdminAuth
	Logger       logger.ILogger

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
	pubSub  *gochannel.GoChannel
}

// NewContainer wires every component. Only a broken primary provider or an
// unusable knowledge/rules directory is fatal; NATS, Redis, Postgres and
// SMTP are optional and degrade to "not configured".
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	recorder := metrics.NewRecorder()
	adminAuth := serverutils.NewAdminAuth(cfg.Security.AdminAPIKey, cfg.Security.JWTSecret)

	// 2. Stores
	knowledgeRepo, err := filestore.NewKnowledgeRepository(cfg.Storage.KnowledgeDir)
	if err != nil {
		return nil, fmt.Errorf("knowledge store: %w", err)
	}
	if err := knowledgeRepo.LoadError(); err != nil {
		sysLogger.Error("knowledge", "knowledge files could not be parsed, serving without them", map[string]interface{}{"error": err.Error()})
	}
	ruleRepo, err := filestore.NewRuleRepository(cfg.Storage.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("rules store: %w", err)
	}
	sessionRepo := memory.NewSessionRepository(memory.SessionConfig{
		TTL:        cfg.Conversation.SessionTTL,
		MaxHistory: cfg.Conversation.MaxHistory,
		TokenLimit: cfg.Conversation.TokenLimit,
	})

	// 3. LLM Providers
	primary, err := factory.NewLLMProvider(providerConfig(cfg, cfg.Ai.LLMProvider))
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s", primary.Name())

	chatOpts := []completion.Option{
		completion.WithFailureRecorder(recorder),
		completion.WithLLMOptions(llm.WithTemperature(0.7), llm.WithMaxTokens(1000)),
	}
	var secondary llm.LLMProvider
	if cfg.Ai.FallbackProvider != "" && cfg.Ai.FallbackProvider != cfg.Ai.LLMProvider {
		secondary, err = factory.NewLLMProvider(providerConfig(cfg, cfg.Ai.FallbackProvider))
		if err != nil {
			log.Printf("[WARN] Fallback provider disabled: %v", err)
		} else {
			chatOpts = append(chatOpts, completion.WithSecondary(secondary))
			log.Printf("[INFO] Using fallback LLM Provider: %s", secondary.Name())
		}
	}

	chatCompleter := completion.New(primary, completion.Config{
		MaxRetries:     cfg.Ai.MaxRetries,
		BaseDelay:      cfg.Ai.RetryDelay,
		Timeout:        cfg.Ai.APITimeout,
		RateLimitDelay: completion.DefaultConfig().RateLimitDelay,
	}, chatOpts...)

	var extractor service.Extractor
	if cfg.Security.ExpandKnowledgeEnabled {
		expansionProvider, err := factory.NewLLMProvider(providerConfig(cfg, cfg.Ai.ExpansionProvider))
		if err != nil {
			return nil, fmt.Errorf("expansion provider: %w", err)
		}
		extractor = completion.New(expansionProvider, completion.Config{
			MaxRetries:     cfg.Ai.MaxRetries,
			BaseDelay:      cfg.Ai.RetryDelay,
			Timeout:        cfg.Ai.APITimeout,
			RateLimitDelay: expansionRateLimitDelay,
		},
			completion.WithFailureRecorder(recorder),
			completion.WithLLMOptions(llm.WithTemperature(0.3), llm.WithMaxTokens(2048)),
		)
	}

	// 4. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	publisherService := service.NewPublisherService(service.EventsTopic, pubSub)

	// 5. Infrastructure
	c := &Container{
		AdminAuth: adminAuth,
		Logger:    sysLogger,
		pubSub:    pubSub,
	}

	// NATS
	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		c.natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			forwarder = c.natsPub
		}
		c.natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		}
	}

	// Redis
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		c.rdb = redis.NewClient(opt)
		if _, err := c.rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// Postgres turn audit
	var turnLogs contract.TurnLogRepository
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Printf("[WARN] Turn audit disabled, database unavailable: %v", err)
		} else if err := db.AutoMigrate(&model.TurnLog{}); err != nil {
			log.Printf("[WARN] Turn audit disabled, migration failed: %v", err)
		} else {
			turnLogs = implementation.NewTurnLogRepository(db)
		}
	}

	// SMTP
	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" && cfg.SMTP.EscalationRecipient != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
		)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "escalation.log"))
	c.WebSocketHub = websocket.NewHub(c.rdb, wsLogger)

	// 6. Services
	chatbotService := service.NewChatbotService(
		service.ChatbotConfig{
			MaxMessageLength:    cfg.Security.MaxMessageLength,
			MaxContextLength:    cfg.Security.MaxContextLength,
			MaxKnowledgeEntries: cfg.Security.MaxKnowledgeEntries,
			HistoryTokenLimit:   cfg.Conversation.TokenLimit,
			Version:             cfg.App.WidgetVersion,
			DebugMode:           cfg.App.DebugMode,
			LogTokenUsage:       cfg.App.LogTokenUsage,
		},
		service.ChatbotDeps{
			Sessions: sessionRepo,
			Machine: stage.NewMachine(stage.Thresholds{
				FollowupAfter:   cfg.Conversation.FollowupAfter,
				ConclusionAfter: cfg.Conversation.ConclusionAfter,
				TurnCeiling:     cfg.Conversation.TurnCeiling,
			}),
			Ranker:    search.NewRanker(search.DefaultWeights()),
			Knowledge: knowledgeRepo,
			Rules:     ruleRepo,
			Completer: chatCompleter,
			Abuse:     safety.NewAbuseDetector(safety.DefaultAbuseConfig()),
			Metrics:   recorder,
			Publisher: publisherService,
			Logger:    sysLogger,
		},
	)

	knowledgeService := service.NewKnowledgeService(
		service.KnowledgeConfig{
			Enabled:       cfg.Security.ExpandKnowledgeEnabled,
			MaxTextLength: cfg.Security.MaxContextLength,
		},
		extractor,
		knowledgeRepo,
		recorder,
		publisherService,
		sysLogger,
	)

	c.ConsumerService = service.NewConsumerService(pubSub, service.EventsTopic, service.ConsumerDeps{
		Forwarder:           forwarder,
		TurnLogs:            turnLogs,
		Notifier:            c.WebSocketHub,
		Mailer:              emailService,
		EscalationRecipient: cfg.SMTP.EscalationRecipient,
		Logger:              sysLogger,
	})
	c.KnowledgeSync = service.NewKnowledgeSyncService(knowledgeRepo, sysLogger)

	healthService := service.NewHealthService(
		cfg.App.WidgetVersion,
		knowledgeRepo,
		sessionRepo,
		recorder,
		healthChecks(c, primary, secondary, ruleRepo, turnLogs)...,
	)
	adminService := service.NewAdminService(sysLogger, turnLogs)

	// 7. Controllers
	c.ChatbotController = controller.NewChatbotController(chatbotService)
	c.KnowledgeController = controller.NewKnowledgeController(knowledgeService, adminAuth)
	c.HealthController = controller.NewHealthController(healthService)
	c.AdminController = controller.NewAdminController(adminService, adminAuth)

	return c, nil
}

// providerConfig resolves credentials per backend. LLM_MODEL applies to the
// primary provider only; the others use their own model settings.
func providerConfig(cfg *config.Config, providerType string) factory.ProviderConfig {
	pc := factory.ProviderConfig{Type: providerType}
	if providerType == cfg.Ai.LLMProvider {
		pc.Model = cfg.Ai.LLMModel
	}

	switch providerType {
	case "groq", "grok":
		pc.APIKey = cfg.Ai.GroqAPIKey
		pc.BaseURL = cfg.Ai.GroqBaseURL
	case "gemini":
		pc.APIKey = cfg.Ai.GeminiAPIKey
		if pc.Model == "" {
			pc.Model = cfg.Ai.GeminiModel
		}
	case "ollama":
		pc.BaseURL = cfg.Ai.OllamaBaseURL
		if pc.Model == "" {
			pc.Model = cfg.Ai.OllamaModel
		}
	}
	return pc
}

func healthChecks(c *Container, primary, secondary llm.LLMProvider, rules *filestore.RuleRepository, turnLogs contract.TurnLogRepository) []service.HealthCheck {
	// providers are only known to be configured; probing them would spend quota
	configured := func(context.Context) error { return nil }

	checks := []service.HealthCheck{
		{Name: primary.Name() + "_api", Check: configured},
		{Name: "rules", Check: func(context.Context) error {
			_, err := rules.Load()
			return err
		}},
	}
	if secondary != nil {
		checks = append(checks, service.HealthCheck{Name: secondary.Name() + "_api", Optional: true, Check: configured})
	}
	if c.natsPub != nil {
		checks = append(checks, service.HealthCheck{Name: "nats", Optional: true, Check: func(context.Context) error {
			if !c.natsPub.Connected() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		}})
	}
	if c.rdb != nil {
		checks = append(checks, service.HealthCheck{Name: "redis", Optional: true, Check: func(ctx context.Context) error {
			return c.rdb.Ping(ctx).Err()
		}})
	}
	if turnLogs != nil {
		checks = append(checks, service.HealthCheck{Name: "database", Optional: true, Check: turnLogs.Ping})
	}
	return checks
}

// StartKnowledgeSync follows expansions made by other instances. It is a
// no-op without NATS.
func (c *Container) StartKnowledgeSync(ctx context.Context) error {
	if c.natsSub == nil {
		return nil
	}
	return c.natsSub.Subscribe(ctx, pktNats.Subject(events.TypeKnowledgeExpanded), "", c.KnowledgeSync.Handle)
}

// Close releases the optional connections. The event bus goes first so no
// consumer writes to a closed sink.
func (c *Container) Close() {
	if err := c.pubSub.Close(); err != nil {
		log.Printf("[WARN] event bus close: %v", err)
	}
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}
