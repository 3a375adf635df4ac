package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"chatbot-engine-be/internal/dto"
	"chatbot-engine-be/internal/pkg/logger"
	"chatbot-engine-be/internal/pkg/metrics"
	"chatbot-engine-be/internal/pkg/serverutils"
	"chatbot-engine-be/internal/repository/memory"
	"chatbot-engine-be/pkg/ai/completion"
	"chatbot-engine-be/pkg/events"
	"chatbot-engine-be/pkg/llm"
	"chatbot-engine-be/pkg/rag/prompt"
	"chatbot-engine-be/pkg/rag/search"
	"chatbot-engine-be/pkg/rag/stage"
	"chatbot-engine-be/pkg/safety"
	"chatbot-engine-be/pkg/store"

	"github.com/google/uuid"
)

const (
	SuspiciousReply  = "I can't process that type of message. Please try a different question."
	TechnicalReply   = "I'm experiencing technical difficulties. Please try again."
	previewRuneLimit = 200
)

type ChatInput struct {
	Request   dto.ChatRequest
	ClientIP  string
	UserAgent string
}

type IChatbotService interface {
	SendChat(ctx context.Context, in ChatInput) (*dto.ChatResponse, error)
	EndSession(ctx context.Context, sessionID string) (*dto.EndSessionResponse, error)
}

type KnowledgeSource interface {
	All() []store.KnowledgeEntry
}

type RuleSource interface {
	Load() (string, error)
}

type Completer interface {
	Complete(ctx context.Context, payload string) completion.Result
}

type ChatbotConfig struct {
	MaxMessageLength    int
	MaxContextLength    int
	MaxKnowledgeEntries int
	HistoryTokenLimit   int
	Version             string
	DebugMode           bool
	LogTokenUsage       bool
}

type ChatbotDeps struct {
	Sessions  *memory.SessionRepository
	Machine   *stage.Machine
	Ranker    *search.Ranker
	Knowledge KnowledgeSource
	Rules     RuleSource
	Completer Completer
	Abuse     *safety.AbuseDetector
	Metrics   *metrics.Recorder
	Publisher IPublisherService
	Logger    logger.ILogger
}

type chatbotService struct {
	cfg ChatbotConfig
	ChatbotDeps
	now func() time.Time
}

func NewChatbotService(cfg ChatbotConfig, deps ChatbotDeps) IChatbotService {
	return &chatbotService{cfg: cfg, ChatbotDeps: deps, now: time.Now}
}

// turnOutcome carries what one turn produced for logging, events and debug output
type turnOutcome struct {
	decision stage.Decision
	entries  []store.KnowledgeEntry
	history  string
	payload  string
	result   completion.Result
	reply    string
}

// SendChat runs one turn. Boundary rejections come back as *serverutils.AppError;
// every later failure is answered with a fixed reply instead of an error.
func (s *chatbotService) SendChat(ctx context.Context, in ChatInput) (*dto.ChatResponse, error) {
	start := s.now()
	client := in.ClientIP
	clientHash := HashClient(client)

	if s.Abuse.CheckRequest(client, in.UserAgent) {
		s.Logger.Warn("security", "rate_limit_abuse", map[string]interface{}{
			"client":     clientHash,
			"user_agent": in.UserAgent,
		})
		return nil, s.reject(client, serverutils.TooManyRequests("Too many requests"))
	}
	if s.Abuse.IsBlocked(client) {
		s.Logger.Warn("security", "client_blocked", map[string]interface{}{
			"client": clientHash,
			"reason": "too_many_errors",
		})
		return nil, s.reject(client, serverutils.Forbidden("Access denied"))
	}

	text := safety.Sanitize(in.Request.Text(), s.cfg.MaxMessageLength)
	if text == "" {
		return nil, s.reject(client, serverutils.BadRequest("Invalid message"))
	}

	sessionID := in.Request.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if s.Abuse.CheckMessage(text) {
		s.Logger.Warn("security", "suspicious_message", map[string]interface{}{
			"client":         clientHash,
			"message_length": len(text),
			"session":        MaskSession(sessionID),
		})
		return &dto.ChatResponse{
			Response:  SuspiciousReply,
			SessionID: sessionID,
			Stage:     string(s.currentStage(sessionID)),
			Version:   s.cfg.Version,
		}, nil
	}

	out, err := s.runTurn(ctx, sessionID, text)
	if err != nil {
		s.Logger.Error("chat", "turn failed", map[string]interface{}{
			"session": MaskSession(sessionID),
			"error":   err.Error(),
		})
		s.Abuse.RecordError(client)
		s.Metrics.RecordError("general_exception")
		return &dto.ChatResponse{
			Response:  TechnicalReply,
			SessionID: sessionID,
			Stage:     string(s.currentStage(sessionID)),
			Version:   s.cfg.Version,
		}, nil
	}

	elapsed := s.now().Sub(start)
	s.Metrics.RecordRequest(elapsed)
	if out.result.Fallback {
		s.Metrics.RecordError("upstream_fallback")
	}

	s.Logger.Info("chat", "turn completed", map[string]interface{}{
		"session":           MaskSession(sessionID),
		"client":            clientHash,
		"stage":             string(out.decision.Stage),
		"rule":              out.decision.Rule,
		"message_length":    len(text),
		"response_length":   len(out.reply),
		"knowledge_matches": len(out.entries),
		"processing_time":   elapsed.Seconds(),
		"attempts":          out.result.Attempts,
		"fallback":          out.result.Fallback,
	})
	if s.cfg.LogTokenUsage && out.result.Usage != nil {
		s.Logger.Info("chat", "token usage", map[string]interface{}{
			"session":           MaskSession(sessionID),
			"prompt_tokens":     out.result.Usage.PromptTokens,
			"completion_tokens": out.result.Usage.CompletionTokens,
			"total_tokens":      out.result.Usage.TotalTokens,
		})
	}

	s.publish(ctx, sessionID, clientHash, out, elapsed)

	resp := &dto.ChatResponse{
		Response:  out.reply,
		SessionID: sessionID,
		Stage:     string(out.decision.Stage),
		Version:   s.cfg.Version,
	}
	if s.cfg.DebugMode {
		resp.Debug = debugInfo(out, elapsed)
	}
	return resp, nil
}

func (s *chatbotService) runTurn(ctx context.Context, sessionID, text string) (*turnOutcome, error) {
	release, err := s.Sessions.BeginTurn(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("wait for session turn: %w", err)
	}
	defer release()

	current := store.StageGreeting
	var history []store.Turn
	userTurns := 0
	if sess, ok := s.Sessions.Snapshot(sessionID); ok {
		if sess.Stage.Valid() {
			current = sess.Stage
		}
		history = sess.History
		userTurns = sess.UserTurns
	}

	decision := s.Machine.Next(current, text, history, userTurns+1)

	transcript := ""
	if !decision.Reset {
		transcript = s.Sessions.ConversationContext(sessionID, s.cfg.HistoryTokenLimit)
	}

	entries := s.Ranker.Rank(text, s.Knowledge.All(), s.cfg.MaxKnowledgeEntries)

	rules, err := s.Rules.Load()
	if err != nil {
		s.Logger.Warn("knowledge_system", "rules unavailable, using fallback", map[string]interface{}{"error": err.Error()})
		s.Metrics.RecordError("rules_load")
	}

	payload := prompt.NewChatBuilder(rules, entries, stage.Directive(decision.Stage), transcript, text).Build()
	payload = prompt.Bound(payload, s.cfg.MaxContextLength)

	result := s.Completer.Complete(ctx, payload)
	if err := ctx.Err(); err != nil && result.Fallback {
		// client went away; the turn is not recorded
		return nil, err
	}

	reply := result.Text
	if safety.RequiresDisclaimer(text, entries) {
		reply = safety.AddDisclaimer(reply)
	}
	// the stage decision is committed together with the turn
	s.Sessions.ApplyStage(sessionID, decision.Stage, decision.Reset)
	s.Sessions.RecordTurn(sessionID, text, reply)

	return &turnOutcome{
		decision: decision,
		entries:  entries,
		history:  transcript,
		payload:  payload,
		result:   result,
		reply:    reply,
	}, nil
}

// EndSession forgets the conversation once any in-flight turn has finished
func (s *chatbotService) EndSession(ctx context.Context, sessionID string) (*dto.EndSessionResponse, error) {
	if sessionID == "" {
		return nil, serverutils.BadRequest("session_id is required")
	}
	if _, ok := s.Sessions.Snapshot(sessionID); !ok {
		return nil, serverutils.NewAppError(404, "Session not found", nil)
	}

	release, err := s.Sessions.BeginTurn(ctx, sessionID)
	if err != nil {
		return nil, serverutils.NewAppError(408, "Request cancelled", err)
	}
	s.Sessions.Clear(sessionID)
	release()

	s.Logger.Info("chat", "session cleared", map[string]interface{}{"session": MaskSession(sessionID)})
	return &dto.EndSessionResponse{Status: "cleared", SessionID: sessionID}, nil
}

func (s *chatbotService) publish(ctx context.Context, sessionID, clientHash string, out *turnOutcome, elapsed time.Duration) {
	if s.Publisher == nil {
		return
	}
	sessionHash := HashClient(sessionID)

	data := map[string]interface{}{
		"session_hash":      sessionHash,
		"client_hash":       clientHash,
		"stage":             string(out.decision.Stage),
		"rule":              out.decision.Rule,
		"provider":          out.result.Provider,
		"attempts":          out.result.Attempts,
		"fallback":          out.result.Fallback,
		"knowledge_matches": len(out.entries),
		"latency_ms":        elapsed.Milliseconds(),
	}
	if u := out.result.Usage; u != nil {
		data["token_usage"] = map[string]interface{}{
			"prompt_tokens":     u.PromptTokens,
			"completion_tokens": u.CompletionTokens,
			"total_tokens":      u.TotalTokens,
		}
	}

	toSend := []events.Event{events.New(events.TypeTurnCompleted, data)}
	if out.decision.Stage == store.StageEmergency {
		toSend = append(toSend, events.New(events.TypeEscalationRaised, map[string]interface{}{
			"session_hash": sessionHash,
			"stage":        string(out.decision.Stage),
			"rule":         out.decision.Rule,
		}))
	}

	for _, e := range toSend {
		if err := s.Publisher.Publish(ctx, e); err != nil {
			s.Logger.Warn("events", "publish failed", map[string]interface{}{
				"type":  e.EventType(),
				"error": err.Error(),
			})
		}
	}
}

func (s *chatbotService) reject(client string, err *serverutils.AppError) error {
	s.Abuse.RecordError(client)
	s.Metrics.RecordError("http_exception")
	return err
}

func (s *chatbotService) currentStage(sessionID string) store.Stage {
	if sess, ok := s.Sessions.Snapshot(sessionID); ok && sess.Stage.Valid() {
		return sess.Stage
	}
	return store.StageGreeting
}

func debugInfo(out *turnOutcome, elapsed time.Duration) *dto.DebugInfo {
	matches := make([]dto.KnowledgeMatch, 0, len(out.entries))
	for _, e := range out.entries {
		matches = append(matches, dto.KnowledgeMatch{
			Topic:      e.Topic,
			Domain:     e.Domain,
			Confidence: e.Confidence,
			RiskLevel:  string(e.RiskLevel),
		})
	}

	preview := out.payload
	if r := []rune(preview); len(r) > previewRuneLimit {
		preview = string(r[:previewRuneLimit]) + "..."
	}

	return &dto.DebugInfo{
		KnowledgeMatches: matches,
		ContextLength:    len(out.history),
		PromptLength:     len(out.payload),
		PromptPreview:    preview,
		ProcessingTimeMs: elapsed.Milliseconds(),
		TokenUsage:       tokenUsage(out.result.Usage),
		Stage:            string(out.decision.Stage),
		StageRule:        out.decision.Rule,
		Provider:         out.result.Provider,
		Attempts:         out.result.Attempts,
		Fallback:         out.result.Fallback,
	}
}

func tokenUsage(u *llm.Usage) *dto.TokenUsage {
	if u == nil {
		return nil
	}
	return &dto.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// HashClient returns a short stable digest so logs never carry raw IPs or session keys
func HashClient(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}

func MaskSession(sessionID string) string {
	if len(sessionID) <= 8 {
		return "***"
	}
	return sessionID[:8] + "***"
}
