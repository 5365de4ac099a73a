// Package service implements the conversation router: it maps inbound text
// and button clicks to intents, resolves the asker's identity, and for
// balance requests hands off to the retrieval orchestrator with a reply
// destination bound to the conversation's response URL.
package service

import (
	"context"
	"strings"

	chatdomain "github.com/precocity/timeoff-assistant-go/internal/chat/domain"
	chatport "github.com/precocity/timeoff-assistant-go/internal/chat/port"
	"github.com/precocity/timeoff-assistant-go/internal/domain"
	"github.com/precocity/timeoff-assistant-go/internal/infra/observability"
	"github.com/precocity/timeoff-assistant-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var chatTracer = otel.Tracer("chat/service")

// CallbackTimeoffOptions identifies the option-buttons attachment so button
// clicks can be routed back to this flow.
const CallbackTimeoffOptions = "timeoff-options"

// ChatService routes conversation events.
type ChatService struct {
	resolver  chatport.IdentityResolver
	poster    chatport.ReplyPoster
	retriever port.BalanceRetriever
	cache     port.Cache[domain.Identity]

	// serverName names the accrual backend in user-visible messages.
	serverName string

	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewChatService creates the conversation router with injected dependencies.
func NewChatService(
	resolver chatport.IdentityResolver,
	poster chatport.ReplyPoster,
	retriever port.BalanceRetriever,
	cache port.Cache[domain.Identity],
	serverName string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		resolver:   resolver,
		poster:     poster,
		retriever:  retriever,
		cache:      cache,
		serverName: serverName,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleMessage routes one free-text message and returns the immediate reply.
// For balance requests the reply is only the acknowledgement; the balances
// themselves arrive later through the event's response URL.
func (s *ChatService) HandleMessage(ctx context.Context, ev chatdomain.MessageEvent) *chatdomain.Reply {
	ctx, span := chatTracer.Start(ctx, "ChatService.HandleMessage")
	defer span.End()

	intent := DetectIntent(ev.Text)
	s.logger.Info("chat message received",
		zap.String("user_id", ev.UserID),
		zap.String("intent", intent),
	)

	switch intent {
	case chatdomain.IntentGreeting:
		identity, err := s.resolveIdentity(ctx, ev.UserID)
		if err != nil {
			return unknownUserReply()
		}
		return greetingReply(identity.DisplayName)

	case chatdomain.IntentBalance:
		identity, err := s.resolveIdentity(ctx, ev.UserID)
		if err != nil {
			return unknownUserReply()
		}
		s.startRetrieval(identity, ev.ResponseURL)
		return &chatdomain.Reply{
			Text: "Ok, " + identity.DisplayName + ", timeoff balance. Let me get that for you. Give me a minute.",
		}

	case chatdomain.IntentSchedule:
		return &chatdomain.Reply{Text: "Alright there hold your horses. I haven't been programmed to do that yet! Coming soon!"}

	case chatdomain.IntentHistory:
		return &chatdomain.Reply{Text: "I haven't learned how to look up your history yet. Coming soon!"}

	case chatdomain.IntentRaise:
		return &chatdomain.Reply{Text: "Alright there hold your horses. You'll have to brown nose your boss the old-fashioned way to get a raise!"}

	case chatdomain.IntentFarewell:
		return &chatdomain.Reply{Text: "Later!"}

	case chatdomain.IntentNo:
		return &chatdomain.Reply{Text: "Alright boss, until next time!"}

	case chatdomain.IntentYes:
		return &chatdomain.Reply{Text: "What can I do for you? So far you can ask me how many hours you have in your time off bank. Say 'timeoff hours'."}

	default:
		return &chatdomain.Reply{Text: "I'm not sure what you mean. You can ask me about your time off balance. Say 'timeoff hours'."}
	}
}

// HandleInteraction routes one button click the same way as text.
func (s *ChatService) HandleInteraction(ctx context.Context, ev chatdomain.InteractionEvent) *chatdomain.Reply {
	ctx, span := chatTracer.Start(ctx, "ChatService.HandleInteraction")
	defer span.End()

	if len(ev.Actions) == 0 {
		return &chatdomain.Reply{Text: "I'm sorry, I didn't catch which button you pressed."}
	}
	action := ev.Actions[0].Value

	s.logger.Info("chat interaction received",
		zap.String("user_id", ev.UserID),
		zap.String("callback_id", ev.CallbackID),
		zap.String("action", action),
	)

	switch action {
	case "balance":
		identity, err := s.resolveIdentity(ctx, ev.UserID)
		if err != nil {
			return unknownUserReply()
		}
		s.startRetrieval(identity, ev.ResponseURL)
		return &chatdomain.Reply{Text: "Checking balances. Give me a minute."}

	case "schedule":
		return &chatdomain.Reply{Text: "Ok, you want some time off. I haven't been programmed to do that yet! Coming soon!"}

	case "history":
		return &chatdomain.Reply{Text: "I haven't learned how to look up your history yet. Coming soon!"}

	case "yes":
		return &chatdomain.Reply{Text: "What can I do for you? So far you can ask me how many hours you have in your time off bank. Say 'timeoff hours'."}

	case "no":
		return &chatdomain.Reply{Text: "Alright boss, until next time!"}

	default:
		return &chatdomain.Reply{Text: "I'm sorry, I don't understand. You requested action '" + action + "'. I don't know what that means."}
	}
}

// resolveIdentity looks up the employee identity for a chat user, with a TTL
// cache in front of the users API.
func (s *ChatService) resolveIdentity(ctx context.Context, userID string) (*domain.Identity, error) {
	if cached, ok := s.cache.Get(userID); ok {
		s.metrics.IncrCacheHit("identity")
		return &cached, nil
	}
	s.metrics.IncrCacheMiss("identity")

	identity, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		s.logger.Warn("identity resolution failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	s.cache.Set(userID, *identity)
	return identity, nil
}

// startRetrieval kicks off the asynchronous balance retrieval with a
// destination bound to this conversation's response URL.
func (s *ChatService) startRetrieval(identity *domain.Identity, responseURL string) {
	dest := &outcomeDestination{
		poster:      s.poster,
		responseURL: responseURL,
		serverName:  s.serverName,
		metrics:     s.metrics,
		logger:      s.logger,
	}
	s.retriever.RetrieveBalance(identity.Email, identity.DisplayName, dest)
}

// outcomeDestination delivers a retrieval outcome to one response URL.
// One value per request; Deliver is invoked exactly once by the orchestrator.
type outcomeDestination struct {
	poster      chatport.ReplyPoster
	responseURL string
	serverName  string
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// Deliver formats the outcome as a conversational reply and posts it.
func (d *outcomeDestination) Deliver(ctx context.Context, outcome domain.RetrievalOutcome) {
	reply := FormatOutcome(outcome, d.serverName)
	if err := d.poster.Post(ctx, d.responseURL, reply); err != nil {
		d.metrics.IncrReplyPosted("error")
		d.logger.Error("outcome delivery failed",
			zap.String("request_id", outcome.RequestID),
			zap.String("status", string(outcome.Status)),
			zap.Error(err),
		)
		return
	}
	d.metrics.IncrReplyPosted("ok")
}

// DetectIntent maps free text onto an intent by keyword, most specific
// vocabulary first. The balance vocabulary is checked before greetings so
// "hi, timeoff balance please" asks for balances rather than a hello.
func DetectIntent(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return chatdomain.IntentUnknown
	}

	balanceKeywords := []string{
		"timeoff hours", "time off hours", "timeoff balance", "time off balance",
		"vacation balance", "vacation", "vacay", "timeoff", "time off",
	}
	scheduleKeywords := []string{
		"request time off", "request timeoff", "timeoff request", "time off request", "request",
	}
	historyKeywords := []string{"history"}
	raiseKeywords := []string{"raise", "give me money", "mo money", "money"}
	farewellKeywords := []string{"bye", "goodbye", "later", "cya", "see ya"}
	greetingKeywords := []string{"hello", "hi", "greetings", "hey"}

	// Schedule requests mention "time off" too, so they go first.
	for _, kw := range scheduleKeywords {
		if strings.Contains(lower, kw) {
			return chatdomain.IntentSchedule
		}
	}
	for _, kw := range balanceKeywords {
		if strings.Contains(lower, kw) {
			return chatdomain.IntentBalance
		}
	}
	for _, kw := range historyKeywords {
		if strings.Contains(lower, kw) {
			return chatdomain.IntentHistory
		}
	}
	for _, kw := range raiseKeywords {
		if strings.Contains(lower, kw) {
			return chatdomain.IntentRaise
		}
	}
	for _, kw := range farewellKeywords {
		if strings.Contains(lower, kw) {
			return chatdomain.IntentFarewell
		}
	}
	for _, kw := range greetingKeywords {
		if strings.Contains(lower, kw) {
			return chatdomain.IntentGreeting
		}
	}

	switch lower {
	case "yes", "y", "yep", "yeah":
		return chatdomain.IntentYes
	case "no", "n", "nope":
		return chatdomain.IntentNo
	}

	return chatdomain.IntentUnknown
}

func greetingReply(firstName string) *chatdomain.Reply {
	return &chatdomain.Reply{
		Text: "Hi " + firstName + ", what would you like to do in regards to time off?",
		Attachments: []chatdomain.Attachment{
			{
				Title:          "Please select an option",
				CallbackID:     CallbackTimeoffOptions,
				AttachmentType: "default",
				Actions: []chatdomain.Action{
					chatdomain.Button("balance", "See Balances", "balance"),
					chatdomain.Button("schedule", "Request time off", "schedule"),
					chatdomain.Button("history", "View History", "history"),
				},
			},
		},
	}
}

func unknownUserReply() *chatdomain.Reply {
	return &chatdomain.Reply{
		Text: "I'm sorry, I can't seem to find out who you are! You'll need to log on to the HR portal to get that information.",
	}
}
