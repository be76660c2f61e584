// Package chat answers a visitor message: canned replies for known intents,
// the completion API for everything else, with both sides of every exchange
// written to the message store.
package chat

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RichardoC/bizchat/internal/models"
)

const (
	DefaultMaxMessageLength = 2000

	PromptForInfoReply = "Hi! Tell me a bit about your project (what you need, your timeline and budget) " +
		"and I'll point you in the right direction."
	FallbackReply = "Thanks for your message! Could you share a little more detail so I can help?"
)

const (
	SourceIntent     = "intent"
	SourceCompletion = "completion"
	SourcePrompt     = "prompt"
)

type Store interface {
	EnsureConversation(ctx context.Context, id string) (*models.Conversation, error)
	SaveMessage(ctx context.Context, msg *models.Message) error
}

type IntentMatcher interface {
	Match(text string) (string, bool)
}

type ContextBuilder interface {
	BuildContext(ctx context.Context, convID string, current models.Message) ([]models.ChatMessage, error)
}

type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

type Input struct {
	ConversationID string
	Text           string
	IP             string
	UserAgent      string
}

type Output struct {
	Reply           string
	ConversationID  string
	NewConversation bool
	Source          string
}

type Service struct {
	store     Store
	intents   IntentMatcher
	assembler ContextBuilder
	completer Completer
	logger    *zap.Logger
	maxLen    int
}

func NewService(store Store, intents IntentMatcher, assembler ContextBuilder, completer Completer, logger *zap.Logger, maxLen int) (*Service, error) {
	if store == nil {
		return nil, errors.New("chat: store must not be nil")
	}
	if intents == nil {
		return nil, errors.New("chat: intent matcher must not be nil")
	}
	if assembler == nil {
		return nil, errors.New("chat: context builder must not be nil")
	}
	if completer == nil {
		return nil, errors.New("chat: completer must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxMessageLength
	}
	return &Service{
		store:     store,
		intents:   intents,
		assembler: assembler,
		completer: completer,
		logger:    logger,
		maxLen:    maxLen,
	}, nil
}

func (s *Service) Reply(ctx context.Context, in Input) (Output, error) {
	if strings.TrimSpace(in.Text) == "" {
		return Output{Reply: PromptForInfoReply, ConversationID: in.ConversationID, Source: SourcePrompt}, nil
	}

	out := Output{ConversationID: strings.TrimSpace(in.ConversationID)}
	if out.ConversationID == "" {
		out.ConversationID = newConversationID()
		out.NewConversation = true
	}
	if _, err := s.store.EnsureConversation(ctx, out.ConversationID); err != nil {
		return Output{}, newError(ErrorInternal, "conversation_write_error", err)
	}

	userMsg := &models.Message{
		ConvID:  out.ConversationID,
		Role:    models.RoleUser,
		Content: Truncate(in.Text, s.maxLen),
		IP:      in.IP,
		UA:      in.UserAgent,
	}
	if err := s.store.SaveMessage(ctx, userMsg); err != nil {
		return Output{}, newError(ErrorInternal, "user_message_write_error", err)
	}

	log := s.logger.With(zap.String("conv_id", out.ConversationID))

	if canned, ok := s.intents.Match(userMsg.Content); ok {
		out.Reply = canned
		out.Source = SourceIntent
	} else {
		reply, err := s.complete(ctx, *userMsg)
		if err != nil {
			log.Debug("Completion failed", zap.Int64("message_id", userMsg.ID))
			return Output{}, err
		}
		out.Reply = reply
		out.Source = SourceCompletion
	}

	assistantMsg := &models.Message{
		ConvID:  out.ConversationID,
		Role:    models.RoleAssistant,
		Content: out.Reply,
	}
	if err := s.store.SaveMessage(ctx, assistantMsg); err != nil {
		return Output{}, newError(ErrorInternal, "assistant_message_write_error", err)
	}

	log.Debug("Replied", zap.String("source", out.Source), zap.Int64("message_id", assistantMsg.ID))
	return out, nil
}

func (s *Service) complete(ctx context.Context, userMsg models.Message) (string, error) {
	messages, err := s.assembler.BuildContext(ctx, userMsg.ConvID, userMsg)
	if err != nil {
		return "", newError(ErrorInternal, "history_read_error", err)
	}

	raw, err := s.completer.Complete(ctx, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", newError(ErrorTimeout, "completion_timeout", err)
		}
		return "", newError(ErrorUpstream, "completion_error", err)
	}

	reply := strings.TrimSpace(raw)
	if reply == "" {
		reply = FallbackReply
	}
	return reply, nil
}

// Truncate cuts s to at most max characters without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

var newConversationID = func() string {
	return uuid.NewString()
}
