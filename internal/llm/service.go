package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/bizchat/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

const (
	DefaultTemperature = 0.2
	DefaultTimeout     = 30 * time.Second
)

var ErrEmptyResponse = errors.New("llm: no choices in response")

// Completer turns an ordered list of role-tagged messages into one reply.
type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage) (string, error)
}

type Service struct {
	llm         llms.Model
	model       string
	temperature float64
	timeout     time.Duration
}

type Option func(*Service)

func WithTemperature(t float64) Option {
	return func(s *Service) {
		s.temperature = t
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New builds a Service talking to an OpenAI-compatible endpoint.
func New(baseURL, token, model string, opts ...Option) (*Service, error) {
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, model, opts...), nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(m llms.Model, model string, opts ...Option) *Service {
	s := &Service{
		llm:         m,
		model:       model,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	callOpts := []llms.CallOption{llms.WithTemperature(s.temperature)}
	if s.model != "" {
		callOpts = append(callOpts, llms.WithModel(s.model))
	}

	resp, err := s.llm.GenerateContent(ctx, toMessageContent(messages), callOpts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return "", fmt.Errorf("failed to generate completion: %w (%w)", ctxErr, err)
		}
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

func toMessageContent(messages []models.ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.TextParts(chatMessageType(m.Role), m.Content))
	}
	return out
}

func chatMessageType(r models.Role) schema.ChatMessageType {
	switch r {
	case models.RoleSystem:
		return schema.ChatMessageTypeSystem
	case models.RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
