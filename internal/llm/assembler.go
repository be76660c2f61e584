package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/RichardoC/bizchat/internal/models"
)

const DefaultHistoryLimit = 10

// BusinessFacts is the system instruction sent ahead of every completion.
var BusinessFacts = strings.Join([]string{
	"You are the friendly assistant for a small creative studio. Answer briefly and stay on topic.",
	"",
	"Packages and prices:",
	"- Starter: $499. One-page website or a short promo video edit. About 1 week.",
	"- Growth: $1,499. Multi-page website or a 3-video content bundle. 2-3 weeks.",
	"- Premium: $3,999. Full brand launch with website, video and copy. 4-6 weeks.",
	"Custom projects are quoted within one business day. Rush delivery is available on request.",
	"",
	"Contact: hello@example.com, +1 (555) 010-2030, Monday to Friday 9am-5pm.",
	"If you don't know something, say so and offer to connect the visitor with a human.",
}, "\n")

// HistoryReader returns the newest messages of a conversation first.
type HistoryReader interface {
	GetConversationHistory(ctx context.Context, convID string, beforeID int64, limit int) ([]models.Message, error)
}

type Assembler struct {
	store        HistoryReader
	limit        int
	systemPrompt string
}

func NewAssembler(store HistoryReader, limit int) *Assembler {
	if limit < 0 {
		limit = DefaultHistoryLimit
	}
	return &Assembler{store: store, limit: limit, systemPrompt: BusinessFacts}
}

func (a *Assembler) Limit() int {
	return a.limit
}

// BuildContext returns the system instruction, up to limit earlier messages of
// the conversation in chronological order, and current as the final entry.
// Messages stored after current are never included.
func (a *Assembler) BuildContext(ctx context.Context, convID string, current models.Message) ([]models.ChatMessage, error) {
	history, err := a.store.GetConversationHistory(ctx, convID, current.ID, a.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	if len(history) > a.limit {
		history = history[:a.limit]
	}

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: a.systemPrompt})
	for i := len(history) - 1; i >= 0; i-- {
		messages = append(messages, models.ChatMessage{Role: history[i].Role, Content: history[i].Content})
	}
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: current.Content})
	return messages, nil
}
