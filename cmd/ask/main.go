// Command ask sends one message through the intent table and, failing a
// match, the configured completion model. Nothing is persisted.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/RichardoC/bizchat/internal/config"
	"github.com/RichardoC/bizchat/internal/intent"
	"github.com/RichardoC/bizchat/internal/llm"
	"github.com/RichardoC/bizchat/internal/models"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ask <message>")
		os.Exit(2)
	}
	message := strings.Join(os.Args[1:], " ")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	svc, err := llm.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel,
		llm.WithTemperature(cfg.LLMTemperature),
		llm.WithTimeout(cfg.LLMTimeout))
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	reply, err := ask(context.Background(), intent.DefaultMatcher(), svc, message)
	if err != nil {
		logger.Fatal("failed to generate completion", zap.Error(err))
	}
	fmt.Println(reply)
}

func ask(ctx context.Context, m *intent.Matcher, c llm.Completer, message string) (string, error) {
	if canned, ok := m.Match(message); ok {
		return canned, nil
	}
	return c.Complete(ctx, []models.ChatMessage{
		{Role: models.RoleSystem, Content: llm.BusinessFacts},
		{Role: models.RoleUser, Content: message},
	})
}
