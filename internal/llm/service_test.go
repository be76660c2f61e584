package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/RichardoC/bizchat/internal/models"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	block    bool
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestComplete_MapsRolesAndOptions(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "  sure thing "}}}}
	svc := NewWithModel(fake, "gpt-test", WithTemperature(0.1))

	out, err := svc.Complete(context.Background(), []models.ChatMessage{
		{Role: models.RoleSystem, Content: "facts"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
		{Role: models.RoleUser, Content: "plan a podcast intro"},
	})
	require.NoError(t, err)
	require.Equal(t, "  sure thing ", out)

	require.Len(t, fake.messages, 4)
	require.Equal(t, schema.ChatMessageTypeSystem, fake.messages[0].Role)
	require.Equal(t, schema.ChatMessageTypeHuman, fake.messages[1].Role)
	require.Equal(t, schema.ChatMessageTypeAI, fake.messages[2].Role)
	require.Equal(t, schema.ChatMessageTypeHuman, fake.messages[3].Role)
	require.Equal(t, "facts", textOf(t, fake.messages[0]))
	require.Equal(t, "plan a podcast intro", textOf(t, fake.messages[3]))

	require.Equal(t, "gpt-test", fake.opts.Model)
	require.InDelta(t, 0.1, fake.opts.Temperature, 1e-9)
}

func TestComplete_DefaultTemperature(t *testing.T) {
	fake := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
	_, err := NewWithModel(fake, "m").Complete(context.Background(), nil)
	require.NoError(t, err)
	require.InDelta(t, DefaultTemperature, fake.opts.Temperature, 1e-9)
}

func TestComplete_Errors(t *testing.T) {
	boom := errors.New("quota exceeded")

	_, err := NewWithModel(&fakeModel{err: boom}, "m").Complete(context.Background(), nil)
	require.ErrorIs(t, err, boom)

	_, err = NewWithModel(&fakeModel{resp: &llms.ContentResponse{}}, "m").Complete(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyResponse)

	_, err = NewWithModel(&fakeModel{}, "m").Complete(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestComplete_Timeout(t *testing.T) {
	svc := NewWithModel(&fakeModel{block: true}, "m", WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := svc.Complete(context.Background(), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, time.Since(start) < 5*time.Second)
}

func TestNew_BuildsOpenAIClient(t *testing.T) {
	svc, err := New("http://localhost:11434/v1/", "fake", "llama3.1:8b")
	require.NoError(t, err)
	require.NotNil(t, svc)
	require.Equal(t, DefaultTimeout, svc.timeout)
}
