package llm

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RichardoC/bizchat/internal/db"
	"github.com/RichardoC/bizchat/internal/models"
)

type stubHistory struct {
	msgs     []models.Message
	err      error
	beforeID int64
	limit    int
}

func (s *stubHistory) GetConversationHistory(_ context.Context, _ string, beforeID int64, limit int) ([]models.Message, error) {
	s.beforeID = beforeID
	s.limit = limit
	return s.msgs, s.err
}

func TestBuildContext_ChronologicalWithSystemFirst(t *testing.T) {
	store := &stubHistory{msgs: []models.Message{
		{ID: 3, Role: models.RoleAssistant, Content: "c"},
		{ID: 2, Role: models.RoleUser, Content: "b"},
		{ID: 1, Role: models.RoleAssistant, Content: "a"},
	}}
	a := NewAssembler(store, 10)

	out, err := a.BuildContext(context.Background(), "conv", models.Message{ID: 4, Role: models.RoleUser, Content: "now"})
	require.NoError(t, err)
	require.Equal(t, int64(4), store.beforeID)
	require.Equal(t, 10, store.limit)

	require.Equal(t, []models.ChatMessage{
		{Role: models.RoleSystem, Content: BusinessFacts},
		{Role: models.RoleAssistant, Content: "a"},
		{Role: models.RoleUser, Content: "b"},
		{Role: models.RoleAssistant, Content: "c"},
		{Role: models.RoleUser, Content: "now"},
	}, out)
}

func TestBuildContext_NeverExceedsLimitPlusTwo(t *testing.T) {
	var msgs []models.Message
	for i := 20; i > 0; i-- {
		msgs = append(msgs, models.Message{ID: int64(i), Role: models.RoleUser, Content: fmt.Sprint(i)})
	}
	a := NewAssembler(&stubHistory{msgs: msgs}, 5)

	out, err := a.BuildContext(context.Background(), "conv", models.Message{ID: 21, Content: "x"})
	require.NoError(t, err)
	require.Len(t, out, 7)
	require.Equal(t, "16", out[1].Content)
	require.Equal(t, "20", out[5].Content)
}

func TestBuildContext_HistoryError(t *testing.T) {
	boom := errors.New("disk I/O error")
	a := NewAssembler(&stubHistory{err: boom}, 10)
	_, err := a.BuildContext(context.Background(), "conv", models.Message{ID: 1})
	require.ErrorIs(t, err, boom)
}

func TestBuildContext_AgainstStore(t *testing.T) {
	ctx := context.Background()
	database, err := db.New(filepath.Join(t.TempDir(), "ctx.db"))
	require.NoError(t, err)
	defer database.Close()

	for _, id := range []string{"a", "b"} {
		_, err := database.EnsureConversation(ctx, id)
		require.NoError(t, err)
	}

	var last models.Message
	for i := 0; i < 15; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		last = models.Message{ConvID: "a", Role: role, Content: fmt.Sprintf("a-%d", i)}
		require.NoError(t, database.SaveMessage(ctx, &last))
		other := models.Message{ConvID: "b", Role: models.RoleUser, Content: "noise"}
		require.NoError(t, database.SaveMessage(ctx, &other))
	}

	current := models.Message{ConvID: "a", Role: models.RoleUser, Content: "latest"}
	require.NoError(t, database.SaveMessage(ctx, &current))

	out, err := NewAssembler(database, DefaultHistoryLimit).BuildContext(ctx, "a", current)
	require.NoError(t, err)
	require.Len(t, out, DefaultHistoryLimit+2)
	require.Equal(t, models.RoleSystem, out[0].Role)
	require.Equal(t, "a-5", out[1].Content)
	require.Equal(t, "a-14", out[len(out)-2].Content)
	require.Equal(t, "latest", out[len(out)-1].Content)
	for _, m := range out[1 : len(out)-1] {
		require.NotEqual(t, "noise", m.Content)
		require.NotEqual(t, "latest", m.Content)
	}
}
