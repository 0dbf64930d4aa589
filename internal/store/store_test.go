package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studymate/internal/model"
	"studymate/internal/persist"
)

type fixture struct {
	store   *Store
	snap    *persist.Snapshotter
	backend *persist.MemoryBackend
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend: persist.NewMemoryBackend(),
		clock:   time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.snap = persist.NewSnapshotter(f.backend, "test", zap.NewNop())
	seq := 0
	st, err := Open(context.Background(), f.snap, zap.NewNop(),
		WithClock(func() time.Time {
			f.clock = f.clock.Add(time.Second)
			return f.clock
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	require.NoError(t, err)
	f.store = st
	return f
}

func (f *fixture) reload(t *testing.T) *model.State {
	t.Helper()
	state, err := f.snap.Load(context.Background())
	require.NoError(t, err)
	return state
}

func TestBeginSendRejectsWhileInFlight(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.BeginSend("u1"))
	assert.Equal(t, model.StatusProcessing, f.store.Status("u1"))
	assert.ErrorIs(t, f.store.BeginSend("u1"), ErrBusy)

	// other owners are not gated
	require.NoError(t, f.store.BeginSend("u2"))

	f.store.SetStatus("u1", model.StatusStreaming)
	assert.ErrorIs(t, f.store.BeginSend("u1"), ErrBusy)

	f.store.EndSend("u1")
	assert.Equal(t, model.StatusIdle, f.store.Status("u1"))
	assert.NoError(t, f.store.BeginSend("u1"))
}

func TestStreamingMutationsArePersisted(t *testing.T) {
	f := newFixture(t)
	conv, err := f.store.CreateConversation("u1", model.DefaultCategoryID, "")
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderTitle, conv.Title)

	now := f.store.Now()
	require.NoError(t, f.store.AppendMessages("u1", conv.ID,
		model.Message{ID: "m-user", Role: model.RoleUser, Text: "שאלה", Timestamp: now},
		model.Message{ID: "m-model", Role: model.RoleModel, Timestamp: now, IsStreaming: true},
	))

	require.NoError(t, f.store.ReplaceText("u1", conv.ID, "m-model", "שלום"))
	require.NoError(t, f.store.ReplaceText("u1", conv.ID, "m-model", "שלום עולם"))

	state := f.reload(t)
	require.Len(t, state.Conversations, 1)
	assert.Equal(t, "שלום עולם", state.Conversations[0].Messages[1].Text)

	msg, err := f.store.FinalizeMessage("u1", conv.ID, "m-model", "שלום עולם!")
	require.NoError(t, err)
	assert.False(t, msg.IsStreaming)
	assert.Equal(t, "m-model", msg.ID)

	assert.ErrorIs(t, f.store.ReplaceText("u1", conv.ID, "m-model", "late"), ErrNotStreaming)
	assert.ErrorIs(t, f.store.ReplaceText("u1", conv.ID, "missing", "x"), ErrMessageNotFound)

	got, err := f.store.Conversation("u1", conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "m-user", got.Messages[0].ID)
	assert.Equal(t, "שלום עולם!", got.Messages[1].Text)

	require.NoError(t, f.store.RemoveMessage("u1", conv.ID, "m-model"))
	got, err = f.store.Conversation("u1", conv.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

func TestConversationsAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	a, err := f.store.CreateConversation("alice", model.DefaultCategoryID, "א")
	require.NoError(t, err)
	_, err = f.store.CreateConversation("bob", model.DefaultCategoryID, "ב")
	require.NoError(t, err)

	_, err = f.store.Conversation("bob", a.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, f.store.DeleteConversation("bob", a.ID), ErrConversationNotFound)

	list := f.store.Conversations("alice", "")
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
	assert.True(t, f.store.HasConversationIn("alice", model.DefaultCategoryID))
	assert.False(t, f.store.HasConversationIn("carol", model.DefaultCategoryID))
}

func TestConversationsMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	first, err := f.store.CreateConversation("u1", model.DefaultCategoryID, "ראשונה")
	require.NoError(t, err)
	second, err := f.store.CreateConversation("u1", model.DefaultCategoryID, "שנייה")
	require.NoError(t, err)

	list := f.store.Conversations("u1", model.DefaultCategoryID)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	require.NoError(t, f.store.AppendMessages("u1", first.ID, model.Message{ID: "m", Role: model.RoleUser, Text: "x"}))
	list = f.store.Conversations("u1", model.DefaultCategoryID)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestDeleteCategoryCascadesAndKeepsOne(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.store.DeleteCategory(model.DefaultCategoryID), ErrLastCategory)

	cat, err := f.store.CreateCategory("  היסטוריה ")
	require.NoError(t, err)
	assert.Equal(t, "היסטוריה", cat.Name)
	_, err = f.store.CreateConversation("u1", cat.ID, "")
	require.NoError(t, err)
	keep, err := f.store.CreateConversation("u1", model.DefaultCategoryID, "")
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteCategory(cat.ID))
	list := f.store.Conversations("u1", "")
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	assert.ErrorIs(t, f.store.DeleteCategory("missing"), ErrCategoryNotFound)
}

func TestAddDocumentsReplacesByName(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddDocuments(model.DefaultCategoryID, []model.Document{
		{Name: "a.txt", MimeType: "text/plain", Data: "MQ==", Size: 1},
		{Name: "b.pdf", MimeType: "application/pdf", Data: "Mg==", Size: 1},
	})
	require.NoError(t, err)

	cat, err := f.store.AddDocuments(model.DefaultCategoryID, []model.Document{
		{Name: "a.txt", MimeType: "text/plain", Data: "Mw==", Size: 1},
	})
	require.NoError(t, err)
	require.Len(t, cat.Attachments, 2)
	assert.Equal(t, "a.txt", cat.Attachments[0].Name)
	assert.Equal(t, "Mw==", cat.Attachments[0].Data)

	require.NoError(t, f.store.RemoveDocument(model.DefaultCategoryID, "b.pdf"))
	assert.ErrorIs(t, f.store.RemoveDocument(model.DefaultCategoryID, "b.pdf"), ErrDocumentNotFound)

	state := f.reload(t)
	require.Len(t, state.Categories[0].Attachments, 1)
	assert.Equal(t, "a.txt", state.Categories[0].Attachments[0].Name)
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateUser(&model.User{Username: "dana", Email: "dana@example.com", PasswordHash: "h"}))

	assert.ErrorIs(t, f.store.CreateUser(&model.User{Username: "dana", Email: "other@example.com"}), ErrUsernameTaken)
	assert.ErrorIs(t, f.store.CreateUser(&model.User{Username: "dana2", Email: "DANA@example.com"}), ErrEmailTaken)

	u, err := f.store.UserByEmail("Dana@Example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "dana", u.Username)

	missing, err := f.store.UserByName("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Len(t, f.reload(t).Users, 1)
}

func TestSetThemeValidates(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.store.SetTheme("sepia"), ErrInvalidTheme)
	require.NoError(t, f.store.SetTheme(model.ThemeDark))
	assert.Equal(t, model.ThemeDark, f.reload(t).Theme)
}
