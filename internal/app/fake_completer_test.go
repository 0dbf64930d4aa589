package app

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studymate/internal/ai"
	"studymate/internal/capability"
	"studymate/internal/model"
	"studymate/internal/store"
)

// fakeCompleter streams fixed deltas and answers Complete calls through
// the refine and title hooks.
type fakeCompleter struct {
	mu sync.Mutex

	deltas    []string
	streamErr error
	openErr   error

	refine func(text string) (string, error)
	title  func(question string) (string, error)

	streamRequests   []ai.Request
	completeRequests []ai.Request
}

func (f *fakeCompleter) Stream(ctx context.Context, req ai.Request) (*ai.Stream, error) {
	f.mu.Lock()
	f.streamRequests = append(f.streamRequests, req)
	deltas := append([]string(nil), f.deltas...)
	streamErr, openErr := f.streamErr, f.openErr
	f.mu.Unlock()

	if openErr != nil {
		return nil, openErr
	}
	i := 0
	return ai.NewStream(ctx, func() (string, error) {
		if i < len(deltas) {
			i++
			return deltas[i-1], nil
		}
		if streamErr != nil {
			return "", streamErr
		}
		return "", io.EOF
	}, nil), nil
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	f.completeRequests = append(f.completeRequests, req)
	refine, title := f.refine, f.title
	f.mu.Unlock()

	if strings.HasPrefix(req.Prompt, ai.RefinerPrompt) {
		text := strings.TrimPrefix(req.Prompt, ai.RefinerPrompt)
		if refine == nil {
			return text, nil
		}
		return refine(text)
	}
	if title == nil {
		return "כותרת", nil
	}
	return title(req.Prompt)
}

func (f *fakeCompleter) streamCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streamRequests)
}

func (f *fakeCompleter) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streamRequests) + len(f.completeRequests)
}

func (f *fakeCompleter) lastStream() ai.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamRequests[len(f.streamRequests)-1]
}

type recordingArchiver struct {
	mu   sync.Mutex
	msgs []model.ArchivedMessage
}

func (r *recordingArchiver) Publish(_ context.Context, msg model.ArchivedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func newTestStore(t *testing.T, docs ...model.Document) *store.Store {
	t.Helper()
	cat := model.NewDefaultCategory(time.Now())
	cat.Attachments = append(cat.Attachments, docs...)
	return store.New(&model.State{
		Categories:    []model.Category{cat},
		Conversations: []model.Conversation{},
		Theme:         model.ThemeLight,
	}, nil, zap.NewNop())
}

func newTestChatService(t *testing.T, st *store.Store, fake *fakeCompleter, archiver Archiver) *ChatService {
	t.Helper()
	svc := NewChatService(
		st,
		fake,
		NewRenderService(nil, nil, zap.NewNop()),
		archiver,
		capability.NewSet(capability.Available(capability.KeyPicker, "")),
		ChatConfig{
			Temperature:       0.2,
			RefineEnabled:     true,
			RefineTemperature: 0.1,
			TitleTimeout:      time.Second,
		},
		zap.NewNop(),
	)
	t.Cleanup(svc.Wait)
	return svc
}

var geoDoc = model.Document{Name: "geo.pdf", MimeType: "application/pdf", Data: "JVBERi0=", Size: 5, ExtractedText: "משפט פיתגורס"}

func requireIdle(t *testing.T, st *store.Store, owner string) {
	t.Helper()
	require.Equal(t, model.StatusIdle, st.Status(owner))
}
