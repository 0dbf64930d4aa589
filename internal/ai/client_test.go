package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studymate/internal/model"
)

func chunk(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"id":      "chunk",
		"object":  "chat.completion.chunk",
		"created": 0,
		"model":   "test-model",
		"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": text}}},
	})
	return "data: " + string(payload) + "\n\n"
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/v1", APIKey: "test-key", Model: "test-model"}, zap.NewNop())
}

func TestStreamYieldsCumulativeSnapshots(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("שלום"))
		fmt.Fprint(w, chunk(""))
		fmt.Fprint(w, chunk(" עולם"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := client.Stream(context.Background(), Request{
		System:      SystemInstruction,
		History:     []Turn{{Role: model.RoleUser, Text: "קודם"}, {Role: model.RoleModel, Text: "תשובה"}, {Role: model.RoleModel, Text: ""}},
		Prompt:      "מה זה?",
		Documents:   []model.Document{{Name: "a.txt", MimeType: "text/plain", Data: "aGk=", ExtractedText: "hi"}, {Name: "p.png", MimeType: "image/png", Data: "iVBO"}},
		Temperature: 0.2,
	})
	require.NoError(t, err)
	defer stream.Close()

	var snapshots []string
	for stream.Next() {
		snapshots = append(snapshots, stream.Text())
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"שלום", "שלום עולם"}, snapshots)

	assert.Equal(t, true, body["stream"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 4, "system, two history turns, final user turn")
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", messages[2].(map[string]any)["role"])

	parts := messages[3].(map[string]any)["content"].([]any)
	require.Len(t, parts, 3)
	assert.Equal(t, "מה זה?", parts[0].(map[string]any)["text"])
	assert.Equal(t, "[a.txt]\nhi", parts[1].(map[string]any)["text"])
	assert.Equal(t, "data:image/png;base64,iVBO", parts[2].(map[string]any)["image_url"].(map[string]any)["url"])
}

func TestStreamStopsAtChunkBoundaryOnCancel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, chunk("שלום"))
		fmt.Fprint(w, chunk(" עולם"))
		fmt.Fprint(w, chunk(" ועוד"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := client.Stream(ctx, Request{Prompt: "x"})
	require.NoError(t, err)

	var snapshots []string
	for stream.Next() {
		snapshots = append(snapshots, stream.Text())
		if len(snapshots) == 2 {
			cancel()
		}
	}
	assert.ErrorIs(t, stream.Err(), ErrCancelled)
	assert.Equal(t, []string{"שלום", "שלום עולם"}, snapshots)
	assert.Equal(t, "שלום עולם", stream.Text())
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.InDelta(t, 0.1, req["temperature"], 0.0001)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c","object":"chat.completion","created":0,"model":"test-model",`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":"כותרת"},"finish_reason":"stop"}]}`)
	})

	out, err := client.Complete(context.Background(), Request{Prompt: TitlePrompt("מה זה משולש?"), Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "כותרת", out)
}

func TestUnauthorizedIsCredentialError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"auth","code":"unauthorized"}}`)
	})

	_, err := client.Stream(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, IsCredentialError(err))
}

func TestMissingKeyIsCredentialError(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "m"}, zap.NewNop())
	_, err := client.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.True(t, IsCredentialError(err))
}

func TestIsCredentialErrorClassification(t *testing.T) {
	assert.True(t, IsCredentialError(errors.New("API Key not valid. Please pass a valid API key.")))
	assert.True(t, IsCredentialError(errors.New("models/x is NOT FOUND")))
	assert.True(t, IsCredentialError(errors.New("Permission denied")))
	assert.True(t, IsCredentialError(fmt.Errorf("wrapped: %w", &openai.APIError{HTTPStatusCode: 403, Message: "forbidden"})))
	assert.False(t, IsCredentialError(&openai.APIError{HTTPStatusCode: 500, Message: "server overloaded"}))
	assert.False(t, IsCredentialError(errors.New("connection reset by peer")))
	assert.False(t, IsCredentialError(nil))
}

func TestStreamRecvErrorIsWrapped(t *testing.T) {
	calls := 0
	s := NewStream(context.Background(), func() (string, error) {
		calls++
		if calls == 1 {
			return "חלק", nil
		}
		return "", errors.New("quota exceeded")
	}, nil)

	require.True(t, s.Next())
	require.False(t, s.Next())
	assert.ErrorContains(t, s.Err(), "quota exceeded")
	assert.False(t, s.Next())
	assert.Equal(t, "חלק", s.Text())
}

func TestStreamEndsOnEOF(t *testing.T) {
	s := NewStream(context.Background(), func() (string, error) { return "", io.EOF }, nil)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestMemoryDigest(t *testing.T) {
	out := WithMemory("sys", []MemoryEntry{{Title: "א", Tail: "סוף"}, {Title: "ב"}})
	assert.Equal(t, "sys\n\nהקשר משיחות קודמות באותו נושא (לעיון בלבד):\n- א: סוף\n- ב", out)
	assert.Equal(t, "sys", WithMemory("sys", nil))
	assert.Equal(t, "…גדה", Tail("אבגדה", 3))
	assert.Equal(t, "אב", Tail(" אב ", 3))
}
