package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studymate/internal/app"
	"studymate/internal/transport/http/response"
)

// APIKeyHeader carries a per-request model key when the key picker is on.
const APIKeyHeader = "X-LLM-API-Key"

const (
	EventSnapshot   = "snapshot"
	EventDone       = "done"
	EventWarning    = "warning"
	EventCredential = "credential"
	EventCancelled  = "cancelled"
	EventError      = "error"
)

type ChatHandler struct {
	chat   *app.ChatService
	logger *zap.Logger
}

type SendMessageRequest struct {
	CategoryID     string `json:"category_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text" binding:"required"`
}

func NewChatHandler(chat *app.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// SendMessage streams the answer as server-sent events. Every event
// carries a response envelope; the stream ends with exactly one of done,
// warning, credential, cancelled or error.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	emit := func(event string, payload response.APIResponse) error {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := c.Writer.Write([]byte("event: " + event + "\ndata: " + string(body) + "\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	result, err := h.chat.Send(c.Request.Context(), app.SendInput{
		OwnerID:        owner,
		CategoryID:     req.CategoryID,
		ConversationID: req.ConversationID,
		Text:           req.Text,
		APIKey:         c.GetHeader(APIKeyHeader),
	}, func(snap app.Snapshot) error {
		return emit(EventSnapshot, response.APIResponse{Code: response.CodeOK, Message: "ok", Data: snap})
	})

	event, payload := terminalEvent(result, err)
	if err != nil && event == EventError {
		h.logger.Warn("chat_send_failed", zap.String("owner", owner), zap.Error(err))
	}
	if writeErr := emit(event, payload); writeErr != nil {
		h.logger.Debug("sse_write_failed", zap.String("event", event), zap.Error(writeErr))
	}
}

func terminalEvent(result *app.SendResult, err error) (string, response.APIResponse) {
	var data interface{}
	if result != nil {
		data = result
	}
	switch {
	case err == nil:
		return EventDone, response.APIResponse{Code: response.CodeOK, Message: "ok", Data: data}
	case errors.Is(err, app.ErrNoDocuments):
		return EventWarning, response.APIResponse{Code: response.CodeNoDocuments, Message: err.Error()}
	case errors.Is(err, app.ErrBusy):
		return EventWarning, response.APIResponse{Code: response.CodeBusy, Message: err.Error()}
	case errors.Is(err, app.ErrCancelled):
		return EventCancelled, response.APIResponse{Code: response.CodeOK, Message: "cancelled", Data: data}
	case errors.Is(err, app.ErrCredential):
		return EventCredential, response.APIResponse{Code: response.CodeLLMCredential, Message: app.ErrCredential.Error(), Data: data}
	case errors.Is(err, app.ErrCompletion):
		return EventError, response.APIResponse{Code: response.CodeLLMFailure, Message: app.FailureText, Data: data}
	case errors.Is(err, app.ErrMessageEmpty):
		return EventError, response.APIResponse{Code: response.CodeMessageEmpty, Message: err.Error()}
	case errors.Is(err, app.ErrNoCategory):
		return EventError, response.APIResponse{Code: response.CodeNoCategory, Message: err.Error()}
	case errors.Is(err, app.ErrInvalidInput):
		return EventError, response.APIResponse{Code: response.CodeBadRequest, Message: err.Error()}
	case errors.Is(err, app.ErrCategoryNotFound):
		return EventError, response.APIResponse{Code: response.CodeCategoryNotFound, Message: err.Error()}
	case errors.Is(err, app.ErrConversationNotFound):
		return EventError, response.APIResponse{Code: response.CodeConversationNotFound, Message: err.Error()}
	default:
		return EventError, response.APIResponse{Code: response.CodeInternalServer, Message: "send message failed", Data: data}
	}
}

func (h *ChatHandler) Cancel(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"cancelled": h.chat.Cancel(owner)})
}

func (h *ChatHandler) Status(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	response.OK(c, gin.H{"status": h.chat.Status(owner)})
}
