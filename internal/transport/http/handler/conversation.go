package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studymate/internal/app"
	"studymate/internal/model"
	"studymate/internal/transport/http/response"
)

// ArchiveReader lists archived messages of one conversation.
type ArchiveReader interface {
	ListByConversation(ctx context.Context, ownerID, conversationID string, limit int) ([]model.ArchivedMessage, error)
}

type ConversationHandler struct {
	conversations *app.ConversationService
	archive       ArchiveReader
}

type RenameConversationRequest struct {
	Title string `json:"title" binding:"required,max=128"`
}

func NewConversationHandler(conversations *app.ConversationService, archive ArchiveReader) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, archive: archive}
}

func (h *ConversationHandler) List(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	response.OK(c, h.conversations.List(owner, c.Query("category_id")))
}

func (h *ConversationHandler) Get(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	view, err := h.conversations.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		writeConversationError(c, err, "get conversation failed")
		return
	}
	response.OK(c, view)
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	var req RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	conv, err := h.conversations.Rename(owner, c.Param("id"), req.Title)
	if err != nil {
		writeConversationError(c, err, "rename conversation failed")
		return
	}
	response.OK(c, gin.H{"id": conv.ID, "title": conv.Title})
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.conversations.Delete(owner, id); err != nil {
		writeConversationError(c, err, "delete conversation failed")
		return
	}
	response.OK(c, gin.H{"deleted_conversation_id": id})
}

// Archive returns the archived copy of a conversation, which outlives
// deletion from the live state.
func (h *ConversationHandler) Archive(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	limit := 200
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	messages, err := h.archive.ListByConversation(c.Request.Context(), owner, c.Param("id"), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list archive failed")
		return
	}
	response.OK(c, messages)
}

func writeConversationError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrConversationNotFound):
		response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
