package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studymate/internal/app"
	"studymate/internal/transport/http/response"
)

type RenderHandler struct {
	renderer *app.RenderService
}

type RenderRequest struct {
	Text      string `json:"text"`
	Streaming bool   `json:"streaming"`
}

func NewRenderHandler(renderer *app.RenderService) *RenderHandler {
	return &RenderHandler{renderer: renderer}
}

func (h *RenderHandler) Render(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	response.OK(c, gin.H{"html": h.renderer.Render(c.Request.Context(), req.Text, req.Streaming)})
}
