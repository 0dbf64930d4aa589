package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studymate/internal/app"
	"studymate/internal/capability"
	"studymate/internal/transport/http/response"
)

type PreferenceHandler struct {
	prefs *app.PreferenceService
	caps  *capability.Set
}

type ThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

func NewPreferenceHandler(prefs *app.PreferenceService, caps *capability.Set) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs, caps: caps}
}

func (h *PreferenceHandler) GetTheme(c *gin.Context) {
	response.OK(c, gin.H{"theme": h.prefs.Theme()})
}

func (h *PreferenceHandler) SetTheme(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	theme, err := h.prefs.SetTheme(req.Theme)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "theme must be light or dark")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "set theme failed")
		return
	}
	response.OK(c, gin.H{"theme": theme})
}

func (h *PreferenceHandler) Capabilities(c *gin.Context) {
	response.OK(c, h.caps.All())
}
