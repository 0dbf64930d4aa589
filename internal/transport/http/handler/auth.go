package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"studymate/internal/app"
	"studymate/internal/model"
	"studymate/internal/transport/http/middleware"
	"studymate/internal/transport/http/response"
)

type AuthHandler struct {
	auth *app.AuthService
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type sessionPayload struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      model.UserProfile `json:"user"`
}

func NewAuthHandler(auth *app.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.auth.Register(app.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	respondSession(c, result, err, "register failed")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	result, err := h.auth.Login(app.LoginInput{Username: req.Username, Password: req.Password})
	respondSession(c, result, err, "login failed")
}

// Me returns the profile behind the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserIDKey)
	user, err := h.auth.GetUserByID(userID)
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
	case err != nil:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch current user failed")
	case user == nil:
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
	default:
		response.OK(c, user.Profile())
	}
}

func respondSession(c *gin.Context, result *app.AuthResult, err error, fallback string) {
	switch {
	case err == nil:
		response.OK(c, sessionPayload{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			User:      result.User.Profile(),
		})
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrUsernameExists):
		response.Error(c, http.StatusConflict, response.CodeUsernameExists, err.Error())
	case errors.Is(err, app.ErrEmailExists):
		response.Error(c, http.StatusConflict, response.CodeEmailExists, err.Error())
	case errors.Is(err, app.ErrInvalidCredential):
		response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
