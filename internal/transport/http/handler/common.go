package handler

import (
	"github.com/gin-gonic/gin"

	"studymate/internal/transport/http/middleware"
	"studymate/internal/transport/http/response"
)

func ownerFrom(c *gin.Context) (string, bool) {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, 401, response.CodeUnauthorized, "invalid token payload")
	}
	return owner, ok
}
