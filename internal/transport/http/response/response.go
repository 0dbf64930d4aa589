package response

import "github.com/gin-gonic/gin"

const (
	CodeOK = 0

	CodeBadRequest     = 40000
	CodeUsernameExists = 40001
	CodeEmailExists    = 40002
	CodeMessageEmpty   = 40003
	CodeNoCategory     = 40004
	CodeNoDocuments    = 40005
	CodeNoValidFiles   = 40006
	CodeLastCategory   = 40007

	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeLLMCredential      = 40102

	CodeConversationNotFound = 40401
	CodeCategoryNotFound     = 40402
	CodeDocumentNotFound     = 40403

	CodeBusy            = 40900
	CodeTooManyRequests = 42900

	CodeInternalServer = 50000
	CodeLLMFailure     = 50200
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
