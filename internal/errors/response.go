package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/pkg/logger"
)

// ErrorDetail is the error payload body.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is the uniform error envelope for every failed request.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// RespondWithError writes a JSON error response and aborts the request.
func RespondWithError(c *gin.Context, status int, code, message string) {
	requestLogger := logger.Get()
	if l, exists := c.Get("logger"); exists {
		if ctxLogger, ok := l.(*logger.Logger); ok {
			requestLogger = ctxLogger
		}
	}

	fields := map[string]interface{}{
		"status": status,
		"code":   code,
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}
	if status >= http.StatusInternalServerError {
		requestLogger.Error(message, nil, fields)
	} else {
		requestLogger.Warn(message, fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest responds with 400.
func BadRequest(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusBadRequest, code, message)
}

// Unauthorized responds with 401.
func Unauthorized(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusUnauthorized, code, message)
}

// Forbidden responds with 403.
func Forbidden(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusForbidden, code, message)
}

// NotFound responds with 404.
func NotFound(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusNotFound, code, message)
}

// Conflict responds with 409.
func Conflict(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusConflict, code, message)
}

// InternalError responds with 500. The underlying error is logged but
// never leaked to the client.
func InternalError(c *gin.Context, err error) {
	requestLogger := logger.Get()
	if l, exists := c.Get("logger"); exists {
		if ctxLogger, ok := l.(*logger.Logger); ok {
			requestLogger = ctxLogger
		}
	}
	requestLogger.Error("unhandled internal error", err, map[string]interface{}{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	})

	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{
			Code:    InternalServerError,
			Message: "an unexpected error occurred",
		},
	})
}
