// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// Error codes of the JSON error envelope.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeTooLarge       = "request_too_large"
	CodeUnavailable    = "unavailable"
	CodeInternalError  = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	resp := ErrorResponse{Code: code, Message: message}

	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok {
			resp.RequestID = s
		}
	}

	c.AbortWithStatusJSON(status, resp)
}
