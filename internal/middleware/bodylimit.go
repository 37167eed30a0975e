package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/odinkg/odin/internal/httputil"
)

// MaxBodySize limits request bodies to maxBytes. Requests announcing a
// larger Content-Length are rejected before the body is read.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			httputil.RespondError(c, http.StatusRequestEntityTooLarge, httputil.CodeTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxBytes))

			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()
	}
}
