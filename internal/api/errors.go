package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/odinkg/odin/internal/httputil"
	"github.com/odinkg/odin/internal/metrics"
	"github.com/odinkg/odin/internal/models"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondDomainError maps domain errors onto HTTP statuses. Unexpected
// errors are logged and hidden behind internal_error.
func (h *handler) respondDomainError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes):
		respondError(c, http.StatusRequestEntityTooLarge, httputil.CodeTooLarge, err.Error())
	case errors.Is(err, models.ErrMalformedInput), errors.Is(err, models.ErrUnknownMethod):
		respondError(c, http.StatusBadRequest, httputil.CodeInvalidRequest, err.Error())
	case errors.Is(err, models.ErrRecordNotFound):
		respondError(c, http.StatusNotFound, httputil.CodeNotFound, err.Error())
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		respondError(c, http.StatusInternalServerError, httputil.CodeInternalError, "internal error")
	}
}
