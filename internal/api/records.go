package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/httputil"
	"github.com/odinkg/odin/internal/similarity"
)

const maxIDLength = 2048

// RecordHandler serves exported records from the record store.
type RecordHandler struct {
	handler
	repo RecordRepository
	svc  SimilarityService
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(repo RecordRepository, svc SimilarityService, log logrus.FieldLogger) *RecordHandler {
	return &RecordHandler{handler: handler{log: log}, repo: repo, svc: svc}
}

// Get handles GET /api/v1/records?iri=...
func (h *RecordHandler) Get(c *gin.Context) {
	iri := c.Query("iri")
	if !validID(c, "iri", iri) {
		return
	}

	rec, err := h.repo.GetRecord(c.Request.Context(), iri)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// MappedTo handles GET /api/v1/entities/:id/records.
func (h *RecordHandler) MappedTo(c *gin.Context) {
	id := c.Param("id")
	if !validID(c, "id", id) {
		return
	}

	iris, err := h.repo.RecordsMappedTo(c.Request.Context(), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entity": id, "records": iris})
}

type recordSimilarityRequest struct {
	Left    string             `json:"left"`
	Right   string             `json:"right"`
	Options similarity.Options `json:"options"`
}

// Similarity handles POST /api/v1/similarity/records, computing paths
// between two stored records.
func (h *RecordHandler) Similarity(c *gin.Context) {
	var req recordSimilarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, httputil.CodeInvalidRequest, "invalid JSON body")
		return
	}

	if !validID(c, "left", req.Left) || !validID(c, "right", req.Right) {
		return
	}

	ctx := c.Request.Context()

	left, err := h.repo.GetRecord(ctx, req.Left)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	right, err := h.repo.GetRecord(ctx, req.Right)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	result, err := h.svc.Compute(ctx, similarity.FromRecord(left), similarity.FromRecord(right), req.Options)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func validID(c *gin.Context, name, v string) bool {
	switch {
	case v == "":
		respondError(c, http.StatusBadRequest, httputil.CodeInvalidRequest, name+" is required")
		return false
	case len(v) > maxIDLength:
		respondError(c, http.StatusBadRequest, httputil.CodeInvalidRequest, name+" is too long")
		return false
	default:
		return true
	}
}
