package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/httputil"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/similarity"
)

// Multipart field names of a similarity request.
const (
	FieldDataset = "dataset"
	FieldOptions = "options"
)

type handler struct {
	log logrus.FieldLogger
}

// SimilarityHandler serves path computations between two datasets.
type SimilarityHandler struct {
	handler
	svc SimilarityService
}

// NewSimilarityHandler creates a SimilarityHandler.
func NewSimilarityHandler(svc SimilarityService, log logrus.FieldLogger) *SimilarityHandler {
	return &SimilarityHandler{handler: handler{log: log}, svc: svc}
}

// Compute handles POST /graph-similarity and POST /api/v1/similarity. The
// multipart body carries two dataset files and an optional options file.
func (h *SimilarityHandler) Compute(c *gin.Context) {
	form, err := c.Request.MultipartReader()
	if err != nil {
		respondError(c, http.StatusBadRequest, httputil.CodeInvalidRequest, "expected a multipart/form-data body")
		return
	}

	datasets, opts, err := readSimilarityForm(form)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	result, err := h.svc.Compute(c.Request.Context(), datasets[0], datasets[1], opts)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// readSimilarityForm streams the parts of a similarity request. Datasets
// are decoded as they arrive so no part is buffered whole.
func readSimilarityForm(form *multipart.Reader) ([]*similarity.Dataset, similarity.Options, error) {
	var (
		datasets []*similarity.Dataset
		opts     similarity.Options
	)

	for {
		part, err := form.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				return nil, opts, err
			}

			return nil, opts, fmt.Errorf("%w: reading form: %v", models.ErrMalformedInput, err)
		}

		switch part.FormName() {
		case FieldDataset:
			if len(datasets) == 2 {
				part.Close() //nolint:errcheck,gosec // rejecting the request
				return nil, opts, fmt.Errorf("%w: exactly two %s files are required", models.ErrMalformedInput, FieldDataset)
			}

			ds, err := similarity.DecodeDataset(part)
			if err != nil {
				return nil, opts, err
			}

			datasets = append(datasets, ds)

		case FieldOptions:
			if err := json.NewDecoder(part).Decode(&opts); err != nil {
				return nil, opts, fmt.Errorf("%w: options: %v", models.ErrMalformedInput, err)
			}
		}

		part.Close() //nolint:errcheck,gosec // fully consumed or ignored
	}

	if len(datasets) != 2 {
		return nil, opts, fmt.Errorf("%w: exactly two %s files are required, got %d", models.ErrMalformedInput, FieldDataset, len(datasets))
	}

	return datasets, opts, nil
}
