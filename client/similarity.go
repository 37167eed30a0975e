package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// SimilarityService computes hierarchy paths between datasets.
type SimilarityService struct {
	c *Client
}

// Compute uploads two record documents and returns the selected paths.
// opts may be nil for the server default.
func (s *SimilarityService) Compute(ctx context.Context, left, right io.Reader, opts *Options) (*SimilarityResult, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	for i, ds := range []io.Reader{left, right} {
		part, err := w.CreateFormFile("dataset", fmt.Sprintf("dataset-%d.json", i))
		if err != nil {
			return nil, fmt.Errorf("create form: %w", err)
		}

		if _, err := io.Copy(part, ds); err != nil {
			return nil, fmt.Errorf("copy dataset: %w", err)
		}
	}

	if opts != nil {
		part, err := w.CreateFormFile("options", "options.json")
		if err != nil {
			return nil, fmt.Errorf("create form: %w", err)
		}

		if err := json.NewEncoder(part).Encode(opts); err != nil {
			return nil, fmt.Errorf("marshal options: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	var result SimilarityResult
	if err := s.c.send(ctx, http.MethodPost, "/api/v1/similarity", &buf, w.FormDataContentType(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Records computes paths between two records stored by the server.
func (s *SimilarityService) Records(ctx context.Context, leftIRI, rightIRI string, opts *Options) (*SimilarityResult, error) {
	body := map[string]any{"left": leftIRI, "right": rightIRI}
	if opts != nil {
		body["options"] = opts
	}

	var result SimilarityResult
	if err := s.c.post(ctx, "/api/v1/similarity/records", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
