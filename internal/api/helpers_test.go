package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/odinkg/odin/internal/api"
	"github.com/odinkg/odin/internal/models"
	"github.com/odinkg/odin/internal/similarity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// newTestRouter builds the full router around a real path finder.
func newTestRouter(records api.RecordRepository) http.Handler {
	deps := &api.RouterDeps{
		Log:         testLogger(),
		Similarity:  similarity.NewService(testLogger(), 2),
		CORSOrigins: []string{"http://localhost:3000"},
		Version:     "test-v1",
	}

	if records != nil {
		deps.Records = records
		deps.DB = okChecker{}
	}

	return api.NewRouter(deps)
}

// doRequest performs an HTTP request against the router and returns the recorder.
func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

// multipartBody encodes datasets and optional options as a similarity form.
func multipartBody(t *testing.T, options string, datasets ...any) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	for i, ds := range datasets {
		part, err := w.CreateFormFile(api.FieldDataset, "dataset"+string(rune('0'+i))+".json")
		if err != nil {
			t.Fatal(err)
		}

		if s, ok := ds.(string); ok {
			_, err = part.Write([]byte(s))
		} else {
			err = json.NewEncoder(part).Encode(ds)
		}

		if err != nil {
			t.Fatal(err)
		}
	}

	if options != "" {
		part, err := w.CreateFormFile(api.FieldOptions, "options.json")
		if err != nil {
			t.Fatal(err)
		}

		if _, err := part.Write([]byte(options)); err != nil {
			t.Fatal(err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	return &buf, w.FormDataContentType()
}

func postForm(h http.Handler, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

// record builds a record mapped to mapped with the given hierarchy edges
// written as source, target pairs of instanceof relations.
func record(id string, mapped []string, edges ...[2]string) *models.Record {
	data := make([]models.MappingRecord, 0, len(mapped))
	for _, m := range mapped {
		data = append(data, models.MappingRecord{ID: m})
	}

	rec := &models.Record{
		ID:       id,
		Mappings: []models.MappingGroup{{Metadata: models.GroupMetadata{From: "title"}, Data: data}},
	}

	for _, e := range edges {
		rec.Hierarchy = append(rec.Hierarchy, models.HierarchyEdge{
			Source: e[0], Relation: models.RelationInstanceOf, Target: e[1],
		})
	}

	return rec
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
}
