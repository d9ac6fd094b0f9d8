package sandbox

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/labsynth/internal/domain/labdata"
	"github.com/ehr/labsynth/internal/platform/export"
)

func setupTestEcho(t *testing.T) (*echo.Echo, *Handler) {
	t.Helper()
	s, _, _ := newTestSeeder(t)
	h := NewHandler(s, RunOptions{Dataset: labdata.DefaultOptions(10, 500), Seed: 7})
	e := echo.New()
	g := e.Group("/labdata")
	h.RegisterRoutes(g)
	return e, h
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type listResponse struct {
	Data    []map[string]string `json:"data"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
	HasMore bool                `json:"has_more"`
}

func TestHandler_Generate(t *testing.T) {
	e, _ := setupTestEcho(t)

	rec := doRequest(e, http.MethodPost, "/labdata/generate", `{"small":5,"large":100,"seed":42,"name":"demo","csv":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result RunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.SmallRows != 5 || result.LargeRows != 100 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if result.Seed != 42 {
		t.Errorf("expected seed 42, got %d", result.Seed)
	}
	if len(result.Artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(result.Artifacts))
	}
	if result.Artifacts[0].Key != "2024-03-05_demo_small.xlsx" {
		t.Errorf("unexpected artifact key %s", result.Artifacts[0].Key)
	}
}

func TestHandler_GenerateDefaults(t *testing.T) {
	e, _ := setupTestEcho(t)

	rec := doRequest(e, http.MethodPost, "/labdata/generate", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result RunResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.SmallRows != 10 || result.LargeRows != 500 || result.Seed != 7 {
		t.Errorf("expected handler defaults, got %+v", result)
	}
	if result.OutputName != DefaultOutputName {
		t.Errorf("expected default name, got %q", result.OutputName)
	}
}

func TestHandler_GenerateValidation(t *testing.T) {
	e, _ := setupTestEcho(t)

	for _, body := range []string{
		`{"small":20,"large":10}`,
		`{"small":-1,"large":10}`,
		`{"small":0,"large":0}`,
		`{"small":2000,"large":5000}`,
		`{"small":`,
	} {
		rec := doRequest(e, http.MethodPost, "/labdata/generate", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d: %s", body, rec.Code, rec.Body.String())
		}
	}
}

func TestHandler_ListRows(t *testing.T) {
	e, _ := setupTestEcho(t)

	// no run yet
	rec := doRequest(e, http.MethodGet, "/labdata/datasets/large", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var empty listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &empty); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if empty.Total != 0 || len(empty.Data) != 0 {
		t.Fatalf("expected empty listing, got %+v", empty)
	}

	doRequest(e, http.MethodPost, "/labdata/generate", `{"small":5,"large":100}`)

	rec = doRequest(e, http.MethodGet, "/labdata/datasets/large?limit=30&offset=90", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if page.Total != 100 || len(page.Data) != 10 || page.HasMore {
		t.Fatalf("unexpected page total=%d len=%d more=%v", page.Total, len(page.Data), page.HasMore)
	}
	if page.Data[0][labdata.ColPatientID] == "" {
		t.Error("expected rows to carry patient ids")
	}

	rec = doRequest(e, http.MethodGet, "/labdata/datasets/small", "")
	var small listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &small); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if small.Total != 5 {
		t.Errorf("expected 5 small rows, got %d", small.Total)
	}
}

func TestHandler_ListRowsKeepsColumnOrder(t *testing.T) {
	e, _ := setupTestEcho(t)
	doRequest(e, http.MethodPost, "/labdata/generate", `{"small":5,"large":100}`)

	rec := doRequest(e, http.MethodGet, "/labdata/datasets/small?limit=1", "")
	body := rec.Body.String()
	if !(strings.Index(body, `"naam"`) < strings.Index(body, `"patient_id"`) &&
		strings.Index(body, `"patient_id"`) < strings.Index(body, `"type"`)) {
		t.Errorf("expected identity columns before sample columns, got %s", body)
	}
}

func TestHandler_UnknownDataset(t *testing.T) {
	e, _ := setupTestEcho(t)
	doRequest(e, http.MethodPost, "/labdata/generate", `{"small":5,"large":100}`)

	if rec := doRequest(e, http.MethodGet, "/labdata/datasets/pool", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := doRequest(e, http.MethodGet, "/labdata/datasets/pool/xlsx", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_DownloadBeforeGenerate(t *testing.T) {
	e, _ := setupTestEcho(t)
	if rec := doRequest(e, http.MethodGet, "/labdata/datasets/small/xlsx", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_DownloadStoredArtifact(t *testing.T) {
	e, _ := setupTestEcho(t)
	doRequest(e, http.MethodPost, "/labdata/generate", `{"small":5,"large":100,"name":"demo"}`)

	rec := doRequest(e, http.MethodGet, "/labdata/datasets/large/xlsx", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != export.ContentTypeXLSX {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "2024-03-05_demo_large.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	rows := sheetRows(t, rec.Body.Bytes())
	if len(rows) != 101 {
		t.Errorf("expected header + 100 rows, got %d", len(rows))
	}
}

func TestHandler_DownloadRenderedCSV(t *testing.T) {
	e, _ := setupTestEcho(t)
	doRequest(e, http.MethodPost, "/labdata/generate", `{"small":5,"large":100,"name":"demo"}`)

	// the large dataset has no stored csv mirror and is rendered on request
	rec := doRequest(e, http.MethodGet, "/labdata/datasets/large/csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), export.ContentTypeCSV) {
		t.Errorf("unexpected content type %q", rec.Header().Get(echo.HeaderContentType))
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "2024-03-05_demo_large.csv") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "naam,patient_id,") {
		t.Errorf("expected raw csv header, got %q", rec.Body.String()[:40])
	}
}

func TestHandler_Reset(t *testing.T) {
	e, h := setupTestEcho(t)
	doRequest(e, http.MethodPost, "/labdata/generate", `{"small":5,"large":100}`)

	rec := doRequest(e, http.MethodPost, "/labdata/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if h.seeder.Last() != nil {
		t.Fatal("expected no run after reset")
	}
	if rec := doRequest(e, http.MethodGet, "/labdata/datasets/large/xlsx", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after reset, got %d", rec.Code)
	}
}

func TestHandler_DownloadETag(t *testing.T) {
	e, _ := setupTestEcho(t)
	doRequest(e, http.MethodPost, "/labdata/generate", `{"small":5,"large":100}`)

	rec := doRequest(e, http.MethodGet, "/labdata/datasets/small/xlsx", "")
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag on stored artifacts")
	}

	req := httptest.NewRequest(http.MethodGet, "/labdata/datasets/small/xlsx", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Error("expected empty body on 304")
	}
}

func TestHandler_GenerateMiddleware(t *testing.T) {
	s, _, _ := newTestSeeder(t)
	h := NewHandler(s, RunOptions{Dataset: labdata.DefaultOptions(1, 10), Seed: 7})
	e := echo.New()
	blocked := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
	}
	h.RegisterRoutes(e.Group("/labdata"), blocked)

	if rec := doRequest(e, http.MethodPost, "/labdata/generate", `{}`); rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected generate to pass through middleware, got %d", rec.Code)
	}
	if rec := doRequest(e, http.MethodGet, "/labdata/datasets/small", ""); rec.Code != http.StatusOK {
		t.Errorf("expected listing unaffected, got %d", rec.Code)
	}
}
