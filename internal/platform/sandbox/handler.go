package sandbox

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/ehr/labsynth/internal/domain/labdata"
	"github.com/ehr/labsynth/internal/platform/blobstore"
	"github.com/ehr/labsynth/internal/platform/export"
	"github.com/ehr/labsynth/internal/platform/middleware"
	"github.com/ehr/labsynth/pkg/pagination"
)

// DefaultOutputName names artifacts of runs that do not pick a name.
const DefaultOutputName = "labdata"

// GenerateRequest is the body of POST /generate. Absent fields fall back to
// the handler defaults.
type GenerateRequest struct {
	Small *int   `json:"small,omitempty"`
	Large *int   `json:"large,omitempty"`
	Seed  int64  `json:"seed,omitempty"`
	Name  string `json:"name,omitempty"`
	CSV   *bool  `json:"csv,omitempty"`
}

// Handler provides HTTP endpoints for generating and browsing datasets.
type Handler struct {
	seeder   *Seeder
	defaults RunOptions
	mu       sync.Mutex
}

// NewHandler creates a handler running seeder with defaults for omitted
// request fields.
func NewHandler(seeder *Seeder, defaults RunOptions) *Handler {
	if defaults.OutputName == "" {
		defaults.OutputName = DefaultOutputName
	}
	return &Handler{seeder: seeder, defaults: defaults}
}

// RegisterRoutes registers dataset routes on the given Echo group. generateMW
// applies to POST /generate only.
func (h *Handler) RegisterRoutes(g *echo.Group, generateMW ...echo.MiddlewareFunc) {
	g.POST("/generate", h.handleGenerate, generateMW...)
	g.GET("/datasets/:dataset", h.handleListRows)
	g.GET("/datasets/:dataset/xlsx", h.handleDownload(export.FormatXLSX))
	g.GET("/datasets/:dataset/csv", h.handleDownload(export.FormatCSV))
	g.POST("/reset", h.handleReset)
}

func isValidationError(err error) bool {
	for _, target := range []error{
		labdata.ErrNegativeCount,
		labdata.ErrSmallExceedsLarge,
		labdata.ErrZeroLarge,
		labdata.ErrNotEnoughDuplicates,
		labdata.ErrInvalidRatio,
		labdata.ErrInvalidWindow,
		labdata.ErrNoSampleTypes,
		export.ErrOutputNameRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) handleGenerate(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	opts := h.defaults
	if req.Small != nil {
		opts.Dataset.Small = *req.Small
	}
	if req.Large != nil {
		opts.Dataset.Large = *req.Large
	}
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	if req.Name != "" {
		opts.OutputName = req.Name
	}
	if req.CSV != nil {
		opts.CSVMirror = *req.CSV
	}

	result, err := h.seeder.Run(c.Request().Context(), opts)
	if err != nil {
		if isValidationError(err) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

func (h *Handler) handleListRows(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := pagination.FromContext(c)
	run := h.seeder.Last()
	if run == nil {
		return c.JSON(http.StatusOK, pagination.NewResponse([]*labdata.Row{}, 0, p.Limit, p.Offset))
	}

	rows, ok := run.Rows(c.Param("dataset"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown dataset %q", c.Param("dataset"))})
	}

	start, end := p.Bounds(len(rows))
	resp := pagination.NewResponse(rows[start:end], len(rows), p.Limit, p.Offset)
	resp.Links = p.Links(c.Request().URL.Path, len(rows))
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleDownload(format string) echo.HandlerFunc {
	return func(c echo.Context) error {
		h.mu.Lock()
		defer h.mu.Unlock()

		run := h.seeder.Last()
		if run == nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no dataset generated yet"})
		}
		dataset := c.Param("dataset")
		rows, ok := run.Rows(dataset)
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown dataset %q", dataset)})
		}

		// serve the stored artifact when the run exported one
		if art, ok := run.Result.Artifact(dataset, format); ok {
			if art.SHA256 != "" {
				etag := `"` + art.SHA256 + `"`
				c.Response().Header().Set("ETag", etag)
				if middleware.ETagMatch(c.Request().Header.Get("If-None-Match"), etag) {
					return c.NoContent(http.StatusNotModified)
				}
			}
			info, rc, err := h.seeder.Store().Get(c.Request().Context(), art.Key)
			switch {
			case err == nil:
				defer rc.Close()
				c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, info.Key))
				return c.Stream(http.StatusOK, art.ContentType, rc)
			case !errors.Is(err, blobstore.ErrBlobNotFound):
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
		}

		var buf bytes.Buffer
		contentType, err := export.Render(&buf, format, rows, run.Columns)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		name := export.FileName(run.Today, run.Result.OutputName, dataset, format)
		c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		return c.Blob(http.StatusOK, contentType, buf.Bytes())
	}
}

func (h *Handler) handleReset(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seeder.Reset()
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}
