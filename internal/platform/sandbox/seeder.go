// Package sandbox runs dataset generation end to end: it assembles the small
// and large laboratory datasets, exports them as artifacts into a blob store
// and keeps the last run in memory for the HTTP sandbox.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/labsynth/internal/domain/labdata"
	"github.com/ehr/labsynth/internal/platform/blobstore"
	"github.com/ehr/labsynth/internal/platform/export"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// RunOptions controls one generation run.
type RunOptions struct {
	Dataset    labdata.Options
	OutputName string
	CSVMirror  bool
	// Seed of the random source; 0 picks a time-based seed which is then
	// reported in the result.
	Seed int64
}

// ---------------------------------------------------------------------------
// RunResult
// ---------------------------------------------------------------------------

// Artifact is one exported file.
type Artifact struct {
	Dataset string `json:"dataset"`
	Format  string `json:"format"`
	blobstore.Info
}

// RunResult summarizes a generation run.
type RunResult struct {
	RunID      string        `json:"run_id"`
	OutputName string        `json:"output_name"`
	Seed       int64         `json:"seed"`
	Date       string        `json:"date"`
	PoolSize   int           `json:"pool_size"`
	SmallRows  int           `json:"small_rows"`
	LargeRows  int           `json:"large_rows"`
	NoiseDraws int           `json:"noise_draws"`
	Artifacts  []Artifact    `json:"artifacts"`
	Duration   time.Duration `json:"duration"`
}

// Artifact returns the artifact for dataset and format, if exported.
func (r *RunResult) Artifact(dataset, format string) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Dataset == dataset && a.Format == format {
			return a, true
		}
	}
	return Artifact{}, false
}

// Run is a completed run kept for inspection.
type Run struct {
	Result  RunResult
	Today   time.Time
	Data    *labdata.Result
	Columns []string
}

// Rows returns the rows of the named dataset ("small" or "large").
func (r *Run) Rows(dataset string) ([]*labdata.Row, bool) {
	switch dataset {
	case export.Small:
		return r.Data.Small, true
	case export.Large:
		return r.Data.Large, true
	}
	return nil, false
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Seeder assembles datasets and writes their artifacts to a store.
type Seeder struct {
	store   blobstore.Store
	logger  zerolog.Logger
	metrics *Metrics
	now     func() time.Time

	mu   sync.RWMutex
	last *Run
}

// NewSeeder creates a Seeder writing to store. metrics may be nil.
func NewSeeder(store blobstore.Store, logger zerolog.Logger, metrics *Metrics) *Seeder {
	return &Seeder{
		store:   store,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run validates opts, builds both datasets and exports them. Nothing is
// written when validation fails.
func (s *Seeder) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	start := time.Now()

	if opts.Dataset.Today.IsZero() {
		opts.Dataset.Today = s.now()
	}
	assembler, err := labdata.NewAssembler(opts.Dataset)
	if err != nil {
		s.metrics.observeFailure()
		return nil, err
	}
	if strings.TrimSpace(export.TrimExtension(opts.OutputName)) == "" {
		s.metrics.observeFailure()
		return nil, export.ErrOutputNameRequired
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	data := assembler.Build(labdata.NewRand(seed))
	effective := assembler.Options()

	result := &RunResult{
		RunID:      uuid.New().String(),
		OutputName: export.TrimExtension(opts.OutputName),
		Seed:       seed,
		Date:       effective.Today.Format(labdata.DateLayout),
		PoolSize:   len(data.Pool),
		SmallRows:  len(data.Small),
		LargeRows:  len(data.Large),
		NoiseDraws: len(data.Noise),
	}
	columns := labdata.Columns(effective.Samples.Panel)

	log := s.logger.With().Str("run_id", result.RunID).Logger()
	log.Debug().
		Int64("seed", seed).
		Int("pool", result.PoolSize).
		Int("noise_draws", result.NoiseDraws).
		Msg("datasets assembled")

	type job struct {
		dataset, format string
		rows            []*labdata.Row
	}
	var jobs []job
	if effective.Small > 0 {
		jobs = append(jobs, job{export.Small, export.FormatXLSX, data.Small})
		if opts.CSVMirror {
			jobs = append(jobs, job{export.Small, export.FormatCSV, data.Small})
		}
	}
	jobs = append(jobs, job{export.Large, export.FormatXLSX, data.Large})

	for _, j := range jobs {
		art, err := s.write(ctx, effective.Today, opts.OutputName, j.dataset, j.format, j.rows, columns)
		if err != nil {
			s.metrics.observeFailure()
			return nil, err
		}
		result.Artifacts = append(result.Artifacts, art)
		log.Info().
			Str("file", art.Key).
			Str("dataset", j.dataset).
			Int("rows", len(j.rows)).
			Msg("created")
	}

	result.Duration = time.Since(start)
	s.metrics.observe(result, data.Noise)

	s.mu.Lock()
	s.last = &Run{Result: *result, Today: effective.Today, Data: data, Columns: columns}
	s.mu.Unlock()

	return result, nil
}

func (s *Seeder) write(ctx context.Context, day time.Time, base, dataset, format string, rows []*labdata.Row, columns []string) (Artifact, error) {
	var buf bytes.Buffer
	contentType, err := export.Render(&buf, format, rows, columns)
	if err != nil {
		return Artifact{}, err
	}
	key := export.FileName(day, base, dataset, format)
	info, err := s.store.Put(ctx, key, contentType, &buf)
	if err != nil {
		return Artifact{}, fmt.Errorf("store %s: %w", key, err)
	}
	return Artifact{Dataset: dataset, Format: format, Info: info}, nil
}

// Last returns the most recent run, or nil.
func (s *Seeder) Last() *Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Store returns the artifact store.
func (s *Seeder) Store() blobstore.Store { return s.store }

// Reset forgets the last run and clears resettable stores.
func (s *Seeder) Reset() {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()

	if r, ok := s.store.(interface{ Reset() }); ok {
		r.Reset()
	}
}
