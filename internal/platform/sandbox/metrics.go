package sandbox

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ehr/labsynth/internal/domain/labdata"
	"github.com/ehr/labsynth/internal/platform/export"
)

// Metrics records generation counters. A nil *Metrics is a no-op.
type Metrics struct {
	runs       *prometheus.CounterVec
	rows       *prometheus.CounterVec
	noiseDraws *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labsynth",
			Name:      "runs_total",
			Help:      "Generation runs by outcome.",
		}, []string{"status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labsynth",
			Name:      "rows_generated_total",
			Help:      "Rows written per dataset.",
		}, []string{"dataset"}),
		noiseDraws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labsynth",
			Name:      "noise_draws_total",
			Help:      "Noise draws per field and whether they changed the row.",
		}, []string{"field", "applied"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "labsynth",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a generation run including export.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.runs, m.rows, m.noiseDraws, m.duration)
	return m
}

func (m *Metrics) observe(res *RunResult, draws []labdata.NoiseDraw) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.rows.WithLabelValues(export.Small).Add(float64(res.SmallRows))
	m.rows.WithLabelValues(export.Large).Add(float64(res.LargeRows))
	for _, d := range draws {
		m.noiseDraws.WithLabelValues(d.Field.String(), strconv.FormatBool(d.Applied)).Inc()
	}
	m.duration.Observe(res.Duration.Seconds())
}

func (m *Metrics) observeFailure() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("error").Inc()
}
