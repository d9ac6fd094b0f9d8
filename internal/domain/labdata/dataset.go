package labdata

import (
	"fmt"
	"time"
)

// Default dataset ratios.
const (
	DefaultUniqueRatio    = 0.8
	DefaultDuplicateRatio = 0.2
	DefaultNoiseRatio     = 0.05
)

// Options configures one assembly of the small and large datasets.
type Options struct {
	Small int
	Large int

	// UniqueRatio of a dataset's target size is drawn from distinct
	// identities, DuplicateRatio is re-drawn from them.
	UniqueRatio    float64
	DuplicateRatio float64
	// NoiseRatio of the large target size is the number of noise draws.
	NoiseRatio float64

	VisitWindow Window
	Today       time.Time
	Samples     SampleGenerator
	Profiles    ProfileSource
}

// DefaultOptions returns options for the given sizes with every other setting
// at its default.
func DefaultOptions(small, large int) Options {
	return Options{
		Small:          small,
		Large:          large,
		UniqueRatio:    DefaultUniqueRatio,
		DuplicateRatio: DefaultDuplicateRatio,
		NoiseRatio:     DefaultNoiseRatio,
		VisitWindow:    DefaultVisitWindow,
		Samples:        DefaultSampleGenerator(),
	}
}

// Validate checks the sizes, ratios and visit window.
func (o Options) Validate() error {
	if o.Small > o.Large {
		return fmt.Errorf("%w: small=%d large=%d", ErrSmallExceedsLarge, o.Small, o.Large)
	}
	if o.Small < 0 || o.Large < 0 {
		return fmt.Errorf("%w: small=%d large=%d", ErrNegativeCount, o.Small, o.Large)
	}
	if o.Large == 0 {
		return ErrZeroLarge
	}
	ratios := []struct {
		name  string
		value float64
	}{
		{"unique", o.UniqueRatio},
		{"duplicate", o.DuplicateRatio},
		{"noise", o.NoiseRatio},
		{"covid positivity", o.Samples.CovidPositivity},
	}
	for _, r := range ratios {
		if r.value < 0 || r.value > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidRatio, r.name, r.value)
		}
	}
	// the large dataset re-uses the small rows as part of its duplicate share
	if dup := floorRatio(o.Large, o.DuplicateRatio); o.Small > dup {
		return fmt.Errorf("%w: small=%d duplicates=%d", ErrNotEnoughDuplicates, o.Small, dup)
	}
	return o.VisitWindow.Validate()
}

// PoolSize is the number of distinct identities behind the large dataset.
func (o Options) PoolSize() int { return floorRatio(o.Large, o.UniqueRatio) }

// SmallUnique is the number of pool-prefix rows of the small dataset.
func (o Options) SmallUnique() int { return floorRatio(o.Small, o.UniqueRatio) }

// SmallDuplicates is the number of repeat-patient rows of the small dataset.
func (o Options) SmallDuplicates() int { return floorRatio(o.Small, o.DuplicateRatio) }

// LargeDuplicates is the number of repeat-patient rows appended to the large
// dataset after the pool rows. It counts the small rows already carried over.
func (o Options) LargeDuplicates() int { return floorRatio(o.Large, o.DuplicateRatio) - o.Small }

// NoiseDraws is the number of noise draws against the large dataset.
func (o Options) NoiseDraws() int { return floorRatio(o.Large, o.NoiseRatio) }

// SmallRows is the exact row count of the small dataset. It falls short of
// Small when the unique and duplicate shares both truncate.
func (o Options) SmallRows() int {
	if o.Small <= 0 {
		return 0
	}
	return o.SmallUnique() + o.SmallDuplicates()
}

// ExpectedLargeRows is the exact row count of the large dataset. It equals
// PoolSize plus the floored duplicate share whenever SmallRows equals Small.
func (o Options) ExpectedLargeRows() int {
	return o.SmallRows() + o.PoolSize() + o.LargeDuplicates()
}

func floorRatio(n int, ratio float64) int {
	return int(float64(n) * ratio)
}

// Result holds one assembled pair of datasets.
type Result struct {
	Pool  []Patient
	Small []*Row
	Large []*Row
	Noise []NoiseDraw
}

// Assembler builds the small and large datasets.
type Assembler struct {
	opts Options
}

// NewAssembler validates opts and fills in unset collaborators.
func NewAssembler(opts Options) (*Assembler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	if opts.Profiles == nil {
		opts.Profiles = DutchProfiles{Today: opts.Today}
	}
	if len(opts.Samples.Types) == 0 {
		opts.Samples.Types = AllSampleTypes
	}
	return &Assembler{opts: opts}, nil
}

// Options returns the effective options.
func (a *Assembler) Options() Options { return a.opts }

// Build draws the identity pool, both datasets and the noise.
func (a *Assembler) Build(rng Rand) *Result {
	o := a.opts
	res := &Result{
		Pool: CreatePatients(rng, o.Profiles, o.PoolSize(), o.Today, o.VisitWindow),
	}

	res.Small = []*Row{}
	if o.Small > 0 {
		prefix := res.Pool[:o.SmallUnique()]
		for _, p := range prefix {
			res.Small = append(res.Small, a.record(rng, p))
		}
		res.Small = append(res.Small, a.redraw(rng, prefix, o.SmallDuplicates())...)
	}

	res.Large = make([]*Row, 0, o.ExpectedLargeRows())
	for _, r := range res.Small {
		res.Large = append(res.Large, r.Clone())
	}
	for _, p := range res.Pool {
		res.Large = append(res.Large, a.record(rng, p))
	}
	res.Large = append(res.Large, a.redraw(rng, res.Pool, o.LargeDuplicates())...)

	res.Noise = InjectNoise(rng, res.Large, o.Small, o.Large, o.NoiseDraws())
	return res
}

// record is an identity clone merged with a freshly generated sample.
func (a *Assembler) record(rng Rand, p Patient) *Row {
	return p.Row().Merge(a.opts.Samples.Generate(rng).Row())
}

// redraw makes k rows from identities picked with replacement.
func (a *Assembler) redraw(rng Rand, pool []Patient, k int) []*Row {
	if k <= 0 || len(pool) == 0 {
		return nil
	}
	rows := make([]*Row, 0, k)
	for i := 0; i < k; i++ {
		rows = append(rows, a.record(rng, pool[rng.IntN(len(pool))]))
	}
	return rows
}
