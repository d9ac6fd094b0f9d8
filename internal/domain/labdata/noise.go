package labdata

import (
	"strconv"
	"time"
)

// NoiseField is a column the noise pass may corrupt.
type NoiseField int

const (
	NoiseBirthDate NoiseField = iota
	NoiseSampleType
	NoiseCovidPCR
)

// NoiseFields lists the corruptible columns in draw order.
var NoiseFields = []NoiseField{NoiseBirthDate, NoiseSampleType, NoiseCovidPCR}

// Column returns the row key the field corrupts.
func (f NoiseField) Column() string {
	switch f {
	case NoiseBirthDate:
		return ColBirthDate
	case NoiseSampleType:
		return ColType
	case NoiseCovidPCR:
		return ColCovidPCR
	default:
		return "NoiseField(" + strconv.Itoa(int(f)) + ")"
	}
}

// String returns the column name.
func (f NoiseField) String() string { return f.Column() }

// Birth dates are pushed back between 75 and 150 years.
const (
	birthDateShiftMinDays = 365 * 75
	birthDateShiftMaxDays = 365 * 150
)

// covidTypos are free-text entry variants of positive and negative.
var covidTypos = []string{"pos", "post", "y", "prositif", "neg", "-", "n", "non"}

// CovidTypos returns the literal tokens the noise pass writes to Covid-PCR.
func CovidTypos() []string {
	out := make([]string, len(covidTypos))
	copy(out, covidTypos)
	return out
}

// NoiseDraw records one noise draw against the large dataset.
type NoiseDraw struct {
	Index   int        `json:"index"`
	Field   NoiseField `json:"-"`
	Column  string     `json:"column"`
	Before  *string    `json:"before,omitempty"`
	After   string     `json:"after,omitempty"`
	Applied bool       `json:"applied"`
}

// Corrupt computes the noisy value of field given the current value, nil when
// the row does not carry the field. ok is false when the field is left as is.
func Corrupt(rng Rand, field NoiseField, current *string) (value string, ok bool) {
	switch field {
	case NoiseBirthDate:
		if current == nil {
			return "", false
		}
		d, err := time.Parse(DateLayout, *current)
		if err != nil {
			return "", false
		}
		shift := between(rng, birthDateShiftMinDays, birthDateShiftMaxDays)
		return d.AddDate(0, 0, -shift).Format(DateLayout), true
	case NoiseSampleType:
		// the payload is left untouched on purpose
		if current != nil && *current == CovidSwab.String() {
			return BloodPanel.String(), true
		}
		return CovidSwab.String(), true
	case NoiseCovidPCR:
		return pick(rng, covidTypos), true
	}
	return "", false
}

// InjectNoise makes draws corruptions against rows, choosing indices in
// [from, to) with replacement and a field uniformly per draw. Indices past the
// end of rows are clamped to it.
func InjectNoise(rng Rand, rows []*Row, from, to, draws int) []NoiseDraw {
	if to > len(rows) {
		to = len(rows)
	}
	if from < 0 {
		from = 0
	}
	if draws <= 0 || to <= from {
		return nil
	}

	out := make([]NoiseDraw, 0, draws)
	for i := 0; i < draws; i++ {
		idx := from + rng.IntN(to-from)
		field := NoiseFields[rng.IntN(len(NoiseFields))]
		row := rows[idx]
		col := field.Column()

		var current *string
		if v, ok := row.Get(col); ok {
			current = &v
		}
		draw := NoiseDraw{Index: idx, Field: field, Column: col, Before: current}
		if value, ok := Corrupt(rng, field, current); ok {
			row.Set(col, value)
			draw.After = value
			draw.Applied = true
		}
		out = append(out, draw)
	}
	return out
}
