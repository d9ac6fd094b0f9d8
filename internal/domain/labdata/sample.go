package labdata

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Column names of the sample part of a row.
const (
	ColType     = "type"
	ColTaken    = "genomen"
	ColReceived = "ingang"
	ColCovidPCR = "Covid-PCR"
)

// Covid-PCR values as they leave the generator.
const (
	CovidPositive = "positief"
	CovidNegative = "negatief"
)

// DefaultCovidPositivity is the prior probability of a positive swab.
const DefaultCovidPositivity = 0.2

// SampleType is the kind of sample taken at a visit.
type SampleType int

const (
	BloodPanel SampleType = iota
	CovidSwab
)

// AllSampleTypes is the default sample vocabulary.
var AllSampleTypes = []SampleType{BloodPanel, CovidSwab}

// String returns the exported label of the sample type.
func (t SampleType) String() string {
	switch t {
	case BloodPanel:
		return "bloed"
	case CovidSwab:
		return "uitstrijkje"
	default:
		return "SampleType(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseSampleType maps an exported label back to its type.
func ParseSampleType(s string) (SampleType, error) {
	switch s {
	case "bloed":
		return BloodPanel, nil
	case "uitstrijkje":
		return CovidSwab, nil
	}
	return 0, fmt.Errorf("unknown sample type %q", s)
}

// ParseSampleTypes parses a comma-separated list of labels. Blank entries
// are skipped; an empty result is an error.
func ParseSampleTypes(list string) ([]SampleType, error) {
	var types []SampleType
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := ParseSampleType(part)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		return nil, ErrNoSampleTypes
	}
	return types, nil
}

// PanelOptions controls how analyte fields are named and formatted.
type PanelOptions struct {
	UseLongNames  bool
	UseShortNames bool
	AddUnits      bool
}

// DefaultPanelOptions is long names with units.
func DefaultPanelOptions() PanelOptions {
	return PanelOptions{UseLongNames: true, AddUnits: true}
}

// FieldName returns the column name of the analyte at battery position i.
func (o PanelOptions) FieldName(i int, m Measure) string {
	name := strconv.Itoa(i)
	if o.UseLongNames {
		name = m.LongName
	}
	if o.UseShortNames && m.ShortName != "" {
		if o.UseLongNames {
			name = fmt.Sprintf("%s (%s)", name, m.ShortName)
		} else {
			name = m.ShortName
		}
	}
	return name
}

// Sample is one generated sample with its type-specific payload.
type Sample struct {
	Type     SampleType
	Taken    string
	Received string
	Payload  []Field
}

// Row renders the sample as row fields: type, timestamps, payload.
func (s Sample) Row() *Row {
	r := NewRow(
		Field{Key: ColType, Value: s.Type.String()},
		Field{Key: ColTaken, Value: s.Taken},
		Field{Key: ColReceived, Value: s.Received},
	)
	for _, f := range s.Payload {
		r.Set(f.Key, f.Value)
	}
	return r
}

// SampleGenerator draws samples from a sample vocabulary.
type SampleGenerator struct {
	Types           []SampleType
	Panel           PanelOptions
	CovidPositivity float64
}

// DefaultSampleGenerator draws both sample types with long-named, unit-suffixed
// panels and a 20% covid positivity.
func DefaultSampleGenerator() SampleGenerator {
	return SampleGenerator{
		Types:           AllSampleTypes,
		Panel:           DefaultPanelOptions(),
		CovidPositivity: DefaultCovidPositivity,
	}
}

// Generate selects a sample type uniformly and fills its payload.
func (g SampleGenerator) Generate(rng Rand) Sample {
	types := g.Types
	if len(types) == 0 {
		types = AllSampleTypes
	}
	s := Sample{Type: types[rng.IntN(len(types))]}

	times := []int{rng.IntN(secondsPerDay), rng.IntN(secondsPerDay)}
	sort.Ints(times)
	s.Taken = clockTime(times[0])
	s.Received = clockTime(times[1])

	switch s.Type {
	case BloodPanel:
		s.Payload = g.bloodPanel(rng)
	case CovidSwab:
		s.Payload = g.covidTest(rng)
	}
	return s
}

func (g SampleGenerator) bloodPanel(rng Rand) []Field {
	panel := SimplePanel()
	fields := make([]Field, 0, len(panel))
	for i, m := range panel {
		value := strconv.FormatFloat(m.Mean()+m.Sigma()*rng.NormFloat64(), 'f', 2, 64)
		if g.Panel.AddUnits {
			value = value + " " + m.Unit
		}
		fields = append(fields, Field{Key: g.Panel.FieldName(i, m), Value: value})
	}
	return fields
}

func (g SampleGenerator) covidTest(rng Rand) []Field {
	positive := rng.Float64() < g.CovidPositivity
	return []Field{{Key: ColCovidPCR, Value: covidLabel(positive)}}
}

func covidLabel(positive bool) string {
	if positive {
		return CovidPositive
	}
	return CovidNegative
}

const secondsPerDay = 24 * 60 * 60

func clockTime(sec int) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}
