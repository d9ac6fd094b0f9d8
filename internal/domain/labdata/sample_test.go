package labdata

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func analyteColumns() map[string]bool {
	cols := map[string]bool{}
	for i, m := range SimplePanel() {
		cols[DefaultPanelOptions().FieldName(i, m)] = true
	}
	return cols
}

func TestSimplePanel_Battery(t *testing.T) {
	want := []string{"Sodium", "Potassium", "Chloride", "Bicarbonate", "Urea", "Magnesium", "Total calcium", "Hemoglobin"}
	panel := SimplePanel()
	if len(panel) != len(want) {
		t.Fatalf("expected %d analytes, got %d", len(want), len(panel))
	}
	for i, m := range panel {
		if m.LongName != want[i] {
			t.Errorf("analyte %d = %q, want %q", i, m.LongName, want[i])
		}
	}
	for _, excluded := range []string{"creatinine", "hematocrit"} {
		if _, ok := LookupMeasure(excluded); !ok {
			t.Errorf("expected %s in the reference table", excluded)
		}
		for _, m := range panel {
			if m.Key == excluded {
				t.Errorf("%s must not be part of the simple panel", excluded)
			}
		}
	}
}

func TestPanelOptions_FieldName(t *testing.T) {
	sodium, _ := LookupMeasure("sodium")
	magnesium, _ := LookupMeasure("magnesium")
	tests := []struct {
		name string
		opts PanelOptions
		m    Measure
		want string
	}{
		{"long", PanelOptions{UseLongNames: true}, sodium, "Sodium"},
		{"long and short", PanelOptions{UseLongNames: true, UseShortNames: true}, sodium, "Sodium (Na)"},
		{"short only", PanelOptions{UseShortNames: true}, sodium, "Na"},
		{"short missing", PanelOptions{UseShortNames: true}, magnesium, "5"},
		{"index", PanelOptions{}, sodium, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := 0
			if tt.m.Key == "magnesium" {
				idx = 5
			}
			if got := tt.opts.FieldName(idx, tt.m); got != tt.want {
				t.Errorf("FieldName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSampleGenerator_PayloadMatchesType(t *testing.T) {
	gen := DefaultSampleGenerator()
	rng := NewRand(42)
	analytes := analyteColumns()
	seen := map[SampleType]int{}

	for i := 0; i < 500; i++ {
		s := gen.Generate(rng)
		seen[s.Type]++
		row := s.Row()
		switch s.Type {
		case BloodPanel:
			if row.Has(ColCovidPCR) {
				t.Fatal("blood panel must not carry Covid-PCR")
			}
			if len(s.Payload) != len(analytes) {
				t.Fatalf("expected %d analytes, got %d", len(analytes), len(s.Payload))
			}
			for _, f := range s.Payload {
				if !analytes[f.Key] {
					t.Fatalf("unexpected analyte column %q", f.Key)
				}
			}
		case CovidSwab:
			if len(s.Payload) != 1 || s.Payload[0].Key != ColCovidPCR {
				t.Fatalf("expected only Covid-PCR, got %+v", s.Payload)
			}
			for col := range analytes {
				if row.Has(col) {
					t.Fatalf("swab must not carry %s", col)
				}
			}
		}
	}
	if seen[BloodPanel] == 0 || seen[CovidSwab] == 0 {
		t.Fatalf("expected both sample types to be drawn, got %v", seen)
	}
}

func TestSampleGenerator_CovidLabels(t *testing.T) {
	gen := SampleGenerator{Types: []SampleType{CovidSwab}, CovidPositivity: DefaultCovidPositivity}
	rng := NewRand(3)
	positives := 0
	const n = 2000
	for i := 0; i < n; i++ {
		v, _ := gen.Generate(rng).Row().Get(ColCovidPCR)
		switch v {
		case CovidPositive:
			positives++
		case CovidNegative:
		default:
			t.Fatalf("unexpected Covid-PCR value %q", v)
		}
	}
	// 20% prior, generous bounds
	if positives < n/10 || positives > n*3/10 {
		t.Errorf("expected roughly 20%% positives, got %d of %d", positives, n)
	}
}

func TestSampleGenerator_ValuesNearReferenceRange(t *testing.T) {
	gen := SampleGenerator{Types: []SampleType{BloodPanel}, Panel: DefaultPanelOptions()}
	rng := NewRand(11)
	panel := SimplePanel()

	for i := 0; i < 200; i++ {
		s := gen.Generate(rng)
		for j, f := range s.Payload {
			m := panel[j]
			parts := strings.Fields(f.Value)
			if len(parts) != 2 || parts[1] != m.Unit {
				t.Fatalf("expected '<value> %s', got %q", m.Unit, f.Value)
			}
			if dot := strings.IndexByte(parts[0], '.'); dot < 0 || len(parts[0])-dot-1 != 2 {
				t.Fatalf("expected two decimals, got %q", parts[0])
			}
			v, err := strconv.ParseFloat(parts[0], 64)
			if err != nil {
				t.Fatalf("parse %q: %v", parts[0], err)
			}
			lo := m.Lower - 3*m.Sigma()
			hi := m.Upper + 3*m.Sigma()
			if v < lo || v > hi {
				t.Fatalf("%s = %v outside [%v, %v]", m.LongName, v, lo, hi)
			}
		}
	}
}

func TestSampleGenerator_NoUnits(t *testing.T) {
	gen := SampleGenerator{Types: []SampleType{BloodPanel}, Panel: PanelOptions{UseLongNames: true}}
	s := gen.Generate(NewRand(5))
	for _, f := range s.Payload {
		if strings.Contains(f.Value, " ") {
			t.Fatalf("expected bare number, got %q", f.Value)
		}
	}
}

func TestSampleGenerator_TimesOrdered(t *testing.T) {
	gen := DefaultSampleGenerator()
	rng := NewRand(8)
	for i := 0; i < 500; i++ {
		s := gen.Generate(rng)
		if len(s.Taken) != 8 || len(s.Received) != 8 {
			t.Fatalf("expected HH:MM:SS, got %q and %q", s.Taken, s.Received)
		}
		if s.Taken > s.Received {
			t.Fatalf("collection %s after receipt %s", s.Taken, s.Received)
		}
	}
}

func TestSampleType_RoundTrip(t *testing.T) {
	for _, st := range AllSampleTypes {
		got, err := ParseSampleType(st.String())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != st {
			t.Errorf("ParseSampleType(%q) = %v", st.String(), got)
		}
	}
	if _, err := ParseSampleType("urine"); err == nil {
		t.Fatal("expected error for unknown sample type")
	}
}

func TestParseSampleTypes(t *testing.T) {
	types, err := ParseSampleTypes("bloed, uitstrijkje,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(types) != 2 || types[0] != BloodPanel || types[1] != CovidSwab {
		t.Fatalf("unexpected types %v", types)
	}
	if _, err := ParseSampleTypes(" , "); !errors.Is(err, ErrNoSampleTypes) {
		t.Fatalf("expected ErrNoSampleTypes, got %v", err)
	}
	if _, err := ParseSampleTypes("bloed,urine"); err == nil {
		t.Fatal("expected error for unknown sample type")
	}
}

func TestClockTime(t *testing.T) {
	if got := clockTime(0); got != "00:00:00" {
		t.Errorf("clockTime(0) = %q", got)
	}
	if got := clockTime(secondsPerDay - 1); got != "23:59:59" {
		t.Errorf("clockTime(max) = %q", got)
	}
	if got := clockTime(3723); got != "01:02:03" {
		t.Errorf("clockTime(3723) = %q", got)
	}
}
