package labdata

// Measure is one analyte of the reference table.
type Measure struct {
	Key       string
	LongName  string
	ShortName string // empty when the analyte has no common abbreviation
	Lower     float64
	Upper     float64
	Unit      string
}

// Mean is the midpoint of the reference range.
func (m Measure) Mean() float64 {
	return (m.Lower + m.Upper) / 2
}

// Sigma places the reference bounds two standard deviations from the mean.
func (m Measure) Sigma() float64 {
	return (m.Mean() - m.Lower) / 2
}

var measures = map[string]Measure{
	"sodium":      {Key: "sodium", LongName: "Sodium", ShortName: "Na", Lower: 310, Upper: 340, Unit: "mg/dL"},
	"potassium":   {Key: "potassium", LongName: "Potassium", ShortName: "K", Lower: 14, Upper: 20, Unit: "mg/dL"},
	"chloride":    {Key: "chloride", LongName: "Chloride", ShortName: "Cl", Lower: 340, Upper: 370, Unit: "mg/dL"},
	"bicarbonate": {Key: "bicarbonate", LongName: "Bicarbonate", ShortName: "HCO3−", Lower: 110, Upper: 140, Unit: "mg/dL"},
	"urea":        {Key: "urea", LongName: "Urea", ShortName: "BUN", Lower: 7, Upper: 21, Unit: "mg/dL"},
	"magnesium":   {Key: "magnesium", LongName: "Magnesium", Lower: 0.6, Upper: 0.95, Unit: "mmol/L"},
	"creatinine":  {Key: "creatinine", LongName: "Creatinine", Lower: 50, Upper: 118, Unit: "μmol/L"},
	"calcium":     {Key: "calcium", LongName: "Total calcium", ShortName: "Ca", Lower: 8.4, Upper: 10.5, Unit: "mg/dL"},
	"hemoglobin":  {Key: "hemoglobin", LongName: "Hemoglobin", ShortName: "Hb", Lower: 120, Upper: 175, Unit: "g/L"},
	"hematocrit":  {Key: "hematocrit", LongName: "Hematocrit", ShortName: "Hct", Lower: 0.31, Upper: 0.62, Unit: "L/L"},
}

// simplePanel is the battery drawn for a basic panel. Creatinine and
// hematocrit are in the table but not part of it.
var simplePanel = []string{
	"sodium", "potassium", "chloride", "bicarbonate",
	"urea", "magnesium", "calcium", "hemoglobin",
}

// LookupMeasure returns the reference entry for key.
func LookupMeasure(key string) (Measure, bool) {
	m, ok := measures[key]
	return m, ok
}

// SimplePanel returns the basic panel battery in order.
func SimplePanel() []Measure {
	out := make([]Measure, len(simplePanel))
	for i, k := range simplePanel {
		out[i] = measures[k]
	}
	return out
}
