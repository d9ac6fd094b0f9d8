package labdata

// identityColumns and sampleColumns precede the analytes in the export.
var (
	identityColumns = []string{ColName, ColPatientID, ColVisitDate, ColBirthDate, ColStreet, ColCity}
	sampleColumns   = []string{ColType, ColTaken, ColReceived}
)

// Columns returns the ordered export vocabulary for the given panel naming.
// With the default options it is the 18-column laboratory sheet.
func Columns(panel PanelOptions) []string {
	cols := make([]string, 0, len(identityColumns)+len(sampleColumns)+len(simplePanel)+1)
	cols = append(cols, identityColumns...)
	cols = append(cols, sampleColumns...)
	for i, m := range SimplePanel() {
		cols = append(cols, panel.FieldName(i, m))
	}
	return append(cols, ColCovidPCR)
}

// DefaultColumns is Columns(DefaultPanelOptions()).
func DefaultColumns() []string {
	return Columns(DefaultPanelOptions())
}

// ColumnWidths returns display widths for n columns: wide name, three narrow
// identity columns, wide street and city, narrow for the rest.
func ColumnWidths(n int) []float64 {
	widths := make([]float64, n)
	for i := range widths {
		switch {
		case i == 0, i == 4, i == 5:
			widths[i] = 18
		default:
			widths[i] = 14
		}
	}
	return widths
}
