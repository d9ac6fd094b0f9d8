// Package export renders laboratory datasets as XLSX workbooks and CSV files
// and names the resulting artifacts.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/ehr/labsynth/internal/domain/labdata"
)

// SheetName is the title of the single worksheet.
const SheetName = "Labor"

// Content types of the rendered artifacts.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"
)

// Capitalize upper-cases the first letter and lower-cases the rest.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func columnIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return idx
}

// WriteXLSX writes rows as a workbook: a capitalized header row followed by
// one row per record. Only keys present on a record are written.
func WriteXLSX(w io.Writer, rows []*labdata.Row, columns []string, widths []float64) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("export xlsx: rename sheet: %w", err)
	}

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("export xlsx: header cell: %w", err)
		}
		if err := f.SetCellStr(SheetName, cell, Capitalize(col)); err != nil {
			return fmt.Errorf("export xlsx: header %s: %w", col, err)
		}
		if i < len(widths) {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return fmt.Errorf("export xlsx: column name: %w", err)
			}
			if err := f.SetColWidth(SheetName, name, name, widths[i]); err != nil {
				return fmt.Errorf("export xlsx: width %s: %w", col, err)
			}
		}
	}

	index := columnIndex(columns)
	for r, row := range rows {
		for _, field := range row.Fields() {
			pos, ok := index[field.Key]
			if !ok {
				return fmt.Errorf("export xlsx: row %d: column %q not in vocabulary", r, field.Key)
			}
			cell, err := excelize.CoordinatesToCellName(pos+1, r+2)
			if err != nil {
				return fmt.Errorf("export xlsx: row %d: %w", r, err)
			}
			if err := f.SetCellStr(SheetName, cell, field.Value); err != nil {
				return fmt.Errorf("export xlsx: row %d: %w", r, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export xlsx: write: %w", err)
	}
	return nil
}

// WriteCSV writes rows as CSV with the raw column names as header. Absent
// keys are left blank.
func WriteCSV(w io.Writer, rows []*labdata.Row, columns []string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("export csv: write header: %w", err)
	}

	index := columnIndex(columns)
	record := make([]string, len(columns))
	for r, row := range rows {
		for i := range record {
			record[i] = ""
		}
		for _, field := range row.Fields() {
			pos, ok := index[field.Key]
			if !ok {
				return fmt.Errorf("export csv: row %d: column %q not in vocabulary", r, field.Key)
			}
			record[pos] = field.Value
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export csv: write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Dataset suffixes used in artifact names.
const (
	Small = "small"
	Large = "large"
)

// Artifact formats, used as file extensions.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

var (
	ErrOutputNameRequired = errors.New("output name is required")
	ErrUnknownFormat      = errors.New("unknown export format")
)

// Render writes rows in the given format and returns its content type.
func Render(w io.Writer, format string, rows []*labdata.Row, columns []string) (string, error) {
	switch format {
	case FormatXLSX:
		return ContentTypeXLSX, WriteXLSX(w, rows, columns, labdata.ColumnWidths(len(columns)))
	case FormatCSV:
		return ContentTypeCSV, WriteCSV(w, rows, columns)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// TrimExtension strips a literal ".xlsx" suffix from a base name.
func TrimExtension(name string) string {
	return strings.TrimSuffix(name, ".xlsx")
}

// FileName returns "<date>_<base>_<dataset>.<ext>".
func FileName(day time.Time, base, dataset, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", day.Format(labdata.DateLayout), TrimExtension(base), dataset, ext)
}
