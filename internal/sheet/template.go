package sheet

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

const templateColWidth = 18

// WriteTemplateXLSX writes t as a workbook with one sheet named after the
// target. Numeric columns are written as numbers.
func WriteTemplateXLSX(w io.Writer, t core.Template) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Target
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range t.Rows {
		cells := make([]any, len(row))
		for i, cell := range row {
			cells[i] = templateValue(t, i, cell)
		}
		axis, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if len(t.Headers) > 0 {
		if err := styleHeader(f, sheet, len(t.Headers)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols int) error {
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	return f.SetColWidth(sheet, "A", last, templateColWidth)
}

// templateValue returns a float64 for numeric columns, nil for blanks and
// the text otherwise.
func templateValue(t core.Template, col int, cell string) any {
	if cell == "" {
		return nil
	}
	if col < len(t.Types) && t.Types[col] == core.FieldNumeric {
		if d, err := decimal.NewFromString(cell); err == nil {
			return d.InexactFloat64()
		}
	}
	return cell
}

// WriteTemplateCSV writes t as a header row followed by the sample rows.
func WriteTemplateCSV(w io.Writer, t core.Template) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// ContentType returns the MIME type for a template format.
func ContentType(f Format) string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return mimeXLSX
}

// WriteTemplate dispatches on format; unknown formats are an error.
func WriteTemplate(w io.Writer, t core.Template, f Format) error {
	switch f {
	case FormatXLSX:
		return WriteTemplateXLSX(w, t)
	case FormatCSV:
		return WriteTemplateCSV(w, t)
	default:
		return fmt.Errorf("unsupported format: template as %q", f)
	}
}
