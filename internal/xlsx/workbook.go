// Package xlsx builds simple tabular workbooks on top of excelize.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type for .xlsx downloads.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
	// Widths optionally sets column widths, in characters, by column index.
	Widths map[int]float64
}

// Workbook accumulates sheets and writes them out.
type Workbook struct {
	file   *excelize.File
	sheets int
}

// New creates an empty workbook.
func New() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// AddSheet appends a sheet. The first call renames the default "Sheet1".
func (w *Workbook) AddSheet(s Sheet) error {
	name := s.Name
	if name == "" {
		name = fmt.Sprintf("Sheet%d", w.sheets+1)
	}
	if w.sheets == 0 {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return err
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return err
	}
	w.sheets++

	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	sw, err := w.file.NewStreamWriter(name)
	if err != nil {
		return err
	}
	for idx, width := range s.Widths {
		if err := sw.SetColWidth(idx+1, idx+1, width); err != nil {
			return err
		}
	}
	header := make([]any, len(s.Header))
	for i, h := range s.Header {
		header[i] = excelize.Cell{StyleID: style, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for i, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// WriteTo streams the workbook.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	defer func() { _ = w.file.Close() }()
	return w.file.WriteTo(out)
}

// SaveAs writes the workbook to disk.
func (w *Workbook) SaveAs(path string) error {
	defer func() { _ = w.file.Close() }()
	return w.file.SaveAs(path)
}

// Write is a convenience for single-call exports.
func Write(out io.Writer, sheets ...Sheet) error {
	wb := New()
	for _, s := range sheets {
		if err := wb.AddSheet(s); err != nil {
			return err
		}
	}
	_, err := wb.WriteTo(out)
	return err
}
