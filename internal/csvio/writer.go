package csvio

import (
	"encoding/csv"
	"io"
)

// Writer emits CSV that Excel opens as UTF-8: a BOM, then CRLF records.
type Writer struct {
	w       *csv.Writer
	started bool
	out     io.Writer
}

// NewWriter wraps out.
func NewWriter(out io.Writer) *Writer {
	cw := csv.NewWriter(out)
	cw.UseCRLF = true
	return &Writer{w: cw, out: out}
}

func (w *Writer) bom() error {
	if w.started {
		return nil
	}
	w.started = true
	_, err := w.out.Write(utf8BOM)
	return err
}

// Write writes one record.
func (w *Writer) Write(record []string) error {
	if err := w.bom(); err != nil {
		return err
	}
	return w.w.Write(record)
}

// WriteAll writes header then rows and flushes.
func (w *Writer) WriteAll(header []string, rows [][]string) error {
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.w.Write(row); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush flushes buffered records and reports any write error.
func (w *Writer) Flush() error {
	if err := w.bom(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}
