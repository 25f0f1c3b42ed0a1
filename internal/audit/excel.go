package audit

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// sheetNameLimit is the Excel limit on sheet name length.
const sheetNameLimit = 31

// ExcelWriter builds an xlsx workbook one row at a time.
type ExcelWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	headerStyle  int
}

// NewExcelWriter starts an empty workbook.
func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{file: excelize.NewFile()}
}

// AddSheet adds a sheet and makes it current. The first call renames the
// default sheet.
func (w *ExcelWriter) AddSheet(name string) error {
	if len(name) > sheetNameLimit {
		name = name[:sheetNameLimit]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *ExcelWriter) WriteHeader(columns []string) error {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	if err := w.WriteRow(row); err != nil {
		return err
	}

	if w.headerStyle == 0 {
		style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		w.headerStyle = style
	}
	startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
	endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
	return w.file.SetCellStyle(w.currentSheet, startCell, endCell, w.headerStyle)
}

func (w *ExcelWriter) WriteRow(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.currentSheet, cell, &row); err != nil {
		return err
	}

	w.currentRow++
	return nil
}

func (w *ExcelWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *ExcelWriter) Close() error {
	return w.file.Close()
}
