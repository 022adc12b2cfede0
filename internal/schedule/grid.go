package schedule

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// Grid is a row-major table of cell texts, rows may have different lengths.
type Grid [][]string

// Cell returns the text at (row, col), out of range cells are empty.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	if col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

// Shape returns the number of rows and the length of the longest row.
func (g Grid) Shape() (rows, cols int) {
	for _, row := range g {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return len(g), cols
}

var errNoWorkbook = errors.New("no workbook stream")

// ReadXLS loads the first sheet of a legacy (BIFF) .xls workbook.
func ReadXLS(r io.ReadSeeker) (grid Grid, err error) {
	// the decoder panics on some truncated or corrupt files instead of
	// returning an error.
	defer func() {
		if recovered := recover(); recovered != nil {
			grid = nil
			err = fmt.Errorf("read xls: %v", recovered)
		}
	}()

	book, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("read xls: %w", err)
	}
	if book == nil {
		return nil, fmt.Errorf("read xls: %w", errNoWorkbook)
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("read xls: workbook has no sheets")
	}

	// ReadAllCells concatenates every sheet, capping it at the first
	// sheet's row count keeps only the first one.
	rows := book.ReadAllCells(int(sheet.MaxRow) + 1)
	return Grid(rows), nil
}

// ReadXLSBytes is ReadXLS for an in-memory workbook.
func ReadXLSBytes(data []byte) (Grid, error) {
	return ReadXLS(bytes.NewReader(data))
}
