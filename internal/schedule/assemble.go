package schedule

import (
	"fmt"
	"strings"
)

// Timetable layout of the exported weekly sheet: rows [firstSectionRow,
// lastSectionRow) are the class sections with their label in column 0,
// columns 1 through 7 are Monday through Sunday.
const (
	firstSectionRow = 3
	lastSectionRow  = 9
	firstDayCol     = 1
	dayCols         = 7
)

// Record is one course occurrence on a specific date.
type Record struct {
	Week      int    `json:"-"`
	Weekday   string `json:"weekday"`
	Date      string `json:"date"`
	Section   string `json:"section"`
	Name      string `json:"name"`
	Classroom string `json:"classroom"`
}

type MalformedGridError struct {
	Rows int
	Cols int
}

func (e MalformedGridError) Error() string {
	return fmt.Sprintf(
		"malformed timetable: got %dx%d cells, need at least %dx%d",
		e.Rows, e.Cols, lastSectionRow, firstDayCol+dayCols,
	)
}

// Assembler turns the grid of one week into records.
type Assembler struct {
	Calendar Calendar
	Parser   CellParser
}

func sectionLabel(raw string) string {
	return strings.Join(cellLines(raw), " ")
}

// Assemble emits records in row-major order, sections first then weekdays.
// Empty cells produce nothing.
func (a Assembler) Assemble(grid Grid, week int) ([]Record, error) {
	if week < 1 {
		return nil, fmt.Errorf("invalid week number %d", week)
	}
	rows, cols := grid.Shape()
	if rows < lastSectionRow || cols < firstDayCol+dayCols {
		return nil, MalformedGridError{Rows: rows, Cols: cols}
	}

	records := []Record{}
	for row := firstSectionRow; row < lastSectionRow; row++ {
		section := sectionLabel(grid.Cell(row, 0))
		for weekday := 0; weekday < dayCols; weekday++ {
			text := grid.Cell(row, firstDayCol+weekday)
			if strings.TrimSpace(text) == "" {
				continue
			}
			course, ok := a.Parser.Parse(text)
			if !ok {
				continue
			}
			records = append(records, Record{
				Week:      week,
				Weekday:   Weekdays[weekday],
				Date:      FormatDate(a.Calendar.DateFor(week, weekday)),
				Section:   section,
				Name:      course.Name,
				Classroom: course.Classroom,
			})
		}
	}
	return records, nil
}
