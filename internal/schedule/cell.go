package schedule

import (
	"fmt"
	"regexp"
	"strings"
)

// UnknownClassroom is used whenever a cell does not name a room.
const UnknownClassroom = "未知教室"

// Course is what a single timetable cell describes.
type Course struct {
	Name      string
	Classroom string
}

// CellParser extracts a course out of the raw text of a timetable cell, ok is
// false for cells that hold no course.
type CellParser interface {
	Parse(text string) (course Course, ok bool)
}

func cellLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

var roomPattern = regexp.MustCompile(
	`教室|实验|楼|室|机房|(?i:\b(?:room|lab|building|classroom)s?\b|laboratory)|\b[A-Z]\d+\b`,
)

// KeywordParser takes the first line as the course name and the first later
// line that looks like a location as the classroom. Cells list name, teacher,
// weeks and room in that order, but rows are dropped or reordered often enough
// that a fixed position is not reliable.
type KeywordParser struct{}

func (KeywordParser) Parse(text string) (Course, bool) {
	lines := cellLines(text)
	if len(lines) == 0 {
		return Course{}, false
	}
	course := Course{Name: lines[0], Classroom: UnknownClassroom}
	for _, line := range lines[1:] {
		if roomPattern.MatchString(line) {
			course.Classroom = line
			break
		}
	}
	return course, true
}

// FixedLineParser takes the classroom from a fixed line of the cell, the way
// the portal laid cells out when every field was present. Line is 0-based.
type FixedLineParser struct {
	Line int
}

func (p FixedLineParser) Parse(text string) (Course, bool) {
	lines := cellLines(text)
	if len(lines) == 0 {
		return Course{}, false
	}
	course := Course{Name: lines[0], Classroom: UnknownClassroom}
	if p.Line > 0 && p.Line < len(lines) {
		course.Classroom = lines[p.Line]
	}
	return course, true
}

const (
	StrategyKeyword   = "keyword"
	StrategyFixedLine = "fixed_line"
)

// NewCellParser resolves a configured strategy name, an empty name selects
// the keyword parser.
func NewCellParser(strategy string) (CellParser, error) {
	switch strategy {
	case "", StrategyKeyword:
		return KeywordParser{}, nil
	case StrategyFixedLine:
		return FixedLineParser{Line: 3}, nil
	default:
		return nil, fmt.Errorf("unknown classroom strategy %q", strategy)
	}
}
