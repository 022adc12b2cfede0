package schedule

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// Weekdays are ordered the way the timetable lays out its columns, index 0 is
// Monday.
var Weekdays = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Calendar maps (week, weekday) pairs onto dates of a term. Week 1 starts on
// TermStart, which is expected to be a Monday.
type Calendar struct {
	TermStart time.Time
}

// NewCalendar pins the term start to midnight in loc.
func NewCalendar(termStart time.Time, loc *time.Location) Calendar {
	y, m, d := termStart.Date()
	return Calendar{TermStart: time.Date(y, m, d, 0, 0, 0, 0, loc)}
}

// ParseCalendar builds a Calendar from a YYYY-MM-DD date.
func ParseCalendar(termStart string, loc *time.Location) (Calendar, error) {
	t, err := time.ParseInLocation(DateLayout, termStart, loc)
	if err != nil {
		return Calendar{}, fmt.Errorf("parse term start: %w", err)
	}
	return NewCalendar(t, loc), nil
}

// DateFor returns TermStart + 7*(week-1) + weekday days.
func (c Calendar) DateFor(week, weekday int) time.Time {
	return c.TermStart.AddDate(0, 0, 7*(week-1)+weekday)
}

// CurrentWeek returns the 1-based teaching week containing now, dates before
// the term start count as week 1.
func (c Calendar) CurrentWeek(now time.Time) int {
	elapsed := now.In(c.TermStart.Location()).Sub(c.TermStart)
	if elapsed < 0 {
		return 1
	}
	return int(elapsed/day)/7 + 1
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// WeekKey is the zero padded key a week is stored under, ex. 3 -> "03".
func WeekKey(week int) string {
	return fmt.Sprintf("%02d", week)
}
