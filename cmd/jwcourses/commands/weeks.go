package commands

import (
	"fmt"
	"jwassist-backend/internal/schedule"
	"jwassist-backend/internal/scrapers/jwxt"
	"time"
)

type weekSelection struct {
	Week    int
	All     bool
	Current bool
}

// selectWeeks resolves the export flags, no flag at all means every week of
// the term.
func selectWeeks(sel weekSelection, termWeeks int, cal schedule.Calendar, now time.Time) ([]int, error) {
	chosen := 0
	if sel.Week != 0 {
		chosen++
	}
	if sel.All {
		chosen++
	}
	if sel.Current {
		chosen++
	}
	if chosen > 1 {
		return nil, fmt.Errorf("--week, --all and --current are mutually exclusive")
	}

	switch {
	case sel.Week != 0:
		if sel.Week < 1 {
			return nil, fmt.Errorf("invalid week %d", sel.Week)
		}
		return []int{sel.Week}, nil
	case sel.Current:
		return []int{cal.CurrentWeek(now)}, nil
	default:
		if termWeeks < 1 {
			return nil, fmt.Errorf("invalid number of weeks %d", termWeeks)
		}
		return jwxt.WeekRange(1, termWeeks), nil
	}
}
