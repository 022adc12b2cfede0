package chrono

import "time"

// China Standard Time, the portal and its term calendar run on it.
var CST = time.FixedZone("CST", 8*60*60)

type TimeAPI interface {
	Now() time.Time
	Location() *time.Location
}

type StandardTime struct {
	location *time.Location
}

func NewStandardTime(location *time.Location) StandardTime {
	if location == nil {
		location = CST
	}
	return StandardTime{location: location}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// FixedTime always reports the same instant, for tests and for the
// `--date` overrides of the cli.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At
}

func (f FixedTime) Location() *time.Location {
	return f.At.Location()
}
