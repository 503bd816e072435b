package clock

import "time"

// Clock supplies "now" already converted to the zone the schedule is defined in.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// Zoned reads the system clock and converts it to Loc.
type Zoned struct {
	Loc *time.Location
}

func NewZoned(loc *time.Location) Zoned { return Zoned{Loc: loc} }

func (z Zoned) Now() time.Time { return time.Now().In(z.Location()) }

func (z Zoned) Location() *time.Location {
	if z.Loc == nil {
		return time.UTC
	}
	return z.Loc
}

// Fixed always returns the same instant. Used by tests and by dry runs for a given date.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time           { return f.T }
func (f Fixed) Location() *time.Location { return f.T.Location() }
