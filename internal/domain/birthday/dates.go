package birthday

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date with no clock and no zone attached.
// All day arithmetic happens on Dates so that DST shifts and the host's zone never matter.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf takes the calendar date of t as seen in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today is the calendar date of now in loc. A nil loc means UTC, never the host zone.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// NewDate normalizes out-of-range values the same way time.Date does (Feb 29 2025 -> Mar 1 2025).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

func (d Date) Before(o Date) bool { return d.midnight().Before(o.midnight()) }
func (d Date) After(o Date) bool  { return d.midnight().After(o.midnight()) }
func (d Date) Equal(o Date) bool  { return d == o }

func (d Date) String() string { return d.midnight().Format("2006-01-02") }

// Format renders the date with a time layout, e.g. "02/01/2006".
func (d Date) Format(layout string) string { return d.midnight().Format(layout) }

// DaysBetween is the whole number of days from -> to (negative when to is earlier).
func DaysBetween(from, to Date) int {
	return int(to.midnight().Sub(from.midnight()) / (24 * time.Hour))
}

// BirthDate is a stored birthday. Year is 0 when only month and day are known.
type BirthDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (b BirthDate) YearKnown() bool { return b.Year > 0 }

// ParseBirthDate accepts "YYYY-MM-DD" or "MM-DD".
func ParseBirthDate(s string) (BirthDate, error) {
	s = strings.TrimSpace(s)
	switch len(s) {
	case len("2006-01-02"):
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return BirthDate{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		if t.Year() < 1 {
			return BirthDate{}, fmt.Errorf("invalid date %q: year must be positive", s)
		}
		return BirthDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
	case len("01-02"):
		// 2000 is a leap year, so 02-29 parses.
		t, err := time.Parse("2006-01-02", "2000-"+s)
		if err != nil {
			return BirthDate{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return BirthDate{Month: t.Month(), Day: t.Day()}, nil
	default:
		return BirthDate{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or MM-DD", s)
	}
}

func (b BirthDate) String() string {
	if !b.YearKnown() {
		return fmt.Sprintf("%02d-%02d", int(b.Month), b.Day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", b.Year, int(b.Month), b.Day)
}

func (b BirthDate) in(year int) Date {
	return NewDate(year, b.Month, b.Day)
}

// NextOccurrence projects the birthday onto today's year, or next year when that is already past.
func NextOccurrence(b BirthDate, today Date) Date {
	occ := b.in(today.Year)
	if occ.Before(today) {
		occ = b.in(today.Year + 1)
	}
	return occ
}

// DaysUntilEvent is never negative: 0 means the birthday is today.
func DaysUntilEvent(b BirthDate, today Date) int {
	return DaysBetween(today, NextOccurrence(b, today))
}

// DaysUntilNotification may be negative when this occurrence's notification day has passed.
// Use NextNotificationDate for the next day a reminder is actually due.
func DaysUntilNotification(b BirthDate, p TimingPolicy, today Date) int {
	return DaysUntilEvent(b, today) - p.LeadDays()
}

// NextNotificationDate is the first notification day on or after today.
func NextNotificationDate(b BirthDate, p TimingPolicy, today Date) Date {
	occ := NextOccurrence(b, today)
	day := occ.AddDays(-p.LeadDays())
	if day.Before(today) {
		day = b.in(occ.Year + 1).AddDays(-p.LeadDays())
	}
	return day
}

func IsEligibleToday(b BirthDate, p TimingPolicy, today Date) bool {
	return DaysUntilNotification(b, p, today) == 0
}

// Age in whole years on today; 0 when the birth year is unknown or in the future.
func Age(b BirthDate, today Date) int {
	if !b.YearKnown() {
		return 0
	}
	age := today.Year - b.Year
	if today.Month < b.Month || (today.Month == b.Month && today.Day < b.Day) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// AgeAt is the age turned on the given occurrence of the birthday.
func AgeAt(b BirthDate, occurrence Date) int {
	if !b.YearKnown() || occurrence.Year < b.Year {
		return 0
	}
	return occurrence.Year - b.Year
}
