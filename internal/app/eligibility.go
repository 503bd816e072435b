package app

import (
	"errors"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
)

// Candidate is a record whose reminder is due today.
type Candidate struct {
	Record         *birthday.Record
	Schedule       birthday.Schedule
	Occurrence     birthday.Date // the birthday this reminder is for
	DaysUntilEvent int
}

// EligibilityFilter decides which records get a reminder on a given day and time.
type EligibilityFilter struct {
	DefaultPolicy birthday.TimingPolicy
	DefaultSendAt birthday.TimeOfDay
	// ByHour compares the send hour only, so a tick at HH:00 sees a send time of HH:45.
	ByHour bool
	// Early admits a record up to this long before its own send time.
	Early time.Duration
}

// Filter returns the records due today whose send time has been reached.
// A reached send time stays reached until midnight.
// force skips the time-of-day gate but never the day check.
// Records that cannot be scheduled are returned as data errors and left out.
func (f EligibilityFilter) Filter(records []*birthday.Record, today birthday.Date, now birthday.TimeOfDay, force bool) ([]Candidate, []*birthday.DataError) {
	var eligible []Candidate
	var dataErrs []*birthday.DataError
	opensAt := now + birthday.TimeOfDay(f.Early/time.Minute)

	for _, r := range records {
		sched, err := birthday.ResolveSchedule(r, f.DefaultPolicy, f.DefaultSendAt)
		if err != nil {
			var de *birthday.DataError
			if !errors.As(err, &de) {
				de = &birthday.DataError{RecordID: r.ID, Field: "record", Reason: err.Error()}
			}
			dataErrs = append(dataErrs, de)
			continue
		}
		if !birthday.IsEligibleToday(sched.Birth, sched.Policy, today) {
			continue
		}
		sendAt := sched.SendAt
		if f.ByHour {
			sendAt -= sendAt % 60
		}
		if !force && opensAt < sendAt {
			continue
		}
		eligible = append(eligible, Candidate{
			Record:         r,
			Schedule:       sched,
			Occurrence:     birthday.NextOccurrence(sched.Birth, today),
			DaysUntilEvent: birthday.DaysUntilEvent(sched.Birth, today),
		})
	}
	return eligible, dataErrs
}
