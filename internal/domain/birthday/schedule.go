package birthday

import "strings"

// Schedule is a record's parsed birthday together with its effective timing and send time.
type Schedule struct {
	Birth  BirthDate
	Policy TimingPolicy
	SendAt TimeOfDay
}

// ResolveSchedule applies the record's overrides on top of the defaults.
// Any unusable field yields a *DataError.
func ResolveSchedule(r *Record, defaultPolicy TimingPolicy, defaultSendAt TimeOfDay) (Schedule, error) {
	if strings.TrimSpace(r.Name) == "" {
		return Schedule{}, &DataError{RecordID: r.ID, Field: "name", Reason: "missing"}
	}
	if strings.TrimSpace(r.Date) == "" {
		return Schedule{}, &DataError{RecordID: r.ID, Field: "date", Reason: "missing"}
	}
	birth, err := ParseBirthDate(r.Date)
	if err != nil {
		return Schedule{}, &DataError{RecordID: r.ID, Field: "date", Value: r.Date, Reason: err.Error()}
	}

	s := Schedule{Birth: birth, Policy: defaultPolicy, SendAt: defaultSendAt}
	if r.NotificationTiming != "" {
		p, err := ParseTimingPolicy(r.NotificationTiming)
		if err != nil {
			return Schedule{}, &DataError{RecordID: r.ID, Field: "notificationTiming", Value: r.NotificationTiming, Reason: err.Error()}
		}
		s.Policy = p
	}
	if r.SendTime != "" {
		at, err := ParseTimeOfDay(r.SendTime)
		if err != nil {
			return Schedule{}, &DataError{RecordID: r.ID, Field: "sendTime", Value: r.SendTime, Reason: err.Error()}
		}
		s.SendAt = at
	}
	return s, nil
}
