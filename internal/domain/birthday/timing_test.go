package birthday

import (
	"errors"
	"testing"
)

func TestLeadDays(t *testing.T) {
	t.Parallel()

	want := map[TimingPolicy]int{
		TimingSameDay:   0,
		TimingOneDay:    1,
		TimingTwoDays:   2,
		TimingThreeDays: 3,
		TimingOneWeek:   7,
	}
	for p, days := range want {
		if got := p.LeadDays(); got != days {
			t.Fatalf("%s.LeadDays() = %d, want %d", p, got, days)
		}
	}
	if len(TimingPolicies()) != len(want) {
		t.Fatalf("TimingPolicies() has %d entries, want %d", len(TimingPolicies()), len(want))
	}
}

func TestParseTimingPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    TimingPolicy
		wantErr bool
	}{
		{in: "1-day", want: TimingOneDay},
		{in: " 1-WEEK ", want: TimingOneWeek},
		{in: "same-day", want: TimingSameDay},
		{in: "2-weeks", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTimingPolicy(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidTiming) {
				t.Fatalf("ParseTimingPolicy(%q) error = %v, want ErrInvalidTiming", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseTimingPolicy(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "09:00", want: 540},
		{in: "00:00", want: 0},
		{in: "23:59", want: 23*60 + 59},
		{in: "9:00", wantErr: true},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "12-30", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseTimeOfDay(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseTimeOfDay(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
		if got.String() != tt.in {
			t.Fatalf("TimeOfDay(%d).String() = %q, want %q", got, got.String(), tt.in)
		}
	}
}

func TestResolveSchedule(t *testing.T) {
	t.Parallel()

	defaultAt, _ := ParseTimeOfDay("09:00")

	tests := []struct {
		name      string
		rec       Record
		wantField string
		want      Schedule
	}{
		{
			name: "defaults",
			rec:  Record{ID: "a", Name: "Silva", Date: "1980-04-02"},
			want: Schedule{Birth: BirthDate{Year: 1980, Month: 4, Day: 2}, Policy: TimingOneDay, SendAt: defaultAt},
		},
		{
			name: "overrides",
			rec:  Record{ID: "b", Name: "Souza", Date: "04-02", NotificationTiming: "1-week", SendTime: "07:30"},
			want: Schedule{Birth: BirthDate{Month: 4, Day: 2}, Policy: TimingOneWeek, SendAt: 450},
		},
		{name: "missing name", rec: Record{ID: "c", Date: "04-02"}, wantField: "name"},
		{name: "missing date", rec: Record{ID: "d", Name: "Lima"}, wantField: "date"},
		{name: "bad date", rec: Record{ID: "e", Name: "Lima", Date: "31/12"}, wantField: "date"},
		{name: "bad timing", rec: Record{ID: "f", Name: "Lima", Date: "04-02", NotificationTiming: "soon"}, wantField: "notificationTiming"},
		{name: "bad send time", rec: Record{ID: "g", Name: "Lima", Date: "04-02", SendTime: "7h"}, wantField: "sendTime"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ResolveSchedule(&tt.rec, TimingOneDay, defaultAt)
			if tt.wantField != "" {
				var de *DataError
				if !errors.As(err, &de) {
					t.Fatalf("error = %v, want *DataError", err)
				}
				if de.Field != tt.wantField || de.RecordID != tt.rec.ID {
					t.Fatalf("DataError = %+v, want field %q for %q", de, tt.wantField, tt.rec.ID)
				}
				if !errors.Is(err, ErrInvalidData) {
					t.Fatal("DataError should unwrap to ErrInvalidData")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveSchedule: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ResolveSchedule = %+v, want %+v", got, tt.want)
			}
		})
	}
}
