package birthday

import (
	"errors"
	"fmt"
	"strings"
)

// TimingPolicy says how many days before the birthday the reminder goes out.
type TimingPolicy string

const (
	TimingSameDay   TimingPolicy = "same-day"
	TimingOneDay    TimingPolicy = "1-day"
	TimingTwoDays   TimingPolicy = "2-days"
	TimingThreeDays TimingPolicy = "3-days"
	TimingOneWeek   TimingPolicy = "1-week"
)

var ErrInvalidTiming = errors.New("invalid notification timing")

var leadDays = map[TimingPolicy]int{
	TimingSameDay:   0,
	TimingOneDay:    1,
	TimingTwoDays:   2,
	TimingThreeDays: 3,
	TimingOneWeek:   7,
}

// TimingPolicies lists the accepted values in ascending lead order.
func TimingPolicies() []TimingPolicy {
	return []TimingPolicy{TimingSameDay, TimingOneDay, TimingTwoDays, TimingThreeDays, TimingOneWeek}
}

func ParseTimingPolicy(s string) (TimingPolicy, error) {
	p := TimingPolicy(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := leadDays[p]; !ok {
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrInvalidTiming, s, joinPolicies())
	}
	return p, nil
}

func (p TimingPolicy) Valid() bool {
	_, ok := leadDays[p]
	return ok
}

// LeadDays returns the offset subtracted from the birthday. Unknown policies count as 0.
func (p TimingPolicy) LeadDays() int {
	return leadDays[p]
}

func (p TimingPolicy) String() string { return string(p) }

func joinPolicies() string {
	names := make([]string, 0, len(leadDays))
	for _, p := range TimingPolicies() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
