// internal/domain/notification/cycle.go
package notification

import "time"

// RunResult is the outcome of one scheduler invocation.
// It is created fresh per run and only ever handed to sinks.
type RunResult struct {
	ExecutionID  string          `json:"executionId"`
	Status       RunStatus       `json:"status"`
	Message      string          `json:"message,omitempty"`
	StartedAt    time.Time       `json:"timestamp"`
	CurrentTime  string          `json:"currentTime,omitempty"`
	SendTime     string          `json:"scheduledTime,omitempty"`
	Timing       string          `json:"timing,omitempty"`
	TestMode     bool            `json:"testMode"`
	Forced       bool            `json:"forced"`
	TotalRecords int             `json:"totalBirthdays"`
	Eligible     int             `json:"queueSize"`
	Skipped      int             `json:"alreadyNotified"`
	Sent         int             `json:"successCount"`
	Failed       int             `json:"errorCount"`
	Tested       int             `json:"tested"`
	Aborted      bool            `json:"aborted"`
	DataErrors   []DataErrorInfo `json:"dataErrors,omitempty"`
	Outcomes     []Outcome       `json:"results"`
	Duration     time.Duration   `json:"duration"`
	Error        string          `json:"error,omitempty"`
}

// SuccessRate is Sent/Eligible, or 0 when nothing was eligible.
func (r *RunResult) SuccessRate() float64 {
	if r.Eligible == 0 {
		return 0
	}
	return float64(r.Sent) / float64(r.Eligible)
}

// Record appends an outcome and bumps the matching counter.
func (r *RunResult) Record(o Outcome) {
	switch o.Status {
	case OutcomeSuccess:
		r.Sent++
	case OutcomeError:
		r.Failed++
	case OutcomeTested:
		r.Tested++
	}
	r.Outcomes = append(r.Outcomes, o)
}
