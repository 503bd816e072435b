// internal/domain/notification/report.go
package notification

import "time"

// ReportEntry is one birthday as it appears in the daily report and the queue preview.
type ReportEntry struct {
	RecordID              string `json:"recordId"`
	Name                  string `json:"name"`
	Graduation            string `json:"graduation"`
	Relationship          string `json:"relationship,omitempty"`
	Unit                  string `json:"unit,omitempty"`
	Date                  string `json:"date"` // next occurrence, YYYY-MM-DD
	DaysUntil             int    `json:"daysUntil"`
	DaysUntilNotification int    `json:"daysUntilNotification"`
	NextAge               int    `json:"nextAge,omitempty"`
}

// Count is a label with its number of records, used for the unit / graduation breakdowns.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ReportHealth is the system section of the daily report.
type ReportHealth struct {
	Store         HealthStatus `json:"store"`
	Transport     HealthStatus `json:"transport"`
	ErrorsToday   int          `json:"totalErrors"`
	LastExecution string       `json:"lastExecution"`
	NextExecution string       `json:"nextExecution"`
}

// Report is the daily overview of the roster.
type Report struct {
	Date           string    `json:"date"`
	GeneratedAt    time.Time `json:"timestamp"`
	Timezone       string    `json:"timezone"`
	TotalRecords   int       `json:"totalBirthdays"`
	InvalidRecords int       `json:"invalidRecords"`

	Today              []ReportEntry `json:"today"`
	NotificationsToday int           `json:"notificationsToday"` // day-level eligible today
	QueueNow           int           `json:"queueNow"`           // eligible now, time gate applied

	Next7Days  []ReportEntry         `json:"next7Days"`
	Next15Days []ReportEntry         `json:"next15Days"`
	Next30Days []ReportEntry         `json:"next30Days"`
	ThisWeek   map[int][]ReportEntry `json:"thisWeekByDay"`

	ThisMonthCount  int     `json:"thisMonthCount"`
	ThisMonthAvgAge float64 `json:"thisMonthAvgAge"`

	ByUnit       []Count `json:"byUnit"`
	ByGraduation []Count `json:"byGraduation"`

	Health ReportHealth `json:"health"`
}

// ThisWeekCount counts birthdays 0..7 days away.
func (r *Report) ThisWeekCount() int {
	n := 0
	for _, entries := range r.ThisWeek {
		n += len(entries)
	}
	return n
}
