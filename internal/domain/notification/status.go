// internal/domain/notification/status.go
package notification

import "time"

// Outcome is one record's dispatch result inside a run.
type Outcome struct {
	RecordID       string        `json:"recordId"`
	Name           string        `json:"birthday"` // rank + name
	Age            int           `json:"age,omitempty"`
	Status         OutcomeStatus `json:"status"`
	ReceiptID      string        `json:"sid,omitempty"`
	Provider       string        `json:"provider,omitempty"`
	ProviderStatus string        `json:"providerStatus,omitempty"`
	ErrorCode      string        `json:"code,omitempty"`
	Error          string        `json:"error,omitempty"`
	Latency        time.Duration `json:"latency"`
	At             time.Time     `json:"timestamp"`
}

// DataErrorInfo is a skipped record as reported in the run result.
type DataErrorInfo struct {
	RecordID string `json:"recordId"`
	Field    string `json:"field"`
	Value    string `json:"value,omitempty"`
	Reason   string `json:"reason"`
}
