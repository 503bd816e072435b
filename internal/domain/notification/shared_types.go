// internal/domain/notification/shared_types.go
package notification

// RunStatus summarizes how an invocation ended.
type RunStatus string

const (
	RunStatusCompleted       RunStatus = "completed"
	RunStatusNoNotifications RunStatus = "no_notifications"
	RunStatusWaiting         RunStatus = "waiting"  // reminders due today, send time not reached
	RunStatusDisabled        RunStatus = "disabled" // NOTIFICATIONS_ENABLED=false
	RunStatusAborted         RunStatus = "aborted"  // cancelled mid-batch
	RunStatusError           RunStatus = "error"
)

// OutcomeStatus is the per-record result of a dispatch attempt.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
	OutcomeTested  OutcomeStatus = "tested" // composed but not sent (test mode)
)

// HealthStatus is shared by the health check and the daily report.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "HEALTHY"
	HealthDegraded  HealthStatus = "DEGRADED"
	HealthUnhealthy HealthStatus = "UNHEALTHY"
	HealthUnknown   HealthStatus = "UNKNOWN"
)
