package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/messaging"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

const (
	CheckStore      = "store"
	CheckTransport  = "transport"
	CheckConfig     = "config"
	CheckExecutions = "executions"

	pingTimeout = 10 * time.Second
)

type HealthCheck struct {
	Name    string                    `json:"name"`
	Status  notification.HealthStatus `json:"status"`
	Message string                    `json:"message,omitempty"`
	Latency time.Duration             `json:"latency"`
}

type HealthReport struct {
	Status    notification.HealthStatus `json:"status"`
	Timestamp time.Time                 `json:"timestamp"`
	Checks    []HealthCheck             `json:"checks"`
}

// Check returns the named check, if it ran.
func (r *HealthReport) Check(name string) (HealthCheck, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return HealthCheck{}, false
}

type HealthService struct {
	repo         birthday.Repository
	transport    messaging.Transport
	sink         notification.Sink // may be nil
	configIssues []string
	clock        clock.Clock
	logger       *logrus.Entry
}

// NewHealthService takes the non-fatal configuration warnings gathered at startup.
func NewHealthService(
	repo birthday.Repository,
	transport messaging.Transport,
	sink notification.Sink,
	configIssues []string,
	clk clock.Clock,
	logger *logrus.Entry,
) *HealthService {
	return &HealthService{
		repo:         repo,
		transport:    transport,
		sink:         sink,
		configIssues: configIssues,
		clock:        clk,
		logger:       logger,
	}
}

func (s *HealthService) Check(ctx context.Context) *HealthReport {
	rep := &HealthReport{Timestamp: s.clock.Now()}

	rep.Checks = append(rep.Checks,
		s.ping(ctx, CheckStore, s.repo.Ping),
		s.ping(ctx, CheckTransport, s.transport.Ping),
		s.checkConfig(),
		s.checkExecutions(ctx),
	)
	rep.Status = overall(rep.Checks)

	s.logger.WithField("status", rep.Status).Debug("Health check finished")
	return rep
}

func (s *HealthService) ping(ctx context.Context, name string, fn func(context.Context) error) HealthCheck {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := fn(pctx)
	c := HealthCheck{Name: name, Status: notification.HealthHealthy, Latency: time.Since(start)}
	if err != nil {
		c.Status = notification.HealthUnhealthy
		c.Message = err.Error()
		s.logger.WithError(err).WithField("check", name).Warn("Health check failed")
	}
	return c
}

func (s *HealthService) checkConfig() HealthCheck {
	c := HealthCheck{Name: CheckConfig, Status: notification.HealthHealthy}
	if len(s.configIssues) > 0 {
		c.Status = notification.HealthDegraded
		c.Message = strings.Join(s.configIssues, "; ")
	}
	return c
}

// checkExecutions grades today's failures: none is healthy, fewer than three is degraded.
func (s *HealthService) checkExecutions(ctx context.Context) HealthCheck {
	c := HealthCheck{Name: CheckExecutions, Status: notification.HealthUnknown}
	if s.sink == nil {
		c.Message = "no execution log configured"
		return c
	}
	n, err := s.sink.ErrorsToday(ctx)
	if err != nil {
		c.Message = err.Error()
		return c
	}
	switch {
	case n == 0:
		c.Status = notification.HealthHealthy
	case n < 3:
		c.Status = notification.HealthDegraded
	default:
		c.Status = notification.HealthUnhealthy
	}
	c.Message = fmt.Sprintf("%d errors today", n)
	return c
}

func overall(checks []HealthCheck) notification.HealthStatus {
	status := notification.HealthHealthy
	for _, c := range checks {
		switch c.Status {
		case notification.HealthUnhealthy:
			return notification.HealthUnhealthy
		case notification.HealthDegraded, notification.HealthUnknown:
			status = notification.HealthDegraded
		}
	}
	return status
}
