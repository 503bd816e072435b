package app

import (
	"context"
	"fmt"

	"birthday_notification_bot/internal/domain/notification"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrAdminNotConfigured = fmt.Errorf("no admin Telegram ID is configured")

// AdminService exposes operator actions to the chat bot, restricted to one admin account.
type AdminService struct {
	notifications   NotificationService
	reports         *ReportService
	health          *HealthService
	adminTelegramID int64
}

func NewAdminService(ns NotificationService, rs *ReportService, hs *HealthService, adminID int64) *AdminService {
	return &AdminService{
		notifications:   ns,
		reports:         rs,
		health:          hs,
		adminTelegramID: adminID,
	}
}

func (s *AdminService) authorize(performingAdminID int64) error {
	if s.adminTelegramID == 0 {
		return ErrAdminNotConfigured
	}
	if performingAdminID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	return nil
}

// IsAdmin reports whether the Telegram user may run operator commands.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return s.authorize(telegramID) == nil
}

// Queue lists today's reminders and whether each already went out.
func (s *AdminService) Queue(ctx context.Context, performingAdminID int64) (*QueuePreview, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.notifications.PreviewQueue(ctx)
}

// TriggerRun runs the pipeline now. force skips the send-time gate.
func (s *AdminService) TriggerRun(ctx context.Context, performingAdminID int64, force bool) (*notification.RunResult, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.notifications.RunOnDemand(ctx, RunOptions{Force: force})
}

// DailyReport generates and saves today's report without sending it through the transport.
func (s *AdminService) DailyReport(ctx context.Context, performingAdminID int64) (*notification.Report, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.reports.Publish(ctx, false)
}

func (s *AdminService) Health(ctx context.Context, performingAdminID int64) (*HealthReport, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.health.Check(ctx), nil
}
