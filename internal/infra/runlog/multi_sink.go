package runlog

import (
	"context"
	"errors"

	"birthday_notification_bot/internal/domain/notification"
)

// Multi fans writes out to every sink. Reads come from the first sink that answers.
type Multi []notification.Sink

func (m Multi) WriteRun(ctx context.Context, run *notification.RunResult) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) WriteReport(ctx context.Context, rep *notification.Report, rendered string) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteReport(ctx, rep, rendered); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) LastRun(ctx context.Context) (*notification.RunResult, error) {
	var errs []error
	for _, s := range m {
		run, err := s.LastRun(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if run != nil {
			return run, nil
		}
	}
	return nil, errors.Join(errs...)
}

func (m Multi) ErrorsToday(ctx context.Context) (int, error) {
	var errs []error
	for _, s := range m {
		n, err := s.ErrorsToday(ctx)
		if err == nil {
			return n, nil
		}
		errs = append(errs, err)
	}
	return 0, errors.Join(errs...)
}
