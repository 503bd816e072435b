package app

import (
	"context"
	"errors"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/messaging"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

const (
	codeNoDestination = "NO_DESTINATION"
	codeCompose       = "COMPOSE"

	markSentTimeout = 10 * time.Second
)

// Pauser waits between two sends. It returns early with ctx's error on cancellation.
type Pauser interface {
	Pause(ctx context.Context, d time.Duration) error
}

type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type DispatcherConfig struct {
	// Delay is the pause between two consecutive sends.
	Delay time.Duration
	// Destination overrides every record's phone when set.
	Destination string
	// Pauser defaults to a real timer.
	Pauser Pauser
}

// Dispatcher sends reminders one at a time, isolating per-record failures.
type Dispatcher struct {
	transport   messaging.Transport
	guard       *Guard
	composer    *Composer
	clock       clock.Clock
	pauser      Pauser
	delay       time.Duration
	destination string
	logger      *logrus.Entry
}

func NewDispatcher(
	transport messaging.Transport,
	guard *Guard,
	composer *Composer,
	clk clock.Clock,
	cfg DispatcherConfig,
	logger *logrus.Entry,
) *Dispatcher {
	p := cfg.Pauser
	if p == nil {
		p = timerPauser{}
	}
	return &Dispatcher{
		transport:   transport,
		guard:       guard,
		composer:    composer,
		clock:       clk,
		pauser:      p,
		delay:       cfg.Delay,
		destination: cfg.Destination,
		logger:      logger,
	}
}

// Dispatch sends each candidate in order, pausing between sends.
// A failed send is recorded and the loop moves on; it is never retried within the run.
// On cancellation the remaining candidates are left untouched and Aborted is set.
func (d *Dispatcher) Dispatch(ctx context.Context, executionID string, cands []Candidate) *notification.RunResult {
	res := &notification.RunResult{ExecutionID: executionID, Eligible: len(cands)}
	started := time.Now()
	defer func() { res.Duration = time.Since(started) }()

	for i, c := range cands {
		if ctx.Err() != nil {
			d.abort(res, len(cands)-i)
			return res
		}

		res.Record(d.sendOne(ctx, executionID, c))

		if i < len(cands)-1 {
			if err := d.pauser.Pause(ctx, d.delay); err != nil {
				d.abort(res, len(cands)-i-1)
				return res
			}
		}
	}
	return res
}

// DryRun composes every message and logs it without touching the transport or the store.
func (d *Dispatcher) DryRun(executionID string, cands []Candidate) *notification.RunResult {
	res := &notification.RunResult{ExecutionID: executionID, Eligible: len(cands), TestMode: true}
	now := d.clock.Now()
	for _, c := range cands {
		o := d.outcome(c)
		o.At = now
		body, err := d.composer.Compose(c, now, executionID)
		if err != nil {
			o.Status = notification.OutcomeError
			o.ErrorCode = codeCompose
			o.Error = err.Error()
		} else {
			o.Status = notification.OutcomeTested
			d.logger.WithFields(logrus.Fields{
				"record_id":   c.Record.ID,
				"destination": d.destinationFor(c.Record),
			}).Infof("Test mode, message not sent:\n%s", body)
		}
		res.Record(o)
	}
	return res
}

func (d *Dispatcher) sendOne(ctx context.Context, executionID string, c Candidate) notification.Outcome {
	o := d.outcome(c)
	now := d.clock.Now()
	o.At = now
	log := d.logger.WithFields(logrus.Fields{"record_id": c.Record.ID, "name": c.Record.DisplayName()})

	dest := d.destinationFor(c.Record)
	if dest == "" {
		o.Status = notification.OutcomeError
		o.ErrorCode = codeNoDestination
		o.Error = "record has no phone and no recipient is configured"
		log.Warn("Skipping reminder, no destination")
		return o
	}

	body, err := d.composer.Compose(c, now, executionID)
	if err != nil {
		o.Status = notification.OutcomeError
		o.ErrorCode = codeCompose
		o.Error = err.Error()
		log.WithError(err).Error("Failed to compose reminder")
		return o
	}

	start := time.Now()
	receipt, err := d.transport.Send(ctx, dest, body)
	o.Latency = time.Since(start)
	if err != nil {
		o.Status = notification.OutcomeError
		o.ErrorCode, o.Error = classifySendError(err)
		log.WithError(err).WithField("code", o.ErrorCode).Error("Failed to send reminder")
		return o
	}

	o.Status = notification.OutcomeSuccess
	o.ReceiptID = receipt.ID
	o.ProviderStatus = receipt.Status
	log.WithFields(logrus.Fields{"receipt": receipt.ID, "latency": o.Latency}).Info("Reminder sent")

	// The message is out; the marker must be written even if the run is being cancelled.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markSentTimeout)
	defer cancel()
	if err := d.guard.MarkSent(wctx, c.Record, d.clock.Now(), executionID); err != nil {
		log.WithError(err).Warn("Reminder sent but write-back failed; it may be sent again on the next run")
	}
	return o
}

func (d *Dispatcher) outcome(c Candidate) notification.Outcome {
	return notification.Outcome{
		RecordID: c.Record.ID,
		Name:     c.Record.DisplayName(),
		Age:      birthday.AgeAt(c.Schedule.Birth, c.Occurrence),
		Provider: d.transport.Name(),
	}
}

func (d *Dispatcher) destinationFor(r *birthday.Record) string {
	if d.destination != "" {
		return d.destination
	}
	return r.Phone
}

func (d *Dispatcher) abort(res *notification.RunResult, remaining int) {
	res.Aborted = true
	d.logger.WithField("remaining", remaining).Warn("Dispatch cancelled, remaining reminders left for the next run")
}

func classifySendError(err error) (code, msg string) {
	var te *messaging.TransportError
	if errors.As(err, &te) {
		return te.Code, te.Message
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return messaging.CodeNetwork, err.Error()
	}
	return messaging.CodeUnknown, err.Error()
}
