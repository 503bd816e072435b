package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/messaging"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

var brt = time.FixedZone("BRT", -3*60*60)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func fixedClock(y int, m time.Month, d, hh, mm int) clock.Fixed {
	return clock.Fixed{T: time.Date(y, m, d, hh, mm, 0, 0, brt)}
}

// stepClock is a clock the test moves forward between runs.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Location() *time.Location { return brt }

func (c *stepClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type memRepo struct {
	mu        sync.Mutex
	records   map[string]*birthday.Record
	order     []string
	fetchErr  error
	updateErr map[string]error
	updates   int
	pingErr   error
}

func newMemRepo(recs ...*birthday.Record) *memRepo {
	r := &memRepo{records: map[string]*birthday.Record{}, updateErr: map[string]error{}}
	for _, rec := range recs {
		r.records[rec.ID] = rec
		r.order = append(r.order, rec.ID)
	}
	return r
}

// FetchAll hands out copies, the way a real store would.
func (r *memRepo) FetchAll(_ context.Context) ([]*birthday.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	out := make([]*birthday.Record, 0, len(r.order))
	for _, id := range r.order {
		c := *r.records[id]
		out = append(out, &c)
	}
	return out, nil
}

func (r *memRepo) UpdateIdempotenceFields(_ context.Context, id string, f birthday.IdempotenceFields) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.updateErr[id]; err != nil {
		return 0, err
	}
	rec, ok := r.records[id]
	if !ok {
		return 0, birthday.ErrRecordNotFound
	}
	rec.LastNotifiedAt.Time = f.LastNotifiedAt
	rec.LastNotifiedAt.Valid = true
	rec.NotificationCount++
	rec.LastExecutionID = f.LastExecutionID
	r.updates++
	return rec.NotificationCount, nil
}

func (r *memRepo) Ping(_ context.Context) error { return r.pingErr }

func (r *memRepo) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id].NotificationCount
}

type sentMessage struct {
	To   string
	Body string
}

type fakeTransport struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]error
	pingErr error
	// onSend runs before the send is recorded; used to cancel mid-batch.
	onSend func(n int)
}

func (t *fakeTransport) Send(_ context.Context, to, body string) (messaging.Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.onSend != nil {
		t.onSend(len(t.sent) + 1)
	}
	if err := t.failFor[to]; err != nil {
		return messaging.Receipt{}, err
	}
	t.sent = append(t.sent, sentMessage{To: to, Body: body})
	return messaging.Receipt{ID: fmt.Sprintf("SM%d", len(t.sent)), Status: "queued"}, nil
}

func (t *fakeTransport) Ping(_ context.Context) error { return t.pingErr }
func (t *fakeTransport) Name() string                 { return "fake" }

func (t *fakeTransport) messages() []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentMessage(nil), t.sent...)
}

type recordingPauser struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (p *recordingPauser) Pause(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.pauses = append(p.pauses, d)
	p.mu.Unlock()
	return ctx.Err()
}

func (p *recordingPauser) total() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	var sum time.Duration
	for _, d := range p.pauses {
		sum += d
	}
	return sum
}

type memSink struct {
	mu      sync.Mutex
	runs    []*notification.RunResult
	reports []*notification.Report
	errs    int
	err     error
}

func (s *memSink) WriteRun(_ context.Context, run *notification.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return s.err
}

func (s *memSink) WriteReport(_ context.Context, rep *notification.Report, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, rep)
	return s.err
}

func (s *memSink) LastRun(_ context.Context) (*notification.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.runs) == 0 {
		return nil, nil
	}
	return s.runs[len(s.runs)-1], nil
}

func (s *memSink) ErrorsToday(_ context.Context) (int, error) { return s.errs, s.err }

var errBoom = errors.New("boom")

func rec(id, date, phone string) *birthday.Record {
	return &birthday.Record{
		ID:           id,
		Date:         date,
		Name:         "Nome " + id,
		Graduation:   "Sd",
		Relationship: "Colega",
		Phone:        phone,
	}
}

func defaultSettings() Settings {
	return Settings{
		DefaultPolicy: birthday.TimingOneDay,
		SendAt:        9 * 60,
		Tolerance:     30 * time.Minute,
		Enabled:       true,
	}
}

type harness struct {
	repo      *memRepo
	transport *fakeTransport
	pauser    *recordingPauser
	sink      *memSink
	svc       *NotificationServiceImpl
}

func newHarness(clk clock.Clock, settings Settings, dest string, recs ...*birthday.Record) *harness {
	h := &harness{
		repo:      newMemRepo(recs...),
		transport: &fakeTransport{failFor: map[string]error{}},
		pauser:    &recordingPauser{},
		sink:      &memSink{},
	}
	guard := NewGuard(h.repo, clk.Location())
	d := NewDispatcher(h.transport, guard, NewComposer(clk.Location()), clk, DispatcherConfig{
		Delay:       2 * time.Second,
		Destination: dest,
		Pauser:      h.pauser,
	}, testLogger())
	h.svc = NewNotificationServiceImpl(h.repo, guard, d, h.sink, clk, settings, testLogger())
	return h
}
