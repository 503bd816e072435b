package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"birthday_notification_bot/internal/domain/birthday"
	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/messaging"
	"birthday_notification_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

const (
	upcomingHorizon = 30
	topUnits        = 5
	topGraduations  = 8
	notInformed     = "Não informado"
)

// ReportService builds the daily roster overview, saves it and optionally sends a short version.
type ReportService struct {
	repo        birthday.Repository
	guard       *Guard
	health      *HealthService // may be nil
	sink        notification.Sink
	transport   messaging.Transport
	clock       clock.Clock
	filter      EligibilityFilter
	settings    Settings
	destination string
	logger      *logrus.Entry
}

func NewReportService(
	repo birthday.Repository,
	guard *Guard,
	health *HealthService,
	sink notification.Sink,
	transport messaging.Transport,
	clk clock.Clock,
	settings Settings,
	destination string,
	logger *logrus.Entry,
) *ReportService {
	return &ReportService{
		repo:        repo,
		guard:       guard,
		health:      health,
		sink:        sink,
		transport:   transport,
		clock:       clk,
		filter:      EligibilityFilter{DefaultPolicy: settings.DefaultPolicy, DefaultSendAt: settings.SendAt},
		settings:    settings,
		destination: destination,
		logger:      logger,
	}
}

// Generate computes the report from the current roster. It writes nothing.
func (s *ReportService) Generate(ctx context.Context) (*notification.Report, error) {
	now := s.clock.Now()
	loc := s.clock.Location()
	today := birthday.Today(now, loc)
	nowAt := birthday.TimeOfDayOf(now.In(loc))

	records, err := s.repo.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch birthdays for report: %w", err)
	}

	rep := &notification.Report{
		Date:         today.String(),
		GeneratedAt:  now,
		Timezone:     loc.String(),
		TotalRecords: len(records),
		ThisWeek:     map[int][]notification.ReportEntry{},
	}

	var upcoming []notification.ReportEntry
	var monthAgeSum, monthAgeN int
	units := map[string]int{}
	grads := map[string]int{}

	for _, r := range records {
		sched, err := birthday.ResolveSchedule(r, s.settings.DefaultPolicy, s.settings.SendAt)
		if err != nil {
			rep.InvalidRecords++
			continue
		}
		units[labelOr(r.Unit)]++
		grads[labelOr(r.Graduation)]++

		days := birthday.DaysUntilEvent(sched.Birth, today)
		occ := birthday.NextOccurrence(sched.Birth, today)
		entry := notification.ReportEntry{
			RecordID:              r.ID,
			Name:                  r.Name,
			Graduation:            r.Graduation,
			Relationship:          r.Relationship,
			Unit:                  r.Unit,
			Date:                  occ.String(),
			DaysUntil:             days,
			DaysUntilNotification: birthday.DaysUntilNotification(sched.Birth, sched.Policy, today),
			NextAge:               birthday.AgeAt(sched.Birth, occ),
		}

		if days == 0 {
			rep.Today = append(rep.Today, entry)
		}
		if days <= 7 {
			rep.ThisWeek[days] = append(rep.ThisWeek[days], entry)
		}
		if days <= upcomingHorizon {
			upcoming = append(upcoming, entry)
		}
		if birthday.IsEligibleToday(sched.Birth, sched.Policy, today) {
			rep.NotificationsToday++
		}
		if sched.Birth.Month == today.Month {
			rep.ThisMonthCount++
			if sched.Birth.YearKnown() {
				monthAgeSum += birthday.Age(sched.Birth, today)
				monthAgeN++
			}
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].DaysUntil < upcoming[j].DaysUntil })
	for _, e := range upcoming {
		if e.DaysUntil <= 7 {
			rep.Next7Days = append(rep.Next7Days, e)
		}
		if e.DaysUntil <= 15 {
			rep.Next15Days = append(rep.Next15Days, e)
		}
		rep.Next30Days = append(rep.Next30Days, e)
	}
	if monthAgeN > 0 {
		rep.ThisMonthAvgAge = float64(monthAgeSum) / float64(monthAgeN)
	}
	rep.ByUnit = topCounts(units, topUnits)
	rep.ByGraduation = topCounts(grads, topGraduations)

	cands, _ := s.filter.Filter(records, today, nowAt, false)
	pending, _ := s.guard.Partition(cands, today)
	rep.QueueNow = len(pending)

	rep.Health = s.healthSection(ctx, now)
	return rep, nil
}

func (s *ReportService) healthSection(ctx context.Context, now time.Time) notification.ReportHealth {
	h := notification.ReportHealth{
		Store:         notification.HealthUnknown,
		Transport:     notification.HealthUnknown,
		LastExecution: "Nenhuma",
		NextExecution: s.nextExecution(now).Format("02/01/2006 15:04"),
	}
	if s.health != nil {
		hr := s.health.Check(ctx)
		if c, ok := hr.Check(CheckStore); ok {
			h.Store = c.Status
		}
		if c, ok := hr.Check(CheckTransport); ok {
			h.Transport = c.Status
		}
	}
	if s.sink != nil {
		if n, err := s.sink.ErrorsToday(ctx); err == nil {
			h.ErrorsToday = n
		}
		if last, err := s.sink.LastRun(ctx); err == nil && last != nil {
			h.LastExecution = last.StartedAt.In(s.clock.Location()).Format("15:04:05")
		}
	}
	return h
}

// nextExecution is the next time the configured send time comes around.
func (s *ReportService) nextExecution(now time.Time) time.Time {
	loc := s.clock.Location()
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.settings.SendAt.Hour(), s.settings.SendAt.Minute(), 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Publish generates the report, saves it and, when send is set, delivers the short version.
// A failed send is logged; the saved report is still returned.
func (s *ReportService) Publish(ctx context.Context, send bool) (*notification.Report, error) {
	rep, err := s.Generate(ctx)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithField("date", rep.Date)

	if s.sink != nil {
		if err := s.sink.WriteReport(ctx, rep, RenderReport(rep)); err != nil {
			log.WithError(err).Error("Failed to save daily report")
			return rep, fmt.Errorf("failed to save daily report: %w", err)
		}
	}
	log.WithFields(logrus.Fields{"total": rep.TotalRecords, "today": len(rep.Today)}).Info("Daily report generated")

	if !send || s.settings.TestMode {
		return rep, nil
	}
	if s.destination == "" {
		log.Warn("Daily report not sent, no recipient configured")
		return rep, nil
	}
	if _, err := s.transport.Send(ctx, s.destination, RenderShortReport(rep)); err != nil {
		log.WithError(err).Error("Failed to send daily report")
		return rep, nil
	}
	log.Info("Daily report sent")
	return rep, nil
}

func labelOr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return notInformed
	}
	return s
}

func topCounts(m map[string]int, n int) []notification.Count {
	out := make([]notification.Count, 0, len(m))
	for label, c := range m {
		out = append(out, notification.Count{Label: label, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
