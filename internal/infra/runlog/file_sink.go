// Package runlog keeps run results and daily reports as files on disk.
//
// Layout:
//
//	<logDir>/execution-YYYY-MM-DD.jsonl     one JSON run result per line
//	<reportDir>/daily-report-YYYY-MM-DD.md  rendered report
//	<reportDir>/daily-data-YYYY-MM-DD.json  report data
package runlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"birthday_notification_bot/internal/domain/clock"
	"birthday_notification_bot/internal/domain/notification"
)

const dayLayout = "2006-01-02"

// FileSink implements notification.Sink on the local filesystem.
type FileSink struct {
	logDir    string
	reportDir string
	clk       clock.Clock
	mu        sync.Mutex
}

func NewFileSink(logDir, reportDir string, clk clock.Clock) *FileSink {
	return &FileSink{logDir: logDir, reportDir: reportDir, clk: clk}
}

func (s *FileSink) executionFile(day string) string {
	return filepath.Join(s.logDir, "execution-"+day+".jsonl")
}

func (s *FileSink) WriteRun(_ context.Context, run *notification.RunResult) error {
	line, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("error encoding run %s: %w", run.ExecutionID, err)
	}
	day := run.StartedAt.In(s.clk.Location()).Format(dayLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.logDir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(s.executionFile(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open execution log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("write execution log: %w", err)
	}
	return f.Close()
}

func (s *FileSink) WriteReport(_ context.Context, rep *notification.Report, rendered string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding report %s: %w", rep.Date, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.reportDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	md := filepath.Join(s.reportDir, "daily-report-"+rep.Date+".md")
	if err := os.WriteFile(md, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	js := filepath.Join(s.reportDir, "daily-data-"+rep.Date+".json")
	if err := os.WriteFile(js, data, 0o644); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}
	return nil
}

// LastRun is the last line of today's execution log.
func (s *FileSink) LastRun(_ context.Context) (*notification.RunResult, error) {
	runs, err := s.today()
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[len(runs)-1], nil
}

func (s *FileSink) ErrorsToday(_ context.Context) (int, error) {
	runs, err := s.today()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range runs {
		n += r.Failed
		if r.Status == notification.RunStatusError {
			n++
		}
	}
	return n, nil
}

// today reads today's execution log. Unparseable lines are skipped.
func (s *FileSink) today() ([]*notification.RunResult, error) {
	day := s.clk.Now().In(s.clk.Location()).Format(dayLayout)

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.executionFile(day))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open execution log: %w", err)
	}
	defer f.Close()

	var runs []*notification.RunResult
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 8<<20)
	for sc.Scan() {
		run := &notification.RunResult{}
		if json.Unmarshal(sc.Bytes(), run) == nil {
			runs = append(runs, run)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read execution log: %w", err)
	}
	return runs, nil
}
