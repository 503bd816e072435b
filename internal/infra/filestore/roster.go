// Package filestore keeps the roster in a single YAML (or JSON) file.
// The file is re-read on every fetch, so operators can edit it while the daemon runs.
package filestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"birthday_notification_bot/internal/domain/birthday"

	"github.com/google/uuid"
	yaml "go.yaml.in/yaml/v3"
)

type rosterFile struct {
	Birthdays []entry `yaml:"birthdays"`
}

type entry struct {
	ID                 string     `yaml:"id"`
	Date               string     `yaml:"date"`
	Name               string     `yaml:"name"`
	Graduation         string     `yaml:"graduation,omitempty"`
	Relationship       string     `yaml:"relationship,omitempty"`
	Unit               string     `yaml:"unit,omitempty"`
	Phone              string     `yaml:"phone,omitempty"`
	NotificationTiming string     `yaml:"notificationTiming,omitempty"`
	SendTime           string     `yaml:"sendTime,omitempty"`
	LastNotified       *time.Time `yaml:"lastNotificationSent,omitempty"`
	NotificationCount  int        `yaml:"notificationCount,omitempty"`
	LastExecutionID    string     `yaml:"lastExecutionId,omitempty"`
	CreatedAt          *time.Time `yaml:"createdAt,omitempty"`
}

// Repository implements birthday.Repository on top of a roster file.
type Repository struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Repository {
	return &Repository{path: path}
}

func (r *Repository) FetchAll(_ context.Context) ([]*birthday.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rf, err := r.load()
	if err != nil {
		return nil, err
	}
	if assignMissingIDs(rf) {
		if err := r.save(rf); err != nil {
			return nil, err
		}
	}

	out := make([]*birthday.Record, 0, len(rf.Birthdays))
	for _, e := range rf.Birthdays {
		out = append(out, e.record())
	}
	return out, nil
}

// UpdateIdempotenceFields increments the counter read from disk, not the caller's copy.
func (r *Repository) UpdateIdempotenceFields(_ context.Context, id string, f birthday.IdempotenceFields) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rf, err := r.load()
	if err != nil {
		return 0, err
	}
	for i := range rf.Birthdays {
		e := &rf.Birthdays[i]
		if e.ID != id {
			continue
		}
		at := f.LastNotifiedAt
		e.LastNotified = &at
		e.NotificationCount++
		e.LastExecutionID = f.LastExecutionID
		if err := r.save(rf); err != nil {
			return 0, err
		}
		return e.NotificationCount, nil
	}
	return 0, fmt.Errorf("%w: %s", birthday.ErrRecordNotFound, id)
}

// Ping checks that the roster file exists and parses.
func (r *Repository) Ping(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.load()
	return err
}

func (r *Repository) load() (*rosterFile, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: roster file %s does not exist", birthday.ErrStore, r.path)
		}
		return nil, fmt.Errorf("%w: read roster: %w", birthday.ErrStore, err)
	}
	rf := &rosterFile{}
	if err := yaml.Unmarshal(data, rf); err != nil {
		return nil, fmt.Errorf("%w: parse roster %s: %w", birthday.ErrStore, r.path, err)
	}
	return rf, nil
}

// save replaces the file atomically so a crash never leaves a half-written roster.
func (r *Repository) save(rf *rosterFile) error {
	data, err := yaml.Marshal(rf)
	if err != nil {
		return fmt.Errorf("%w: encode roster: %w", birthday.ErrStore, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".roster-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: write roster: %w", birthday.ErrStore, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write roster: %w", birthday.ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: write roster: %w", birthday.ErrStore, err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("%w: replace roster: %w", birthday.ErrStore, err)
	}
	return nil
}

func assignMissingIDs(rf *rosterFile) bool {
	changed := false
	for i := range rf.Birthdays {
		if rf.Birthdays[i].ID == "" {
			rf.Birthdays[i].ID = uuid.NewString()
			changed = true
		}
	}
	return changed
}

func (e entry) record() *birthday.Record {
	rec := &birthday.Record{
		ID:                 e.ID,
		Date:               e.Date,
		Name:               e.Name,
		Graduation:         e.Graduation,
		Relationship:       e.Relationship,
		Unit:               e.Unit,
		Phone:              e.Phone,
		NotificationTiming: e.NotificationTiming,
		SendTime:           e.SendTime,
		NotificationCount:  e.NotificationCount,
		LastExecutionID:    e.LastExecutionID,
	}
	if e.LastNotified != nil {
		rec.LastNotifiedAt = sql.NullTime{Time: *e.LastNotified, Valid: true}
	}
	if e.CreatedAt != nil {
		rec.CreatedAt = *e.CreatedAt
	}
	return rec
}

// ReadRecords parses a roster file without the write-back machinery. Used by the import command.
func ReadRecords(path string) ([]*birthday.Record, error) {
	r := New(path)
	rf, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*birthday.Record, 0, len(rf.Birthdays))
	for _, e := range rf.Birthdays {
		out = append(out, e.record())
	}
	return out, nil
}
