package birthday

import (
	"errors"
	"fmt"
)

// ErrInvalidData is the sentinel behind every DataError.
var ErrInvalidData = errors.New("invalid record data")

// DataError reports a record that cannot be scheduled. The record is skipped; the run goes on.
type DataError struct {
	RecordID string
	Field    string
	Value    string
	Reason   string
}

func (e *DataError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("record %s: %s: %s", e.RecordID, e.Field, e.Reason)
	}
	return fmt.Sprintf("record %s: %s %q: %s", e.RecordID, e.Field, e.Value, e.Reason)
}

func (e *DataError) Unwrap() error { return ErrInvalidData }
