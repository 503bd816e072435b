package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sqliteTimeLayout sorts lexicographically, so range queries work on TEXT columns.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

type dialect struct {
	name string
	// positional placeholders are written as $n and rebound for drivers that want "?"
	questionMarks bool
}

var (
	postgresDialect = dialect{name: "postgres"}
	sqliteDialect   = dialect{name: "sqlite", questionMarks: true}
)

func (d dialect) rebind(query string) string {
	if !d.questionMarks {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		b.WriteString("?" + query[i+1:j])
		i = j - 1
	}
	return b.String()
}

func (d dialect) timeArg(t time.Time) any {
	if d.questionMarks {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t
}

func (d dialect) nullTimeArg(t time.Time, valid bool) any {
	if !valid {
		return nil
	}
	return d.timeArg(t)
}

// dbTime scans a timestamp stored natively (postgres) or as text (sqlite).
type dbTime struct {
	Time  time.Time
	Valid bool
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano} {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time, t.Valid = time.Unix(unix, 0).UTC(), true
		return nil
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
