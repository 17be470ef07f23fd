package storage

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"modernc.org/sqlite"

	"financas/internal/core"
)

// Dialect selects the SQL flavour of the underlying store.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// unicodeLower is registered on the SQLite driver because the built-in
// LOWER only folds ASCII letters.
const unicodeLower = "financas_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(unicodeLower, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// timestampLayout keeps SQLite text timestamps fixed-width so they sort.
const timestampLayout = "2006-01-02 15:04:05.000000"

func (d Dialect) IsValid() bool {
	return d == SQLite || d == Postgres
}

// driverName is the database/sql driver registered for the dialect.
func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// lowerExpr folds a text column to lower case, including non-ASCII letters.
func (d Dialect) lowerExpr(col string) string {
	if d == Postgres {
		return fmt.Sprintf("LOWER(%s)", col)
	}
	return fmt.Sprintf("%s(%s)", unicodeLower, col)
}

// yearExpr extracts the calendar year of a date column as an integer.
func (d Dialect) yearExpr(col string) string {
	if d == Postgres {
		return fmt.Sprintf("CAST(EXTRACT(YEAR FROM %s) AS INTEGER)", col)
	}
	return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", col)
}

// monthExpr extracts the month (1-12) of a date column as an integer.
func (d Dialect) monthExpr(col string) string {
	if d == Postgres {
		return fmt.Sprintf("CAST(EXTRACT(MONTH FROM %s) AS INTEGER)", col)
	}
	return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", col)
}

// dateArg encodes a calendar date as a query argument.
func (d Dialect) dateArg(v core.Date) any {
	if d == Postgres {
		return v.Time
	}
	return v.Format(core.DateLayout)
}

// timeArg encodes a timestamp as a query argument.
func (d Dialect) timeArg(t time.Time) any {
	if d == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(timestampLayout)
}

// dbDate scans DATE columns that arrive either as text or as time.Time.
type dbDate struct {
	Date core.Date
}

func (s *dbDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		s.Date = core.Date{}
		return nil
	case time.Time:
		s.Date = core.DateOf(v)
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	}
	return fmt.Errorf("scan date: unsupported type %T", src)
}

func (s *dbDate) parse(v string) error {
	if len(v) > len(core.DateLayout) {
		v = v[:len(core.DateLayout)]
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return fmt.Errorf("scan date %q: %w", v, err)
	}
	s.Date = d
	return nil
}

// dbTime scans timestamp columns stored as text (SQLite) or native (PostgreSQL).
type dbTime struct {
	Time time.Time
}

func (s *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		s.Time = time.Time{}
		return nil
	case time.Time:
		s.Time = v.UTC()
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	}
	return fmt.Errorf("scan timestamp: unsupported type %T", src)
}

func (s *dbTime) parse(v string) error {
	for _, layout := range []string{timestampLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			s.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp %q: unrecognized format", v)
}

var (
	_ sql.Scanner   = (*dbDate)(nil)
	_ sql.Scanner   = (*dbTime)(nil)
	_ driver.Valuer = nullInt64{}
)

// nullInt64 maps an optional id to a nullable column.
type nullInt64 struct {
	v *int64
}

func (n nullInt64) Value() (driver.Value, error) {
	if n.v == nil {
		return nil, nil
	}
	return *n.v, nil
}
