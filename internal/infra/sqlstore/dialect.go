package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// dialect isolates the few SQL differences between SQLite and Postgres.
// Queries are written with "?" placeholders and rebound per dialect.
type dialect struct {
	name string

	// serialPK is the column definition of an auto-increment primary key.
	serialPK string

	// containsFn is the substring position function.
	containsFn string

	// lowerFn folds text to lower case, Unicode-aware on both drivers.
	lowerFn string
}

var (
	sqliteDialect = dialect{
		name:       DriverSQLite,
		serialPK:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		containsFn: "instr",
		lowerFn:    unicodeLowerFunc,
	}
	postgresDialect = dialect{
		name:       DriverPostgres,
		serialPK:   "BIGSERIAL PRIMARY KEY",
		containsFn: "strpos",
		lowerFn:    "LOWER",
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "sqlite3":
		return sqliteDialect, nil
	case DriverPostgres, "postgresql", "pgx":
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// containsFold renders "lower(expr) contains ?". The argument must already be
// lower-cased with strings.ToLower.
func (d dialect) containsFold(expr string) string {
	return d.containsFn + "(" + d.lower(expr) + ", ?) > 0"
}

func (d dialect) lower(expr string) string {
	return d.lowerFn + "(" + expr + ")"
}

// rebind rewrites "?" placeholders into the dialect's positional form.
func (d dialect) rebind(query string) string {
	if d.name != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// isMemoryDSN reports whether a SQLite DSN points to an in-memory database.
func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// sqliteDSN appends the pragmas every pooled connection needs.
func sqliteDSN(dsn string) string {
	if isMemoryDSN(dsn) {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
