package deptsite

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// ParseDatabaseURL maps a DATABASE_URL value to a database/sql driver name and
// DSN. PostgreSQL URLs (including SQLAlchemy-style "postgresql+psycopg://")
// are normalized for lib/pq. An empty value selects SQLite at fallbackPath.
func ParseDatabaseURL(raw, fallbackPath string) (driver, dsn string, err error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return driverSQLite, fallbackPath, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return driverPostgres, raw, nil
	case strings.HasPrefix(raw, "postgresql+"):
		i := strings.Index(raw, "://")
		if i < 0 {
			return "", "", fmt.Errorf("invalid database url %q", raw)
		}
		return driverPostgres, "postgresql" + raw[i:], nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			path = fallbackPath
		}
		return driverSQLite, path, nil
	case strings.HasPrefix(raw, "sqlite:"):
		return driverSQLite, strings.TrimPrefix(raw, "sqlite:"), nil
	case strings.HasPrefix(raw, "file:"):
		return driverSQLite, raw, nil
	case strings.Contains(raw, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme in %q", raw)
	}
	return driverSQLite, raw, nil
}

// rebind rewrites "?" placeholders into the driver's positional form.
func rebind(driver, query string) string {
	if driver != driverPostgres {
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

// isDuplicateColumn reports whether err came from adding a column that already exists.
func isDuplicateColumn(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
