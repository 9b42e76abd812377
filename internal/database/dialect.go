package database

import (
	"strconv"
	"strings"
)

// Dialect captures the few places where the supported engines disagree.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	// Name selects the embedded migration directory.
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// Goose is the goose dialect identifier.
	Goose string
	// Recursive reports whether WITH RECURSIVE is available.
	Recursive bool
	// numbered placeholders ($1, $2, ...) instead of '?'
	numbered bool
	// OFFSET requires a LIMIT in front of it
	offsetNeedsLimit bool
}

var (
	SQLite = Dialect{
		Name:             "sqlite",
		Driver:           "sqlite",
		Goose:            "sqlite3",
		Recursive:        true,
		offsetNeedsLimit: true,
	}
	Postgres = Dialect{
		Name:      "postgres",
		Driver:    "pgx",
		Goose:     "postgres",
		Recursive: true,
		numbered:  true,
	}
)

// Rebind rewrites '?' placeholders into the dialect's native form.
// Query text must not carry literal question marks.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// Page returns a LIMIT/OFFSET clause and its arguments. Non-positive values
// mean "no limit" and "no offset".
func (d Dialect) Page(limit, offset int) (string, []any) {
	switch {
	case limit > 0 && offset > 0:
		return " LIMIT ? OFFSET ?", []any{limit, offset}
	case limit > 0:
		return " LIMIT ?", []any{limit}
	case offset > 0 && d.offsetNeedsLimit:
		return " LIMIT -1 OFFSET ?", []any{offset}
	case offset > 0:
		return " OFFSET ?", []any{offset}
	}
	return "", nil
}

// Placeholders returns n comma separated placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
