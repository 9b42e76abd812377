package catalog

import (
	"iter"

	"github.com/agentic-research/lectern/api"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// stream runs query lazily: nothing is executed until the sequence is
// ranged over, and breaking out of the loop closes the rows. The first
// error is yielded once and ends the sequence.
func stream[T any](s *Session, op, query string, args []any, scan func(rowScanner) (T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		db := s.c.db
		s.c.metrics.ObserveQuery(op)

		rows, err := db.Query(db.Dialect.Rebind(query), args...)
		if err != nil {
			yield(zero, api.Storage(op, err))
			return
		}
		defer func() { _ = rows.Close() }() // safe to ignore

		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				yield(zero, api.Storage(op, err))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, api.Storage(op, err))
		}
	}
}

// failed yields a single error.
func failed[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
