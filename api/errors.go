package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by single-entity lookups that match no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is wrapped by a DescriptorError when a descriptor
	// claims a stable name already used by an entry of the same kind.
	ErrDuplicateName = errors.New("duplicate stable name")
)

// ConfigError reports a missing, unreadable or invalid store configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DescriptorError reports a malformed article.json or category.json.
// Field is empty when the whole document failed to parse.
type DescriptorError struct {
	Path  string
	Field string
	Err   error
}

func (e *DescriptorError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("descriptor %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("descriptor %s: field %s: %v", e.Path, e.Field, e.Err)
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// StorageError wraps a failure of the underlying relational engine.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for op. A nil err stays nil, and errors
// that already carry a StorageError are returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
