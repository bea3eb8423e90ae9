// Package apperr defines the typed errors shared by repositories, validators
// and handlers. The HTTP layer maps each type onto a status code once.
package apperr

import (
	"fmt"
	"sort"
	"strings"
)

// ClientInputError indicates a request the caller can fix: a bad sort
// field, a negative page index, an unparsable parameter.
type ClientInputError struct {
	Code    string
	Message string
	Err     error
}

func (e *ClientInputError) Error() string { return e.Message }

func (e *ClientInputError) Unwrap() error { return e.Err }

// ClientInput creates a ClientInputError wrapping cause.
func ClientInput(code string, cause error, format string, args ...any) *ClientInputError {
	return &ClientInputError{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NotFound creates a NotFoundError with a formatted message.
func NotFound(format string, args ...any) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError indicates the write collides with existing data. When
// References is set the conflict is a delete blocked by dependents and
// carries a count per dependent kind.
type ConflictError struct {
	Message    string
	References map[string]int64
}

func (e *ConflictError) Error() string { return e.Message }

// Conflict creates a ConflictError for a duplicate value.
func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ReferenceConflict creates a ConflictError for an entity that cannot be
// deleted while others still reference it. Zero counts are kept so the
// caller sees the full picture.
func ReferenceConflict(entity string, refs map[string]int64) *ConflictError {
	kinds := make([]string, 0, len(refs))
	for k := range refs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s", refs[k], k))
	}

	return &ConflictError{
		Message:    fmt.Sprintf("%s is still referenced by %s", entity, strings.Join(parts, " and ")),
		References: refs,
	}
}

// HasReferences reports whether any dependent count is non-zero.
func HasReferences(refs map[string]int64) bool {
	for _, n := range refs {
		if n > 0 {
			return true
		}
	}
	return false
}

// ConfigurationError indicates server-side misconfiguration, such as a
// referential constraint pointing at a column that does not exist. It is
// always surfaced as a server error.
type ConfigurationError struct {
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Configuration creates a ConfigurationError wrapping cause.
func Configuration(cause error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...), Err: cause}
}
