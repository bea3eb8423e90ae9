// Package validation checks request payloads. Shape rules run first; rules
// that need the store go through a Checker so uniqueness and existence are
// reported as field errors alongside the rest.
package validation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/refcheck"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Checker evaluates registered referential constraints.
type Checker interface {
	Check(ctx context.Context, key refcheck.Key, value any) (bool, error)
	Missing(ctx context.Context, key refcheck.Key, ids []int64) ([]int64, error)
	Message(key refcheck.Key) string
}

const (
	maxTextLength   = 255
	maxStatusLength = 32
)

// MaxBatchSize bounds the ids of one batch delete so the statement stays
// under the drivers' bind parameter limits.
const MaxBatchSize = listquery.MaxPageSize

// collector accumulates field errors. The first store error stops further
// store checks and is returned instead of a verdict.
type collector struct {
	ctx     context.Context
	checker Checker
	errs    []FieldError
	err     error
}

func newCollector(ctx context.Context, c Checker) *collector {
	return &collector{ctx: ctx, checker: c}
}

func (v *collector) add(field, format string, args ...any) {
	v.errs = append(v.errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *collector) failed(field string) bool {
	for _, e := range v.errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func (v *collector) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "%s is required", field)
	}
}

func (v *collector) maxLen(field, value string, n int) {
	if utf8.RuneCountInString(value) > n {
		v.add(field, "%s must be at most %d characters", field, n)
	}
}

func (v *collector) positive(field string, value int64) {
	if value <= 0 {
		v.add(field, "%s is required", field)
	}
}

// constraint runs the store check for key unless the field already failed a
// shape rule or an earlier store check errored.
func (v *collector) constraint(field string, key refcheck.Key, value any) {
	if v.err != nil || v.failed(field) {
		return
	}
	ok, err := v.checker.Check(v.ctx, key, value)
	if err != nil {
		v.err = err
		return
	}
	if !ok {
		v.errs = append(v.errs, FieldError{Field: field, Message: v.checker.Message(key)})
	}
}

func (v *collector) result() ([]FieldError, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.errs, nil
}

// ValidatePermissionIDs reports every id that does not name a permission.
func ValidatePermissionIDs(ctx context.Context, c Checker, ids []int64) ([]FieldError, error) {
	missing, err := c.Missing(ctx, refcheck.PermissionID, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return nil, nil
	}
	return []FieldError{{
		Field:   "permissionIds",
		Message: fmt.Sprintf("%s: %v", c.Message(refcheck.PermissionID), missing),
	}}, nil
}

// ValidateBatchIDs checks a batch delete body.
func ValidateBatchIDs(ids []int64) []FieldError {
	if len(ids) == 0 {
		return []FieldError{{Field: "ids", Message: "ids must contain at least one id"}}
	}
	if len(ids) > MaxBatchSize {
		return []FieldError{{Field: "ids", Message: fmt.Sprintf("ids must contain at most %d ids", MaxBatchSize)}}
	}
	for _, id := range ids {
		if id <= 0 {
			return []FieldError{{Field: "ids", Message: "ids must be positive integers"}}
		}
	}
	return nil
}
