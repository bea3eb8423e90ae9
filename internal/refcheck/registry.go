// Package refcheck evaluates "value is unique" and "value exists" rules
// against the live store. Rules are registered under symbolic keys and
// verified against the schema when registered, so a rule naming a missing
// table or column fails startup rather than the first request.
package refcheck

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/store"
)

// Mode selects how a count is interpreted.
type Mode int

const (
	// Unique is valid when no row holds the value.
	Unique Mode = iota + 1
	// Exists is valid when at least one row holds the value.
	Exists
)

func (m Mode) String() string {
	switch m {
	case Unique:
		return "unique"
	case Exists:
		return "exists"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Key names a registered constraint.
type Key string

// Constraint binds a key to a table column and a mode. Optional marks an
// Exists rule whose zero value means "not set" and is always valid.
type Constraint struct {
	Key      Key
	Table    string
	Column   string
	Mode     Mode
	Optional bool
	Message  string
}

// Querier is the subset of *sql.DB the registry needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type compiled struct {
	Constraint
	query string
}

// Registry maps constraint keys to compiled count queries.
type Registry struct {
	db          Querier
	constraints map[Key]compiled
}

// NewRegistry creates an empty registry evaluating against db.
func NewRegistry(db Querier) *Registry {
	return &Registry{
		db:          db,
		constraints: make(map[Key]compiled),
	}
}

// Register validates and adds constraints. Identifiers must be plain
// lower-case names and the column must be selectable; any failure is a
// ConfigurationError and nothing from the batch is registered.
func (r *Registry) Register(ctx context.Context, cs ...Constraint) error {
	pending := make(map[Key]compiled, len(cs))

	for _, c := range cs {
		if c.Key == "" {
			return apperr.Configuration(nil, "constraint on %s.%s has no key", c.Table, c.Column)
		}
		if _, dup := r.constraints[c.Key]; dup {
			return apperr.Configuration(nil, "constraint %q registered twice", c.Key)
		}
		if _, dup := pending[c.Key]; dup {
			return apperr.Configuration(nil, "constraint %q registered twice", c.Key)
		}
		if c.Mode != Unique && c.Mode != Exists {
			return apperr.Configuration(nil, "constraint %q has invalid mode %s", c.Key, c.Mode)
		}
		if !identPattern.MatchString(c.Table) || !identPattern.MatchString(c.Column) {
			return apperr.Configuration(nil, "constraint %q has invalid identifier %q.%q", c.Key, c.Table, c.Column)
		}

		if err := r.probe(ctx, c.Table, c.Column); err != nil {
			return apperr.Configuration(err, "constraint %q references %s.%s", c.Key, c.Table, c.Column)
		}

		pending[c.Key] = compiled{
			Constraint: c,
			query:      fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE %s = $1", c.Table, c.Column),
		}
	}

	for k, c := range pending {
		r.constraints[k] = c
	}
	return nil
}

func (r *Registry) probe(ctx context.Context, table, column string) error {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", column, table))
	if err != nil {
		return err
	}
	defer rows.Close()
	return rows.Err()
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.constraints))
	for k := range r.constraints {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Message returns the validation message for key.
func (r *Registry) Message(key Key) string {
	c, ok := r.constraints[key]
	if !ok || c.Message == "" {
		return "value is invalid"
	}
	return c.Message
}

// Check evaluates the constraint registered under key for value. It never
// reports an unregistered key or a failed query as valid.
func (r *Registry) Check(ctx context.Context, key Key, value any) (bool, error) {
	c, ok := r.constraints[key]
	if !ok {
		return false, apperr.Configuration(nil, "constraint %q is not registered", key)
	}

	if c.Mode == Exists && c.Optional && isZero(value) {
		return true, nil
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, c.query, value).Scan(&count); err != nil {
		if store.IsUndefinedObject(err) {
			return false, apperr.Configuration(err, "constraint %q references %s.%s", key, c.Table, c.Column)
		}
		return false, fmt.Errorf("checking constraint %q: %w", key, err)
	}

	if c.Mode == Unique {
		return count == 0, nil
	}
	return count > 0, nil
}

// Missing runs an Exists constraint for each id and returns those that do
// not resolve, in input order.
func (r *Registry) Missing(ctx context.Context, key Key, ids []int64) ([]int64, error) {
	c, ok := r.constraints[key]
	if !ok {
		return nil, apperr.Configuration(nil, "constraint %q is not registered", key)
	}
	if c.Mode != Exists {
		return nil, apperr.Configuration(nil, "constraint %q is not an exists constraint", key)
	}

	missing := []int64{}
	for _, id := range ids {
		ok, err := r.Check(ctx, key, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
