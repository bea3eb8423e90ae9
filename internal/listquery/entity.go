package listquery

import (
	"regexp"
	"strings"

	"github.com/webbase/adminapi/internal/apperr"
)

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// EntityConfig declares how an entity is listed. Fields maps public field
// names to column references; lookups on field names are case-insensitive.
type EntityConfig struct {
	Name        string
	From        string
	Columns     []string
	Fields      map[string]string
	DefaultSort string
}

// Sort is a resolved single-key ordering.
type Sort struct {
	Field  string
	Column string
	Desc   bool
}

func (s Sort) clause() string {
	if s.Desc {
		return s.Column + " DESC"
	}
	return s.Column + " ASC"
}

// Entity is a validated list schema, built once at startup and shared by
// all requests.
type Entity struct {
	name        string
	from        string
	columns     string
	fields      map[string]Sort
	defaultSort Sort
}

// NewEntity validates cfg. Every field must map to a plain column reference
// and the default sort must resolve; otherwise a ConfigurationError is
// returned. An empty DefaultSort means ascending by "id".
func NewEntity(cfg EntityConfig) (*Entity, error) {
	if cfg.From == "" || len(cfg.Columns) == 0 {
		return nil, apperr.Configuration(nil, "list entity %q: from clause and columns are required", cfg.Name)
	}

	e := &Entity{
		name:    cfg.Name,
		from:    cfg.From,
		columns: strings.Join(cfg.Columns, ", "),
		fields:  make(map[string]Sort, len(cfg.Fields)),
	}

	for name, column := range cfg.Fields {
		if !columnPattern.MatchString(column) {
			return nil, apperr.Configuration(nil, "list entity %q: field %q maps to invalid column %q", cfg.Name, name, column)
		}
		key := strings.ToLower(name)
		if _, dup := e.fields[key]; dup {
			return nil, apperr.Configuration(nil, "list entity %q: field %q declared twice", cfg.Name, name)
		}
		e.fields[key] = Sort{Field: name, Column: column}
	}

	def := cfg.DefaultSort
	if def == "" {
		def = "id"
	}
	sort, err := e.ResolveSort(def)
	if err != nil {
		return nil, apperr.Configuration(err, "list entity %q: default sort %q", cfg.Name, def)
	}
	e.defaultSort = sort

	return e, nil
}

// MustEntity is like NewEntity but panics on error. It is meant for
// package-level entity declarations.
func MustEntity(cfg EntityConfig) *Entity {
	e, err := NewEntity(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the entity name used in error messages.
func (e *Entity) Name() string {
	return e.name
}

// ResolveSort parses "field", "field asc" or "field desc". An empty
// expression yields the default sort.
func (e *Entity) ResolveSort(expr string) (Sort, error) {
	parts := strings.Fields(expr)
	if len(parts) == 0 {
		return e.defaultSort, nil
	}
	if len(parts) > 2 {
		return Sort{}, apperr.ClientInput("INVALID_SORT_FIELD", ErrInvalidSortField,
			"sortBy supports a single field with an optional direction, got %q", expr)
	}

	f, ok := e.fields[strings.ToLower(parts[0])]
	if !ok {
		return Sort{}, apperr.ClientInput("INVALID_SORT_FIELD", ErrInvalidSortField,
			"cannot sort %s by unknown field %q", e.name, parts[0])
	}

	if len(parts) == 2 {
		switch strings.ToLower(parts[1]) {
		case "asc":
		case "desc":
			f.Desc = true
		default:
			return Sort{}, apperr.ClientInput("INVALID_SORT_FIELD", ErrInvalidSortField,
				"sort direction must be asc or desc, got %q", parts[1])
		}
	}

	return f, nil
}

func (e *Entity) column(field string) (string, error) {
	f, ok := e.fields[strings.ToLower(field)]
	if !ok {
		return "", apperr.Configuration(nil, "list entity %q has no filterable field %q", e.name, field)
	}
	return f.Column, nil
}

// where renders the active predicates as an AND-combined WHERE clause with
// $N placeholders starting at 1.
func (e *Entity) where(preds []Predicate) (string, []any, error) {
	var (
		conditions []string
		args       []any
	)

	for _, p := range preds {
		if !p.active {
			continue
		}
		column, err := e.column(p.field)
		if err != nil {
			return "", nil, err
		}
		args = append(args, p.arg())
		conditions = append(conditions, p.render(column, len(args)))
	}

	if len(conditions) == 0 {
		return "", args, nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args, nil
}
