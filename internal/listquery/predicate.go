package listquery

import (
	"fmt"
	"strings"
)

type operator int

const (
	opEqual operator = iota
	opContains
)

// Predicate is a single filter condition. An inactive predicate, one whose
// input was empty or zero, adds no constraint.
type Predicate struct {
	field  string
	op     operator
	value  any
	active bool
}

// Contains matches rows whose field contains value, ignoring case. The
// characters % and _ in value match literally. Case folding is done by the
// database's LOWER: Postgres folds Unicode, SQLite only folds ASCII.
func Contains(field, value string) Predicate {
	value = strings.TrimSpace(value)
	return Predicate{field: field, op: opContains, value: value, active: value != ""}
}

// Equal matches rows whose field equals value. A zero value is a no-op.
func Equal[T comparable](field string, value T) Predicate {
	var zero T
	return Predicate{field: field, op: opEqual, value: value, active: value != zero}
}

// Active reports whether the predicate constrains the result.
func (p Predicate) Active() bool {
	return p.active
}

func (p Predicate) arg() any {
	if p.op == opContains {
		return "%" + escapeLike(strings.ToLower(p.value.(string))) + "%"
	}
	return p.value
}

func (p Predicate) render(column string, n int) string {
	if p.op == opContains {
		return fmt.Sprintf(`LOWER(%s) LIKE $%d ESCAPE '\'`, column, n)
	}
	return fmt.Sprintf("%s = $%d", column, n)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
