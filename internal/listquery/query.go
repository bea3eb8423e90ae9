package listquery

import (
	"context"
	"database/sql"
	"fmt"
	"math"
)

// Querier is the subset of *sql.DB and *sql.Tx the builder needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Scanner is implemented by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc reads one row in the order of the entity's Columns.
type ScanFunc[T any] func(Scanner) (T, error)

// Result is one page of a filtered list. TotalCount and TotalPages describe
// the whole filtered set, not the returned page.
type Result[T any] struct {
	Items      []T
	TotalCount int
	TotalPages int
	PageIndex  int
	PageSize   int
}

// Run validates req against e, counts the rows matching preds and returns
// the requested page ordered by the single resolved sort key.
func Run[T any](ctx context.Context, q Querier, e *Entity, req Request, scan ScanFunc[T], preds ...Predicate) (*Result[T], error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	sort, err := e.ResolveSort(req.SortBy)
	if err != nil {
		return nil, err
	}

	where, args, err := e.where(preds)
	if err != nil {
		return nil, err
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", e.from, where)
	var total int
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting %s: %w", e.name, err)
	}

	result := &Result[T]{
		Items:      []T{},
		TotalCount: total,
		TotalPages: TotalPages(total, req.PageSize),
		PageIndex:  req.PageIndex,
		PageSize:   req.PageSize,
	}

	if req.PageIndex > math.MaxInt32/req.PageSize {
		return result, nil
	}
	offset := req.PageIndex * req.PageSize
	if offset >= total {
		return result, nil
	}

	dataQuery := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY %s LIMIT $%d OFFSET $%d",
		e.columns, e.from, where, sort.clause(), len(args)+1, len(args)+2)
	args = append(args, req.PageSize, offset)

	rows, err := q.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", e.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", e.name, err)
		}
		result.Items = append(result.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", e.name, err)
	}

	return result, nil
}
