package listquery_test

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/store/storetest"
)

type roleRow struct {
	ID     int64
	Code   string
	Name   string
	Status string
}

var roleEntity = listquery.MustEntity(listquery.EntityConfig{
	Name:    "roles",
	From:    "roles",
	Columns: []string{"id", "code", "name", "status"},
	Fields: map[string]string{
		"id":     "id",
		"code":   "code",
		"name":   "name",
		"status": "status",
	},
})

func scanRole(s listquery.Scanner) (roleRow, error) {
	var r roleRow
	err := s.Scan(&r.ID, &r.Code, &r.Name, &r.Status)
	return r, err
}

func seedRoles(t *testing.T, n int) *sql.DB {
	t.Helper()
	db := storetest.Open(t)
	for i := 1; i <= n; i++ {
		status := "active"
		if i%2 == 0 {
			status = "disabled"
		}
		storetest.Exec(t, db, `INSERT INTO roles (code, name, status) VALUES ($1, $2, $3)`,
			fmt.Sprintf("code%02d", i), fmt.Sprintf("Role %02d", i), status)
	}
	return db.DB
}

// failingQuerier fails the test if any query reaches the store.
type failingQuerier struct{ t *testing.T }

func (f failingQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	f.t.Fatal("store must not be queried")
	return nil, nil
}

func (f failingQuerier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	f.t.Fatal("store must not be queried")
	return nil
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       listquery.Request
		wantSize int
		wantErr  error
	}{
		{name: "zero size uses default", in: listquery.Request{PageSize: 0}, wantSize: 10},
		{name: "negative size uses default", in: listquery.Request{PageSize: -5}, wantSize: 10},
		{name: "size within range", in: listquery.Request{PageSize: 25}, wantSize: 25},
		{name: "ceiling", in: listquery.Request{PageSize: 500}, wantSize: 500},
		{name: "above ceiling clamps", in: listquery.Request{PageSize: 501}, wantSize: 500},
		{name: "far above ceiling clamps", in: listquery.Request{PageSize: 100000}, wantSize: 500},
		{name: "negative page", in: listquery.Request{PageIndex: -1}, wantErr: listquery.ErrInvalidPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.in.Normalize()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var cie *apperr.ClientInputError
				require.ErrorAs(t, err, &cie)
				assert.Equal(t, "INVALID_PAGE", cie.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, got.PageSize)
		})
	}
}

func TestTotalPages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, listquery.TotalPages(0, 10))
	assert.Equal(t, 1, listquery.TotalPages(1, 10))
	assert.Equal(t, 1, listquery.TotalPages(10, 10))
	assert.Equal(t, 2, listquery.TotalPages(11, 10))
	assert.Equal(t, 3, listquery.TotalPages(23, 10))
	assert.Equal(t, 1, listquery.TotalPages(23, 500))
}

func TestResolveSort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr     string
		wantCol  string
		wantDesc bool
		wantErr  bool
	}{
		{expr: "", wantCol: "id"},
		{expr: "name", wantCol: "name"},
		{expr: "name asc", wantCol: "name"},
		{expr: "name desc", wantCol: "name", wantDesc: true},
		{expr: "  NAME   DESC ", wantCol: "name", wantDesc: true},
		{expr: "Code Asc", wantCol: "code"},
		{expr: "password", wantErr: true},
		{expr: "name sideways", wantErr: true},
		{expr: "name asc, code desc", wantErr: true},
		{expr: "name; DROP TABLE roles", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			got, err := roleEntity.ResolveSort(tt.expr)
			if tt.wantErr {
				require.ErrorIs(t, err, listquery.ErrInvalidSortField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCol, got.Column)
			assert.Equal(t, tt.wantDesc, got.Desc)
		})
	}
}

func TestNewEntity_Misconfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  listquery.EntityConfig
	}{
		{
			name: "injected column",
			cfg: listquery.EntityConfig{
				Name: "x", From: "roles", Columns: []string{"id"},
				Fields: map[string]string{"id": "id", "name": "name; --"},
			},
		},
		{
			name: "default sort unknown",
			cfg: listquery.EntityConfig{
				Name: "x", From: "roles", Columns: []string{"id"},
				Fields: map[string]string{"name": "name"}, DefaultSort: "order asc",
			},
		},
		{
			name: "no id for implicit default",
			cfg: listquery.EntityConfig{
				Name: "x", From: "roles", Columns: []string{"id"},
				Fields: map[string]string{"name": "name"},
			},
		},
		{
			name: "missing from",
			cfg:  listquery.EntityConfig{Name: "x", Columns: []string{"id"}},
		},
		{
			name: "case-insensitive duplicate",
			cfg: listquery.EntityConfig{
				Name: "x", From: "roles", Columns: []string{"id"},
				Fields: map[string]string{"id": "id", "Name": "name", "name": "name"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := listquery.NewEntity(tt.cfg)
			var cfgErr *apperr.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestRun_Pagination(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 23)
	ctx := context.Background()

	tests := []struct {
		pageIndex int
		wantItems int
		wantFirst string
	}{
		{pageIndex: 0, wantItems: 10, wantFirst: "code01"},
		{pageIndex: 1, wantItems: 10, wantFirst: "code11"},
		{pageIndex: 2, wantItems: 3, wantFirst: "code21"},
		{pageIndex: 3, wantItems: 0},
		{pageIndex: 40, wantItems: 0},
	}

	for _, tt := range tests {
		res, err := listquery.Run(ctx, db, roleEntity,
			listquery.Request{PageIndex: tt.pageIndex, PageSize: 10}, scanRole)
		require.NoError(t, err)

		assert.Len(t, res.Items, tt.wantItems, "page %d", tt.pageIndex)
		assert.Equal(t, 23, res.TotalCount, "page %d", tt.pageIndex)
		assert.Equal(t, 3, res.TotalPages, "page %d", tt.pageIndex)
		assert.Equal(t, tt.pageIndex, res.PageIndex)
		assert.Equal(t, 10, res.PageSize)
		if tt.wantFirst != "" {
			assert.Equal(t, tt.wantFirst, res.Items[0].Code)
		}
	}
}

func TestRun_DefaultPageSizeAndCeiling(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 12)
	ctx := context.Background()

	res, err := listquery.Run(ctx, db, roleEntity, listquery.Request{}, scanRole)
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, 2, res.TotalPages)

	res, err = listquery.Run(ctx, db, roleEntity, listquery.Request{PageSize: 9999}, scanRole)
	require.NoError(t, err)
	assert.Len(t, res.Items, 12)
	assert.Equal(t, 500, res.PageSize)
	assert.Equal(t, 1, res.TotalPages)
}

func TestRun_SortDescending(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 5)

	res, err := listquery.Run(context.Background(), db, roleEntity,
		listquery.Request{PageSize: 2, SortBy: "code desc"}, scanRole)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "code05", res.Items[0].Code)
	assert.Equal(t, "code04", res.Items[1].Code)
}

func TestRun_FiltersCombineWithAnd(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 23)
	ctx := context.Background()

	// code1x: code10..code19; active ones are odd.
	res, err := listquery.Run(ctx, db, roleEntity, listquery.Request{PageSize: 3}, scanRole,
		listquery.Contains("code", "CODE1"),
		listquery.Contains("status", "act"),
	)
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Items, 3)
	for _, r := range res.Items {
		assert.Equal(t, "active", r.Status)
	}
}

func TestRun_EmptyFiltersAreNoOps(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 7)

	res, err := listquery.Run(context.Background(), db, roleEntity, listquery.Request{}, scanRole,
		listquery.Contains("name", ""),
		listquery.Contains("status", "   "),
		listquery.Equal("id", int64(0)),
	)
	require.NoError(t, err)
	assert.Equal(t, 7, res.TotalCount)
}

func TestRun_EqualFilter(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 7)

	res, err := listquery.Run(context.Background(), db, roleEntity, listquery.Request{}, scanRole,
		listquery.Equal("id", int64(3)))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "code03", res.Items[0].Code)
}

func TestRun_ContainsTreatsWildcardsLiterally(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 3)
	storetest.Exec(t, db, `INSERT INTO roles (code, name) VALUES ($1, $2)`, "pct", "100% Admin")

	res, err := listquery.Run(context.Background(), db, roleEntity, listquery.Request{}, scanRole,
		listquery.Contains("name", "%"))
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "pct", res.Items[0].Code)

	res, err = listquery.Run(context.Background(), db, roleEntity, listquery.Request{}, scanRole,
		listquery.Contains("name", "_"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalCount)
}

func TestRun_ContainsCaseFoldingOnSQLite(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 0)
	storetest.Exec(t, db, `INSERT INTO roles (code, name) VALUES ($1, $2)`, "ops", "Ärger Ops")

	res, err := listquery.Run(context.Background(), db, roleEntity, listquery.Request{}, scanRole,
		listquery.Contains("name", "OPS"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalCount)

	// SQLite's LOWER leaves non-ASCII letters alone.
	res, err = listquery.Run(context.Background(), db, roleEntity, listquery.Request{}, scanRole,
		listquery.Contains("name", "ärger"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalCount)
}

func TestRun_NoMatches(t *testing.T) {
	t.Parallel()
	db := seedRoles(t, 4)

	res, err := listquery.Run(context.Background(), db, roleEntity, listquery.Request{}, scanRole,
		listquery.Contains("name", "nobody"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalCount)
	assert.Equal(t, 0, res.TotalPages)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestRun_InvalidSortFieldNeverQueries(t *testing.T) {
	t.Parallel()

	_, err := listquery.Run(context.Background(), failingQuerier{t}, roleEntity,
		listquery.Request{SortBy: "password"}, scanRole)
	require.ErrorIs(t, err, listquery.ErrInvalidSortField)
}

func TestRun_NegativePageNeverQueries(t *testing.T) {
	t.Parallel()

	_, err := listquery.Run(context.Background(), failingQuerier{t}, roleEntity,
		listquery.Request{PageIndex: -2}, scanRole)
	require.ErrorIs(t, err, listquery.ErrInvalidPage)
}

func TestRun_UnknownFilterFieldIsConfigurationError(t *testing.T) {
	t.Parallel()

	_, err := listquery.Run(context.Background(), failingQuerier{t}, roleEntity,
		listquery.Request{}, scanRole, listquery.Contains("secret", "x"))
	var cfgErr *apperr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	req, err := listquery.ParseRequest(url.Values{
		"pageIndex": {"2"},
		"pageSize":  {"900"},
		"sortBy":    {"name desc"},
	})
	require.NoError(t, err)
	assert.Equal(t, listquery.Request{PageIndex: 2, PageSize: 500, SortBy: "name desc"}, req)

	req, err = listquery.ParseRequest(url.Values{"orderBy": {"code"}})
	require.NoError(t, err)
	assert.Equal(t, listquery.Request{PageIndex: 0, PageSize: 10, SortBy: "code"}, req)

	_, err = listquery.ParseRequest(url.Values{"pageIndex": {"abc"}})
	require.ErrorIs(t, err, listquery.ErrInvalidPage)

	_, err = listquery.ParseRequest(url.Values{"pageIndex": {"-1"}})
	require.ErrorIs(t, err, listquery.ErrInvalidPage)

	_, err = listquery.ParseRequest(url.Values{"pageSize": {"ten"}})
	require.ErrorIs(t, err, listquery.ErrInvalidParam)
}
