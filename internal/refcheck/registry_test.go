package refcheck_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/refcheck"
	"github.com/webbase/adminapi/internal/store"
	"github.com/webbase/adminapi/internal/store/storetest"
)

func newRegistry(t *testing.T) (*refcheck.Registry, *store.DB) {
	t.Helper()
	db := storetest.Open(t)
	reg := refcheck.NewRegistry(db)
	require.NoError(t, reg.Register(context.Background(), refcheck.Defaults()...))
	return reg, db
}

func TestRegister_Defaults(t *testing.T) {
	t.Parallel()
	reg, _ := newRegistry(t)

	keys := reg.Keys()
	assert.Len(t, keys, len(refcheck.Defaults()))
	assert.Contains(t, keys, refcheck.UserName)
	assert.NotContains(t, keys, refcheck.Key("user.email"))
	assert.IsIncreasing(t, keys)

	assert.Equal(t, "role code already exists", reg.Message(refcheck.RoleCode))
}

func TestRegister_Misconfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		c    refcheck.Constraint
	}{
		{name: "missing table", c: refcheck.Constraint{Key: "k", Table: "accounts", Column: "id", Mode: refcheck.Exists}},
		{name: "missing column", c: refcheck.Constraint{Key: "k", Table: "users", Column: "email", Mode: refcheck.Unique}},
		{name: "injected identifier", c: refcheck.Constraint{Key: "k", Table: "users; --", Column: "id", Mode: refcheck.Exists}},
		{name: "upper-case identifier", c: refcheck.Constraint{Key: "k", Table: "Users", Column: "id", Mode: refcheck.Exists}},
		{name: "no key", c: refcheck.Constraint{Table: "users", Column: "id", Mode: refcheck.Exists}},
		{name: "no mode", c: refcheck.Constraint{Key: "k", Table: "users", Column: "id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := storetest.Open(t)
			reg := refcheck.NewRegistry(db)

			err := reg.Register(context.Background(), tt.c)
			var cfgErr *apperr.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Empty(t, reg.Keys())
		})
	}
}

func TestRegister_DuplicateKey(t *testing.T) {
	t.Parallel()
	reg, _ := newRegistry(t)

	err := reg.Register(context.Background(), refcheck.Constraint{
		Key: refcheck.UserName, Table: "users", Column: "name", Mode: refcheck.Unique,
	})
	var cfgErr *apperr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheck_UniqueRoundTrip(t *testing.T) {
	t.Parallel()
	reg, db := newRegistry(t)
	ctx := context.Background()

	ok, err := reg.Check(ctx, refcheck.RoleCode, "auditor")
	require.NoError(t, err)
	assert.True(t, ok)

	id := storetest.InsertID(t, db, `INSERT INTO roles (code, name) VALUES ($1, $2) RETURNING id`, "auditor", "Auditor")

	ok, err = reg.Check(ctx, refcheck.RoleCode, "auditor")
	require.NoError(t, err)
	assert.False(t, ok)

	storetest.Exec(t, db, `DELETE FROM roles WHERE id = $1`, id)

	ok, err = reg.Check(ctx, refcheck.RoleCode, "auditor")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_Exists(t *testing.T) {
	t.Parallel()
	reg, db := newRegistry(t)
	ctx := context.Background()

	id := storetest.InsertID(t, db, `INSERT INTO roles (code, name) VALUES ($1, $2) RETURNING id`, "user", "User")

	ok, err := reg.Check(ctx, refcheck.UserRole, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.Check(ctx, refcheck.UserRole, id+100)
	require.NoError(t, err)
	assert.False(t, ok)

	// Required exists rules do not short-circuit on zero.
	ok, err = reg.Check(ctx, refcheck.UserRole, int64(0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheck_OptionalZeroIsValid(t *testing.T) {
	t.Parallel()
	reg, db := newRegistry(t)
	require.NoError(t, db.Close())

	// The store is closed, so a query would fail; the zero value never reaches it.
	ok, err := reg.Check(context.Background(), refcheck.PermissionParent, int64(0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheck_UnknownKeyFailsClosed(t *testing.T) {
	t.Parallel()
	reg, _ := newRegistry(t)

	ok, err := reg.Check(context.Background(), "user.email", "x@example.com")
	assert.False(t, ok)
	var cfgErr *apperr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestCheck_DroppedTableIsConfigurationError(t *testing.T) {
	t.Parallel()
	reg, db := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, db.MigrateDown(ctx))

	ok, err := reg.Check(ctx, refcheck.UserName, "alice")
	assert.False(t, ok)
	var cfgErr *apperr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestMissing(t *testing.T) {
	t.Parallel()
	reg, db := newRegistry(t)
	ctx := context.Background()

	a := storetest.InsertID(t, db, `INSERT INTO permissions (code, name) VALUES ($1, $2) RETURNING id`, "users.read", "Read users")
	b := storetest.InsertID(t, db, `INSERT INTO permissions (code, name) VALUES ($1, $2) RETURNING id`, "users.write", "Write users")

	missing, err := reg.Missing(ctx, refcheck.PermissionID, []int64{a, 999, b, 1000})
	require.NoError(t, err)
	assert.Equal(t, []int64{999, 1000}, missing)

	_, err = reg.Missing(ctx, refcheck.RoleCode, []int64{a})
	var cfgErr *apperr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unique", refcheck.Unique.String())
	assert.Equal(t, "exists", refcheck.Exists.String())
	assert.Equal(t, "Mode(9)", refcheck.Mode(9).String())
}
