package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webbase/adminapi/internal/api/handler"
	"github.com/webbase/adminapi/internal/api/middleware"
	"github.com/webbase/adminapi/internal/api/response"
	"github.com/webbase/adminapi/internal/auth"
	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/refcheck"
	"github.com/webbase/adminapi/internal/role"
)

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.APIError `json:"error"`
	Meta  response.Meta      `json:"meta"`
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// makeChiRequest builds a request carrying chi URL params.
func makeChiRequest(method, path, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// --- health ---

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(_ context.Context) error { return m.err }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pinger     handler.DBPinger
		wantCode   int
		wantStatus string
		connected  bool
	}{
		{name: "healthy", pinger: mockPinger{}, wantCode: http.StatusOK, wantStatus: "healthy", connected: true},
		{name: "ping fails", pinger: mockPinger{err: errors.New("down")}, wantCode: http.StatusServiceUnavailable, wantStatus: "degraded"},
		{name: "no database", pinger: nil, wantCode: http.StatusServiceUnavailable, wantStatus: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := handler.NewHealthHandler(tt.pinger, "postgres", "0.1.0")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, w.Code)

			var data struct {
				Status   string `json:"status"`
				Version  string `json:"version"`
				Database struct {
					Driver    string `json:"driver"`
					Connected bool   `json:"connected"`
				} `json:"database"`
			}
			require.NoError(t, json.Unmarshal(parseEnvelope(t, w).Data, &data))
			assert.Equal(t, tt.wantStatus, data.Status)
			assert.Equal(t, "0.1.0", data.Version)
			assert.Equal(t, "postgres", data.Database.Driver)
			assert.Equal(t, tt.connected, data.Database.Connected)
		})
	}
}

// --- openapi ---

const testSpec = `openapi: "3.0.3"
info:
  title: Test API
  version: "0.0.0"
paths:
  /health:
    get:
      summary: Health check
`

func TestOpenAPIHandler_ReturnsJSONWithVersion(t *testing.T) {
	t.Parallel()

	h := handler.NewOpenAPIHandler([]byte(testSpec), "2.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	info := doc["info"].(map[string]any)
	assert.Equal(t, "Test API", info["title"])
	assert.Equal(t, "2.0.1", info["version"])
	assert.Contains(t, doc["paths"], "/health")
}

func TestOpenAPIHandler_EmptyVersionKeepsDocument(t *testing.T) {
	t.Parallel()

	h := handler.NewOpenAPIHandler([]byte(testSpec), "")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "0.0.0", doc["info"].(map[string]any)["version"])
}

func TestOpenAPIHandler_YAMLFormat(t *testing.T) {
	t.Parallel()

	h := handler.NewOpenAPIHandler([]byte(testSpec), "2.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json?format=yaml", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "version: 2.0.1")
	assert.Contains(t, w.Body.String(), "title: Test API")
}

func TestOpenAPIHandler_InvalidYAML(t *testing.T) {
	t.Parallel()

	h := handler.NewOpenAPIHandler([]byte("openapi: [unterminated"), "1.0.0")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", parseEnvelope(t, w).Error.Code)
}

// --- token ---

type mockAuthenticator struct {
	loginFn func(ctx context.Context, name, password string) (*auth.Token, error)
}

func (m *mockAuthenticator) Login(ctx context.Context, name, password string) (*auth.Token, error) {
	return m.loginFn(ctx, name, password)
}

type mockRefresher struct {
	refreshFn func(ctx context.Context, p *auth.Principal) (*auth.Token, error)
}

func (m *mockRefresher) Refresh(ctx context.Context, p *auth.Principal) (*auth.Token, error) {
	return m.refreshFn(ctx, p)
}

func TestTokenHandler_Create(t *testing.T) {
	t.Parallel()

	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	var gotName string
	h := handler.NewTokenHandler(&mockAuthenticator{
		loginFn: func(_ context.Context, name, password string) (*auth.Token, error) {
			gotName = name
			if password != "secret1" {
				return nil, auth.ErrInvalidCredentials
			}
			return &auth.Token{Value: "signed", ExpiresAt: expires}, nil
		},
	}, nil)

	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"name":"  alice ","password":"secret1"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", gotName)

	var data map[string]string
	require.NoError(t, json.Unmarshal(parseEnvelope(t, w).Data, &data))
	assert.Equal(t, map[string]string{"token": "signed", "tokenType": "Bearer", "expiresAt": "2030-01-02T03:04:05Z"}, data)

	w = httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{"name":"alice","password":"bad"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", parseEnvelope(t, w).Error.Code)

	w = httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_JSON", parseEnvelope(t, w).Error.Code)
}

func TestTokenHandler_Refresh(t *testing.T) {
	t.Parallel()

	h := handler.NewTokenHandler(nil, &mockRefresher{
		refreshFn: func(_ context.Context, p *auth.Principal) (*auth.Token, error) {
			if p.UserID == 2 {
				return nil, auth.ErrUnauthorized
			}
			return &auth.Token{Value: "fresh", ExpiresAt: time.Now()}, nil
		},
	})

	t.Run("no principal", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		h.Refresh(w, httptest.NewRequest(http.MethodGet, "/token/refresh", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("refreshed", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/token/refresh", nil)
		req = req.WithContext(middleware.WithPrincipal(req.Context(), &auth.Principal{UserID: 1}))
		w := httptest.NewRecorder()
		h.Refresh(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("user gone", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/token/refresh", nil)
		req = req.WithContext(middleware.WithPrincipal(req.Context(), &auth.Principal{UserID: 2}))
		w := httptest.NewRecorder()
		h.Refresh(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

// --- role ---

type mockRoleRepo struct {
	role.Repository
	getByIDFn func(ctx context.Context, id int64) (*role.Role, error)
	updateFn  func(ctx context.Context, id int64, f role.UpdateFields) (*role.Role, error)
	listFn    func(ctx context.Context, f role.ListFilter, req listquery.Request) (*listquery.Result[role.Role], error)
	deleteFn  func(ctx context.Context, id int64) error
}

func (m *mockRoleRepo) GetByID(ctx context.Context, id int64) (*role.Role, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockRoleRepo) Update(ctx context.Context, id int64, f role.UpdateFields) (*role.Role, error) {
	return m.updateFn(ctx, id, f)
}

func (m *mockRoleRepo) List(ctx context.Context, f role.ListFilter, req listquery.Request) (*listquery.Result[role.Role], error) {
	return m.listFn(ctx, f, req)
}

func (m *mockRoleRepo) Delete(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

type mockChecker struct {
	checkFn func(ctx context.Context, key refcheck.Key, value any) (bool, error)
}

func (m *mockChecker) Check(ctx context.Context, key refcheck.Key, value any) (bool, error) {
	return m.checkFn(ctx, key, value)
}

func (m *mockChecker) Missing(_ context.Context, _ refcheck.Key, _ []int64) ([]int64, error) {
	return nil, nil
}

func (m *mockChecker) Message(key refcheck.Key) string {
	return string(key) + " failed"
}

func allowAll() *mockChecker {
	return &mockChecker{checkFn: func(context.Context, refcheck.Key, any) (bool, error) { return true, nil }}
}

func TestRoleHandler_List(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	var gotFilter role.ListFilter
	var gotReq listquery.Request
	repo := &mockRoleRepo{
		listFn: func(_ context.Context, f role.ListFilter, req listquery.Request) (*listquery.Result[role.Role], error) {
			gotFilter, gotReq = f, req
			return &listquery.Result[role.Role]{
				Items:      []role.Role{{ID: 3, Code: "admin", Name: "Admin", Status: "active", CreatedAt: created, UpdatedAt: created}},
				TotalCount: 21,
				TotalPages: 3,
				PageIndex:  2,
				PageSize:   10,
			}, nil
		},
	}
	h := handler.NewRoleHandler(repo, allowAll())

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/roles?pageIndex=2&code=adm&sortBy=code", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, role.ListFilter{Code: "adm"}, gotFilter)
	assert.Equal(t, listquery.Request{PageIndex: 2, PageSize: listquery.DefaultPageSize, SortBy: "code"}, gotReq)
	assert.JSONEq(t, `{"totalCount":21,"totalPages":3,"pageIndex":2,"pageSize":10}`, w.Header().Get(response.PaginationHeader))

	var items []map[string]any
	require.NoError(t, json.Unmarshal(parseEnvelope(t, w).Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "admin", items[0]["code"])
	assert.Equal(t, "2024-05-06T07:08:09Z", items[0]["createdAt"])
}

func TestRoleHandler_ListRejectsNegativePage(t *testing.T) {
	t.Parallel()

	h := handler.NewRoleHandler(&mockRoleRepo{}, allowAll())
	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/roles?pageIndex=-1", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PAGE", parseEnvelope(t, w).Error.Code)
}

func TestRoleHandler_GetByID(t *testing.T) {
	t.Parallel()

	repo := &mockRoleRepo{
		getByIDFn: func(_ context.Context, id int64) (*role.Role, error) {
			if id == 1 {
				return &role.Role{ID: 1, Code: "admin"}, nil
			}
			return nil, role.ErrRoleNotFound
		},
	}
	h := handler.NewRoleHandler(repo, allowAll())

	tests := []struct {
		name     string
		id       string
		wantCode int
		wantErr  string
	}{
		{name: "found", id: "1", wantCode: http.StatusOK},
		{name: "missing", id: "2", wantCode: http.StatusNotFound, wantErr: "NOT_FOUND"},
		{name: "not a number", id: "abc", wantCode: http.StatusBadRequest, wantErr: "INVALID_ID"},
		{name: "zero", id: "0", wantCode: http.StatusBadRequest, wantErr: "INVALID_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			h.GetByID(w, makeChiRequest(http.MethodGet, "/roles/"+tt.id, "", map[string]string{"id": tt.id}))
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, parseEnvelope(t, w).Error.Code)
			}
		})
	}
}

func TestRoleHandler_PatchAppliesToCurrent(t *testing.T) {
	t.Parallel()

	var got role.UpdateFields
	repo := &mockRoleRepo{
		getByIDFn: func(_ context.Context, id int64) (*role.Role, error) {
			return &role.Role{ID: id, Code: "editor", Name: "Editor", Description: "edits", Status: "active"}, nil
		},
		updateFn: func(_ context.Context, id int64, f role.UpdateFields) (*role.Role, error) {
			got = f
			return &role.Role{ID: id, Code: f.Code, Name: f.Name, Description: f.Description, Status: f.Status}, nil
		},
	}
	checked := map[refcheck.Key]bool{}
	checker := &mockChecker{checkFn: func(_ context.Context, key refcheck.Key, _ any) (bool, error) {
		checked[key] = true
		return true, nil
	}}
	h := handler.NewRoleHandler(repo, checker)

	w := httptest.NewRecorder()
	h.Patch(w, makeChiRequest(http.MethodPatch, "/roles/4",
		`[{"op":"replace","path":"/name","value":"Writer"}]`, map[string]string{"id": "4"}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, role.UpdateFields{Code: "editor", Name: "Writer", Description: "edits", Status: "active"}, got)
	assert.False(t, checked[refcheck.RoleCode], "unchanged code must not be re-checked")
}

func TestRoleHandler_PatchErrors(t *testing.T) {
	t.Parallel()

	repo := &mockRoleRepo{
		getByIDFn: func(_ context.Context, id int64) (*role.Role, error) {
			return &role.Role{ID: id, Code: "editor", Name: "Editor"}, nil
		},
	}
	h := handler.NewRoleHandler(repo, allowAll())

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "not a patch", body: `{"name":"x"}`, wantCode: http.StatusBadRequest, wantErr: "INVALID_PATCH"},
		{name: "missing path", body: `[{"op":"remove","path":"/nope"}]`, wantCode: http.StatusBadRequest, wantErr: "INVALID_PATCH"},
		{name: "wrong type", body: `[{"op":"replace","path":"/name","value":5}]`, wantCode: http.StatusBadRequest, wantErr: "INVALID_PATCH"},
		{name: "blank name", body: `[{"op":"replace","path":"/name","value":" "}]`, wantCode: http.StatusUnprocessableEntity, wantErr: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			h.Patch(w, makeChiRequest(http.MethodPatch, "/roles/1", tt.body, map[string]string{"id": "1"}))
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tt.wantErr, parseEnvelope(t, w).Error.Code)
		})
	}
}

func TestRoleHandler_DeleteInUse(t *testing.T) {
	t.Parallel()

	repo := &mockRoleRepo{
		deleteFn: func(context.Context, int64) error { return role.ErrRoleInUse },
	}
	h := handler.NewRoleHandler(repo, allowAll())

	w := httptest.NewRecorder()
	h.Delete(w, makeChiRequest(http.MethodDelete, "/roles/1", "", map[string]string{"id": "1"}))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", parseEnvelope(t, w).Error.Code)
}

func TestRoleHandler_BatchDelete(t *testing.T) {
	t.Parallel()

	t.Run("skips missing and referenced roles", func(t *testing.T) {
		t.Parallel()
		var seen []int64
		repo := &mockRoleRepo{
			deleteFn: func(_ context.Context, id int64) error {
				seen = append(seen, id)
				switch id {
				case 2:
					return role.ErrRoleNotFound
				case 3:
					return role.ErrRoleInUse
				}
				return nil
			},
		}
		h := handler.NewRoleHandler(repo, allowAll())

		w := httptest.NewRecorder()
		h.BatchDelete(w, makeChiRequest(http.MethodPost, "/roles/batch-delete", `{"ids":[1,2,3,4]}`, nil))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var data struct {
			Deleted int64   `json:"deleted"`
			Skipped []int64 `json:"skipped"`
		}
		require.NoError(t, json.Unmarshal(parseEnvelope(t, w).Data, &data))
		assert.Equal(t, int64(2), data.Deleted)
		assert.Equal(t, []int64{2, 3}, data.Skipped)
		assert.Equal(t, []int64{1, 2, 3, 4}, seen)
	})

	t.Run("store failure stops the batch", func(t *testing.T) {
		t.Parallel()
		calls := 0
		repo := &mockRoleRepo{
			deleteFn: func(context.Context, int64) error {
				calls++
				return errors.New("db down")
			},
		}
		h := handler.NewRoleHandler(repo, allowAll())

		w := httptest.NewRecorder()
		h.BatchDelete(w, makeChiRequest(http.MethodPost, "/roles/batch-delete", `{"ids":[1,2]}`, nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, 1, calls)
	})

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()
		h := handler.NewRoleHandler(&mockRoleRepo{}, allowAll())

		w := httptest.NewRecorder()
		h.BatchDelete(w, makeChiRequest(http.MethodPost, "/roles/batch-delete", `{"ids":[]}`, nil))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
