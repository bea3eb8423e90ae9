package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/webbase/adminapi/internal/api/middleware"
	"github.com/webbase/adminapi/internal/api/response"
	"github.com/webbase/adminapi/internal/api/validation"
	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/role"
)

type roleRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type roleResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type rolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permissionIds"`
}

type rolePermissionsResponse struct {
	RoleID        int64   `json:"roleId"`
	PermissionIDs []int64 `json:"permissionIds"`
}

// RoleHandler handles role endpoints.
type RoleHandler struct {
	repo    role.Repository
	checker validation.Checker
}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler(repo role.Repository, checker validation.Checker) *RoleHandler {
	return &RoleHandler{repo: repo, checker: checker}
}

func roleErr(err error) error {
	switch {
	case errors.Is(err, role.ErrRoleNotFound):
		return apperr.NotFound("Role not found")
	case errors.Is(err, role.ErrDuplicateRoleCode):
		return apperr.Conflict("role code already exists")
	case errors.Is(err, role.ErrRoleInUse):
		return apperr.Conflict("role is still referenced")
	case errors.Is(err, role.ErrUnknownPermission):
		return apperr.ClientInput("VALIDATION_ERROR", err, "permission does not exist")
	default:
		return err
	}
}

// List handles GET /roles.
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	req, err := listquery.ParseRequest(r.URL.Query())
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	q := r.URL.Query()
	res, err := h.repo.List(r.Context(), role.ListFilter{
		Code:   q.Get("code"),
		Name:   q.Get("name"),
		Status: q.Get("status"),
	}, req)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]roleResponse, 0, len(res.Items))
	if err := copyInto(&items, res.Items); err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Page(w, response.PaginationOf(res), items, requestID)
}

// GetByID handles GET /roles/{id}.
func (h *RoleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	ro, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	h.write(w, http.StatusOK, ro, requestID)
}

// Create handles POST /roles.
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req roleRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	req.Code = strings.TrimSpace(req.Code)

	errs, err := validation.ValidateRole(r.Context(), h.checker, "", validation.RoleRequest(req))
	if validationFailed(w, errs, err, requestID) {
		return
	}

	ro := &role.Role{}
	if err := copyInto(ro, &req); err != nil {
		response.Error(w, err, requestID)
		return
	}
	if ro.Status == "" {
		ro.Status = defaultStatus
	}

	created, err := h.repo.Create(r.Context(), ro)
	if err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	h.write(w, http.StatusCreated, created, requestID)
}

// Update handles PUT /roles/{id}.
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	var req roleRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	current, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	h.replace(w, r, current, req, requestID)
}

// Patch handles PATCH /roles/{id}.
func (h *RoleHandler) Patch(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	current, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	var doc roleRequest
	if err := copyInto(&doc, current); err != nil {
		response.Error(w, err, requestID)
		return
	}
	var patched roleRequest
	if !applyPatch(w, r, doc, &patched, requestID) {
		return
	}

	h.replace(w, r, current, patched, requestID)
}

func (h *RoleHandler) replace(w http.ResponseWriter, r *http.Request, current *role.Role, req roleRequest, requestID string) {
	req.Code = strings.TrimSpace(req.Code)

	errs, err := validation.ValidateRole(r.Context(), h.checker, current.Code, validation.RoleRequest(req))
	if validationFailed(w, errs, err, requestID) {
		return
	}

	updated, err := h.repo.Update(r.Context(), current.ID, role.UpdateFields(req))
	if err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	h.write(w, http.StatusOK, updated, requestID)
}

// Delete handles DELETE /roles/{id}. A role still held by users or granted
// permissions is rejected with the reference counts.
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	response.NoContent(w)
}

// BatchDelete handles POST /roles/batch-delete. Roles that do not exist or
// are still assigned are skipped.
func (h *RoleHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	batchDelete(w, r, h.repo.Delete, roleErr, middleware.GetRequestID(r.Context()))
}

// Permissions handles GET /roles/{id}/permissions.
func (h *RoleHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	ids, err := h.repo.PermissionIDs(r.Context(), id)
	if err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	response.Success(w, http.StatusOK, rolePermissionsResponse{RoleID: id, PermissionIDs: ids}, requestID)
}

// SetPermissions handles PUT /roles/{id}/permissions, replacing the grant
// set in one transaction.
func (h *RoleHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	var req rolePermissionsRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	errs, err := validation.ValidatePermissionIDs(r.Context(), h.checker, req.PermissionIDs)
	if validationFailed(w, errs, err, requestID) {
		return
	}

	if err := h.repo.SetPermissions(r.Context(), id, req.PermissionIDs); err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	ids, err := h.repo.PermissionIDs(r.Context(), id)
	if err != nil {
		response.Error(w, roleErr(err), requestID)
		return
	}

	response.Success(w, http.StatusOK, rolePermissionsResponse{RoleID: id, PermissionIDs: ids}, requestID)
}

func (h *RoleHandler) write(w http.ResponseWriter, status int, ro *role.Role, requestID string) {
	var resp roleResponse
	if err := copyInto(&resp, ro); err != nil {
		response.Error(w, err, requestID)
		return
	}
	response.Success(w, status, resp, requestID)
}
