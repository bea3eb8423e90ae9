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
	"github.com/webbase/adminapi/internal/permission"
)

type permissionRequest struct {
	Code        string `json:"code"`
	Action      string `json:"action"`
	Name        string `json:"name"`
	ParentID    int64  `json:"parentId"`
	Icon        string `json:"icon"`
	Path        string `json:"path"`
	Property    string `json:"property"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Status      string `json:"status"`
}

type permissionResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Action      string `json:"action"`
	Name        string `json:"name"`
	ParentID    int64  `json:"parentId"`
	Icon        string `json:"icon"`
	Path        string `json:"path"`
	Property    string `json:"property"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// PermissionHandler handles permission endpoints.
type PermissionHandler struct {
	repo    permission.Repository
	checker validation.Checker
}

// NewPermissionHandler creates a new PermissionHandler.
func NewPermissionHandler(repo permission.Repository, checker validation.Checker) *PermissionHandler {
	return &PermissionHandler{repo: repo, checker: checker}
}

func permissionErr(err error) error {
	switch {
	case errors.Is(err, permission.ErrPermissionNotFound):
		return apperr.NotFound("Permission not found")
	case errors.Is(err, permission.ErrPermissionInUse):
		return apperr.Conflict("permission is still referenced")
	case errors.Is(err, permission.ErrSelfParent):
		return apperr.ClientInput("VALIDATION_ERROR", err, "permission cannot be its own parent")
	default:
		return err
	}
}

// List handles GET /permissions.
func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	parentID, err := queryInt64(r.URL.Query(), "parentId")
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	h.list(w, r, parentID, requestID)
}

// Children handles GET /permissions/{id}/children.
func (h *PermissionHandler) Children(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		response.Error(w, permissionErr(err), requestID)
		return
	}
	h.list(w, r, id, requestID)
}

func (h *PermissionHandler) list(w http.ResponseWriter, r *http.Request, parentID int64, requestID string) {
	req, err := listquery.ParseRequest(r.URL.Query())
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	q := r.URL.Query()
	res, err := h.repo.List(r.Context(), permission.ListFilter{
		Name:     q.Get("name"),
		Status:   q.Get("status"),
		ParentID: parentID,
	}, req)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]permissionResponse, 0, len(res.Items))
	if err := copyInto(&items, res.Items); err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Page(w, response.PaginationOf(res), items, requestID)
}

// GetByID handles GET /permissions/{id}.
func (h *PermissionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, permissionErr(err), requestID)
		return
	}

	h.write(w, http.StatusOK, p, requestID)
}

// Create handles POST /permissions.
func (h *PermissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req permissionRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if !h.validate(w, r, &req, requestID) {
		return
	}

	p := &permission.Permission{}
	if err := copyInto(p, &req); err != nil {
		response.Error(w, err, requestID)
		return
	}
	if p.Status == "" {
		p.Status = defaultStatus
	}

	created, err := h.repo.Create(r.Context(), p)
	if err != nil {
		response.Error(w, permissionErr(err), requestID)
		return
	}

	h.write(w, http.StatusCreated, created, requestID)
}

// Update handles PUT /permissions/{id}.
func (h *PermissionHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	var req permissionRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	h.replace(w, r, id, req, requestID)
}

// Patch handles PATCH /permissions/{id}.
func (h *PermissionHandler) Patch(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	current, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, permissionErr(err), requestID)
		return
	}

	var doc permissionRequest
	if err := copyInto(&doc, current); err != nil {
		response.Error(w, err, requestID)
		return
	}
	var patched permissionRequest
	if !applyPatch(w, r, doc, &patched, requestID) {
		return
	}

	h.replace(w, r, id, patched, requestID)
}

func (h *PermissionHandler) replace(w http.ResponseWriter, r *http.Request, id int64, req permissionRequest, requestID string) {
	if !h.validate(w, r, &req, requestID) {
		return
	}

	var fields permission.UpdateFields
	if err := copyInto(&fields, &req); err != nil {
		response.Error(w, err, requestID)
		return
	}

	updated, err := h.repo.Update(r.Context(), id, fields)
	if err != nil {
		response.Error(w, permissionErr(err), requestID)
		return
	}

	h.write(w, http.StatusOK, updated, requestID)
}

func (h *PermissionHandler) validate(w http.ResponseWriter, r *http.Request, req *permissionRequest, requestID string) bool {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)

	errs, err := validation.ValidatePermission(r.Context(), h.checker, validation.PermissionRequest{
		Code:     req.Code,
		Action:   req.Action,
		Name:     req.Name,
		ParentID: req.ParentID,
		Path:     req.Path,
		Status:   req.Status,
	})
	return !validationFailed(w, errs, err, requestID)
}

// Delete handles DELETE /permissions/{id}. A permission with children or
// role grants is rejected with the reference counts.
func (h *PermissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		response.Error(w, permissionErr(err), requestID)
		return
	}

	response.NoContent(w)
}

// BatchDelete handles POST /permissions/batch-delete. Permissions with
// children or granted to a role are skipped, as are unknown ids.
func (h *PermissionHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	batchDelete(w, r, h.repo.Delete, permissionErr, middleware.GetRequestID(r.Context()))
}

func (h *PermissionHandler) write(w http.ResponseWriter, status int, p *permission.Permission, requestID string) {
	var resp permissionResponse
	if err := copyInto(&resp, p); err != nil {
		response.Error(w, err, requestID)
		return
	}
	response.Success(w, status, resp, requestID)
}
