package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/webbase/adminapi/internal/api/middleware"
	"github.com/webbase/adminapi/internal/api/response"
	"github.com/webbase/adminapi/internal/api/validation"
	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/auth"
	"github.com/webbase/adminapi/internal/listquery"
	"github.com/webbase/adminapi/internal/refcheck"
	"github.com/webbase/adminapi/internal/user"
)

const defaultStatus = "active"

type userRequest struct {
	Name           string `json:"name"`
	Password       string `json:"password,omitempty"`
	OrganizationID int64  `json:"organizationId"`
	RoleID         int64  `json:"roleId"`
	Status         string `json:"status"`
}

type userResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	OrganizationID   int64  `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
	RoleID           int64  `json:"roleId"`
	RoleCode         string `json:"roleCode"`
	RoleName         string `json:"roleName"`
	Status           string `json:"status"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// Passwords hashes and replaces user passwords.
type Passwords interface {
	HashPassword(password string) (string, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, userID int64, newPassword string) error
}

// UserHandler handles user endpoints.
type UserHandler struct {
	repo      user.Repository
	passwords Passwords
	checker   validation.Checker
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(repo user.Repository, passwords Passwords, checker validation.Checker) *UserHandler {
	return &UserHandler{
		repo:      repo,
		passwords: passwords,
		checker:   checker,
	}
}

func userErr(err error) error {
	switch {
	case errors.Is(err, user.ErrUserNotFound):
		return apperr.NotFound("User not found")
	case errors.Is(err, user.ErrDuplicateUserName):
		return apperr.Conflict("user name already exists")
	case errors.Is(err, user.ErrInvalidReference):
		return apperr.ClientInput("VALIDATION_ERROR", err, "role or organization does not exist")
	default:
		return err
	}
}

func toUserResponse(u *user.User) (userResponse, error) {
	var resp userResponse
	err := copyInto(&resp, u)
	return resp, err
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	filter, err := userFilter(r)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	h.list(w, r, filter, requestID)
}

// ListByOrganization handles GET /orgs/{id}/users.
func (h *UserHandler) ListByOrganization(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	orgID, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	exists, err := h.checker.Check(r.Context(), refcheck.UserOrganization, orgID)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	if !exists {
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "Organization not found", requestID)
		return
	}

	filter, err := userFilter(r)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	filter.OrganizationID = orgID
	h.list(w, r, filter, requestID)
}

func userFilter(r *http.Request) (user.ListFilter, error) {
	q := r.URL.Query()
	filter := user.ListFilter{Name: q.Get("name"), Status: q.Get("status")}

	var err error
	if filter.RoleID, err = queryInt64(q, "roleId"); err != nil {
		return filter, err
	}
	if filter.OrganizationID, err = queryInt64(q, "organizationId"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request, filter user.ListFilter, requestID string) {
	req, err := listquery.ParseRequest(r.URL.Query())
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	res, err := h.repo.List(r.Context(), filter, req)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]userResponse, 0, len(res.Items))
	if err := copyInto(&items, res.Items); err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Page(w, response.PaginationOf(res), items, requestID)
}

// GetByID handles GET /users/{id}.
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	u, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, userErr(err), requestID)
		return
	}

	h.write(w, http.StatusOK, u, requestID)
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req userRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	errs, err := validation.ValidateCreateUser(r.Context(), h.checker, validation.UserRequest{
		Name:           req.Name,
		Password:       req.Password,
		OrganizationID: req.OrganizationID,
		RoleID:         req.RoleID,
		Status:         req.Status,
	})
	if validationFailed(w, errs, err, requestID) {
		return
	}

	hash, err := h.passwords.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		response.Error(w, err, requestID)
		return
	}

	u := &user.User{
		Name:           req.Name,
		PasswordHash:   hash,
		OrganizationID: req.OrganizationID,
		RoleID:         req.RoleID,
		Status:         req.Status,
	}
	if u.Status == "" {
		u.Status = defaultStatus
	}

	created, err := h.repo.Create(r.Context(), u)
	if err != nil {
		response.Error(w, userErr(err), requestID)
		return
	}

	h.write(w, http.StatusCreated, created, requestID)
}

// Update handles PUT /users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	var req userRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	current, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, userErr(err), requestID)
		return
	}

	h.replace(w, r, current, req, requestID)
}

// Patch handles PATCH /users/{id} with an RFC 6902 document applied to
// {name, organizationId, roleId, status}.
func (h *UserHandler) Patch(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	current, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, userErr(err), requestID)
		return
	}

	var req userRequest
	if err := copyInto(&req, current); err != nil {
		response.Error(w, err, requestID)
		return
	}
	var patched userRequest
	if !applyPatch(w, r, req, &patched, requestID) {
		return
	}

	h.replace(w, r, current, patched, requestID)
}

func (h *UserHandler) replace(w http.ResponseWriter, r *http.Request, current *user.User, req userRequest, requestID string) {
	req.Name = strings.TrimSpace(req.Name)

	errs, err := validation.ValidateUpdateUser(r.Context(), h.checker, current.Name, validation.UserRequest{
		Name:           req.Name,
		OrganizationID: req.OrganizationID,
		RoleID:         req.RoleID,
		Status:         req.Status,
	})
	if validationFailed(w, errs, err, requestID) {
		return
	}

	updated, err := h.repo.Update(r.Context(), current.ID, user.UpdateFields{
		Name:           req.Name,
		OrganizationID: req.OrganizationID,
		RoleID:         req.RoleID,
		Status:         req.Status,
	})
	if err != nil {
		response.Error(w, userErr(err), requestID)
		return
	}

	h.write(w, http.StatusOK, updated, requestID)
}

// Delete handles DELETE /users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		response.Error(w, userErr(err), requestID)
		return
	}

	response.NoContent(w)
}

// BatchDelete handles POST /users/batch-delete. Unknown ids are skipped; the
// response reports how many users were removed.
func (h *UserHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req batchDeleteRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateBatchIDs(req.IDs), nil, requestID) {
		return
	}

	n, err := h.repo.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, batchDeleteResponse{Deleted: n}, requestID)
}

// ChangePassword handles PUT /password for the authenticated caller.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateChangePassword(req.OldPassword, req.NewPassword), nil, requestID) {
		return
	}

	err := h.passwords.ChangePassword(r.Context(), p.UserID, req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			response.ErrWithDetails(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Input validation failed",
				[]validation.FieldError{{Field: "oldPassword", Message: err.Error()}}, requestID)
			return
		}
		response.Error(w, userErr(err), requestID)
		return
	}

	response.NoContent(w)
}

// ResetPassword handles PUT /users/{id}/password.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	var req resetPasswordRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if validationFailed(w, validation.ValidateResetPassword(req.NewPassword), nil, requestID) {
		return
	}

	if err := h.passwords.ResetPassword(r.Context(), id, req.NewPassword); err != nil {
		response.Error(w, userErr(err), requestID)
		return
	}

	response.NoContent(w)
}

func (h *UserHandler) write(w http.ResponseWriter, status int, u *user.User, requestID string) {
	resp, err := toUserResponse(u)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}
	response.Success(w, status, resp, requestID)
}
