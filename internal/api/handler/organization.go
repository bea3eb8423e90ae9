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
	"github.com/webbase/adminapi/internal/organization"
)

type organizationRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	ParentID    int64  `json:"parentId"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type organizationResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	ParentID    int64  `json:"parentId"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type organizationNode struct {
	organizationResponse
	Children []organizationNode `json:"children"`
}

// OrganizationHandler handles organization endpoints.
type OrganizationHandler struct {
	repo    organization.Repository
	checker validation.Checker
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(repo organization.Repository, checker validation.Checker) *OrganizationHandler {
	return &OrganizationHandler{repo: repo, checker: checker}
}

func organizationErr(err error) error {
	switch {
	case errors.Is(err, organization.ErrOrganizationNotFound):
		return apperr.NotFound("Organization not found")
	case errors.Is(err, organization.ErrOrganizationInUse):
		return apperr.Conflict("organization is still referenced")
	case errors.Is(err, organization.ErrSelfParent):
		return apperr.ClientInput("VALIDATION_ERROR", err, "organization cannot be its own parent")
	default:
		return err
	}
}

// List handles GET /orgs.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	req, err := listquery.ParseRequest(r.URL.Query())
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	q := r.URL.Query()
	parentID, err := queryInt64(q, "parentId")
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	res, err := h.repo.List(r.Context(), organization.ListFilter{
		Code:     q.Get("code"),
		Name:     q.Get("name"),
		Status:   q.Get("status"),
		ParentID: parentID,
	}, req)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	items := make([]organizationResponse, 0, len(res.Items))
	if err := copyInto(&items, res.Items); err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Page(w, response.PaginationOf(res), items, requestID)
}

// Tree handles GET /orgs/tree.
func (h *OrganizationHandler) Tree(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	roots, err := h.repo.Tree(r.Context())
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	tree, err := toNodes(roots)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, tree, requestID)
}

func toNodes(nodes []*organization.Node) ([]organizationNode, error) {
	out := make([]organizationNode, 0, len(nodes))
	for _, n := range nodes {
		var node organizationNode
		if err := copyInto(&node.organizationResponse, &n.Organization); err != nil {
			return nil, err
		}
		children, err := toNodes(n.Children)
		if err != nil {
			return nil, err
		}
		node.Children = children
		out = append(out, node)
	}
	return out, nil
}

// GetByID handles GET /orgs/{id}.
func (h *OrganizationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	o, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, organizationErr(err), requestID)
		return
	}

	h.write(w, http.StatusOK, o, requestID)
}

// Create handles POST /orgs.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req organizationRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}
	if !h.validate(w, r, &req, requestID) {
		return
	}

	o := &organization.Organization{}
	if err := copyInto(o, &req); err != nil {
		response.Error(w, err, requestID)
		return
	}
	if o.Status == "" {
		o.Status = defaultStatus
	}

	created, err := h.repo.Create(r.Context(), o)
	if err != nil {
		response.Error(w, organizationErr(err), requestID)
		return
	}

	h.write(w, http.StatusCreated, created, requestID)
}

// Update handles PUT /orgs/{id}.
func (h *OrganizationHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	var req organizationRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	h.replace(w, r, id, req, requestID)
}

// Patch handles PATCH /orgs/{id}.
func (h *OrganizationHandler) Patch(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	current, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, organizationErr(err), requestID)
		return
	}

	var doc organizationRequest
	if err := copyInto(&doc, current); err != nil {
		response.Error(w, err, requestID)
		return
	}
	var patched organizationRequest
	if !applyPatch(w, r, doc, &patched, requestID) {
		return
	}

	h.replace(w, r, id, patched, requestID)
}

func (h *OrganizationHandler) replace(w http.ResponseWriter, r *http.Request, id int64, req organizationRequest, requestID string) {
	if !h.validate(w, r, &req, requestID) {
		return
	}

	updated, err := h.repo.Update(r.Context(), id, organization.UpdateFields(req))
	if err != nil {
		response.Error(w, organizationErr(err), requestID)
		return
	}

	h.write(w, http.StatusOK, updated, requestID)
}

func (h *OrganizationHandler) validate(w http.ResponseWriter, r *http.Request, req *organizationRequest, requestID string) bool {
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)

	errs, err := validation.ValidateOrganization(r.Context(), h.checker, validation.OrganizationRequest{
		Code:     req.Code,
		Name:     req.Name,
		ParentID: req.ParentID,
		Status:   req.Status,
	})
	return !validationFailed(w, errs, err, requestID)
}

// Delete handles DELETE /orgs/{id}. An organization with sub-organizations
// or users is rejected with the reference counts.
func (h *OrganizationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := parseID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		response.Error(w, organizationErr(err), requestID)
		return
	}

	response.NoContent(w)
}

func (h *OrganizationHandler) write(w http.ResponseWriter, status int, o *organization.Organization, requestID string) {
	var resp organizationResponse
	if err := copyInto(&resp, o); err != nil {
		response.Error(w, err, requestID)
		return
	}
	response.Success(w, status, resp, requestID)
}
