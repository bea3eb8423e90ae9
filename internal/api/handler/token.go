package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/webbase/adminapi/internal/api/middleware"
	"github.com/webbase/adminapi/internal/api/response"
	"github.com/webbase/adminapi/internal/api/validation"
	"github.com/webbase/adminapi/internal/auth"
)

type tokenRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresAt string `json:"expiresAt"`
}

// Authenticator verifies credentials and issues a token.
type Authenticator interface {
	Login(ctx context.Context, name, password string) (*auth.Token, error)
}

// Refresher re-issues a token for an authenticated principal.
type Refresher interface {
	Refresh(ctx context.Context, p *auth.Principal) (*auth.Token, error)
}

// TokenHandler handles token issue and refresh.
type TokenHandler struct {
	login   Authenticator
	refresh Refresher
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(login Authenticator, refresh Refresher) *TokenHandler {
	return &TokenHandler{login: login, refresh: refresh}
}

// Create handles POST /token.
func (h *TokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req tokenRequest
	if !decodeJSON(w, r, &req, requestID) {
		return
	}

	var errs []validation.FieldError
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, validation.FieldError{Field: "name", Message: "name is required"})
	}
	if req.Password == "" {
		errs = append(errs, validation.FieldError{Field: "password", Message: "password is required"})
	}
	if validationFailed(w, errs, nil, requestID) {
		return
	}

	tok, err := h.login.Login(r.Context(), strings.TrimSpace(req.Name), req.Password)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toTokenResponse(tok), requestID)
}

// Refresh handles GET /token/refresh. The role is re-read from the store so
// a role change takes effect in the new token.
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
		return
	}

	tok, err := h.refresh.Refresh(r.Context(), p)
	if err != nil {
		response.Error(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toTokenResponse(tok), requestID)
}

func toTokenResponse(tok *auth.Token) tokenResponse {
	return tokenResponse{
		Token:     tok.Value,
		TokenType: "Bearer",
		ExpiresAt: tok.ExpiresAt.UTC().Format(timeLayout),
	}
}
