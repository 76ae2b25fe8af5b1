package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/apihub/internal/api/middleware"
	"github.com/edvin/apihub/internal/api/request"
	"github.com/edvin/apihub/internal/api/response"
	"github.com/edvin/apihub/internal/core"
	"github.com/edvin/apihub/internal/model"
)

// AccessToken handles personal access token management endpoints.
type AccessToken struct {
	svc *core.AccessTokenService
}

// NewAccessToken creates a new AccessToken handler.
func NewAccessToken(svc *core.AccessTokenService) *AccessToken {
	return &AccessToken{svc: svc}
}

// Create mints a new access token. The full token string is returned once
// in the response and cannot be recovered afterwards.
func (h *AccessToken) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAccessToken
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	scope := model.TokenScope{
		Kind:         req.Scope.Kind,
		TeamID:       req.Scope.TeamID,
		ResourceKind: req.Scope.ResourceKind,
		ResourceID:   req.Scope.ResourceID,
	}
	var ttl *time.Duration
	if req.ExpiresInDays != nil {
		d := time.Duration(*req.ExpiresInDays) * 24 * time.Hour
		ttl = &d
	}

	tok, external, err := h.svc.Mint(r.Context(), mw.UserID(r.Context()), req.Label, scope, ttl)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidScope):
			response.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, core.ErrNotTeamMember):
			response.WriteError(w, http.StatusForbidden, err.Error())
		default:
			response.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := map[string]any{
		"id":         tok.ID,
		"label":      tok.Label,
		"token":      external,
		"scope_kind": tok.ScopeKind,
		"team_id":    tok.TeamID,
		"created_at": tok.CreatedAt,
	}
	if tok.ResourceKind != nil {
		resp["resource_kind"] = tok.ResourceKind
		resp["resource_id"] = tok.ResourceID
	}
	if tok.ExpiresAt != nil {
		resp["expires_at"] = tok.ExpiresAt
	}
	response.WriteJSON(w, http.StatusCreated, resp)
}

// List lists the requesting user's tokens, newest first.
func (h *AccessToken) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.svc.List(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tokens == nil {
		tokens = []model.AccessToken{}
	}
	response.WriteJSON(w, http.StatusOK, tokens)
}

// Rename updates a token's label.
func (h *AccessToken) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateAccessToken
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tok, err := h.svc.Rename(r.Context(), id, mw.UserID(r.Context()), req.Label)
	if err != nil {
		writeManageError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, tok)
}

// Revoke deletes an access token.
func (h *AccessToken) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Revoke(r.Context(), id, mw.UserID(r.Context())); err != nil {
		writeManageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeManageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrForbidden):
		response.WriteError(w, http.StatusForbidden, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
