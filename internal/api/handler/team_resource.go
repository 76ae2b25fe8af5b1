package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/apihub/internal/api/request"
	"github.com/edvin/apihub/internal/api/response"
	"github.com/edvin/apihub/internal/core"
)

// TeamResource serves token-guarded reads of team collections and
// environments. Authorization happens in the token middleware before these
// handlers run.
type TeamResource struct {
	svc *core.TeamService
}

// NewTeamResource creates a new TeamResource handler.
func NewTeamResource(svc *core.TeamService) *TeamResource {
	return &TeamResource{svc: svc}
}

// GetCollection retrieves a team collection by ID. The lookup is scoped to
// the team in the URL, so an ID belonging to another team reads as absent.
func (h *TeamResource) GetCollection(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.svc.GetCollectionByID(r.Context(), chi.URLParam(r, "teamID"), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if c == nil {
		response.WriteError(w, http.StatusNotFound, "collection not found")
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

// GetEnvironment retrieves a team environment by ID.
func (h *TeamResource) GetEnvironment(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.svc.GetEnvironmentByID(r.Context(), chi.URLParam(r, "teamID"), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if e == nil {
		response.WriteError(w, http.StatusNotFound, "environment not found")
		return
	}
	response.WriteJSON(w, http.StatusOK, e)
}
