package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeamResourceGetCollection_EmptyID(t *testing.T) {
	h := NewTeamResource(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/teams/team1/collections/", nil)
	r = withChiURLParam(r, "id", "")

	h.GetCollection(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "missing required ID")
}

func TestTeamResourceGetEnvironment_EmptyID(t *testing.T) {
	h := NewTeamResource(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/teams/team1/environments/", nil)
	r = withChiURLParam(r, "id", "")

	h.GetEnvironment(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
