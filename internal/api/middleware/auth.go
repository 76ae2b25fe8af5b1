package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/apihub/internal/api/response"
	"github.com/edvin/apihub/internal/core"
)

type contextKey string

const (
	userIDKey        contextKey = "user_id"
	tokenIdentityKey contextKey = "token_identity"
)

// TokenIdentity holds the identity established by a validated access token.
type TokenIdentity struct {
	TokenID string
	UserID  string
	TeamID  string
}

// UserAuth requires the X-Auth-User header set by the authenticating
// gateway in front of this service. Session handling itself lives there.
func UserAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-Auth-User")
		if userID == "" {
			response.WriteError(w, http.StatusUnauthorized, "missing user identity")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID extracts the authenticated user id from the request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID returns a context carrying an authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// TokenAuth validates the bearer access token against the access requested
// by the route: the {teamID} URL param plus, when resourceKind is non-empty,
// the {id} param as the target resource. Every failure class gets the same
// response so callers cannot probe which tokens exist.
func TokenAuth(svc *core.AccessTokenService, resourceKind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := bearerToken(r)
			if presented == "" {
				response.WriteError(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			req := core.RequestedAccess{TeamID: chi.URLParam(r, "teamID")}
			if resourceKind != "" {
				req.ResourceKind = resourceKind
				req.ResourceID = chi.URLParam(r, "id")
			}

			tok, err := svc.Validate(r.Context(), presented, req)
			if err != nil {
				response.WriteError(w, http.StatusUnauthorized, "invalid access token")
				return
			}

			identity := &TokenIdentity{TokenID: tok.ID, UserID: tok.OwnerUserID, TeamID: tok.TeamID}
			ctx := context.WithValue(r.Context(), tokenIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTokenIdentity extracts the validated token identity from the request
// context.
func GetTokenIdentity(ctx context.Context) *TokenIdentity {
	identity, _ := ctx.Value(tokenIdentityKey).(*TokenIdentity)
	return identity
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
