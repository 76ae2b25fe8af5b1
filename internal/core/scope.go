package core

import (
	"context"
	"fmt"

	"github.com/edvin/apihub/internal/model"
)

// RequestedAccess describes the operation a presented token is trying to
// perform. ResourceKind and ResourceID are empty for team-level operations.
type RequestedAccess struct {
	TeamID       string
	ResourceKind string
	ResourceID   string
}

// ScopeResolver decides whether a token's recorded scope authorizes a
// requested operation. Checks are conjunctive and the first failure
// short-circuits with its specific reason.
type ScopeResolver struct {
	members   MembershipChecker
	resources ResourceAccessChecker
}

// NewScopeResolver creates a ScopeResolver over the given collaborators.
func NewScopeResolver(members MembershipChecker, resources ResourceAccessChecker) *ScopeResolver {
	return &ScopeResolver{members: members, resources: resources}
}

// Authorize returns nil when the token may perform the requested access.
// Denials wrap ErrUnauthorized with a specific reason; collaborator
// failures are returned as infrastructure errors and do not match the
// auth taxonomy.
func (r *ScopeResolver) Authorize(ctx context.Context, tok *model.AccessToken, req RequestedAccess) error {
	if tok.TeamID != req.TeamID {
		return ErrScopeMismatch
	}

	// Membership is re-verified on every validation so a token goes dead
	// the moment its owner leaves the team, even though the stored record
	// is unchanged.
	member, err := r.members.IsMember(ctx, tok.OwnerUserID, tok.TeamID)
	if err != nil {
		return fmt.Errorf("verify membership for token %s: %w", tok.ID, err)
	}
	if !member {
		return ErrMembershipRevoked
	}

	if tok.ScopeKind == model.ScopeKindTeamResource {
		if req.ResourceKind == "" ||
			tok.ResourceKind == nil || *tok.ResourceKind != req.ResourceKind ||
			tok.ResourceID == nil || *tok.ResourceID != req.ResourceID {
			return ErrResourceScopeMismatch
		}
	}

	// The token is only as powerful as its owner: fine-grained access is
	// delegated to the team resource tables using the owner's own
	// effective permissions. The check is bound to the token's team so a
	// resource the owner reaches through some other team stays denied.
	if req.ResourceKind != "" {
		ok, err := r.resources.CanAccess(ctx, tok.OwnerUserID, tok.TeamID, req.ResourceKind, req.ResourceID)
		if err != nil {
			return fmt.Errorf("check resource access for token %s: %w", tok.ID, err)
		}
		if !ok {
			return ErrResourceForbidden
		}
	}

	return nil
}
