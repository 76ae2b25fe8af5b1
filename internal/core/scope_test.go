package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/apihub/internal/model"
)

func strPtr(s string) *string { return &s }

func teamToken() *model.AccessToken {
	return &model.AccessToken{
		ID:          "tok1",
		OwnerUserID: "user1",
		ScopeKind:   model.ScopeKindTeam,
		TeamID:      "team1",
	}
}

func resourceToken() *model.AccessToken {
	return &model.AccessToken{
		ID:           "tok2",
		OwnerUserID:  "user1",
		ScopeKind:    model.ScopeKindTeamResource,
		TeamID:       "team1",
		ResourceKind: strPtr(model.ResourceKindCollection),
		ResourceID:   strPtr("col1"),
	}
}

func TestAuthorize_TeamMismatch(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)

	err := r.Authorize(context.Background(), teamToken(), RequestedAccess{TeamID: "team2"})
	assert.ErrorIs(t, err, ErrScopeMismatch)
	assert.ErrorIs(t, err, ErrUnauthorized)
	// Short-circuits before consulting collaborators.
	members.AssertNotCalled(t, "IsMember")
}

func TestAuthorize_MembershipRevoked(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(false, nil)

	err := r.Authorize(ctx, teamToken(), RequestedAccess{TeamID: "team1"})
	assert.ErrorIs(t, err, ErrMembershipRevoked)
	members.AssertExpectations(t)
}

func TestAuthorize_MembershipCheckError(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(false, errors.New("db down"))

	err := r.Authorize(ctx, teamToken(), RequestedAccess{TeamID: "team1"})
	require.Error(t, err)
	// Infrastructure failures are not authorization denials.
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestAuthorize_TeamScope_TeamLevelAccess(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(true, nil)

	err := r.Authorize(ctx, teamToken(), RequestedAccess{TeamID: "team1"})
	require.NoError(t, err)
	resources.AssertNotCalled(t, "CanAccess")
}

func TestAuthorize_TeamScope_ResourceOwnerCanReach(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(true, nil)
	resources.On("CanAccess", ctx, "user1", "team1", model.ResourceKindCollection, "col9").Return(true, nil)

	err := r.Authorize(ctx, teamToken(), RequestedAccess{
		TeamID:       "team1",
		ResourceKind: model.ResourceKindCollection,
		ResourceID:   "col9",
	})
	require.NoError(t, err)
	resources.AssertExpectations(t)
}

func TestAuthorize_TeamScope_ResourceOwnerCannotReach(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(true, nil)
	resources.On("CanAccess", ctx, "user1", "team1", model.ResourceKindCollection, "col9").Return(false, nil)

	err := r.Authorize(ctx, teamToken(), RequestedAccess{
		TeamID:       "team1",
		ResourceKind: model.ResourceKindCollection,
		ResourceID:   "col9",
	})
	assert.ErrorIs(t, err, ErrResourceForbidden)
}

func TestAuthorize_TeamScope_ResourceInOtherTeamDenied(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	// The owner belongs to both team1 and team2, and "col-t2" lives in
	// team2. A team1-scoped token must not reach it: the access check is
	// bound to the token's team, where the resource does not exist.
	members.On("IsMember", ctx, "user1", "team1").Return(true, nil)
	resources.On("CanAccess", ctx, "user1", "team1", model.ResourceKindCollection, "col-t2").Return(false, nil)

	err := r.Authorize(ctx, teamToken(), RequestedAccess{
		TeamID:       "team1",
		ResourceKind: model.ResourceKindCollection,
		ResourceID:   "col-t2",
	})
	assert.ErrorIs(t, err, ErrResourceForbidden)
	assert.ErrorIs(t, err, ErrUnauthorized)
	// The owner's membership in the resource's own team is irrelevant.
	resources.AssertNotCalled(t, "CanAccess", ctx, "user1", "team2", model.ResourceKindCollection, "col-t2")
	resources.AssertExpectations(t)
}

func TestAuthorize_ResourceScope_MatchingResource(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(true, nil)
	resources.On("CanAccess", ctx, "user1", "team1", model.ResourceKindCollection, "col1").Return(true, nil)

	err := r.Authorize(ctx, resourceToken(), RequestedAccess{
		TeamID:       "team1",
		ResourceKind: model.ResourceKindCollection,
		ResourceID:   "col1",
	})
	require.NoError(t, err)
}

func TestAuthorize_ResourceScope_OtherResourceDenied(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(true, nil)

	err := r.Authorize(ctx, resourceToken(), RequestedAccess{
		TeamID:       "team1",
		ResourceKind: model.ResourceKindCollection,
		ResourceID:   "col2",
	})
	assert.ErrorIs(t, err, ErrResourceScopeMismatch)
	resources.AssertNotCalled(t, "CanAccess")
}

func TestAuthorize_ResourceScope_KindMismatchDenied(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(true, nil)

	err := r.Authorize(ctx, resourceToken(), RequestedAccess{
		TeamID:       "team1",
		ResourceKind: model.ResourceKindEnvironment,
		ResourceID:   "col1",
	})
	assert.ErrorIs(t, err, ErrResourceScopeMismatch)
}

func TestAuthorize_ResourceScope_TeamLevelOperationDenied(t *testing.T) {
	members := &mockMembers{}
	resources := &mockResources{}
	r := NewScopeResolver(members, resources)
	ctx := context.Background()

	members.On("IsMember", ctx, "user1", "team1").Return(true, nil)

	// A token pinned to one resource cannot perform team-wide operations.
	err := r.Authorize(ctx, resourceToken(), RequestedAccess{TeamID: "team1"})
	assert.ErrorIs(t, err, ErrResourceScopeMismatch)
}
