package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/apihub/internal/model"
)

// MembershipChecker answers team membership questions. Consulted at both
// mint and validation time, since membership can change after a token is
// created.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, teamID string) (bool, error)
	IsAdmin(ctx context.Context, userID, teamID string) (bool, error)
}

// ResourceAccessChecker answers whether a user can reach a specific team
// collection or environment with their own effective permissions. The
// resource must belong to teamID; a resource the user can reach through a
// different team does not qualify.
type ResourceAccessChecker interface {
	CanAccess(ctx context.Context, userID, teamID, resourceKind, resourceID string) (bool, error)
}

// TeamService backs the membership and resource-access checks with the
// team tables. It implements MembershipChecker and ResourceAccessChecker.
type TeamService struct {
	db DB
}

// NewTeamService creates a new TeamService.
func NewTeamService(db DB) *TeamService {
	return &TeamService{db: db}
}

// IsMember reports whether the user currently belongs to the team.
func (s *TeamService) IsMember(ctx context.Context, userID, teamID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`,
		teamID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check team membership: %w", err)
	}
	return exists, nil
}

// IsAdmin reports whether the user holds the admin role in the team.
func (s *TeamService) IsAdmin(ctx context.Context, userID, teamID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2 AND role = $3)`,
		teamID, userID, model.TeamRoleAdmin,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check team admin: %w", err)
	}
	return exists, nil
}

// CanAccess reports whether the user can reach the given collection or
// environment as a member of teamID. The resource must belong to that
// team; membership in whatever other team owns it is not enough.
func (s *TeamService) CanAccess(ctx context.Context, userID, teamID, resourceKind, resourceID string) (bool, error) {
	var table string
	switch resourceKind {
	case model.ResourceKindCollection:
		table = "team_collections"
	case model.ResourceKindEnvironment:
		table = "team_environments"
	default:
		return false, fmt.Errorf("unknown resource kind %q", resourceKind)
	}

	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM `+table+` r
		   JOIN team_members m ON m.team_id = r.team_id
		   WHERE r.id = $1 AND r.team_id = $2 AND m.user_id = $3
		 )`,
		resourceID, teamID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s access: %w", resourceKind, err)
	}
	return exists, nil
}

// GetCollectionByID retrieves a collection belonging to the team. Returns
// nil when no such collection exists in that team.
func (s *TeamService) GetCollectionByID(ctx context.Context, teamID, id string) (*model.TeamCollection, error) {
	var c model.TeamCollection
	err := s.db.QueryRow(ctx,
		`SELECT id, team_id, title, created_at FROM team_collections WHERE id = $1 AND team_id = $2`,
		id, teamID,
	).Scan(&c.ID, &c.TeamID, &c.Title, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get collection %s: %w", id, err)
	}
	return &c, nil
}

// GetEnvironmentByID retrieves an environment belonging to the team.
// Returns nil when no such environment exists in that team.
func (s *TeamService) GetEnvironmentByID(ctx context.Context, teamID, id string) (*model.TeamEnvironment, error) {
	var e model.TeamEnvironment
	err := s.db.QueryRow(ctx,
		`SELECT id, team_id, name, created_at FROM team_environments WHERE id = $1 AND team_id = $2`,
		id, teamID,
	).Scan(&e.ID, &e.TeamID, &e.Name, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get environment %s: %w", id, err)
	}
	return &e, nil
}
