package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edvin/apihub/internal/model"
	"github.com/edvin/apihub/internal/platform"
)

type fixtureIDs struct {
	teamID        string
	collectionID  string
	environmentID string
}

func insertFixtures(ctx context.Context, pool *pgxpool.Pool, adminUser, memberUser string) (*fixtureIDs, error) {
	ids := &fixtureIDs{
		teamID:        platform.NewID(),
		collectionID:  platform.NewID(),
		environmentID: platform.NewID(),
	}

	_, err := pool.Exec(ctx,
		`INSERT INTO teams (id, name) VALUES ($1, $2)`,
		ids.teamID, "Development Team")
	if err != nil {
		return nil, fmt.Errorf("insert team: %w", err)
	}

	for user, role := range map[string]string{
		adminUser:  model.TeamRoleAdmin,
		memberUser: model.TeamRoleMember,
	} {
		_, err = pool.Exec(ctx,
			`INSERT INTO team_members (team_id, user_id, role) VALUES ($1, $2, $3)`,
			ids.teamID, user, role)
		if err != nil {
			return nil, fmt.Errorf("insert member %s: %w", user, err)
		}
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO team_collections (id, team_id, title) VALUES ($1, $2, $3)`,
		ids.collectionID, ids.teamID, "Sample Collection")
	if err != nil {
		return nil, fmt.Errorf("insert collection: %w", err)
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO team_environments (id, team_id, name) VALUES ($1, $2, $3)`,
		ids.environmentID, ids.teamID, "Sample Environment")
	if err != nil {
		return nil, fmt.Errorf("insert environment: %w", err)
	}

	return ids, nil
}
