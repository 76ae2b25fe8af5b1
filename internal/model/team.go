package model

import "time"

// Team member roles.
const (
	TeamRoleAdmin  = "admin"
	TeamRoleMember = "member"
)

// Team is an owning group for collections and environments.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamMember links a user to a team with a role.
type TeamMember struct {
	TeamID    string    `json:"team_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamCollection is a collection owned by a team.
type TeamCollection struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// TeamEnvironment is an environment owned by a team.
type TeamEnvironment struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
