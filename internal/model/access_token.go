package model

import "time"

// Scope kinds for access tokens.
const (
	ScopeKindTeam         = "team"
	ScopeKindTeamResource = "team-resource"
)

// Resource kinds a team-resource scope can name.
const (
	ResourceKindCollection  = "collection"
	ResourceKindEnvironment = "environment"
)

// AccessToken is a long-lived personal access token bound to a team scope.
// SecretHash is the keyed hash of the token secret; the plaintext secret is
// never stored and only exists in the mint response.
type AccessToken struct {
	ID           string     `json:"id"`
	OwnerUserID  string     `json:"owner_user_id"`
	Label        string     `json:"label"`
	SecretHash   string     `json:"-"`
	ScopeKind    string     `json:"scope_kind"`
	TeamID       string     `json:"team_id"`
	ResourceKind *string    `json:"resource_kind,omitempty"`
	ResourceID   *string    `json:"resource_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
}

// Expired reports whether the token's expiry has passed at the given time.
// Tokens without an expiry never expire and must be revoked explicitly.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// TokenScope is the scope requested at mint time.
type TokenScope struct {
	Kind         string  `json:"kind"`
	TeamID       string  `json:"team_id"`
	ResourceKind *string `json:"resource_kind,omitempty"`
	ResourceID   *string `json:"resource_id,omitempty"`
}
