package request

// TokenScope is the scope block of a token creation request.
type TokenScope struct {
	Kind         string  `json:"kind" validate:"required,oneof=team team-resource"`
	TeamID       string  `json:"team_id" validate:"required"`
	ResourceKind *string `json:"resource_kind" validate:"omitempty,oneof=collection environment"`
	ResourceID   *string `json:"resource_id" validate:"omitempty,min=1"`
}

// CreateAccessToken holds the request body for minting an access token.
type CreateAccessToken struct {
	Label         string     `json:"label" validate:"required,min=1,max=255"`
	Scope         TokenScope `json:"scope" validate:"required"`
	ExpiresInDays *int       `json:"expires_in_days" validate:"omitempty,min=1,max=3650"`
}

// UpdateAccessToken holds the request body for renaming an access token.
type UpdateAccessToken struct {
	Label string `json:"label" validate:"required,min=1,max=255"`
}
