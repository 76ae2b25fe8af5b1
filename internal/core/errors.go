package core

import (
	"errors"
	"fmt"

	"github.com/edvin/apihub/internal/token"
)

// ErrUnauthorized is the single authentication failure class surfaced to
// callers of Validate. Every denial reason below wraps it, so transport
// layers can match errors.Is(err, ErrUnauthorized) and answer with one
// generic response regardless of whether the token never existed, expired,
// or was denied by scope. The specific reason stays in logs and metrics.
var ErrUnauthorized = errors.New("not authorized")

// ErrMalformedToken is returned for presented strings that are not
// structurally valid tokens. Distinct from the auth failure class: it leaks
// nothing about stored tokens.
var ErrMalformedToken = token.ErrMalformed

// Validation denial reasons. All wrap ErrUnauthorized.
var (
	ErrTokenNotFound         = fmt.Errorf("access token not found: %w", ErrUnauthorized)
	ErrTokenExpired          = fmt.Errorf("access token expired: %w", ErrUnauthorized)
	ErrScopeMismatch         = fmt.Errorf("requested team outside token scope: %w", ErrUnauthorized)
	ErrMembershipRevoked     = fmt.Errorf("token owner is no longer a team member: %w", ErrUnauthorized)
	ErrResourceScopeMismatch = fmt.Errorf("requested resource outside token scope: %w", ErrUnauthorized)
	ErrResourceForbidden     = fmt.Errorf("token owner cannot access requested resource: %w", ErrUnauthorized)
)

// Mint and management failures.
var (
	ErrNotTeamMember       = errors.New("user is not a member of the scoped team")
	ErrInvalidScope        = errors.New("invalid token scope")
	ErrGenerationExhausted = errors.New("token generation retries exhausted")
	ErrNotFound            = errors.New("access token does not exist")
	ErrForbidden           = errors.New("requester may not manage this token")
)
