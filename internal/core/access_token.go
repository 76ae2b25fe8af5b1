package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/edvin/apihub/internal/model"
	"github.com/edvin/apihub/internal/token"
)

// mintRetries bounds retries after a secret_hash uniqueness conflict.
// With 256 bits of entropy a single conflict is already extraordinary.
const mintRetries = 5

var tokenValidations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_token_validations_total",
		Help: "Access token validation attempts by outcome",
	},
	[]string{"result"},
)

// AccessTokenService owns the token lifecycle: mint, validate, list,
// rename, revoke. Collaborators are injected so the service never touches
// team tables directly.
type AccessTokenService struct {
	db        DB
	codec     *token.Codec
	members   MembershipChecker
	resources ResourceAccessChecker
	scopes    *ScopeResolver
	logger    zerolog.Logger
	touches   chan string
	drained   chan struct{}
}

// NewAccessTokenService creates the service and starts the background
// last-used writer.
func NewAccessTokenService(db DB, codec *token.Codec, members MembershipChecker, resources ResourceAccessChecker, logger zerolog.Logger) *AccessTokenService {
	s := &AccessTokenService{
		db:        db,
		codec:     codec,
		members:   members,
		resources: resources,
		scopes:    NewScopeResolver(members, resources),
		logger:    logger,
		touches:   make(chan string, 1024),
		drained:   make(chan struct{}),
	}
	go s.drainTouches()
	return s
}

// Close flushes queued last-used updates and stops the background writer.
func (s *AccessTokenService) Close() {
	close(s.touches)
	<-s.drained
}

// Mint creates a token for ownerUserID bound to the given scope and returns
// the stored record along with the external string. The external string
// carries the plaintext secret and is shown to the user exactly once.
func (s *AccessTokenService) Mint(ctx context.Context, ownerUserID, label string, scope model.TokenScope, ttl *time.Duration) (*model.AccessToken, string, error) {
	if err := validateScope(scope); err != nil {
		return nil, "", err
	}

	member, err := s.members.IsMember(ctx, ownerUserID, scope.TeamID)
	if err != nil {
		return nil, "", fmt.Errorf("check membership before mint: %w", err)
	}
	if !member {
		return nil, "", ErrNotTeamMember
	}

	// A resource-pinned scope must name a resource that actually lives in
	// the scoped team and that the owner can reach there.
	if scope.Kind == model.ScopeKindTeamResource {
		ok, err := s.resources.CanAccess(ctx, ownerUserID, scope.TeamID, *scope.ResourceKind, *scope.ResourceID)
		if err != nil {
			return nil, "", fmt.Errorf("check scoped resource before mint: %w", err)
		}
		if !ok {
			return nil, "", fmt.Errorf("resource %s not reachable in team %s: %w", *scope.ResourceID, scope.TeamID, ErrInvalidScope)
		}
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if ttl != nil {
		t := now.Add(*ttl)
		expiresAt = &t
	}

	for attempt := 0; attempt < mintRetries; attempt++ {
		minted, err := s.codec.Mint()
		if err != nil {
			return nil, "", fmt.Errorf("mint token: %w", err)
		}

		_, err = s.db.Exec(ctx,
			`INSERT INTO access_tokens (id, owner_user_id, label, secret_hash, scope_kind, team_id, resource_kind, resource_id, created_at, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			minted.ID, ownerUserID, label, minted.Hash, scope.Kind, scope.TeamID,
			scope.ResourceKind, scope.ResourceID, now, expiresAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				s.logger.Warn().Int("attempt", attempt+1).Msg("access token hash conflict, regenerating")
				continue
			}
			return nil, "", fmt.Errorf("insert access token: %w", err)
		}

		tok := &model.AccessToken{
			ID:           minted.ID,
			OwnerUserID:  ownerUserID,
			Label:        label,
			SecretHash:   minted.Hash,
			ScopeKind:    scope.Kind,
			TeamID:       scope.TeamID,
			ResourceKind: scope.ResourceKind,
			ResourceID:   scope.ResourceID,
			CreatedAt:    now,
			ExpiresAt:    expiresAt,
		}
		return tok, minted.External, nil
	}

	return nil, "", ErrGenerationExhausted
}

// Validate authenticates a presented token string against the requested
// access. On success the token's last-used timestamp is touched
// asynchronously. All denial reasons are collapsed into ErrUnauthorized for
// callers; the specific reason is logged and counted.
func (s *AccessTokenService) Validate(ctx context.Context, external string, req RequestedAccess) (*model.AccessToken, error) {
	parsed, err := s.codec.Parse(external)
	if err != nil {
		tokenValidations.WithLabelValues("malformed").Inc()
		return nil, ErrMalformedToken
	}

	tok, err := s.fetch(ctx, parsed.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.deny(parsed.ID, ErrTokenNotFound, "not_found")
			return nil, ErrUnauthorized
		}
		tokenValidations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("look up access token: %w", err)
	}

	// The embedded id pre-filters the lookup; the stored hash still decides.
	if subtle.ConstantTimeCompare([]byte(tok.SecretHash), []byte(s.codec.Hash(parsed.Secret))) != 1 {
		s.deny(parsed.ID, ErrTokenNotFound, "not_found")
		return nil, ErrUnauthorized
	}

	if tok.Expired(time.Now().UTC()) {
		s.deny(tok.ID, ErrTokenExpired, "expired")
		return nil, ErrUnauthorized
	}

	if err := s.scopes.Authorize(ctx, tok, req); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			s.deny(tok.ID, err, "denied")
			return nil, ErrUnauthorized
		}
		tokenValidations.WithLabelValues("error").Inc()
		return nil, err
	}

	tokenValidations.WithLabelValues("ok").Inc()
	s.touch(tok.ID)
	return tok, nil
}

// List returns all tokens owned by the user, newest first. The secret hash
// never leaves the service boundary in serialized form.
func (s *AccessTokenService) List(ctx context.Context, ownerUserID string) ([]model.AccessToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, owner_user_id, label, secret_hash, scope_kind, team_id, resource_kind, resource_id, created_at, expires_at, last_used_at
		 FROM access_tokens WHERE owner_user_id = $1 ORDER BY created_at DESC`,
		ownerUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("list access tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.AccessToken
	for rows.Next() {
		t, err := scanAccessToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access tokens: %w", err)
	}
	return tokens, nil
}

// Rename updates a token's label. Only the owner may rename.
func (s *AccessTokenService) Rename(ctx context.Context, id, requesterUserID, label string) (*model.AccessToken, error) {
	tok, err := s.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get access token %s: %w", id, err)
	}
	if tok.OwnerUserID != requesterUserID {
		return nil, ErrForbidden
	}

	_, err = s.db.Exec(ctx,
		`UPDATE access_tokens SET label = $1 WHERE id = $2`, label, id,
	)
	if err != nil {
		return nil, fmt.Errorf("rename access token %s: %w", id, err)
	}
	tok.Label = label
	return tok, nil
}

// Revoke deletes a token. The owner may always revoke; otherwise the
// requester must be an admin of the token's team. Deletion and validation
// read the same rows, so a revoke is observable by the very next validate.
func (s *AccessTokenService) Revoke(ctx context.Context, id, requesterUserID string) error {
	tok, err := s.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get access token %s: %w", id, err)
	}

	if tok.OwnerUserID != requesterUserID {
		admin, err := s.members.IsAdmin(ctx, requesterUserID, tok.TeamID)
		if err != nil {
			return fmt.Errorf("check admin before revoke: %w", err)
		}
		if !admin {
			return ErrForbidden
		}
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM access_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke access token %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Info().Str("token_id", id).Str("requester", requesterUserID).Msg("access token revoked")
	return nil
}

func (s *AccessTokenService) fetch(ctx context.Context, id string) (*model.AccessToken, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, owner_user_id, label, secret_hash, scope_kind, team_id, resource_kind, resource_id, created_at, expires_at, last_used_at
		 FROM access_tokens WHERE id = $1`, id,
	)
	t, err := scanAccessToken(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanAccessToken(row interface{ Scan(dest ...any) error }) (model.AccessToken, error) {
	var t model.AccessToken
	err := row.Scan(&t.ID, &t.OwnerUserID, &t.Label, &t.SecretHash, &t.ScopeKind, &t.TeamID,
		&t.ResourceKind, &t.ResourceID, &t.CreatedAt, &t.ExpiresAt, &t.LastUsedAt)
	if err != nil {
		return t, err
	}
	return t, nil
}

func (s *AccessTokenService) deny(tokenID string, reason error, result string) {
	tokenValidations.WithLabelValues(result).Inc()
	s.logger.Debug().Str("token_id", tokenID).Err(reason).Msg("access token validation denied")
}

// touch enqueues a best-effort last-used update. It never blocks: if the
// buffer is full the update is dropped, which is acceptable for tracking
// that is eventual rather than exact.
func (s *AccessTokenService) touch(id string) {
	select {
	case s.touches <- id:
	default:
	}
}

func (s *AccessTokenService) drainTouches() {
	defer close(s.drained)
	for id := range s.touches {
		// context.Background since this is detached from any request.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := s.db.Exec(ctx,
			`UPDATE access_tokens SET last_used_at = now() WHERE id = $1`, id,
		)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Str("token_id", id).Msg("failed to update token last_used_at")
		}
	}
}

func validateScope(scope model.TokenScope) error {
	switch scope.Kind {
	case model.ScopeKindTeam:
		if scope.TeamID == "" || scope.ResourceKind != nil || scope.ResourceID != nil {
			return ErrInvalidScope
		}
	case model.ScopeKindTeamResource:
		if scope.TeamID == "" || scope.ResourceKind == nil || scope.ResourceID == nil || *scope.ResourceID == "" {
			return ErrInvalidScope
		}
		if *scope.ResourceKind != model.ResourceKindCollection && *scope.ResourceKind != model.ResourceKindEnvironment {
			return ErrInvalidScope
		}
	default:
		return ErrInvalidScope
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
