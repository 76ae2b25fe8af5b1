package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TokenMaintenance contains activities that clean up access token rows.
type TokenMaintenance struct {
	db DB
}

// NewTokenMaintenance creates a new TokenMaintenance activity struct.
func NewTokenMaintenance(db DB) *TokenMaintenance {
	return &TokenMaintenance{db: db}
}

// DeleteExpiredTokens deletes access tokens whose expiry passed more than
// graceDays ago and returns the count of deleted rows. Tokens are already
// rejected at validation time once expired; this only reclaims storage.
func (a *TokenMaintenance) DeleteExpiredTokens(ctx context.Context, graceDays int) (int64, error) {
	tag, err := a.db.Exec(ctx,
		"DELETE FROM access_tokens WHERE expires_at IS NOT NULL AND expires_at < now() - make_interval(days => $1)",
		graceDays)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
