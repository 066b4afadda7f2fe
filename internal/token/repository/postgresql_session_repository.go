// Package repository provides SQL persistence for session and capability claims.
// Rows are keyed by the SHA-256 digest of the token identifier; plaintext identifiers
// are never written.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/allisson/natter/internal/database"
	apperrors "github.com/allisson/natter/internal/errors"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

// PostgreSQLSessionRepository implements session persistence for PostgreSQL.
type PostgreSQLSessionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSessionRepository creates a new PostgreSQL session repository.
func NewPostgreSQLSessionRepository(db *sql.DB) *PostgreSQLSessionRepository {
	return &PostgreSQLSessionRepository{db: db}
}

// Create inserts a session claim under tokenHash.
func (p *PostgreSQLSessionRepository) Create(
	ctx context.Context,
	tokenHash string,
	claim *tokenDomain.SessionClaim,
) error {
	querier := database.GetTx(ctx, p.db)

	attributes, err := json.Marshal(claim.Attributes.Map())
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session attributes")
	}

	query := `INSERT INTO sessions (token_hash, principal, expiry, attributes, created_at) 
			  VALUES ($1, $2, $3, $4, NOW())`

	_, err = querier.ExecContext(ctx, query, tokenHash, claim.Principal, claim.Expiry.UTC(), attributes)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// Get retrieves the session claim stored under tokenHash. Returns ErrTokenNotFound
// if no row exists.
func (p *PostgreSQLSessionRepository) Get(ctx context.Context, tokenHash string) (*tokenDomain.SessionClaim, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT principal, expiry, attributes FROM sessions WHERE token_hash = $1`

	var (
		principal  string
		expiry     time.Time
		attributes []byte
	)
	err := querier.QueryRowContext(ctx, query, tokenHash).Scan(&principal, &expiry, &attributes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	return decodeSession(principal, expiry, attributes)
}

// Delete removes the session stored under tokenHash.
func (p *PostgreSQLSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM sessions WHERE token_hash = $1`

	if _, err := querier.ExecContext(ctx, query, tokenHash); err != nil {
		return apperrors.Wrap(err, "failed to delete session")
	}
	return nil
}

// DeleteExpired removes every session whose expiry is not after now and returns how many
// rows were deleted.
func (p *PostgreSQLSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM sessions WHERE expiry <= $1`

	result, err := querier.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// CountExpired returns how many sessions DeleteExpired would remove.
func (p *PostgreSQLSessionRepository) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM sessions WHERE expiry <= $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, now.UTC()).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired sessions")
	}
	return count, nil
}

func decodeSession(principal string, expiry time.Time, attributes []byte) (*tokenDomain.SessionClaim, error) {
	var values map[string]string
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &values); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal session attributes")
		}
	}

	claim := tokenDomain.NewSessionClaim(principal, expiry.UTC())
	claim.Attributes = tokenDomain.NewAttributes(values)
	return claim, nil
}
