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

// MySQLSessionRepository implements session persistence for MySQL.
type MySQLSessionRepository struct {
	db *sql.DB
}

// NewMySQLSessionRepository creates a new MySQL session repository. The DSN must
// set parseTime=true so DATETIME columns scan into time.Time.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

// Create inserts a session claim under tokenHash.
func (m *MySQLSessionRepository) Create(
	ctx context.Context,
	tokenHash string,
	claim *tokenDomain.SessionClaim,
) error {
	querier := database.GetTx(ctx, m.db)

	attributes, err := json.Marshal(claim.Attributes.Map())
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session attributes")
	}

	query := `INSERT INTO sessions (token_hash, principal, expiry, attributes, created_at) 
			  VALUES (?, ?, ?, ?, UTC_TIMESTAMP(6))`

	_, err = querier.ExecContext(ctx, query, tokenHash, claim.Principal, claim.Expiry.UTC(), attributes)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// Get retrieves the session claim stored under tokenHash. Returns ErrTokenNotFound
// if no row exists.
func (m *MySQLSessionRepository) Get(ctx context.Context, tokenHash string) (*tokenDomain.SessionClaim, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT principal, expiry, attributes FROM sessions WHERE token_hash = ?`

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
func (m *MySQLSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM sessions WHERE token_hash = ?`

	if _, err := querier.ExecContext(ctx, query, tokenHash); err != nil {
		return apperrors.Wrap(err, "failed to delete session")
	}
	return nil
}

// DeleteExpired removes every session whose expiry is not after now and returns how many
// rows were deleted.
func (m *MySQLSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM sessions WHERE expiry <= ?`

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
func (m *MySQLSessionRepository) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT COUNT(*) FROM sessions WHERE expiry <= ?`

	var count int64
	if err := querier.QueryRowContext(ctx, query, now.UTC()).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired sessions")
	}
	return count, nil
}
