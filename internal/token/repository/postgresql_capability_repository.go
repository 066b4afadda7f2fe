package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/natter/internal/database"
	apperrors "github.com/allisson/natter/internal/errors"
	tokenDomain "github.com/allisson/natter/internal/token/domain"
)

// PostgreSQLCapabilityRepository implements capability persistence for PostgreSQL.
// Permissions are stored as three boolean columns and the expiry is nullable.
type PostgreSQLCapabilityRepository struct {
	db *sql.DB
}

// NewPostgreSQLCapabilityRepository creates a new PostgreSQL capability repository.
func NewPostgreSQLCapabilityRepository(db *sql.DB) *PostgreSQLCapabilityRepository {
	return &PostgreSQLCapabilityRepository{db: db}
}

// Create inserts a capability claim under tokenHash.
func (p *PostgreSQLCapabilityRepository) Create(
	ctx context.Context,
	tokenHash string,
	claim *tokenDomain.CapabilityClaim,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO capabilities (token_hash, path, perm_read, perm_write, perm_delete, expiry, created_at) 
			  VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := querier.ExecContext(
		ctx,
		query,
		tokenHash,
		claim.Path,
		claim.Permissions.CanRead(),
		claim.Permissions.CanWrite(),
		claim.Permissions.CanDelete(),
		nullableExpiry(claim.Expiry),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create capability")
	}
	return nil
}

// Get retrieves the capability claim stored under tokenHash. Returns ErrTokenNotFound
// if no row exists.
func (p *PostgreSQLCapabilityRepository) Get(
	ctx context.Context,
	tokenHash string,
) (*tokenDomain.CapabilityClaim, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT path, perm_read, perm_write, perm_delete, expiry 
			  FROM capabilities WHERE token_hash = $1`

	var row capabilityRow
	err := querier.QueryRowContext(ctx, query, tokenHash).Scan(
		&row.path,
		&row.read,
		&row.write,
		&row.del,
		&row.expiry,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tokenDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get capability")
	}

	return row.toClaim(), nil
}

// Delete removes the capability stored under tokenHash.
func (p *PostgreSQLCapabilityRepository) Delete(ctx context.Context, tokenHash string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM capabilities WHERE token_hash = $1`

	if _, err := querier.ExecContext(ctx, query, tokenHash); err != nil {
		return apperrors.Wrap(err, "failed to delete capability")
	}
	return nil
}

// DeleteExpired removes every capability with an expiry that is not after now. Capabilities
// without an expiry are kept.
func (p *PostgreSQLCapabilityRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM capabilities WHERE expiry IS NOT NULL AND expiry <= $1`

	result, err := querier.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired capabilities")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// CountExpired returns how many capabilities DeleteExpired would remove.
func (p *PostgreSQLCapabilityRepository) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT COUNT(*) FROM capabilities WHERE expiry IS NOT NULL AND expiry <= $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, now.UTC()).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count expired capabilities")
	}
	return count, nil
}

type capabilityRow struct {
	path   string
	read   bool
	write  bool
	del    bool
	expiry sql.NullTime
}

func (r capabilityRow) toClaim() *tokenDomain.CapabilityClaim {
	var expiry *time.Time
	if r.expiry.Valid {
		t := r.expiry.Time.UTC()
		expiry = &t
	}
	return tokenDomain.NewCapabilityClaim(r.path, tokenDomain.PermissionsFrom(r.read, r.write, r.del), expiry)
}

func nullableExpiry(expiry *time.Time) sql.NullTime {
	if expiry == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: expiry.UTC(), Valid: true}
}
