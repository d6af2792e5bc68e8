package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/dbx"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgForeignKeyViolation is the SQLSTATE raised when owner_id has no user.
const pgForeignKeyViolation = "23503"

// PostgresRepository keeps records in the refresh_tokens table. It works over
// dbx.DBTX, so it can be bound to *sql.DB or to a transaction.
type PostgresRepository struct {
	db       dbx.DBTX
	validity time.Duration
	now      func() time.Time
}

func NewPostgresRepository(db dbx.DBTX, validity time.Duration) *PostgresRepository {
	return &PostgresRepository{db: db, validity: validityOrDefault(validity), now: time.Now}
}

func (r *PostgresRepository) Create(ctx context.Context, ownerID string) (*models.RefreshTokenRecord, error) {
	rec := newRecord(ownerID, r.now(), r.validity)

	query := `
		INSERT INTO refresh_tokens (id, owner_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.ID, rec.OwnerID, rec.ExpiresAt, rec.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, common.ErrIdentityNotFound
		}
		return nil, unavailable("db", err)
	}
	return rec, nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	query := `
		DELETE FROM refresh_tokens
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, unavailable("db", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("db", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.RefreshTokenRecord, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	query := `
		SELECT id, owner_id, expires_at, created_at
		FROM refresh_tokens
		WHERE id = $1
	`
	rec := &models.RefreshTokenRecord{}
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.OwnerID, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, unavailable("db", err)
	}
	return rec, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.RefreshTokenRecord, error) {
	query := `
		SELECT id, owner_id, expires_at, created_at
		FROM refresh_tokens
		WHERE owner_id = $1 AND expires_at > $2
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, r.now().UTC())
	if err != nil {
		return nil, unavailable("db", err)
	}
	defer rows.Close()

	var out []models.RefreshTokenRecord
	for rows.Next() {
		var rec models.RefreshTokenRecord
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
			return nil, unavailable("db", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("db", err)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, unavailable("db", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("db", err)
	}
	return n, nil
}
