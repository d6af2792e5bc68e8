package identities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/dmitrijs2005/gophsession/internal/dbx"
	"github.com/dmitrijs2005/gophsession/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, in models.NewIdentity) (*models.Identity, error) {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	id := &models.Identity{
		ID:        uuid.NewString(),
		Role:      in.Role,
		TenantID:  in.TenantID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}

	err := r.db.QueryRowContext(ctx, query,
		id.ID, id.Email, in.PasswordHash, id.FirstName, id.LastName, string(id.Role), nullableString(id.TenantID),
	).Scan(&id.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w: %w", common.ErrStoreUnavailable, err)
	}

	return id, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.IdentityWithCredential, error) {
	query := `
		SELECT id, role, tenant_id, first_name, last_name, email, created_at, password_hash
		FROM users
		WHERE email = $1
	`

	out := &models.IdentityWithCredential{}
	id, err := scanIdentity(r.db.QueryRowContext(ctx, query, email), &out.PasswordHash)
	if err != nil {
		return nil, err
	}
	out.Identity = *id
	return out, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `
		SELECT id, role, tenant_id, first_name, last_name, email, created_at
		FROM users
		WHERE id = $1
	`
	return scanIdentity(r.db.QueryRowContext(ctx, query, id))
}

func scanIdentity(row *sql.Row, extra ...any) (*models.Identity, error) {
	var (
		id        models.Identity
		role      string
		tenant    sql.NullString
		createdAt time.Time
	)

	dest := append([]any{&id.ID, &role, &tenant, &id.FirstName, &id.LastName, &id.Email, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w: %w", common.ErrStoreUnavailable, err)
	}

	id.Role = models.Role(role)
	id.CreatedAt = createdAt
	if tenant.Valid {
		t := tenant.String
		id.TenantID = &t
	}
	return &id, nil
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
