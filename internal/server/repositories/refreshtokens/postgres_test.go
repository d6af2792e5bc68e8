package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophsession/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s*\(id,\s*owner_id,\s*expires_at,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*$`
	deleteQ = `(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+id\s*=\s*\$1\s*$`
	findQ   = `(?s)^\s*SELECT\s+id,\s*owner_id,\s*expires_at,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+id\s*=\s*\$1\s*$`
	listQ   = `(?s)^\s*SELECT\s+id,\s*owner_id,\s*expires_at,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+owner_id\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2\s+ORDER\s+BY\s+created_at\s*$`
	purgeQ  = `(?s)^\s*DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+expires_at\s*<=\s*\$1\s*$`

	recID = "6f1c1f2e-4a7b-4d8e-9c55-0a1b2c3d4e5f"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	repo := NewPostgresRepository(db, 0)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock, db
}

func TestPostgresCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WithArgs(sqlmock.AnyArg(), "u1", fixedNow.Add(DefaultValidity), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec, err := repo.Create(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.OwnerID)
	assert.True(t, validID(rec.ID))
	assert.Equal(t, fixedNow.Add(365*24*time.Hour), rec.ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_FreshIDs(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectExec(insertQ).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	a, err := repo.Create(context.Background(), "u1")
	require.NoError(t, err)
	b, err := repo.Create(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), "u1")
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestPostgresCreate_OwnerGone(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	_, err := repo.Create(context.Background(), "u1")
	require.ErrorIs(t, err, common.ErrIdentityNotFound)
}

func TestPostgresDeleteByID(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"deleted", 1, true},
		{"already gone", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(deleteQ).WithArgs(recID).WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := repo.DeleteByID(context.Background(), recID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresDeleteByID_NotAUUID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	got, err := repo.DeleteByID(context.Background(), "garbage")
	require.NoError(t, err)
	assert.False(t, got)
	require.NoError(t, mock.ExpectationsWereMet(), "no query must be sent")
}

func TestPostgresDeleteByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs(recID).WillReturnError(errors.New("db err"))

	_, err := repo.DeleteByID(context.Background(), recID)
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestPostgresFind(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := fixedNow.Add(time.Hour)
	mock.ExpectQuery(findQ).WithArgs(recID).WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "expires_at", "created_at"}).
			AddRow(recID, "u1", expires, fixedNow))

	got, err := repo.Find(context.Background(), recID)
	require.NoError(t, err)
	assert.Equal(t, recID, got.ID)
	assert.Equal(t, "u1", got.OwnerID)
	assert.True(t, got.ExpiresAt.Equal(expires))
}

func TestPostgresFind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQ).WithArgs(recID).WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), recID)
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Find(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresFind_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQ).WithArgs(recID).WillReturnError(errors.New("db err"))

	_, err := repo.Find(context.Background(), recID)
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestPostgresListByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs("u1", fixedNow).WillReturnRows(
		sqlmock.NewRows([]string{"id", "owner_id", "expires_at", "created_at"}).
			AddRow("a", "u1", fixedNow.Add(time.Hour), fixedNow.Add(-time.Minute)).
			AddRow("b", "u1", fixedNow.Add(2*time.Hour), fixedNow))

	got, err := repo.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestPostgresDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(purgeQ).WithArgs(fixedNow).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectExec(purgeQ).WillReturnError(errors.New("db err"))
	_, err = repo.DeleteExpired(context.Background(), fixedNow)
	require.ErrorIs(t, err, common.ErrStoreUnavailable)
}
