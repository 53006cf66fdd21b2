package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/orderdesk/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM users\s+WHERE email = \$1`).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(7, "Ann", "a@x.com", "hash", true, false, true, created, created))

	user, err := NewUserRepository(db).GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 7, user.ID)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.True(t, user.Admin)
	assert.Equal(t, created, user.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM users\s+WHERE id = \$1`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := NewUserRepository(db).GetByID(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`FROM users\s+ORDER BY id\s+OFFSET \$1 LIMIT \$2`).
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(2, "B", "b@x.com", "h", true, false, false, now, now).
			AddRow(3, "C", "c@x.com", "h", true, false, false, now, now))

	users, total, err := NewUserRepository(db).List(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 2)
	assert.Equal(t, "b@x.com", users[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`INSERT INTO users .* RETURNING id`).
		WithArgs("Ann", "a@x.com", "hash", true, false, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	user, err := NewUserRepository(db).Create(context.Background(), types.User{
		Name:         "Ann",
		Email:        "a@x.com",
		PasswordHash: "hash",
		Active:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := NewUserRepository(db).Create(context.Background(), types.User{Email: "a@x.com"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestUserRepository_Update_ValueTooLong(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE users`).
		WillReturnError(&pgconn.PgError{Code: "22001", Message: "value too long for type character varying(255)"})

	_, err := NewUserRepository(db).Update(context.Background(), types.User{ID: 5})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := NewUserRepository(db).Update(context.Background(), types.User{ID: 5})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	require.NoError(t, repo.Delete(context.Background(), 4))
	require.ErrorIs(t, repo.Delete(context.Background(), 4), ErrNotFound)
}

func TestUserRepository_SetAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE users SET admin = \$1`).
		WithArgs(true, sqlmock.AnyArg(), "a@x.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET admin = \$1`).
		WithArgs(false, sqlmock.AnyArg(), "nobody@x.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	require.NoError(t, repo.SetAdmin(context.Background(), "a@x.com", true))
	require.ErrorIs(t, repo.SetAdmin(context.Background(), "nobody@x.com", false), ErrNotFound)
}
