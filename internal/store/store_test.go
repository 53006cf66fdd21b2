package store

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var userRowColumns = []string{"id", "name", "email", "password_hash", "active", "remember", "admin", "created_at", "updated_at"}

func TestMapWriteError(t *testing.T) {
	other := sql.ErrConnDone
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "pq unique", err: &pq.Error{Code: "23505"}, want: ErrConflict},
		{name: "pgx unique", err: &pgconn.PgError{Code: "23505"}, want: ErrConflict},
		{name: "pq other", err: &pq.Error{Code: "23503"}, want: nil},
		{name: "pq integer out of range", err: &pq.Error{Code: "22003"}, want: ErrInvalidInput},
		{name: "pgx value too long", err: &pgconn.PgError{Code: "22001"}, want: ErrInvalidInput},
		{name: "plain", err: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapWriteError(tt.err)
			if tt.want == nil {
				assert.Equal(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestPostgres_ReturnsSQLRepositories(t *testing.T) {
	db, _ := newMockDB(t)
	var repos Repositories = Postgres{}

	assert.IsType(t, &UserRepository{}, repos.Users(db))
	assert.IsType(t, &TokenRepository{}, repos.Tokens(db))
	assert.IsType(t, &OrderRepository{}, repos.Orders(db))
}
