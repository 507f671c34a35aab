package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-directory/internal/domain"
)

var userColumnNames = []string{"id", "first_name", "last_name", "email", "mobile", "gender", "status", "profile", "location", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

func sampleUser() *domain.User {
	return &domain.User{
		FirstName: "Ana",
		LastName:  "Lee",
		Email:     "ana@x.com",
		Mobile:    "555",
		Gender:    domain.GenderFemale,
		Status:    domain.UserStatusActive,
		Location:  "NYC",
	}
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Ana", "Lee", "ana@x.com", "555", "Female", "Active", "", "NYC").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("0b6f6c1e-4d7e-4a43-9d6b-3f8b0f1f2a11", now, now))

	user := sampleUser()
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, "0b6f6c1e-4d7e-4a43-9d6b-3f8b0f1f2a11", user.ID)
	assert.Equal(t, now, user.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), sampleUser())
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	user := sampleUser()
	user.ID = "0b6f6c1e-4d7e-4a43-9d6b-3f8b0f1f2a11"
	mock.ExpectQuery("UPDATE users SET").
		WithArgs("Ana", "Lee", "ana@x.com", "555", "Female", "Active", "", "NYC", user.ID).
		WillReturnError(pgx.ErrNoRows)

	err := repo.Update(context.Background(), user)
	assert.True(t, errors.Is(err, pgx.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDScansRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM users WHERE id").
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows(userColumnNames).
			AddRow("abc", "Ana", "Lee", "ana@x.com", "555", "Female", "Inactive", "http://img/a.png", "NYC", now, now))

	user, err := repo.GetByID(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, domain.GenderFemale, user.Gender)
	assert.Equal(t, domain.UserStatusInactive, user.Status)
	assert.Equal(t, "http://img/a.png", user.Profile)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReportsRemoval(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM users").WithArgs("gone").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM users").WithArgs("here").WillReturnResult(pgxmock.NewResult("DELETE", 1))

	removed, err := repo.Delete(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.Delete(context.Background(), "here")
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsesLimitOffset(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("ORDER BY created_at, id LIMIT").
		WithArgs(5, 10).
		WillReturnRows(pgxmock.NewRows(userColumnNames).
			AddRow("a", "A", "One", "a@x.com", "1", "Male", "Active", "", "X", now, now).
			AddRow("b", "B", "Two", "b@x.com", "2", "Other", "Active", "", "Y", now, now))

	users, err := repo.List(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "b", users[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEscapesWildcards(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("LOWER\\(first_name\\) LIKE").
		WithArgs(`%50\%\_off%`).
		WillReturnRows(pgxmock.NewRows(userColumnNames))

	users, err := repo.SearchByName(context.Background(), "50%_OFF")
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
