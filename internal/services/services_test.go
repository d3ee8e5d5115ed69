package services

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/realty-be/internal/database"
	"github.com/isdelr/realty-be/internal/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.New("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func createUser(t *testing.T, db *sqlx.DB, username, email string) models.User {
	t.Helper()
	user, err := NewUserService(db).CreateUser(context.Background(), models.NewUser{
		Username: username,
		Email:    email,
		Password: "secret-pw",
	})
	require.NoError(t, err)
	return user
}

func strPtr(s string) *string { return &s }
