package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/database"
	"github.com/isdelr/realty-be/internal/models"
	"github.com/jmoiron/sqlx"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, nu models.NewUser) (models.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (models.User, error)
}

// UserService provides business logic for user accounts.
type UserService struct {
	db *sqlx.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sqlx.DB) *UserService {
	return &UserService{db: db}
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	query := s.db.Rebind("SELECT id, username, email, created_at FROM users WHERE id = ?")
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByUsername retrieves a single user by username, including the password hash.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	query := s.db.Rebind("SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?")
	if err := s.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) exists(ctx context.Context, column, value string) (bool, error) {
	var n int
	query := s.db.Rebind("SELECT COUNT(*) FROM users WHERE " + column + " = ?")
	if err := s.db.GetContext(ctx, &n, query, value); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateUser checks that the username and then the email are free, hashes
// the password and stores the user together with its profile row.
func (s *UserService) CreateUser(ctx context.Context, nu models.NewUser) (models.User, error) {
	taken, err := s.exists(ctx, "username", nu.Username)
	if err != nil {
		return models.User{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return models.User{}, ErrUsernameTaken
	}
	taken, err = s.exists(ctx, "email", nu.Email)
	if err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return models.User{}, ErrEmailTaken
	}

	hashedPassword, err := auth.HashPassword(nu.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{Username: nu.Username, Email: nu.Email}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		insertUser := tx.Rebind("INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?) RETURNING id")
		if err := tx.QueryRowxContext(ctx, insertUser, nu.Username, nu.Email, hashedPassword).Scan(&user.ID); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		insertInfo := tx.Rebind("INSERT INTO user_info (user_id, first_name, last_name) VALUES (?, ?, ?)")
		if _, err := tx.ExecContext(ctx, insertInfo, user.ID, nu.FirstName, nu.LastName); err != nil {
			return fmt.Errorf("insert user info: %w", err)
		}
		return nil
	})
	if err != nil {
		// A concurrent signup can claim the name between the checks and the
		// insert; the unique constraint then fails it here.
		if taken := s.takenError(ctx, nu); taken != nil {
			return models.User{}, taken
		}
		return models.User{}, err
	}
	return s.GetUserByID(ctx, user.ID)
}

func (s *UserService) takenError(ctx context.Context, nu models.NewUser) error {
	if taken, err := s.exists(ctx, "username", nu.Username); err == nil && taken {
		return ErrUsernameTaken
	}
	if taken, err := s.exists(ctx, "email", nu.Email); err == nil && taken {
		return ErrEmailTaken
	}
	return nil
}

// AuthenticateUser verifies a user's credentials. An unknown username and a
// wrong password both yield ErrInvalidCredentials.
func (s *UserService) AuthenticateUser(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""
	return user, nil
}
