package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/isdelr/realty-be/internal/models"
	"github.com/jmoiron/sqlx"
)

// InfoServiceProvider defines the interface for profile and contact details.
type InfoServiceProvider interface {
	GetContactInfo(ctx context.Context, userID int64) (models.ContactInfo, error)
	GetProfile(ctx context.Context, userID int64) (models.Profile, error)
	UpdateUserInfo(ctx context.Context, userID int64, patch models.UserInfoPatch) (models.Profile, error)
	GetProfilePicture(ctx context.Context, userID int64) ([]byte, string, error)
	UpdateProfilePicture(ctx context.Context, userID int64, data []byte, contentType string) error
}

// InfoService manages the user_info rows attached to accounts.
type InfoService struct {
	db *sqlx.DB
}

// NewInfoService creates a new InfoService.
func NewInfoService(db *sqlx.DB) *InfoService {
	return &InfoService{db: db}
}

type profileRow struct {
	ID                     int64          `db:"id"`
	Username               string         `db:"username"`
	Email                  sql.NullString `db:"email"`
	HasInfo                bool           `db:"has_info"`
	FirstName              *string        `db:"first_name"`
	LastName               *string        `db:"last_name"`
	PhoneNumber            *string        `db:"phone_number"`
	PreferredContactMethod *string        `db:"preferred_contact_method"`
}

func (s *InfoService) profileRow(ctx context.Context, userID int64) (profileRow, error) {
	var row profileRow
	query := s.db.Rebind(`
		SELECT u.id, u.username, u.email,
			i.user_id IS NOT NULL AS has_info,
			i.first_name, i.last_name, i.phone_number, i.preferred_contact_method
		FROM users u
		LEFT JOIN user_info i ON i.user_id = u.id
		WHERE u.id = ?`)
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profileRow{}, ErrUserNotFound
		}
		return profileRow{}, err
	}
	return row, nil
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// GetContactInfo returns how to reach a user. Each missing piece yields its
// own error, checked in the order user, profile row, email, preferred contact
// method, phone number.
func (s *InfoService) GetContactInfo(ctx context.Context, userID int64) (models.ContactInfo, error) {
	row, err := s.profileRow(ctx, userID)
	if err != nil {
		return models.ContactInfo{}, err
	}
	switch {
	case !row.HasInfo:
		return models.ContactInfo{}, ErrUserInfoNotFound
	case !row.Email.Valid || strings.TrimSpace(row.Email.String) == "":
		return models.ContactInfo{}, ErrEmailMissing
	case !present(row.PreferredContactMethod):
		return models.ContactInfo{}, ErrContactMethodMissing
	case !present(row.PhoneNumber):
		return models.ContactInfo{}, ErrPhoneMissing
	}
	return models.ContactInfo{
		PhoneNumber:            *row.PhoneNumber,
		Email:                  row.Email.String,
		PreferredContactMethod: *row.PreferredContactMethod,
	}, nil
}

// GetProfile returns the account view of a user.
func (s *InfoService) GetProfile(ctx context.Context, userID int64) (models.Profile, error) {
	row, err := s.profileRow(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	return models.Profile{
		ID:                     row.ID,
		Username:               row.Username,
		Email:                  row.Email.String,
		FirstName:              row.FirstName,
		LastName:               row.LastName,
		PhoneNumber:            row.PhoneNumber,
		PreferredContactMethod: row.PreferredContactMethod,
	}, nil
}

// UpdateUserInfo writes the fields set in patch, creating the profile row
// when the user has none yet.
func (s *InfoService) UpdateUserInfo(ctx context.Context, userID int64, patch models.UserInfoPatch) (models.Profile, error) {
	if _, err := s.profileRow(ctx, userID); err != nil {
		return models.Profile{}, err
	}

	cols := []string{"user_id"}
	args := []interface{}{userID}
	add := func(col string, v *string) {
		if v != nil {
			cols = append(cols, col)
			args = append(args, *v)
		}
	}
	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	add("phone_number", patch.PhoneNumber)
	add("preferred_contact_method", patch.PreferredContactMethod)

	if err := s.upsert(ctx, cols, args); err != nil {
		return models.Profile{}, err
	}
	return s.GetProfile(ctx, userID)
}

// GetProfilePicture returns the stored picture and its content type. Both
// are empty when the user has not uploaded one.
func (s *InfoService) GetProfilePicture(ctx context.Context, userID int64) ([]byte, string, error) {
	if _, err := s.profileRow(ctx, userID); err != nil {
		return nil, "", err
	}

	var row struct {
		Data        []byte  `db:"profile_picture"`
		ContentType *string `db:"profile_picture_type"`
	}
	query := s.db.Rebind("SELECT profile_picture, profile_picture_type FROM user_info WHERE user_id = ?")
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if row.ContentType == nil {
		return row.Data, "", nil
	}
	return row.Data, *row.ContentType, nil
}

// UpdateProfilePicture replaces the user's profile picture.
func (s *InfoService) UpdateProfilePicture(ctx context.Context, userID int64, data []byte, contentType string) error {
	if _, err := s.profileRow(ctx, userID); err != nil {
		return err
	}
	return s.upsert(ctx,
		[]string{"user_id", "profile_picture", "profile_picture_type"},
		[]interface{}{userID, data, contentType},
	)
}

// upsert inserts a user_info row or updates the given columns of the
// existing one. cols[0] must be user_id.
func (s *InfoService) upsert(ctx context.Context, cols []string, args []interface{}) error {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "?"
	}
	updates := make([]string, 0, len(cols))
	for _, col := range cols[1:] {
		updates = append(updates, col+" = excluded."+col)
	}
	updates = append(updates, "updated_at = CURRENT_TIMESTAMP")

	query := s.db.Rebind("INSERT INTO user_info (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") ON CONFLICT (user_id) DO UPDATE SET " + strings.Join(updates, ", "))
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
