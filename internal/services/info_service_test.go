package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/realty-be/internal/models"
)

func TestInfoService_GetContactInfo_Order(t *testing.T) {
	db := newTestDB(t)
	svc := NewInfoService(db)
	ctx := context.Background()

	_, err := svc.GetContactInfo(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)

	user := createUser(t, db, "alice", "alice@example.com")
	_, err = svc.GetContactInfo(ctx, user.ID)
	assert.ErrorIs(t, err, ErrContactMethodMissing)

	_, err = svc.UpdateUserInfo(ctx, user.ID, models.UserInfoPatch{PreferredContactMethod: strPtr("phone")})
	require.NoError(t, err)
	_, err = svc.GetContactInfo(ctx, user.ID)
	assert.ErrorIs(t, err, ErrPhoneMissing)

	_, err = svc.UpdateUserInfo(ctx, user.ID, models.UserInfoPatch{PhoneNumber: strPtr("+351 900 000 000")})
	require.NoError(t, err)
	info, err := svc.GetContactInfo(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContactInfo{
		PhoneNumber:            "+351 900 000 000",
		Email:                  "alice@example.com",
		PreferredContactMethod: "phone",
	}, info)
}

func TestInfoService_GetContactInfo_NoInfoRow(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "alice", "alice@example.com")
	_, err := db.Exec("DELETE FROM user_info WHERE user_id = ?", user.ID)
	require.NoError(t, err)

	_, err = NewInfoService(db).GetContactInfo(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrUserInfoNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInfoService_UpdateUserInfo_CreatesMissingRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewInfoService(db)
	ctx := context.Background()
	user := createUser(t, db, "alice", "alice@example.com")
	_, err := db.Exec("DELETE FROM user_info WHERE user_id = ?", user.ID)
	require.NoError(t, err)

	profile, err := svc.UpdateUserInfo(ctx, user.ID, models.UserInfoPatch{LastName: strPtr("Liddell")})
	require.NoError(t, err)
	require.NotNil(t, profile.LastName)
	assert.Equal(t, "Liddell", *profile.LastName)
	assert.Nil(t, profile.FirstName)
}

func TestInfoService_ProfilePicture(t *testing.T) {
	db := newTestDB(t)
	svc := NewInfoService(db)
	ctx := context.Background()
	user := createUser(t, db, "alice", "alice@example.com")

	data, contentType, err := svc.GetProfilePicture(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Empty(t, contentType)

	require.NoError(t, svc.UpdateProfilePicture(ctx, user.ID, []byte{0x89, 'P', 'N', 'G'}, "image/png"))
	data, contentType, err = svc.GetProfilePicture(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
	assert.Equal(t, "image/png", contentType)

	assert.ErrorIs(t, svc.UpdateProfilePicture(ctx, 999, []byte{1}, "image/png"), ErrUserNotFound)
}
