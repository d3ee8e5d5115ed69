package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/isdelr/realty-be/internal/services"
	"github.com/isdelr/realty-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// Client-facing messages of the info endpoints.
const (
	MsgContactUserNotFound   = "User not found."
	MsgContactInfoNotFound   = "User information not found."
	MsgContactEmailMissing   = "Email not found for this user."
	MsgContactMethodMissing  = "Preferred contact method not set for this user."
	MsgContactPhoneMissing   = "Phone number not found for this user."
	maxProfilePictureRequest = validation.MaxProfilePictureSize + 1<<20
)

// contactErrors maps each missing piece of contact information onto its message.
var contactErrors = []struct {
	err     error
	message string
}{
	{services.ErrUserNotFound, MsgContactUserNotFound},
	{services.ErrUserInfoNotFound, MsgContactInfoNotFound},
	{services.ErrEmailMissing, MsgContactEmailMissing},
	{services.ErrContactMethodMissing, MsgContactMethodMissing},
	{services.ErrPhoneMissing, MsgContactPhoneMissing},
}

// InfoHandler handles HTTP requests for profile and contact details.
type InfoHandler struct {
	service services.InfoServiceProvider
	events  services.EventServiceProvider
}

// NewInfoHandler creates a new InfoHandler. events may be nil.
func NewInfoHandler(service services.InfoServiceProvider, events services.EventServiceProvider) *InfoHandler {
	return &InfoHandler{service: service, events: events}
}

// GetContactInfoForProperty handles retrieving how to reach a listing owner.
func (h *InfoHandler) GetContactInfoForProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, MsgInvalidUserID)
		return
	}

	info, err := h.service.GetContactInfo(r.Context(), userID)
	if err != nil {
		for _, ce := range contactErrors {
			if errors.Is(err, ce.err) {
				writeError(w, http.StatusNotFound, ce.message)
				return
			}
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to retrieve contact info")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetUserInfo handles retrieving the caller's own profile.
func (h *InfoHandler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to retrieve user info")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"userInfo": profile})
}

// UpdateUserInfo handles a partial update of the caller's profile.
func (h *InfoHandler) UpdateUserInfo(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	body := map[string]interface{}{}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	patch, err := validation.UserInfoUpdate(body)
	if err != nil {
		writeFailure(w, err)
		return
	}

	profile, err := h.service.UpdateUserInfo(r.Context(), claims.UserID, patch)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to update user info")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	recordEvent(r, h.events, claims.UserID, "user.info.updated", "Profile updated.")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "User information updated successfully.",
		"userInfo": profile,
	})
}

// GetProfilePicture handles retrieving the caller's profile picture.
func (h *InfoHandler) GetProfilePicture(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	data, contentType, err := h.service.GetProfilePicture(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to retrieve profile picture")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	var picture, pictureType *string
	if len(data) > 0 {
		encoded := base64.StdEncoding.EncodeToString(data)
		picture, pictureType = &encoded, &contentType
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profilePicture": picture,
		"contentType":    pictureType,
	})
}

// UpdateProfilePicture handles replacing the caller's profile picture.
func (h *InfoHandler) UpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProfilePictureRequest)
	if err := r.ParseMultipartForm(maxProfilePictureRequest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, validation.MsgPictureTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, MsgInvalidForm)
		return
	}
	file, header, err := r.FormFile("profilePicture")
	if err != nil {
		writeError(w, http.StatusBadRequest, validation.MsgPictureMissing)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to read profile picture")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	contentType := contentTypeOf(header, data)
	if err := validation.ProfilePicture(int64(len(data)), contentType); err != nil {
		writeFailure(w, err)
		return
	}

	if err := h.service.UpdateProfilePicture(r.Context(), claims.UserID, data, contentType); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to store profile picture")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	recordEvent(r, h.events, claims.UserID, "user.picture.updated", "Profile picture updated.")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile picture updated successfully."})
}
