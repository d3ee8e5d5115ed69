package validation

import (
	"strings"

	"github.com/isdelr/realty-be/internal/models"
)

// MaxProfilePictureSize is the largest accepted profile picture upload.
const MaxProfilePictureSize = 5 << 20

// Rejection messages of the profile validators.
const (
	MsgPhoneInvalid       = "Phone number must be a string of at most 40 characters."
	MsgContactMethodValue = "Preferred contact method must be either email or phone."
	MsgPictureMissing     = "Please provide a profile picture."
	MsgPictureTooLarge    = "Profile picture is too large (max 5 MB)."
	MsgPictureNotImage    = "Profile picture must be an image."
)

const maxPhoneLength = 40

var contactMethods = map[string]bool{"email": true, "phone": true}

// UserInfoUpdate checks a profile update body.
func UserInfoUpdate(body map[string]interface{}) (models.UserInfoPatch, error) {
	var patch models.UserInfoPatch
	present := false

	if v, ok := body["firstName"]; ok {
		s, valid := boundedString(v, maxCredentialLength)
		if !valid {
			return models.UserInfoPatch{}, reject(MsgFirstNameInvalid)
		}
		patch.FirstName, present = &s, true
	}
	if v, ok := body["lastName"]; ok {
		s, valid := boundedString(v, maxCredentialLength)
		if !valid {
			return models.UserInfoPatch{}, reject(MsgLastNameInvalid)
		}
		patch.LastName, present = &s, true
	}
	if v, ok := body["phoneNumber"]; ok {
		s, valid := boundedString(v, maxPhoneLength)
		if !valid {
			return models.UserInfoPatch{}, reject(MsgPhoneInvalid)
		}
		patch.PhoneNumber, present = &s, true
	}
	if v, ok := body["preferredContactMethod"]; ok {
		s, _ := v.(string)
		s = strings.ToLower(strings.TrimSpace(s))
		if !contactMethods[s] {
			return models.UserInfoPatch{}, reject(MsgContactMethodValue)
		}
		patch.PreferredContactMethod, present = &s, true
	}

	if !present {
		return models.UserInfoPatch{}, reject(MsgNothingToPatch)
	}
	return patch, nil
}

// ProfilePicture checks an uploaded profile picture.
func ProfilePicture(size int64, contentType string) error {
	if size <= 0 {
		return reject(MsgPictureMissing)
	}
	if size > MaxProfilePictureSize {
		return reject(MsgPictureTooLarge)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return reject(MsgPictureNotImage)
	}
	return nil
}
