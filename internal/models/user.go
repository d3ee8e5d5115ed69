package models

import "time"

// User represents a user account in the system.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never expose this to the client
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// UserInfo holds the optional profile and contact details of a user.
type UserInfo struct {
	UserID                 int64   `json:"userId" db:"user_id"`
	FirstName              *string `json:"firstName" db:"first_name"`
	LastName               *string `json:"lastName" db:"last_name"`
	PhoneNumber            *string `json:"phoneNumber" db:"phone_number"`
	PreferredContactMethod *string `json:"preferredContactMethod" db:"preferred_contact_method"`
	ProfilePicture         []byte  `json:"-" db:"profile_picture"`
	ProfilePictureType     *string `json:"-" db:"profile_picture_type"`
}

// Profile is the user view returned to the account owner.
type Profile struct {
	ID                     int64   `json:"id"`
	Username               string  `json:"username"`
	Email                  string  `json:"email"`
	FirstName              *string `json:"firstName"`
	LastName               *string `json:"lastName"`
	PhoneNumber            *string `json:"phoneNumber"`
	PreferredContactMethod *string `json:"preferredContactMethod"`
}

// ContactInfo is what a visitor sees when asking how to reach a listing owner.
type ContactInfo struct {
	PhoneNumber            string `json:"phoneNumber"`
	Email                  string `json:"email"`
	PreferredContactMethod string `json:"preferredContactMethod"`
}

// UserInfoPatch holds the editable profile fields; nil fields are left
// untouched.
type UserInfoPatch struct {
	FirstName              *string `json:"firstName,omitempty"`
	LastName               *string `json:"lastName,omitempty"`
	PhoneNumber            *string `json:"phoneNumber,omitempty"`
	PreferredContactMethod *string `json:"preferredContactMethod,omitempty"`
}

// NewUser is a validated signup request.
type NewUser struct {
	Username  string
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}
