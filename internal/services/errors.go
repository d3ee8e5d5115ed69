package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUsernameTaken is returned when signing up with a username already in use.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken is returned when signing up with an email already in use.
	ErrEmailTaken = errors.New("email already taken")
	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSearchCondition is returned for a search field outside the allow-list.
	ErrInvalidSearchCondition = errors.New("invalid search condition")
)

// Missing pieces of a listing owner's contact details, in the order they are
// checked. All of them match ErrNotFound.
var (
	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrUserInfoNotFound     = fmt.Errorf("%w: user info", ErrNotFound)
	ErrEmailMissing         = fmt.Errorf("%w: email", ErrNotFound)
	ErrContactMethodMissing = fmt.Errorf("%w: preferred contact method", ErrNotFound)
	ErrPhoneMissing         = fmt.Errorf("%w: phone number", ErrNotFound)
)
