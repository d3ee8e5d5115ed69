package validation

import "github.com/isdelr/realty-be/internal/models"

// Rejection messages of the credential validators.
const (
	MsgLoginMissing     = "Username and password are both needed to login."
	MsgSignupMissing    = "Email, username and password are all needed to sign up."
	MsgUsernameInvalid  = "Username must be a string of at most 50 characters."
	MsgPasswordInvalid  = "Password must be a string of at most 50 characters."
	MsgEmailInvalid     = "Email must be a string of at most 50 characters."
	MsgFirstNameInvalid = "First name must be a string of at most 50 characters."
	MsgLastNameInvalid  = "Last name must be a string of at most 50 characters."
)

// LoginBody is the raw login request. Fields stay untyped so that non-string
// values can be told apart from missing ones.
type LoginBody struct {
	Username interface{} `json:"username"`
	Password interface{} `json:"password"`
}

// SignupBody is the raw signup request.
type SignupBody struct {
	Email     interface{} `json:"email"`
	Username  interface{} `json:"username"`
	Password  interface{} `json:"password"`
	FirstName interface{} `json:"firstName"`
	LastName  interface{} `json:"lastName"`
}

// Credentials is an accepted login request, not yet normalized.
type Credentials struct {
	Username string
	Password string
}

// Login checks a login body. The username is checked before the password.
func Login(body LoginBody) (Credentials, error) {
	if absent(body.Username) || absent(body.Password) {
		return Credentials{}, reject(MsgLoginMissing)
	}
	username, ok := boundedString(body.Username, maxCredentialLength)
	if !ok {
		return Credentials{}, reject(MsgUsernameInvalid)
	}
	password, ok := boundedString(body.Password, maxCredentialLength)
	if !ok {
		return Credentials{}, reject(MsgPasswordInvalid)
	}
	return Credentials{Username: username, Password: password}, nil
}

// Signup checks a signup body in the order email, username, password. The
// optional names are checked last.
func Signup(body SignupBody) (models.NewUser, error) {
	if absent(body.Email) || absent(body.Username) || absent(body.Password) {
		return models.NewUser{}, reject(MsgSignupMissing)
	}
	email, ok := boundedString(body.Email, maxCredentialLength)
	if !ok {
		return models.NewUser{}, reject(MsgEmailInvalid)
	}
	username, ok := boundedString(body.Username, maxCredentialLength)
	if !ok {
		return models.NewUser{}, reject(MsgUsernameInvalid)
	}
	password, ok := boundedString(body.Password, maxCredentialLength)
	if !ok {
		return models.NewUser{}, reject(MsgPasswordInvalid)
	}

	user := models.NewUser{Username: username, Email: email, Password: password}
	if !absent(body.FirstName) {
		s, ok := boundedString(body.FirstName, maxCredentialLength)
		if !ok {
			return models.NewUser{}, reject(MsgFirstNameInvalid)
		}
		user.FirstName = &s
	}
	if !absent(body.LastName) {
		s, ok := boundedString(body.LastName, maxCredentialLength)
		if !ok {
			return models.NewUser{}, reject(MsgLastNameInvalid)
		}
		user.LastName = &s
	}
	return user, nil
}
