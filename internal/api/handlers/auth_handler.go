package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/metrics"
	"github.com/isdelr/realty-be/internal/services"
	"github.com/isdelr/realty-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// Client-facing messages of the account endpoints.
const (
	MsgBadCredentials = "Unauthorized login credentials. Please check spelling."
	MsgUsernameTaken  = "Username is already taken. Please choose another one."
	MsgEmailTaken     = "An account with this email already exists."
	MsgUserNotFound   = "User not found."
)

// AuthHandler handles signup, login and session endpoints.
type AuthHandler struct {
	users       services.UserServiceProvider
	info        services.InfoServiceProvider
	events      services.EventServiceProvider
	codec       *auth.Codec
	revocations auth.RevocationStore
	metrics     *metrics.Metrics
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, info services.InfoServiceProvider, events services.EventServiceProvider, codec *auth.Codec, revocations auth.RevocationStore, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		users:       users,
		info:        info,
		events:      events,
		codec:       codec,
		revocations: revocations,
		metrics:     m,
	}
}

// Signup handles new user registration.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var body validation.SignupBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	nu, err := validation.Signup(body)
	if err != nil {
		writeFailure(w, err)
		return
	}
	nu.Username = validation.NormalizeUsername(nu.Username)
	nu.Email = validation.NormalizeEmail(nu.Email)
	// Login trims the password, so the stored hash must be of the trimmed one.
	nu.Password = strings.TrimSpace(nu.Password)
	if nu.Password == "" {
		writeError(w, http.StatusBadRequest, validation.MsgSignupMissing)
		return
	}

	user, err := h.users.CreateUser(r.Context(), nu)
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		writeError(w, http.StatusConflict, MsgUsernameTaken)
		return
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, MsgEmailTaken)
		return
	case err != nil:
		log.Error().Err(err).Str("username", nu.Username).Msg("Failed to register user")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	token, err := h.codec.Issue(auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to generate JWT")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	h.metrics.SignupCompleted()
	h.record(r, user.ID, "user.signup", fmt.Sprintf("Account %s created.", user.Username))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully.",
		"user": map[string]interface{}{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
		},
		"token": token,
	})
}

// Login handles user authentication and JWT generation. Unknown users and
// wrong passwords get the same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body validation.LoginBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}
	creds, err := validation.Login(body)
	if err != nil {
		writeFailure(w, err)
		return
	}
	username := validation.NormalizeUsername(creds.Username)
	password := strings.TrimSpace(creds.Password)

	user, err := h.users.AuthenticateUser(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.metrics.LoginAttempt(false)
			log.Warn().Str("username", username).Msg("Failed authentication attempt")
			writeError(w, http.StatusUnauthorized, MsgBadCredentials)
			return
		}
		log.Error().Err(err).Str("username", username).Msg("Failed to authenticate user")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	token, err := h.codec.Issue(auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to generate JWT")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}

	h.metrics.LoginAttempt(true)
	h.record(r, user.ID, "user.login", "Signed in.")

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Login successful.",
		"token":   token,
	})
}

// Logout revokes the presented token before its natural expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	if h.revocations != nil && claims.ID != "" {
		if err := h.revocations.Revoke(r.Context(), claims.ID, claims.Expiry()); err != nil {
			log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to revoke token")
			writeError(w, http.StatusInternalServerError, MsgInternal)
			return
		}
	}
	h.record(r, claims.UserID, "user.logout", "Signed out.")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully."})
}

// GetMe retrieves the currently authenticated user from the token.
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}

	profile, err := h.info.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to load current user")
		writeError(w, http.StatusInternalServerError, MsgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":      profile,
		"expiresAt": claims.Expiry().Unix(),
	})
}

// record stores an activity event; failures are only logged.
func (h *AuthHandler) record(r *http.Request, userID int64, eventType, message string) {
	recordEvent(r, h.events, userID, eventType, message)
}

func recordEvent(r *http.Request, events services.EventServiceProvider, userID int64, eventType, message string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(r.Context(), eventType, "info", message, &userID); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}
