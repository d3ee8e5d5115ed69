package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/models"
	"github.com/isdelr/realty-be/internal/validation"
	"github.com/rs/zerolog/log"
)

// Client-facing messages shared by several handlers.
const (
	MsgNotFoundRoute  = "Nothing came up with this search. Please check given URL."
	MsgInvalidBody    = "Invalid request body."
	MsgInternal       = auth.MsgInternal
	MsgTooManyRequest = "Too many requests. Please try again later."
)

// ListingPublisher announces listing changes to live subscribers.
type ListingPublisher interface {
	PublishListing(action string, p models.Property)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure renders validation and auth errors with their own status and
// everything else as a generic 500.
func writeFailure(w http.ResponseWriter, err error) {
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		writeError(w, vErr.Status, vErr.Message)
		return
	}
	auth.WriteError(w, err)
}

// decodeJSON decodes the request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// claimsFrom returns the identity attached by the authentication gate.
func claimsFrom(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Str("path", r.URL.Path).Msg("Could not retrieve user claims from context")
		auth.WriteError(w, auth.Unauthenticated(auth.MsgUnauthorized, nil))
		return nil, false
	}
	return claims, true
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func urlID(r *http.Request, name string) (int64, bool) {
	return parseID(chi.URLParam(r, name))
}

func queryID(r *http.Request, name string) (int64, bool) {
	return parseID(r.URL.Query().Get(name))
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, MsgNotFoundRoute)
}
