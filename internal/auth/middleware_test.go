package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	f.revoked[tokenID] = true
	return nil
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return f.revoked[tokenID], f.err
}

func (f *fakeRevocations) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func serveGate(t *testing.T, codec *Codec, rev RevocationStore, header string) (*httptest.ResponseRecorder, *Claims) {
	t.Helper()
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	Gate(codec, rev)(next).ServeHTTP(rec, req)
	return rec, seen
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestGate_MissingHeader(t *testing.T) {
	rec, seen := serveGate(t, NewCodec("k"), nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgUnauthorized, errorMessage(t, rec))
	assert.Nil(t, seen)
}

func TestGate_MalformedHeader(t *testing.T) {
	for _, h := range []string{"Token abc", "Bearer", "Bearer a b"} {
		rec, _ := serveGate(t, NewCodec("k"), nil, h)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, h)
		assert.Equal(t, MsgUnauthorized, errorMessage(t, rec), h)
	}
}

func TestGate_InvalidToken(t *testing.T) {
	tok, err := NewCodec("other").Issue(Identity{UserID: 1, Username: "a"})
	require.NoError(t, err)

	rec, seen := serveGate(t, NewCodec("k"), nil, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgInvalidToken, errorMessage(t, rec))
	assert.Nil(t, seen)
}

func TestGate_MissingSecretIsServerFault(t *testing.T) {
	rec, _ := serveGate(t, NewCodec(""), nil, "Bearer whatever")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGate_ValidTokenAttachesClaims(t *testing.T) {
	codec := NewCodec("k")
	tok, err := codec.Issue(Identity{UserID: 7, Username: "grace"})
	require.NoError(t, err)

	rec, seen := serveGate(t, codec, &fakeRevocations{revoked: map[string]bool{}}, "bearer "+tok)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, Identity{UserID: 7, Username: "grace"}, seen.Identity())
}

func TestGate_RevokedToken(t *testing.T) {
	codec := NewCodec("k")
	tok, err := codec.Issue(Identity{UserID: 7, Username: "grace"})
	require.NoError(t, err)
	claims, err := codec.Verify(tok)
	require.NoError(t, err)

	rev := &fakeRevocations{revoked: map[string]bool{claims.ID: true}}
	rec, _ := serveGate(t, codec, rev, "Bearer "+tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgInvalidToken, errorMessage(t, rec))
}

func TestGate_RevocationLookupFailure(t *testing.T) {
	codec := NewCodec("k")
	tok, err := codec.Issue(Identity{UserID: 7, Username: "grace"})
	require.NoError(t, err)

	rev := &fakeRevocations{revoked: map[string]bool{}, err: errors.New("db down")}
	rec, _ := serveGate(t, codec, rev, "Bearer "+tok)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteError_Forbidden(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, Forbidden("nope"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "nope", errorMessage(t, rec))
}

func TestWriteError_UnknownErrorIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("raw"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgInternal, errorMessage(t, rec))
}
