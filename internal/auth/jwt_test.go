package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewCodec("super-secret")
	id := Identity{UserID: 42, Username: "alice"}

	tok, err := codec.Issue(id)
	require.NoError(t, err)

	claims, err := codec.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Identity())
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, DefaultTokenTTL, claims.Expiry().Sub(claims.IssuedAt.Time))
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	codec := NewCodec("secret", WithClock(clock.Now))

	tok, err := codec.Issue(Identity{UserID: 1, Username: "bob"})
	require.NoError(t, err)
	expiry := clock.t.Add(DefaultTokenTTL)

	clock.t = expiry.Add(-time.Second)
	_, err = codec.Verify(tok)
	require.NoError(t, err, "token must be valid one second before expiry")

	clock.t = expiry
	_, err = codec.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken, "token must be invalid at the expiry instant")

	clock.t = expiry.Add(time.Minute)
	_, err = codec.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewCodec("right-secret").Issue(Identity{UserID: 2, Username: "carol"})
	require.NoError(t, err)

	_, err = NewCodec("wrong-secret").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewCodec("k").Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := &Claims{
		UserID:   3,
		Username: "dave",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = NewCodec("k").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_MissingSecret(t *testing.T) {
	t.Parallel()

	codec := NewCodec("")
	_, err := codec.Issue(Identity{UserID: 1, Username: "x"})
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = codec.Verify("anything")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestWithTTL(t *testing.T) {
	t.Parallel()

	codec := NewCodec("k", WithTTL(10*time.Minute))
	assert.Equal(t, 10*time.Minute, codec.TTL())

	codec = NewCodec("k", WithTTL(-1))
	assert.Equal(t, DefaultTokenTTL, codec.TTL())
}
