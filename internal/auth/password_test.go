package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	passwordCost = bcrypt.MinCost
}

func TestHashPassword_Verifies(t *testing.T) {
	digest, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", digest)

	ok, err := CheckPassword(digest, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(digest, "hunter3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_FreshSaltPerCall(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCheckPassword_MalformedDigest(t *testing.T) {
	_, err := CheckPassword("not-a-bcrypt-digest", "whatever")
	assert.Error(t, err)
}
