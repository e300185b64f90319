package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash, "hash must not be the plaintext")

	assert.True(t, CheckPassword("pw123456", hash))
	assert.False(t, CheckPassword("wrongpass", hash))
}

func TestHashPassword_Salted(t *testing.T) {
	h1, err := HashPassword("samepassword")
	require.NoError(t, err)
	h2, err := HashPassword("samepassword")
	require.NoError(t, err)

	// bcrypt salts each hash, so two hashes of the same input differ.
	assert.NotEqual(t, h1, h2)
}

func TestCheckPassword_DummyHash(t *testing.T) {
	// The dummy hash must be a well-formed bcrypt hash that matches
	// nothing a caller would ever send.
	assert.False(t, CheckPassword("", DummyHash))
	assert.False(t, CheckPassword("password", DummyHash))
}

func TestGenerateSessionToken(t *testing.T) {
	tok1, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.Len(t, tok1, 64, "expected 32 hex-encoded bytes")

	tok2, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok1, tok2, "tokens must be unique")
}
