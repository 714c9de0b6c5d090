package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap keeps the tests fast.
var cheap = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndVerify(t *testing.T) {
	h, err := HashPassword("correct horse", cheap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := VerifyPassword("correct horse", h)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong horse", h)
	require.NoError(t, err)
	assert.False(t, ok)

	h2, err := HashPassword("correct horse", cheap)
	require.NoError(t, err)
	assert.NotEqual(t, h, h2, "salted")
}

func TestHashRejectsShortPasswords(t *testing.T) {
	_, err := HashPassword("short", cheap)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestVerifyMalformedHash(t *testing.T) {
	for _, bad := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$AA$AA", "$argon2id$v=19$m=x$AA$AA"} {
		_, err := VerifyPassword("whatever1", bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
	_, err := VerifyPassword("whatever1", "$argon2id$v=16$m=1024,t=1,p=1$AAAA$AAAA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestJWTRoundTrip(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	id := uuid.New()
	tok, err := CreateJWT(id, "alice")
	require.NoError(t, err)

	who, err := AuthenticateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, id, who.UserID)
	assert.Equal(t, "alice", who.Name)

	_, err = AuthenticateJWT(tok + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// A token from another key pair is rejected.
	require.NoError(t, Init(time.Hour))
	_, err = AuthenticateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTExpiry(t *testing.T) {
	require.NoError(t, Init(-time.Minute))
	tok, err := CreateJWT(uuid.New(), "")
	require.NoError(t, err)
	_, err = AuthenticateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
