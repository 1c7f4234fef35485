package authsvc_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/taskapp/internal/domain"

	. "github.com/mkrupp/taskapp/internal/svc/authsvc"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestCredentialService(t *testing.T) {
	t.Parallel()

	creds := NewCredentialService(4)

	hash1, err := creds.Hash("red12345!")
	require.NoError(t, err)

	hash2, err := creds.Hash("red12345!")
	require.NoError(t, err)

	assert.NotEqual(t, "red12345!", hash1)
	assert.NotEqual(t, hash1, hash2, "salted per call")

	ok, err := creds.Verify(hash1, "red12345!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = creds.Verify(hash2, "red12345!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = creds.Verify(hash1, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = creds.Verify("not-a-hash", "red12345!")
	require.Error(t, err)
}

func TestCredentialService_LongPassword(t *testing.T) {
	t.Parallel()

	creds := NewCredentialService(4)

	long := strings.Repeat("abcdefgh", 10)

	hash, err := creds.Hash(long)
	require.NoError(t, err)

	ok, err := creds.Verify(hash, long)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = creds.Verify(hash, long[:MaxPasswordBytes]+"different tail")
	require.NoError(t, err)
	assert.True(t, ok, "only the first 72 bytes count")

	ok, err = creds.Verify(hash, long[:MaxPasswordBytes-1])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenService(t *testing.T) {
	t.Parallel()

	tokens := NewTokenService(testSecret)

	token1, err := tokens.Issue("user-1")
	require.NoError(t, err)

	token2, err := tokens.Issue("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, token1, token2)

	claims, err := tokens.Verify(token1)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.InDelta(t, time.Now().Unix(), claims.IssuedAt, 5)

	t.Run("foreign secret", func(t *testing.T) {
		t.Parallel()

		other := NewTokenService([]byte("fedcba9876543210fedcba9876543210"))

		_, err := other.Verify(token1)
		require.ErrorIs(t, err, domain.ErrInvalidAuthToken)
	})

	t.Run("tampered", func(t *testing.T) {
		t.Parallel()

		other, err := tokens.Issue("user-2")
		require.NoError(t, err)

		parts1 := strings.Split(token1, ".")
		parts2 := strings.Split(other, ".")
		require.Len(t, parts1, 3)
		require.Len(t, parts2, 3)

		// payload of user-2 under the signature of user-1
		spliced := strings.Join([]string{parts1[0], parts2[1], parts1[2]}, ".")

		_, err = tokens.Verify(spliced)
		require.ErrorIs(t, err, domain.ErrInvalidAuthToken)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		_, err := tokens.Verify("garbage")
		require.ErrorIs(t, err, domain.ErrInvalidAuthToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		t.Parallel()

		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"_id": "user-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Verify(unsigned)
		require.ErrorIs(t, err, domain.ErrInvalidAuthToken)
	})

	t.Run("missing user id", func(t *testing.T) {
		t.Parallel()

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iat": time.Now().Unix()}).
			SignedString(testSecret)
		require.NoError(t, err)

		_, err = tokens.Verify(token)
		require.ErrorIs(t, err, domain.ErrInvalidAuthToken)
	})
}

func TestGetSecret(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys", "test.secret")

	secret, err := GetSecret(path)
	require.NoError(t, err)
	assert.Len(t, secret, DefaultSecretSize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := GetSecret(path)
	require.NoError(t, err)
	assert.Equal(t, secret, again, "secret is stable across restarts")
}

func TestDecodeSecret(t *testing.T) {
	t.Parallel()

	secret, err := DecodeSecret(bytes.NewReader(EncodeSecret(testSecret)))
	require.NoError(t, err)
	assert.Equal(t, testSecret, secret)

	_, err = DecodeSecret(strings.NewReader("zz"))
	require.Error(t, err)

	_, err = DecodeSecret(strings.NewReader("abcd"))
	require.ErrorIs(t, err, domain.ErrSecretTooShort)
}

func TestLoadSecret(t *testing.T) {
	t.Parallel()

	secret, err := LoadSecret(AuthConfig{Secret: string(testSecret), SecretFile: "/nonexistent/unused"})
	require.NoError(t, err)
	assert.Equal(t, testSecret, secret)

	_, err = LoadSecret(AuthConfig{Secret: "short"})
	require.ErrorIs(t, err, domain.ErrSecretTooShort)
}

func TestAuthService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	svc, err := NewAuthService(AuthConfig{
		SecretFile: filepath.Join(t.TempDir(), "test.secret"),
		BcryptCost: 4,
	})
	require.NoError(t, err)

	hash, err := svc.HashPassword(ctx, "red12345!")
	require.NoError(t, err)

	ok, err := svc.VerifyPassword(ctx, hash, "red12345!")
	require.NoError(t, err)
	assert.True(t, ok)

	token, err := svc.IssueToken(ctx, "user-1")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}
