package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("SR-1/logo.png", "logo.png")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	storageID, fileName, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "SR-1/logo.png", storageID)
	assert.Equal(t, "logo.png", fileName)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, _, err := signer.Generate("SR-1/logo.png", "logo.png")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)
	parts[0] = parts[0] + "x"
	_, _, err = signer.Parse(strings.Join(parts, "."))
	require.Error(t, err)
}

func TestSignedURLRejectsWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	other := NewSignedURLSigner("different", time.Hour)

	token, _, err := signer.Generate("SR-1/logo.png", "logo.png")
	require.NoError(t, err)

	_, _, err = other.Parse(token)
	require.Error(t, err)
}

func TestSignedURLRejectsExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Nanosecond)

	token, _, err := signer.Generate("SR-1/logo.png", "logo.png")
	require.NoError(t, err)

	// Expiry is stored at second precision; wait past the boundary.
	time.Sleep(1100 * time.Millisecond)
	_, _, err = signer.Parse(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestSignedURLRejectsGarbage(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	_, _, err := signer.Parse("not-a-token")
	require.Error(t, err)
}
