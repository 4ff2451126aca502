package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner issues and validates signed download tokens so deliverable
// files can be fetched without an authenticated session.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a token granting access to the storage ID, with the
// original file name embedded for the Content-Disposition header.
func (s *SignedURLSigner) Generate(storageID, fileName string) (string, time.Time, error) {
	if storageID == "" {
		return "", time.Time{}, fmt.Errorf("storageID required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(storageID))
	encodedName := base64.RawURLEncoding.EncodeToString([]byte(fileName))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)

	token := strings.Join([]string{encodedID, encodedName, exp, s.sign(encodedID, encodedName, exp)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded storage ID and file name.
func (s *SignedURLSigner) Parse(token string) (storageID, fileName string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", fmt.Errorf("invalid token format")
	}
	encodedID, encodedName, exp, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(encodedID, encodedName, exp)), []byte(signature)) {
		return "", "", fmt.Errorf("invalid token signature")
	}

	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("invalid token timestamp")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", "", fmt.Errorf("token expired")
	}

	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", "", fmt.Errorf("decode storage id: %w", err)
	}
	rawName, err := base64.RawURLEncoding.DecodeString(encodedName)
	if err != nil {
		return "", "", fmt.Errorf("decode file name: %w", err)
	}
	return string(rawID), string(rawName), nil
}

func (s *SignedURLSigner) sign(encodedID, encodedName, exp string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encodedID + "|" + encodedName + "|" + exp))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
