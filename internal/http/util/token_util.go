package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidSession = errors.New("invalid or expired session token")
	ErrMissingSecret  = errors.New("session secret is not configured")
)

// SessionSigner verifies the compact HMAC session tokens minted by the
// external identity service, which shares the secret. Issue exists for
// that service's contract and for tests.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionSigner returns a signer/verifier for session tokens.
func NewSessionSigner(secret []byte, ttl time.Duration) *SessionSigner {
	return &SessionSigner{
		secret: secret,
		ttl:    ttl,
	}
}

// Issue mints a token carrying the user id.
func (s *SessionSigner) Issue(userID int64) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}

	payload := make([]byte, 16) // 4 bytes expiry + 8 bytes user id + 4 random bytes
	expires := uint32(time.Now().Add(s.ttl).Unix())
	binary.BigEndian.PutUint32(payload[:4], expires)
	binary.BigEndian.PutUint64(payload[4:12], uint64(userID))
	if _, err := rand.Read(payload[12:]); err != nil {
		return "", err
	}

	payloadEnc := base64.RawURLEncoding.EncodeToString(payload)
	signature := s.sign(payload)
	sigEnc := base64.RawURLEncoding.EncodeToString(signature[:16])
	return fmt.Sprintf("%s.%s", payloadEnc, sigEnc), nil
}

// Verify checks signature integrity and TTL, returning the embedded user
// id.
func (s *SessionSigner) Verify(token string) (int64, error) {
	if len(s.secret) == 0 {
		return 0, ErrMissingSecret
	}

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return 0, ErrInvalidSession
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return 0, ErrInvalidSession
	}

	sigProvided, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, ErrInvalidSession
	}
	if len(sigProvided) != 16 {
		return 0, ErrInvalidSession
	}

	expected := s.sign(payload)
	if !hmac.Equal(sigProvided, expected[:16]) {
		return 0, ErrInvalidSession
	}

	if len(payload) < 12 {
		return 0, ErrInvalidSession
	}
	expires := binary.BigEndian.Uint32(payload[:4])
	if time.Now().Unix() > int64(expires) {
		return 0, ErrInvalidSession
	}

	return int64(binary.BigEndian.Uint64(payload[4:12])), nil
}

func (s *SessionSigner) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
