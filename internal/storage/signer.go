package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signer creates and validates HMAC download tokens of the form
// expiresUnix.base64(path).signature.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Generate returns a signed token for objectPath valid for ttl.
func (s *Signer) Generate(objectPath string, ttl time.Duration) (string, time.Time, error) {
	if objectPath == "" {
		return "", time.Time{}, errors.New("storage: object path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("storage: signing secret missing")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("storage: ttl must be positive")
	}
	expiresAt := s.now().Add(ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(objectPath))
	token := strings.Join([]string{ts, encodedPath, s.sign(ts, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the object path it grants.
func (s *Signer) Parse(token string) (string, time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || len(s.secret) == 0 {
		return "", time.Time{}, ErrInvalidToken
	}
	ts, encodedPath, signature := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(s.sign(ts, encodedPath)), []byte(signature)) {
		return "", time.Time{}, ErrInvalidToken
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: timestamp", ErrInvalidToken)
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: path", ErrInvalidToken)
	}
	expiresAt := time.Unix(expUnix, 0)
	if !s.now().Before(expiresAt) {
		return "", time.Time{}, ErrTokenExpired
	}
	return string(rawPath), expiresAt, nil
}

func (s *Signer) sign(ts, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(ts + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
