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

var (
	// ErrTokenInvalid covers malformed tokens and signature mismatches.
	ErrTokenInvalid = errors.New("invalid download token")
	// ErrTokenExpired is returned once a token's deadline has passed.
	ErrTokenExpired = errors.New("download token expired")
)

// Grant is the content of a signed download token.
type Grant struct {
	// Owner scopes the grant (company id for documents, job id for reports).
	Owner     string
	Key       string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token granting access to key on behalf of owner.
func (s *SignedURLSigner) Generate(owner, key string) (string, time.Time, error) {
	if owner == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("owner and key required")
	}
	if strings.Contains(owner, ".") {
		return "", time.Time{}, fmt.Errorf("owner must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedKey := base64.RawURLEncoding.EncodeToString([]byte(key))
	token := strings.Join([]string{owner, ts, encodedKey, s.sign(owner, ts, encodedKey)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token. When allowExpired is true the deadline is not enforced.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (Grant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return Grant{}, ErrTokenInvalid
	}
	owner, ts, encodedKey, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(owner, ts, encodedKey)), []byte(signature)) {
		return Grant{}, ErrTokenInvalid
	}
	rawKey, err := base64.RawURLEncoding.DecodeString(encodedKey)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Grant{}, ErrTokenInvalid
	}
	grant := Grant{Owner: owner, Key: string(rawKey), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && s.now().After(grant.ExpiresAt) {
		return Grant{}, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) sign(owner, ts, encodedKey string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(owner + "|" + ts + "|" + encodedKey))
	return hex.EncodeToString(mac.Sum(nil))
}
