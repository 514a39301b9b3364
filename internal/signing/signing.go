// Package signing issues and checks HMAC-signed, expiring download links for
// stored order files.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"
)

var (
	ErrExpired          = errors.New("link expired")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer generates and validates HMAC based signatures.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign returns the hex signature binding a file key to an expiry.
func (s *Signer) Sign(fileKey string, expiresUnix int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(fileKey + ":" + strconv.FormatInt(expiresUnix, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate compares the provided signature with the expected one.
func (s *Signer) Validate(fileKey, expires, signature string) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	expected := s.Sign(fileKey, exp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// URL builds base?file=..&expires=..&signature=.. valid for ttl.
func (s *Signer) URL(base, fileKey string, ttl time.Duration) (string, time.Time) {
	expiry := s.now().Add(ttl).Truncate(time.Second)
	q := url.Values{}
	q.Set("file", fileKey)
	q.Set("expires", strconv.FormatInt(expiry.Unix(), 10))
	q.Set("signature", s.Sign(fileKey, expiry.Unix()))
	return base + "?" + q.Encode(), expiry
}

// Verify checks a download query produced by URL.
func (s *Signer) Verify(q url.Values) (string, error) {
	key, expires, sig := q.Get("file"), q.Get("expires"), q.Get("signature")
	if key == "" || expires == "" || sig == "" {
		return "", ErrInvalidSignature
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return "", ErrInvalidSignature
	}
	if !s.Validate(key, expires, sig) {
		return "", ErrInvalidSignature
	}
	if time.Unix(exp, 0).Before(s.now()) {
		return "", ErrExpired
	}
	return key, nil
}
