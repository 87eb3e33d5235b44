package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Signer issues and verifies short-lived signed URLs for stored images.
// Images are never exposed as permanent public links; every reference a
// client receives expires.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// DefaultSignTTL is how long a signed URL stays valid when no TTL is
// configured.
const DefaultSignTTL = 5 * time.Minute

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultSignTTL
	}
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *Signer) mac(path string, exp int64) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%s\n%d", path, exp)
	return hex.EncodeToString(h.Sum(nil))
}

// Sign returns a relative URL for path valid until the TTL elapses.
func (s *Signer) Sign(path string) string {
	exp := s.now().Add(s.ttl).Unix()
	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", s.mac(path, exp))
	return "/files/" + path + "?" + q.Encode()
}

// Verify checks the signature and expiry for path. The comparison is
// constant time.
func (s *Signer) Verify(path, expStr, sig string) error {
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expiry: %w", err)
	}
	if s.now().Unix() > exp {
		return fmt.Errorf("url expired")
	}
	if !hmac.Equal([]byte(s.mac(path, exp)), []byte(sig)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
