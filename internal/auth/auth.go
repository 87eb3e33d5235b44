package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"receiptsnap/internal/common"
)

// Verifier resolves a presented API key to the owning user.
type Verifier interface {
	Verify(key string) (uuid.UUID, error)
}

// StaticKeyVerifier checks keys against a table loaded at startup. Keys are
// held as SHA-256 digests only; the plaintext never sits in memory past
// construction and never appears in logs.
type StaticKeyVerifier struct {
	byDigest map[string]uuid.UUID
}

// NewStaticKeyVerifier parses the "key:userUUID,key2:userUUID2" table from
// configuration.
func NewStaticKeyVerifier(table string) (*StaticKeyVerifier, error) {
	byDigest := map[string]uuid.UUID{}
	for _, pair := range strings.Split(table, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, id, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("malformed api key entry")
		}
		userID, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("malformed user id in api key table: %w", err)
		}
		byDigest[digest(strings.TrimSpace(key))] = userID
	}
	if len(byDigest) == 0 {
		return nil, fmt.Errorf("api key table is empty")
	}
	return &StaticKeyVerifier{byDigest: byDigest}, nil
}

func digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (v *StaticKeyVerifier) Verify(key string) (uuid.UUID, error) {
	if key == "" {
		return uuid.Nil, common.ErrUnauthorized
	}
	d := digest(key)
	for stored, userID := range v.byDigest {
		if subtle.ConstantTimeCompare([]byte(stored), []byte(d)) == 1 {
			return userID, nil
		}
	}
	return uuid.Nil, common.ErrUnauthorized
}
