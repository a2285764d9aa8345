package staff

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

const keyPrefix = "sk_"

// Hasher derives stored key hashes with HMAC-SHA256 and a server-side pepper.
type Hasher struct {
	pepper []byte
}

// NewHasher returns a Hasher using pepper as the HMAC key.
func NewHasher(pepper []byte) *Hasher {
	return &Hasher{pepper: pepper}
}

// Sum returns the raw HMAC of key.
func (h *Hasher) Sum(key string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// Hex returns the hex-encoded HMAC of key, as stored.
func (h *Hasher) Hex(key string) string {
	return hex.EncodeToString(h.Sum(key))
}

// Equal compares the HMAC of key against a stored hex hash in constant time.
func (h *Hasher) Equal(key, storedHex string) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(h.Sum(key), stored) == 1
}

// GenerateKey returns a new random API key.
func GenerateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}
