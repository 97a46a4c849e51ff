package verification

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// DefaultTokenBytes gives 256 bits of entropy.
const DefaultTokenBytes = 32

// GenerateToken returns n random bytes encoded as unpadded base64url, safe for a query parameter.
func GenerateToken(n int) (string, error) {
	if n < DefaultTokenBytes {
		return "", fmt.Errorf("token length %d below minimum of %d bytes", n, DefaultTokenBytes)
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken returns the hex SHA-256 fingerprint of a raw token. It needs no key,
// so stored fingerprints are looked up by plain equality.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
