package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Alphanumeric is the 62 character alphabet used for public identifiers.
const Alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// RandomString draws length characters uniformly from alphabet using crypto/rand.
func RandomString(length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	if len(alphabet) == 0 {
		return "", fmt.Errorf("alphabet is required")
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// RandomURLToken returns n random bytes encoded as unpadded base64url.
func RandomURLToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("byte count must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
