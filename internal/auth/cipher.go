package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CodeLength is the number of decimal digits in every one-time code.
const CodeLength = 6

// CodeCipher generates one-time codes and computes the keyed digests that are
// stored in place of the raw codes.
type CodeCipher struct {
	key []byte
}

func NewCodeCipher(key []byte) *CodeCipher {
	return &CodeCipher{key: key}
}

// Digest returns the hex encoded HMAC-SHA256 of code under the cipher key.
func (c *CodeCipher) Digest(code string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal reports whether code digests to the stored digest, in constant time.
func (c *CodeCipher) Equal(code, digest string) bool {
	return hmac.Equal([]byte(c.Digest(code)), []byte(digest))
}

// GenerateCode returns a uniformly random code of exactly CodeLength digits.
func (c *CodeCipher) GenerateCode() (string, error) {
	digits := make([]byte, CodeLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
