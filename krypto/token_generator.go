package krypto

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// GenerateRandomString generates a random alphanumeric string of the specified
// length using crypto/rand. Used for OAuth state and nonce values.
func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	charsetLen := big.NewInt(int64(len(charset)))

	randomString := make([]byte, length)
	for i := range randomString {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		randomString[i] = charset[n.Int64()]
	}

	return string(randomString), nil
}

// GenerateToken64 returns a 64 character identifier built from two UUIDv4s.
func GenerateToken64() string {
	return strings.ReplaceAll(uuid.New().String()+uuid.New().String(), "-", "")
}
