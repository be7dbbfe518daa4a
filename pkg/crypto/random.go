package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
)

// GenerateToken returns n random bytes encoded as unpadded URL-safe base64.
func GenerateToken(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("crypto: token length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RandomString draws length runes uniformly from charset.
func RandomString(length int, charset string) (string, error) {
	if length <= 0 {
		return "", errors.New("crypto: length must be positive")
	}
	runes := []rune(charset)
	if len(runes) == 0 {
		return "", errors.New("crypto: charset is empty")
	}

	limit := big.NewInt(int64(len(runes)))
	out := make([]rune, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = runes[n.Int64()]
	}
	return string(out), nil
}
