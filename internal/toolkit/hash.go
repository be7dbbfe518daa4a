package toolkit

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/creasty/defaults"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/charlesng35/omnikit/pkg/crypto"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

var hashFactories = map[string]func() hash.Hash{
	"md5":      md5.New,
	"sha1":     sha1.New,
	"sha224":   sha256.New224,
	"sha256":   sha256.New,
	"sha384":   sha512.New384,
	"sha512":   sha512.New,
	"sha3-256": sha3.New256,
	"sha3-512": sha3.New512,
	"blake2b-256": func() hash.Hash {
		h, _ := blake2b.New256(nil)
		return h
	},
	"crc32": func() hash.Hash { return crc32.NewIEEE() },
}

// HashAlgorithms lists the digests Hash understands, sorted.
func HashAlgorithms() []string {
	names := make([]string, 0, len(hashFactories))
	for name := range hashFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HashOptions selects algorithms and output encoding. A non-empty HMACKey switches to HMAC
// for every algorithm except crc32.
type HashOptions struct {
	Algorithms []string
	HMACKey    string
	Encoding   string `default:"hex"`
	Uppercase  bool
}

// Hash digests input with every requested algorithm. An empty list selects all of them.
func Hash(input string, opts HashOptions) (map[string]string, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, err
	}

	algorithms := opts.Algorithms
	if len(algorithms) == 0 {
		algorithms = HashAlgorithms()
	}

	out := make(map[string]string, len(algorithms))
	for _, name := range algorithms {
		name = strings.ToLower(strings.TrimSpace(name))
		factory, ok := hashFactories[name]
		if !ok {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unsupported algorithm %q", name))
		}

		var h hash.Hash
		if opts.HMACKey != "" && name != "crc32" {
			h = hmac.New(factory, []byte(opts.HMACKey))
		} else {
			h = factory()
		}
		h.Write([]byte(input))
		sum := h.Sum(nil)

		switch strings.ToLower(opts.Encoding) {
		case "hex":
			encoded := hex.EncodeToString(sum)
			if opts.Uppercase {
				encoded = strings.ToUpper(encoded)
			}
			out[name] = encoded
		case "base64":
			out[name] = base64.StdEncoding.EncodeToString(sum)
		default:
			return nil, apperrors.NewBadRequest("encoding must be hex or base64")
		}
	}
	return out, nil
}

// BcryptHash hashes input with the given cost (bcrypt.DefaultCost when zero).
func BcryptHash(input string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > 14 {
		return "", apperrors.NewBadRequest(fmt.Sprintf("cost must be between %d and 14", bcrypt.MinCost))
	}
	if len(input) > 72 {
		return "", apperrors.NewBadRequest("bcrypt input is limited to 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(input), cost)
	if err != nil {
		return "", fmt.Errorf("toolkit: bcrypt: %w", err)
	}
	return string(hashed), nil
}

// BcryptVerify reports whether input matches hashed.
func BcryptVerify(input, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(input)) == nil
}

// Argon2Hash returns a PHC-encoded argon2id hash of input.
func Argon2Hash(input string) (string, error) {
	hashed, err := crypto.HashArgon2id(input, crypto.DefaultKDFParams())
	if err != nil {
		return "", fmt.Errorf("toolkit: argon2id: %w", err)
	}
	return hashed, nil
}

// Argon2Verify reports whether input matches an encoded argon2id hash.
func Argon2Verify(input, hashed string) (bool, error) {
	ok, err := crypto.VerifyArgon2id(input, hashed)
	if errors.Is(err, crypto.ErrMalformedHash) {
		return false, apperrors.NewBadRequest("hash is not a valid argon2id string")
	}
	return ok, err
}
