package toolkit

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/google/uuid"

	"github.com/charlesng35/omnikit/pkg/crypto"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

const (
	maxGenerateCount  = 100
	maxPasswordLength = 256

	lowerChars   = "abcdefghijklmnopqrstuvwxyz"
	upperChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars   = "0123456789"
	symbolChars  = "!@#$%^&*()-_=+[]{};:,.?"
	similarChars = "il1Lo0O"
)

// UUIDOptions tunes UUIDs.
type UUIDOptions struct {
	Version   int `default:"4"`
	Count     int `default:"1"`
	Uppercase bool
	NoHyphens bool
}

// UUIDs returns Count identifiers of the requested version (4 or 7).
func UUIDs(opts UUIDOptions) ([]string, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, err
	}
	if opts.Count < 1 || opts.Count > maxGenerateCount {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("count must be between 1 and %d", maxGenerateCount))
	}

	var next func() (uuid.UUID, error)
	switch opts.Version {
	case 4:
		next = uuid.NewRandom
	case 7:
		next = uuid.NewV7
	default:
		return nil, apperrors.NewBadRequest("version must be 4 or 7")
	}

	out := make([]string, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		id, err := next()
		if err != nil {
			return nil, fmt.Errorf("toolkit: generate uuid: %w", err)
		}
		value := id.String()
		if opts.NoHyphens {
			value = strings.ReplaceAll(value, "-", "")
		}
		if opts.Uppercase {
			value = strings.ToUpper(value)
		}
		out = append(out, value)
	}
	return out, nil
}

// PasswordOptions selects the character classes drawn from. Nil class toggles default to on.
type PasswordOptions struct {
	Length         int   `default:"16"`
	Count          int   `default:"1"`
	Lowercase      *bool `default:"true"`
	Uppercase      *bool `default:"true"`
	Digits         *bool `default:"true"`
	Symbols        *bool `default:"false"`
	ExcludeSimilar bool
}

// Passwords returns Count random passwords. Each password contains at least one character
// from every enabled class.
func Passwords(opts PasswordOptions) ([]string, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, err
	}
	if opts.Count < 1 || opts.Count > maxGenerateCount {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("count must be between 1 and %d", maxGenerateCount))
	}

	var classes []string
	for _, class := range []struct {
		on    bool
		chars string
	}{
		{*opts.Lowercase, lowerChars},
		{*opts.Uppercase, upperChars},
		{*opts.Digits, digitChars},
		{*opts.Symbols, symbolChars},
	} {
		if !class.on {
			continue
		}
		chars := class.chars
		if opts.ExcludeSimilar {
			chars = stripChars(chars, similarChars)
		}
		classes = append(classes, chars)
	}
	if len(classes) == 0 {
		return nil, apperrors.NewBadRequest("at least one character class is required")
	}
	if opts.Length < len(classes) || opts.Length > maxPasswordLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("length must be between %d and %d", len(classes), maxPasswordLength))
	}

	charset := strings.Join(classes, "")
	out := make([]string, 0, opts.Count)
	for len(out) < opts.Count {
		candidate, err := crypto.RandomString(opts.Length, charset)
		if err != nil {
			return nil, fmt.Errorf("toolkit: generate password: %w", err)
		}
		if coversClasses(candidate, classes) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

func coversClasses(value string, classes []string) bool {
	for _, class := range classes {
		if !strings.ContainsAny(value, class) {
			return false
		}
	}
	return true
}

func stripChars(chars, remove string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(remove, r) {
			return -1
		}
		return r
	}, chars)
}
