package toolkit

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

func TestUUIDs(t *testing.T) {
	ids, err := UUIDs(UUIDOptions{})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	parsed, err := uuid.Parse(ids[0])
	require.NoError(t, err)
	require.EqualValues(t, 4, parsed.Version())

	ids, err = UUIDs(UUIDOptions{Version: 7, Count: 5, Uppercase: true, NoHyphens: true})
	require.NoError(t, err)
	require.Len(t, ids, 5)
	seen := map[string]struct{}{}
	for _, id := range ids {
		require.Len(t, id, 32)
		require.Equal(t, strings.ToUpper(id), id)
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		require.EqualValues(t, 7, parsed.Version())
		seen[id] = struct{}{}
	}
	require.Len(t, seen, 5)

	_, err = UUIDs(UUIDOptions{Version: 1})
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)
	_, err = UUIDs(UUIDOptions{Count: 1000})
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)
}

func TestPasswordsDefaults(t *testing.T) {
	out, err := Passwords(PasswordOptions{Count: 20})
	require.NoError(t, err)
	require.Len(t, out, 20)
	for _, pw := range out {
		require.Len(t, pw, 16)
		require.True(t, strings.ContainsAny(pw, lowerChars))
		require.True(t, strings.ContainsAny(pw, upperChars))
		require.True(t, strings.ContainsAny(pw, digitChars))
		require.False(t, strings.ContainsAny(pw, symbolChars))
	}
}

func TestPasswordsClasses(t *testing.T) {
	off := false
	on := true
	out, err := Passwords(PasswordOptions{Length: 12, Lowercase: &off, Uppercase: &off, Symbols: &on, ExcludeSimilar: true})
	require.NoError(t, err)
	pw := out[0]
	require.Len(t, pw, 12)
	require.False(t, strings.ContainsAny(pw, lowerChars+upperChars))
	require.False(t, strings.ContainsAny(pw, "10"))
	require.True(t, strings.ContainsAny(pw, symbolChars))

	_, err = Passwords(PasswordOptions{Lowercase: &off, Uppercase: &off, Digits: &off})
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)

	_, err = Passwords(PasswordOptions{Length: 2, Symbols: &on})
	require.Equal(t, apperrors.ErrBadRequest.Code, apperrors.FromError(err).Code)
}
