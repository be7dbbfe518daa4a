package toolkit

import (
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
	"unicode/utf8"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

// Codec names accepted by Encode and Decode.
const (
	CodecBase64    = "base64"
	CodecBase64URL = "base64url"
	CodecURL       = "url"
	CodecURLQuery  = "urlquery"
	CodecHex       = "hex"
)

const maxCodecInputBytes = 4 << 20

// Encode converts input with the named codec.
func Encode(codec, input string) (string, error) {
	if len(input) > maxCodecInputBytes {
		return "", apperrors.NewBadRequest("input is too large")
	}
	switch strings.ToLower(codec) {
	case CodecBase64:
		return base64.StdEncoding.EncodeToString([]byte(input)), nil
	case CodecBase64URL:
		return base64.RawURLEncoding.EncodeToString([]byte(input)), nil
	case CodecURL:
		return url.PathEscape(input), nil
	case CodecURLQuery:
		return url.QueryEscape(input), nil
	case CodecHex:
		return hex.EncodeToString([]byte(input)), nil
	default:
		return "", unsupportedCodec()
	}
}

// Decode reverses Encode. Output that is not valid UTF-8 is rejected since the result is
// returned as text.
func Decode(codec, input string) (string, error) {
	if len(input) > maxCodecInputBytes {
		return "", apperrors.NewBadRequest("input is too large")
	}

	var (
		out []byte
		err error
	)
	switch strings.ToLower(codec) {
	case CodecBase64:
		trimmed := strings.TrimSpace(input)
		out, err = base64.StdEncoding.DecodeString(trimmed)
		if err != nil {
			out, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(trimmed, "="))
		}
	case CodecBase64URL:
		out, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(input), "="))
	case CodecURL:
		var s string
		s, err = url.PathUnescape(input)
		out = []byte(s)
	case CodecURLQuery:
		var s string
		s, err = url.QueryUnescape(input)
		out = []byte(s)
	case CodecHex:
		out, err = hex.DecodeString(strings.TrimSpace(input))
	default:
		return "", unsupportedCodec()
	}
	if err != nil {
		return "", apperrors.NewBadRequest("input is not valid " + strings.ToLower(codec))
	}
	if !utf8.Valid(out) {
		return "", apperrors.NewBadRequest("decoded value is not valid UTF-8 text")
	}
	return string(out), nil
}

func unsupportedCodec() error {
	return apperrors.NewBadRequest("codec must be base64, base64url, url, urlquery or hex")
}
