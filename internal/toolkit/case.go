package toolkit

import (
	"strings"

	"github.com/iancoleman/strcase"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

var caseConverters = map[string]func(string) string{
	"camel":           strcase.ToLowerCamel,
	"pascal":          strcase.ToCamel,
	"snake":           strcase.ToSnake,
	"screaming_snake": strcase.ToScreamingSnake,
	"kebab":           strcase.ToKebab,
	"screaming_kebab": strcase.ToScreamingKebab,
	"dot":             func(s string) string { return strcase.ToDelimited(s, '.') },
	"upper":           strings.ToUpper,
	"lower":           strings.ToLower,
}

// ConvertCase rewrites every non-blank line of input in the named style.
func ConvertCase(style, input string) (string, error) {
	convert, ok := caseConverters[strings.ToLower(strings.TrimSpace(style))]
	if !ok {
		return "", apperrors.NewBadRequest("unsupported case style " + style)
	}
	if len(input) > maxCodecInputBytes {
		return "", apperrors.NewBadRequest("input is too large")
	}

	lines := strings.Split(input, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines[i] = convert(strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n"), nil
}

// AllCases renders input in every supported style.
func AllCases(input string) map[string]string {
	out := make(map[string]string, len(caseConverters))
	for name, convert := range caseConverters {
		out[name] = convert(strings.TrimSpace(input))
	}
	return out
}
