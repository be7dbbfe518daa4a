package toolkit

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/creasty/defaults"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

const maxJSONInputBytes = 4 << 20

// JSONOptions tunes FormatJSON. Key order is preserved unless SortKeys or Path forces a
// decode and re-encode.
type JSONOptions struct {
	Indent   int `default:"2"`
	Minify   bool
	SortKeys bool
	// Path selects a sub-document in dot notation, e.g. "items.0.name".
	Path string
}

// JSONValidation describes whether a document parsed and where it failed.
type JSONValidation struct {
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
	Offset int64  `json:"offset,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// FormatJSON pretty prints or minifies input.
func FormatJSON(input string, opts JSONOptions) (string, error) {
	if err := defaults.Set(&opts); err != nil {
		return "", err
	}
	if len(input) > maxJSONInputBytes {
		return "", apperrors.NewBadRequest("input is too large")
	}
	if opts.Indent < 0 || opts.Indent > 8 {
		return "", apperrors.NewBadRequest("indent must be between 0 and 8")
	}
	src := []byte(strings.TrimSpace(input))
	if report := ValidateJSON(input); !report.Valid {
		return "", apperrors.NewBadRequest(fmt.Sprintf("invalid JSON at line %d column %d: %s", report.Line, report.Column, report.Error))
	}

	if opts.SortKeys || opts.Path != "" {
		value, err := decodeJSON(src)
		if err != nil {
			return "", apperrors.NewBadRequest("invalid JSON: " + err.Error())
		}
		if opts.Path != "" {
			container := gabs.Wrap(value)
			if !container.ExistsP(opts.Path) {
				return "", apperrors.NewNotFound(fmt.Sprintf("path %q not found", opts.Path))
			}
			value = container.Path(opts.Path).Data()
		}
		if opts.Minify || opts.Indent == 0 {
			out, err := json.Marshal(value)
			return string(out), err
		}
		out, err := json.MarshalIndent(value, "", strings.Repeat(" ", opts.Indent))
		return string(out), err
	}

	var buf bytes.Buffer
	if opts.Minify || opts.Indent == 0 {
		if err := json.Compact(&buf, src); err != nil {
			return "", apperrors.NewBadRequest("invalid JSON: " + err.Error())
		}
		return buf.String(), nil
	}
	if err := json.Indent(&buf, src, "", strings.Repeat(" ", opts.Indent)); err != nil {
		return "", apperrors.NewBadRequest("invalid JSON: " + err.Error())
	}
	return buf.String(), nil
}

// ValidateJSON reports whether input is a single well-formed JSON document.
func ValidateJSON(input string) JSONValidation {
	src := []byte(input)
	if strings.TrimSpace(input) == "" {
		return JSONValidation{Error: "input is empty", Line: 1, Column: 1}
	}
	if json.Valid(src) {
		return JSONValidation{Valid: true}
	}

	var value any
	err := json.Unmarshal(src, &value)
	report := JSONValidation{Error: "invalid JSON"}
	if err != nil {
		report.Error = err.Error()
	}
	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		report.Offset = syntax.Offset
	} else {
		report.Offset = int64(len(src))
	}
	report.Line, report.Column = lineColumn(src, report.Offset)
	return report
}

// FlattenJSON collapses a document into dot-path keys.
func FlattenJSON(input string) (map[string]any, error) {
	if len(input) > maxJSONInputBytes {
		return nil, apperrors.NewBadRequest("input is too large")
	}
	value, err := decodeJSON([]byte(input))
	if err != nil {
		return nil, apperrors.NewBadRequest("invalid JSON: " + err.Error())
	}
	flat, err := gabs.Wrap(value).FlattenIncludeEmpty()
	if err != nil {
		return nil, apperrors.NewBadRequest("only objects and arrays can be flattened")
	}
	return flat, nil
}

// JSONToYAML converts a JSON document to block-style YAML, keeping key order.
func JSONToYAML(input string) (string, error) {
	if len(input) > maxJSONInputBytes {
		return "", apperrors.NewBadRequest("input is too large")
	}
	if !json.Valid([]byte(input)) {
		return "", apperrors.NewBadRequest("invalid JSON")
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(input), &doc); err != nil {
		return "", apperrors.NewBadRequest("invalid JSON: " + err.Error())
	}
	clearNodeStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("toolkit: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("toolkit: encode yaml: %w", err)
	}
	return buf.String(), nil
}

// YAMLToJSON converts a single YAML document to indented JSON. Mapping keys come out sorted.
func YAMLToJSON(input string, indent int) (string, error) {
	if len(input) > maxJSONInputBytes {
		return "", apperrors.NewBadRequest("input is too large")
	}
	if indent < 0 || indent > 8 {
		return "", apperrors.NewBadRequest("indent must be between 0 and 8")
	}

	var value any
	if err := yaml.Unmarshal([]byte(input), &value); err != nil {
		return "", apperrors.NewBadRequest("invalid YAML: " + err.Error())
	}
	value, err := jsonCompatible(value)
	if err != nil {
		return "", err
	}

	var out []byte
	if indent == 0 {
		out, err = json.Marshal(value)
	} else {
		out, err = json.MarshalIndent(value, "", strings.Repeat(" ", indent))
	}
	if err != nil {
		return "", apperrors.NewBadRequest("YAML value cannot be represented as JSON: " + err.Error())
	}
	return string(out), nil
}

func decodeJSON(src []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("unexpected data after top-level value")
	}
	return value, nil
}

func clearNodeStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		clearNodeStyle(child)
	}
}

// jsonCompatible rewrites maps with non-string keys, which YAML allows and JSON does not.
func jsonCompatible(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			converted, err := jsonCompatible(child)
			if err != nil {
				return nil, err
			}
			v[key] = converted
		}
		return v, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			converted, err := jsonCompatible(child)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(key)] = converted
		}
		return out, nil
	case []any:
		for i, child := range v {
			converted, err := jsonCompatible(child)
			if err != nil {
				return nil, err
			}
			v[i] = converted
		}
		return v, nil
	default:
		return v, nil
	}
}

func lineColumn(src []byte, offset int64) (int, int) {
	if offset > int64(len(src)) {
		offset = int64(len(src))
	}
	line, column := 1, 1
	for _, b := range src[:offset] {
		if b == '\n' {
			line++
			column = 1
			continue
		}
		column++
	}
	return line, column
}
