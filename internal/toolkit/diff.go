// Package toolkit implements the server-side utility endpoints of the dashboard: text diff,
// QR encoding, hashing, identifier and password generation, codecs and JSON/YAML helpers.
package toolkit

import (
	"strings"

	"github.com/creasty/defaults"
	"github.com/sergi/go-diff/diffmatchpatch"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

// Diff granularities.
const (
	DiffModeLine = "line"
	DiffModeChar = "char"
	DiffModeWord = "word"
)

const maxDiffInputBytes = 1 << 20

// DiffOptions tunes Diff.
type DiffOptions struct {
	Mode string `default:"line"`
	// Semantic merges trivial equalities so the output reads like a human edit.
	Semantic *bool `default:"true"`
}

// DiffChunk is one run of equal, inserted or deleted text.
type DiffChunk struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// DiffResult carries the chunk list, a unified-style rendering and line statistics.
type DiffResult struct {
	Chunks  []DiffChunk `json:"chunks"`
	Unified string      `json:"unified"`
	Patch   string      `json:"patch"`
	Added   int         `json:"added"`
	Removed int         `json:"removed"`
	Equal   bool        `json:"equal"`
}

// Diff compares before and after.
func Diff(before, after string, opts DiffOptions) (*DiffResult, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, err
	}
	if len(before)+len(after) > maxDiffInputBytes {
		return nil, apperrors.NewBadRequest("diff input is too large")
	}

	dmp := diffmatchpatch.New()

	var diffs []diffmatchpatch.Diff
	switch strings.ToLower(opts.Mode) {
	case DiffModeLine:
		a, b, lines := dmp.DiffLinesToChars(before, after)
		diffs = dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	case DiffModeWord:
		a, b, words := wordsToChars(before, after)
		diffs = charsToWords(dmp.DiffMain(a, b, false), words)
	case DiffModeChar:
		diffs = dmp.DiffMain(before, after, true)
	default:
		return nil, apperrors.NewBadRequest("mode must be line, word or char")
	}
	if *opts.Semantic {
		diffs = dmp.DiffCleanupSemantic(diffs)
	}

	result := &DiffResult{
		Chunks: make([]DiffChunk, 0, len(diffs)),
		Equal:  before == after,
		Patch:  dmp.PatchToText(dmp.PatchMake(before, diffs)),
	}

	var unified strings.Builder
	for _, d := range diffs {
		result.Chunks = append(result.Chunks, DiffChunk{Op: diffOp(d.Type), Text: d.Text})

		lines := strings.Split(d.Text, "\n")
		for i, line := range lines {
			if i == len(lines)-1 && line == "" {
				continue
			}
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				unified.WriteString(" " + line + "\n")
			case diffmatchpatch.DiffDelete:
				unified.WriteString("-" + line + "\n")
				result.Removed++
			case diffmatchpatch.DiffInsert:
				unified.WriteString("+" + line + "\n")
				result.Added++
			}
		}
	}
	result.Unified = unified.String()

	return result, nil
}

func diffOp(op diffmatchpatch.Operation) string {
	switch op {
	case diffmatchpatch.DiffInsert:
		return "insert"
	case diffmatchpatch.DiffDelete:
		return "delete"
	default:
		return "equal"
	}
}

// wordsToChars mirrors DiffLinesToChars with whitespace-delimited tokens. Separators stay
// attached to the preceding word so the round trip is lossless.
func wordsToChars(a, b string) (string, string, []string) {
	tokens := []string{""}
	index := map[string]int{}

	encode := func(text string) string {
		var out []rune
		start := 0
		for i, r := range text {
			if r != ' ' && r != '\n' && r != '\t' {
				continue
			}
			out = append(out, tokenRune(text[start:i+1], &tokens, index))
			start = i + 1
		}
		if start < len(text) {
			out = append(out, tokenRune(text[start:], &tokens, index))
		}
		return string(out)
	}

	return encode(a), encode(b), tokens
}

func tokenRune(token string, tokens *[]string, index map[string]int) rune {
	if i, ok := index[token]; ok {
		return indexRune(i)
	}
	*tokens = append(*tokens, token)
	i := len(*tokens) - 1
	index[token] = i
	return indexRune(i)
}

// charsToWords rehydrates diffs produced from wordsToChars output.
func charsToWords(diffs []diffmatchpatch.Diff, tokens []string) []diffmatchpatch.Diff {
	out := make([]diffmatchpatch.Diff, 0, len(diffs))
	for _, d := range diffs {
		var text strings.Builder
		for _, r := range d.Text {
			text.WriteString(tokens[runeIndex(r)])
		}
		d.Text = text.String()
		out = append(out, d)
	}
	return out
}

// indexRune maps a token index onto a valid code point, skipping the surrogate range.
func indexRune(i int) rune {
	if i < surrogateMin {
		return rune(i)
	}
	return rune(i + surrogateSpan)
}

func runeIndex(r rune) int {
	if int(r) < surrogateMin {
		return int(r)
	}
	return int(r) - surrogateSpan
}

const (
	surrogateMin  = 0xD800
	surrogateSpan = 0x800
)
