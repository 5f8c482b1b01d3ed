package mdx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// tag is a scanned opening component tag.
type tag struct {
	name        string
	attrs       attrs
	selfClosing bool
	end         int // offset just past the closing '>'
}

// attrs holds component attribute values. String literals are strings,
// bare attributes are true and {expr} values are whatever the expression
// evaluates to: float64, string, bool, nil, []any or map[string]any.
type attrs map[string]any

var errUnterminatedTag = errors.New("unterminated tag")

// scanTag reads an opening tag starting at src[pos] == '<'.
func scanTag(src string, pos int) (tag, error) {
	var t tag
	i := pos + 1
	start := i
	for i < len(src) && isNameByte(src[i]) {
		i++
	}
	t.name = src[start:i]
	t.attrs = attrs{}

	for {
		i = skipSpace(src, i)
		if i >= len(src) {
			return t, errUnterminatedTag
		}
		switch {
		case strings.HasPrefix(src[i:], "/>"):
			t.selfClosing = true
			t.end = i + 2
			return t, nil
		case src[i] == '>':
			t.end = i + 1
			return t, nil
		case !isNameStart(src[i]):
			return t, fmt.Errorf("unexpected %q in tag", src[i])
		}

		nameStart := i
		for i < len(src) && isNameByte(src[i]) {
			i++
		}
		name := src[nameStart:i]

		j := skipSpace(src, i)
		if j >= len(src) || src[j] != '=' {
			t.attrs[name] = true
			continue
		}
		i = skipSpace(src, j+1)
		if i >= len(src) {
			return t, errUnterminatedTag
		}

		switch src[i] {
		case '"', '\'':
			q := src[i]
			end := strings.IndexByte(src[i+1:], q)
			if end < 0 {
				return t, fmt.Errorf("unterminated value for %s", name)
			}
			t.attrs[name] = src[i+1 : i+1+end]
			i += end + 2
		case '{':
			end, err := matchBrace(src, i)
			if err != nil {
				return t, fmt.Errorf("attribute %s: %w", name, err)
			}
			v, err := parseExpr(src[i+1 : end])
			if err != nil {
				return t, fmt.Errorf("attribute %s: %w", name, err)
			}
			t.attrs[name] = v
			i = end + 1
		default:
			return t, fmt.Errorf("attribute %s: value must be quoted or wrapped in braces", name)
		}
	}
}

// matchBrace returns the offset of the '}' closing the '{' at src[open],
// skipping quoted strings.
func matchBrace(src string, open int) (int, error) {
	depth := 0
	for i := open; i < len(src); i++ {
		switch c := src[i]; c {
		case '"', '\'', '`':
			end := strings.IndexByte(src[i+1:], c)
			if end < 0 {
				return 0, errors.New("unterminated string")
			}
			i += end + 1
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errors.New("unbalanced braces")
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || c == '-' || (c >= '0' && c <= '9')
}

// parseExpr evaluates a JSON5 literal: object keys may be unquoted,
// strings may use single quotes and trailing commas are allowed.
func parseExpr(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty expression")
	}
	var v any
	if err := json5.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	return v, nil
}
