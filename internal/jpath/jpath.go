// Package jpath parses document path expressions and splits them into a
// server-addressable prefix and a client-side remainder.
//
// The prefix is the longest run of plain member names and non-negative
// list indexes starting at the root. Everything from the first wildcard,
// descendant, filter, slice, union or negative index onward has to be
// evaluated against a fetched document, so it is re-rooted and compiled
// with the RFC 9535 engine.
package jpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/theory/jsonpath"
)

// ErrMissingRoot reports a path expression that does not start with $.
var ErrMissingRoot = errors.New("path must start with $")

// Token is a single step in the server-addressable prefix: a map member
// name, or a list index when IsIndex is set.
type Token struct {
	Name    string
	Index   int
	IsIndex bool
}

// String renders the token in normalized bracket form.
func (t Token) String() string {
	if t.IsIndex {
		return "[" + strconv.Itoa(t.Index) + "]"
	}
	return "['" + t.Name + "']"
}

// Plan is a parsed path expression.
type Plan struct {
	// Tokens is the server-addressable prefix after the root. Empty
	// means the expression addresses the whole document.
	Tokens []Token

	// Advanced is the compiled remainder, re-rooted at the value the
	// prefix addresses. Nil when the whole expression is
	// server-addressable.
	Advanced *jsonpath.Path

	// AdvancedString is the textual form of Advanced.
	AdvancedString string

	// Length reports a trailing .length() call.
	Length bool
}

// Simple reports whether the plan needs no client-side evaluation.
func (p *Plan) Simple() bool { return p.Advanced == nil }

// Parse validates path and splits it into a Plan.
//
// A trailing .length() is stripped and recorded on the plan. The single
// & and | filter operators are accepted as aliases for && and ||. A
// trailing .* is stripped so the expression addresses the container it
// follows; a bracketed [*] or any non-trailing wildcard selects the
// contained values instead.
func Parse(path string) (*Plan, error) {
	if !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("%w: %q", ErrMissingRoot, path)
	}
	norm, length := stripLength(path)
	norm = normalizeLogicalOps(norm)
	if _, err := jsonpath.Parse(norm); err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	tokens, advStart, err := split(norm)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	plan := &Plan{Tokens: tokens, Length: length}
	if advStart >= 0 {
		suffix := "$" + norm[advStart:]
		compiled, err := jsonpath.Parse(suffix)
		if err != nil {
			return nil, fmt.Errorf("parse %q: remainder %q: %w", path, suffix, err)
		}
		plan.Advanced = compiled
		plan.AdvancedString = suffix
	}
	return plan, nil
}

// stripLength removes a single trailing .length() call. Occurrences
// inside string literals are left alone.
func stripLength(path string) (string, bool) {
	const suffix = ".length()"
	if !strings.HasSuffix(path, suffix) {
		return path, false
	}
	cut := len(path) - len(suffix)
	if inQuotes(path, cut) {
		return path, false
	}
	return path[:cut], true
}

// normalizeLogicalOps doubles single & and | filter operators outside
// string literals so the original comparison dialect parses.
func normalizeLogicalOps(path string) string {
	var b strings.Builder
	b.Grow(len(path) + 4)
	var quote byte
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(path) {
				i++
				b.WriteByte(path[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '&' || c == '|':
			b.WriteByte(c)
			b.WriteByte(c)
			if i+1 < len(path) && path[i+1] == c {
				i++
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// inQuotes reports whether offset end falls inside a string literal.
func inQuotes(s string, end int) bool {
	var quote byte
	for i := 0; i < end && i < len(s); i++ {
		switch c := s[i]; {
		case quote != 0 && c == '\\':
			i++
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		}
	}
	return quote != 0
}

// split lexes the prefix of a validated path and returns the byte
// offset where the client-side remainder starts, or -1 when the whole
// path is server-addressable.
func split(path string) ([]Token, int, error) {
	var tokens []Token
	i := 1 // past $
	for i < len(path) {
		if path[i] == ' ' {
			i++
			continue
		}
		start := i
		switch path[i] {
		case '.':
			if i+1 < len(path) && path[i+1] == '.' {
				return tokens, start, nil // descendant
			}
			j := i + 1
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			name := path[i+1 : j]
			if name == "" {
				return nil, 0, fmt.Errorf("empty member name at offset %d", i)
			}
			if name == "*" {
				if j == len(path) {
					// trailing wildcard addresses the container
					return tokens, -1, nil
				}
				return tokens, start, nil
			}
			tokens = append(tokens, Token{Name: name})
			i = j
		case '[':
			j, err := matchBracket(path, i)
			if err != nil {
				return nil, 0, err
			}
			content := strings.TrimSpace(path[i+1 : j])
			tok, simple, err := classify(content)
			if err != nil {
				return nil, 0, err
			}
			if !simple {
				return tokens, start, nil
			}
			tokens = append(tokens, tok)
			i = j + 1
		default:
			return nil, 0, fmt.Errorf("unexpected character %q at offset %d", path[i], i)
		}
	}
	return tokens, -1, nil
}

// matchBracket returns the offset of the ] closing the bracket opened
// at open, skipping string literals and nested brackets.
func matchBracket(path string, open int) (int, error) {
	depth := 0
	var quote byte
	for j := open + 1; j < len(path); j++ {
		switch c := path[j]; {
		case quote != 0:
			if c == '\\' {
				j++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			if depth == 0 {
				return j, nil
			}
			depth--
		}
	}
	return 0, fmt.Errorf("unterminated bracket at offset %d", open)
}

// classify decides whether a bracket selector is server-addressable. A
// single quoted name or a non-negative index is; wildcards, filters,
// slices, unions and negative indexes are not.
func classify(content string) (Token, bool, error) {
	if content == "" {
		return Token{}, false, errors.New("empty bracket selector")
	}
	if content[0] == '\'' || content[0] == '"' {
		name, n, err := decodeString(content)
		if err != nil {
			return Token{}, false, err
		}
		if strings.TrimSpace(content[n:]) != "" {
			return Token{}, false, nil // union of selectors
		}
		return Token{Name: name}, true, nil
	}
	if n, err := strconv.Atoi(content); err == nil {
		if n < 0 {
			return Token{}, false, nil
		}
		return Token{Index: n, IsIndex: true}, true, nil
	}
	return Token{}, false, nil
}

// decodeString decodes the string literal at the start of s and returns
// its value and the number of bytes consumed.
func decodeString(s string) (string, int, error) {
	quote := s[0]
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\':
			r, n, err := decodeEscape(s[i:], quote)
			if err != nil {
				return "", 0, err
			}
			b.WriteRune(r)
			i += n
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, errors.New("unterminated string literal")
}

// decodeEscape decodes one backslash escape at the start of s.
func decodeEscape(s string, quote byte) (rune, int, error) {
	if len(s) < 2 {
		return 0, 0, errors.New("truncated escape")
	}
	switch e := s[1]; e {
	case 'b':
		return '\b', 2, nil
	case 'f':
		return '\f', 2, nil
	case 'n':
		return '\n', 2, nil
	case 'r':
		return '\r', 2, nil
	case 't':
		return '\t', 2, nil
	case '/', '\\':
		return rune(e), 2, nil
	case '\'', '"':
		if e != quote {
			return 0, 0, fmt.Errorf("invalid escape %q", s[:2])
		}
		return rune(e), 2, nil
	case 'u':
		return decodeUnicodeEscape(s)
	default:
		return 0, 0, fmt.Errorf("invalid escape %q", s[:2])
	}
}

// decodeUnicodeEscape decodes \uXXXX, pairing surrogates when a second
// escape follows.
func decodeUnicodeEscape(s string) (rune, int, error) {
	if len(s) < 6 {
		return 0, 0, errors.New("truncated unicode escape")
	}
	v, err := strconv.ParseUint(s[2:6], 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid unicode escape %q", s[:6])
	}
	r := rune(v)
	if !utf16.IsSurrogate(r) {
		return r, 6, nil
	}
	if len(s) >= 12 && s[6] == '\\' && s[7] == 'u' {
		v2, err := strconv.ParseUint(s[8:12], 16, 32)
		if err == nil {
			if dec := utf16.DecodeRune(r, rune(v2)); dec != utf8.RuneError {
				return dec, 12, nil
			}
		}
	}
	return utf8.RuneError, 6, nil
}
