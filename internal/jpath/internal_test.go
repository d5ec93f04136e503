package jpath

import "testing"

func TestNormalizeLogicalOps(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$[?(@.a > 1 & @.b < 2)]", "$[?(@.a > 1 && @.b < 2)]"},
		{"$[?(@.a > 1 && @.b < 2)]", "$[?(@.a > 1 && @.b < 2)]"},
		{"$[?(@.a < 1 | @.b > 2)]", "$[?(@.a < 1 || @.b > 2)]"},
		{"$[?(@.a == 'x&y')]", "$[?(@.a == 'x&y')]"},
		{`$[?(@.a == "p|q" | @.b)]`, `$[?(@.a == "p|q" || @.b)]`},
		{"$.plain", "$.plain"},
	}
	for _, tt := range tests {
		if got := normalizeLogicalOps(tt.in); got != tt.want {
			t.Errorf("normalizeLogicalOps(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripLength(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		stripped bool
	}{
		{"$.a.length()", "$.a", true},
		{"$.length()", "$", true},
		{"$['k'].length()", "$['k']", true},
		{"$.a", "$.a", false},
		{"$['a.length()']", "$['a.length()']", false},
	}
	for _, tt := range tests {
		got, stripped := stripLength(tt.in)
		if got != tt.want || stripped != tt.stripped {
			t.Errorf("stripLength(%q) = %q, %v, want %q, %v", tt.in, got, stripped, tt.want, tt.stripped)
		}
	}
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
		n    int
	}{
		{`'abc'`, "abc", 5},
		{`'a\'b'`, "a'b", 6},
		{`"a\"b"`, `a"b`, 6},
		{`'tab\there'`, "tab\there", 11},
		{`'é'`, "é", 8},
		{`'😀'`, "\U0001f600", 14},
		{`'a' ]`, "a", 3},
	}
	for _, tt := range tests {
		got, n, err := decodeString(tt.in)
		if err != nil {
			t.Errorf("decodeString(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want || n != tt.n {
			t.Errorf("decodeString(%q) = %q, %d, want %q, %d", tt.in, got, n, tt.want, tt.n)
		}
	}

	bad := []string{`'unterminated`, `'bad\q'`, `'\u12'`}
	for _, in := range bad {
		if _, _, err := decodeString(in); err == nil {
			t.Errorf("decodeString(%q) succeeded, want error", in)
		}
	}
}

func TestMatchBracket(t *testing.T) {
	tests := []struct {
		in   string
		open int
		want int
	}{
		{"$['a']", 1, 5},
		{"$[?(@.a[0] > 1)]", 1, 15},
		{"$['br]ack']", 1, 10},
	}
	for _, tt := range tests {
		got, err := matchBracket(tt.in, tt.open)
		if err != nil {
			t.Errorf("matchBracket(%q, %d) error: %v", tt.in, tt.open, err)
			continue
		}
		if got != tt.want {
			t.Errorf("matchBracket(%q, %d) = %d, want %d", tt.in, tt.open, got, tt.want)
		}
	}
}
