package ir

import "testing"

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"red", `"red"`},
		{`say "hi"`, `"say \"hi\""`},
		{"a<b&c", `"a<b&c"`},
		{"line\nbreak", `"line\nbreak"`},
		{"\xff", `"\ufffd"`},
		{"\U0001F600", "\"\U0001F600\""},
		{"\U000E0001", "\"\U000E0001\""},
		{"\u2028", `"\u2028"`},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNumericLiteral(t *testing.T) {
	for lit, want := range map[string]bool{"1": true, "-5": true, "1.5": true, `"red"`: false, "": false} {
		if got := NumericLiteral(lit); got != want {
			t.Errorf("NumericLiteral(%q) = %v, want %v", lit, got, want)
		}
	}
}
