package ir

import (
	"strings"
	"unicode"
)

// CamelCase converts a Go or snake_case identifier to lower camel case.
// Acronyms collapse into one word: "HTTPServer" becomes "httpServer",
// "user_name" and "UserName" both become "userName".
func CamelCase(s string) string {
	parts := strings.FieldsFunc(snakeCase(s), func(r rune) bool {
		return r == '_' || r == '-'
	})

	var b strings.Builder
	for i, part := range parts {
		runes := []rune(part)
		if i == 0 {
			b.WriteString(part)
			continue
		}
		b.WriteRune(unicode.ToUpper(runes[0]))
		b.WriteString(string(runes[1:]))
	}
	return b.String()
}

// snakeCase lowercases s and inserts an underscore at each word boundary.
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			// An uppercase run is one acronym word; it ends before the
			// last uppercase rune when a lowercase rune follows.
			prevUpper := unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if (!prevUpper || nextLower) && runes[i-1] != '_' {
				b.WriteRune('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
