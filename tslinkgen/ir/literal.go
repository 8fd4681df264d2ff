package ir

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Quote renders s as a double-quoted JavaScript string literal. Invalid
// UTF-8 becomes U+FFFD.
func Quote(s string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		panic(err) // strings always encode
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NumericLiteral reports whether lit is a number literal rather than a
// string one.
func NumericLiteral(lit string) bool {
	return lit != "" && lit[0] != '"'
}
