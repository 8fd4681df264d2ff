package ir

import "go/token"

// Origin preserves the exact source text of a type expression so the
// generated Go bindings can name the original type again.
type Origin struct {
	// Text is the Go type expression as written, e.g. "map[string][]int32".
	Text string
}

// OriginOf wraps source text.
func OriginOf(text string) Origin {
	return Origin{Text: text}
}

// IsZero returns true if no source text was captured.
func (o Origin) IsZero() bool {
	return o.Text == ""
}

// String returns the source text.
func (o Origin) String() string {
	return o.Text
}

// Source represents source code location information.
type Source struct {
	File   string
	Line   int
	Column int
}

// SourceOf converts a token position.
func SourceOf(pos token.Position) Source {
	return Source{File: pos.Filename, Line: pos.Line, Column: pos.Column}
}

// IsZero returns true if the source location is empty.
func (s Source) IsZero() bool {
	return s.File == "" && s.Line == 0 && s.Column == 0
}

// Position converts back to a token position for diagnostics.
func (s Source) Position() token.Position {
	return token.Position{Filename: s.File, Line: s.Line, Column: s.Column}
}

// EnumRepresentation selects how enums with payload variants are rendered.
type EnumRepresentation int

const (
	// EnumUnion renders `type E = { A: null } | { B: number };`.
	EnumUnion EnumRepresentation = iota
	// EnumFlat renders one interface with an optional property per variant.
	EnumFlat
	// EnumDiscriminatedUnion renders empty variants as string literals.
	EnumDiscriminatedUnion
)

// String returns the configuration spelling of the representation.
func (r EnumRepresentation) String() string {
	switch r {
	case EnumUnion:
		return "union"
	case EnumFlat:
		return "flat"
	case EnumDiscriminatedUnion:
		return "discriminated_union"
	default:
		return "unknown"
	}
}

// ParseEnumRepresentation parses the configuration spelling.
// The empty string yields the default, EnumUnion.
func ParseEnumRepresentation(s string) (EnumRepresentation, bool) {
	switch s {
	case "", "union":
		return EnumUnion, true
	case "flat":
		return EnumFlat, true
	case "discriminated_union":
		return EnumDiscriminatedUnion, true
	default:
		return EnumUnion, false
	}
}
