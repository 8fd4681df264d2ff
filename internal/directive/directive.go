// Package directive parses tslink directives from Go comments.
//
// A directive is a line comment in the form:
//
//	//tslink:bind
//	//tslink:bind class, snake_case_naming
//	//tslink:bind rename = "login", target = "./ts/user.ts; d.ts"
//
// Bare words are flags. Assignments set named options; keys that are not
// options bind a function parameter to the type its JSON string decodes into.
package directive

import (
	"go/ast"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"

	"github.com/gorilla/schema"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
)

// Prefix starts every tslink directive comment.
const Prefix = "//tslink:"

// Verb is the only directive verb.
const Verb = "bind"

const (
	keyIgnore = "ignore"
	keyTarget = "target"
)

// flags are the bare words a directive accepts.
var flags = map[string]bool{
	"ignore":                true,
	"constructor":           true,
	"snake_case_naming":     true,
	"interface":             true,
	"class":                 true,
	"exception_suppression": true,
}

// options are the assignment keys decoded straight into ir.Options.
var options = map[string]bool{
	"rename": true,
	"module": true,
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(false)
	d.ZeroEmpty(true)
	return d
}

// Directive is one parsed directive comment.
type Directive struct {
	Options *ir.Options
	Pos     token.Position
}

// Is reports whether a comment line is a tslink directive of any verb.
func Is(text string) bool {
	return strings.HasPrefix(text, Prefix)
}

// Find returns the first tslink directive in the comment groups. ok is false
// when none of the groups carries one. Groups may be nil.
func Find(fset *token.FileSet, groups ...*ast.CommentGroup) (d *Directive, ok bool, err error) {
	for _, cg := range groups {
		if cg == nil {
			continue
		}
		for _, c := range cg.List {
			if !Is(c.Text) {
				continue
			}
			d, err := Parse(c.Text, fset.Position(c.Pos()))
			if err != nil {
				return nil, false, err
			}
			return d, true, nil
		}
	}
	return nil, false, nil
}

// Parse parses a directive comment. pos is the position of the comment's
// first slash and anchors every diagnostic.
func Parse(text string, pos token.Position) (*Directive, error) {
	if !Is(text) {
		return nil, tslink.Errorf(tslink.CodeMalformedDirective, "not a tslink directive: %q", text).At(pos)
	}
	rest := strings.TrimPrefix(text, Prefix)
	verb, args, _ := strings.Cut(rest, " ")
	verb = strings.TrimSpace(verb)
	if verb != Verb {
		return nil, tslink.Errorf(tslink.CodeMalformedDirective, "unknown directive //tslink:%s", verb).At(pos)
	}

	argsPos := pos
	argsPos.Column += len(Prefix) + len(verb) + 1
	argsPos.Offset += len(Prefix) + len(verb) + 1

	entries, err := scan(args, argsPos)
	if err != nil {
		return nil, err
	}
	opts, err := build(entries)
	if err != nil {
		return nil, err
	}
	return &Directive{Options: opts, Pos: pos}, nil
}

// entry is one comma-separated element: a flag when value is unset.
type entry struct {
	key      string
	value    string
	assigned bool
	pos      token.Position
}

func build(entries []entry) (*ir.Options, error) {
	opts := &ir.Options{}
	bag := make(map[string][]string)
	seen := make(map[string]bool)

	for _, e := range entries {
		if seen[e.key] {
			return nil, tslink.Errorf(tslink.CodeMalformedDirective, "duplicate key %q", e.key).At(e.pos)
		}
		seen[e.key] = true

		if !e.assigned {
			if !flags[e.key] {
				return nil, tslink.Errorf(tslink.CodeMalformedDirective, "unknown flag %q", e.key).At(e.pos)
			}
			if e.key == keyIgnore {
				opts.IgnoreSelf = true
				continue
			}
			bag[e.key] = []string{"true"}
			continue
		}

		switch {
		case e.key == keyIgnore:
			opts.Ignore = splitList(e.value)
		case e.key == keyTarget:
			for _, s := range splitList(e.value) {
				t, ok := ir.ParseTarget(s)
				if !ok {
					return nil, tslink.Errorf(tslink.CodeMalformedDirective,
						"invalid target %q; expected ts, d.ts, js or a path with one of those extensions", s).At(e.pos)
				}
				opts.Targets = append(opts.Targets, t)
			}
		case options[e.key]:
			bag[e.key] = []string{e.value}
		case flags[e.key]:
			return nil, tslink.Errorf(tslink.CodeMalformedDirective, "%q is a flag and takes no value", e.key).At(e.pos)
		default:
			opts.Bindings = append(opts.Bindings, ir.Binding{Param: e.key, Type: e.value})
		}
	}

	if err := decoder.Decode(opts, bag); err != nil {
		return nil, tslink.Wrap(tslink.CodeMalformedDirective, err, "decode directive")
	}
	if opts.Class && opts.Interface {
		pos := token.Position{}
		if len(entries) > 0 {
			pos = entries[0].pos
		}
		return nil, tslink.Errorf(tslink.CodeMalformedDirective, "class and interface are mutually exclusive").At(pos)
	}
	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// scan tokenizes the argument list with the Go scanner.
func scan(src string, base token.Position) ([]entry, error) {
	fset := token.NewFileSet()
	file := fset.AddFile(base.Filename, -1, len(src))

	var firstErr error
	var s scanner.Scanner
	s.Init(file, []byte(src), func(p token.Position, msg string) {
		if firstErr == nil {
			firstErr = tslink.Errorf(tslink.CodeMalformedDirective, "%s", msg).At(shift(base, p))
		}
	}, 0)

	var (
		entries []entry
		cur     *entry
		state   int // 0 key, 1 after key, 2 after '=', 3 after value
	)
	for {
		p, tok, lit := s.Scan()
		if firstErr != nil {
			return nil, firstErr
		}
		at := shift(base, fset.Position(p))

		// The scanner inserts a newline semicolon after the final identifier
		// or literal.
		if tok == token.SEMICOLON && lit == "\n" {
			tok = token.EOF
		}

		switch state {
		case 0:
			switch tok {
			case token.EOF:
				if len(entries) > 0 {
					return nil, tslink.Errorf(tslink.CodeMalformedDirective, "trailing comma").At(at)
				}
				return entries, nil
			case token.IDENT:
				entries = append(entries, entry{key: lit, pos: at})
				cur = &entries[len(entries)-1]
				state = 1
			default:
				// Keywords like interface scan as their own tokens.
				if tok.IsKeyword() {
					entries = append(entries, entry{key: tok.String(), pos: at})
					cur = &entries[len(entries)-1]
					state = 1
					continue
				}
				return nil, unexpected(tok, lit, "identifier", at)
			}
		case 1:
			switch tok {
			case token.EOF:
				return entries, nil
			case token.COMMA:
				state = 0
			case token.ASSIGN:
				state = 2
			default:
				return nil, unexpected(tok, lit, "',' or '='", at)
			}
		case 2:
			if tok != token.STRING {
				return nil, unexpected(tok, lit, "string value", at)
			}
			v, err := strconv.Unquote(lit)
			if err != nil {
				return nil, tslink.Errorf(tslink.CodeMalformedDirective, "invalid string %s", lit).At(at)
			}
			cur.value = v
			cur.assigned = true
			state = 3
		case 3:
			switch tok {
			case token.EOF:
				return entries, nil
			case token.COMMA:
				state = 0
			default:
				return nil, unexpected(tok, lit, "','", at)
			}
		}
	}
}

func unexpected(tok token.Token, lit, want string, at token.Position) error {
	got := tok.String()
	if lit != "" {
		got = lit
	}
	if tok == token.EOF {
		got = "end of directive"
	}
	return tslink.Errorf(tslink.CodeMalformedDirective, "expected %s, found %s", want, got).At(at)
}

func shift(base, p token.Position) token.Position {
	out := base
	out.Offset += p.Offset
	out.Column += p.Offset
	return out
}
