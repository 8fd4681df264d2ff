package ir

import (
	"path/filepath"
	"strings"

	tslink "github.com/broady/tslink"
)

// TargetKind is the kind of output file a declaration is routed to.
type TargetKind int

const (
	TargetTS TargetKind = iota
	TargetDTS
	TargetJS
)

// String returns the directive spelling of the target kind.
func (k TargetKind) String() string {
	switch k {
	case TargetTS:
		return "ts"
	case TargetDTS:
		return "d.ts"
	case TargetJS:
		return "js"
	default:
		return "unknown"
	}
}

// Target routes a declaration to a file. An empty Path means the
// configured default for the kind.
type Target struct {
	Kind TargetKind
	Path string
}

// ParseTarget parses one entry of a target directive: a bare kind token
// ("ts", "d.ts", "js") or a path whose extension names the kind.
func ParseTarget(s string) (Target, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "ts":
		return Target{Kind: TargetTS}, true
	case "d.ts":
		return Target{Kind: TargetDTS}, true
	case "js":
		return Target{Kind: TargetJS}, true
	}
	switch {
	case strings.HasSuffix(s, ".d.ts"):
		return Target{Kind: TargetDTS, Path: filepath.Clean(s)}, true
	case strings.HasSuffix(s, ".ts"):
		return Target{Kind: TargetTS, Path: filepath.Clean(s)}, true
	case strings.HasSuffix(s, ".js"):
		return Target{Kind: TargetJS, Path: filepath.Clean(s)}, true
	}
	return Target{}, false
}

// Binding maps a parameter name to the type its JSON string decodes into.
// The reserved names "result" and "error" select JSON encoding of outputs.
type Binding struct {
	Param string
	Type  string
}

const (
	bindResult = "result"
	bindError  = "error"
)

// Options is the decoded directive set of a single declaration.
type Options struct {
	IgnoreSelf           bool      `schema:"-"`
	Ignore               []string  `schema:"-"`
	Constructor          bool      `schema:"constructor"`
	SnakeCaseNaming      bool      `schema:"snake_case_naming"`
	Interface            bool      `schema:"interface"`
	Class                bool      `schema:"class"`
	ExceptionSuppression bool      `schema:"exception_suppression"`
	Rename               string    `schema:"rename"`
	Module               string    `schema:"module"`
	Targets              []Target  `schema:"-"`
	Bindings             []Binding `schema:"-"`
}

// Defaults is the process-wide policy layer, supplied by configuration.
type Defaults struct {
	CamelCaseFields      bool
	CamelCaseMethods     bool
	ExceptionSuppression bool
	EnumRepresentation   EnumRepresentation
}

type layer struct {
	opts     *Options
	generics []*Generic
}

// Context resolves directive queries over an ordered list of layers: the
// declaration's own options, then its enclosing declaration's options, then
// the configured defaults. The first layer with an answer wins.
type Context struct {
	layers   []layer
	defaults Defaults
}

// NewContext returns a context for one declaration. opts may be nil.
func NewContext(opts *Options, defaults Defaults) *Context {
	if opts == nil {
		opts = &Options{}
	}
	return &Context{
		layers:   []layer{{opts: opts}},
		defaults: defaults,
	}
}

// WithParent returns a copy chained to the enclosing declaration's own
// layer. Chaining is single level: the parent's parents are not consulted.
func (c *Context) WithParent(parent *Context) *Context {
	cp := &Context{defaults: c.defaults}
	cp.layers = append(cp.layers, c.layers[0])
	if parent != nil {
		cp.layers = append(cp.layers, parent.layers[0])
	}
	return cp
}

// WithClass returns a shallow copy with class mode forced on.
// Forcing it on a context already in class mode returns the same context.
func (c *Context) WithClass() *Context {
	if c.local().Class {
		return c
	}
	opts := *c.local()
	opts.Class = true
	opts.Interface = false
	cp := &Context{defaults: c.defaults}
	cp.layers = append([]layer{{opts: &opts, generics: c.layers[0].generics}}, c.layers[1:]...)
	return cp
}

// Options returns the declaration's own options.
func (c *Context) Options() *Options {
	return c.local()
}

// Defaults returns the process-wide policy layer.
func (c *Context) Defaults() Defaults {
	return c.defaults
}

func (c *Context) local() *Options {
	return c.layers[0].opts
}

// IgnoreSelf reports whether the declaration itself is skipped.
func (c *Context) IgnoreSelf() bool {
	return c.local().IgnoreSelf
}

// IsIgnored reports whether name is in an ignore list, checking the local
// layer first and then the enclosing declaration.
func (c *Context) IsIgnored(name string) bool {
	for _, l := range c.layers {
		for _, n := range l.opts.Ignore {
			if n == name {
				return true
			}
		}
	}
	return false
}

// AsClass reports whether the declaration renders in class mode.
// A local interface flag wins over a class flag on the enclosing declaration.
func (c *Context) AsClass() bool {
	for _, l := range c.layers {
		if l.opts.Class {
			return true
		}
		if l.opts.Interface {
			return false
		}
	}
	return false
}

// AsInterface reports whether the declaration renders as an interface.
func (c *Context) AsInterface() bool {
	return !c.AsClass()
}

// AsConstructor reports whether the declaration was marked a constructor.
func (c *Context) AsConstructor() bool {
	return c.local().Constructor
}

// Rename returns the override for original: an explicit rename wins, then
// camel case conversion when snake_case_naming is set on any layer.
// ok is false when neither applies.
func (c *Context) Rename(original string) (name string, ok bool) {
	if r := c.local().Rename; r != "" {
		return r, true
	}
	for _, l := range c.layers {
		if l.opts.SnakeCaseNaming {
			return CamelCase(original), true
		}
	}
	return "", false
}

// FieldName resolves the output name of a field.
func (c *Context) FieldName(original string) string {
	if name, ok := c.Rename(original); ok {
		return name
	}
	if c.defaults.CamelCaseFields {
		return CamelCase(original)
	}
	return original
}

// MethodName resolves the output name of a method or function.
func (c *Context) MethodName(original string) string {
	if name, ok := c.Rename(original); ok {
		return name
	}
	if c.defaults.CamelCaseMethods {
		return CamelCase(original)
	}
	return original
}

// Targets returns the local target list.
func (c *Context) Targets() []Target {
	return c.local().Targets
}

// Target returns the first target of the given kind.
func (c *Context) Target(kind TargetKind) (Target, bool) {
	for _, t := range c.local().Targets {
		if t.Kind == kind {
			return t, true
		}
	}
	return Target{}, false
}

// Module returns the module directive of the nearest layer that sets one.
func (c *Context) Module() string {
	for _, l := range c.layers {
		if l.opts.Module != "" {
			return l.opts.Module
		}
	}
	return ""
}

// ExceptionSuppression reports whether errors are returned instead of thrown.
func (c *Context) ExceptionSuppression() bool {
	for _, l := range c.layers {
		if l.opts.ExceptionSuppression {
			return true
		}
	}
	return c.defaults.ExceptionSuppression
}

// ResultAsJSON reports whether the output travels as a JSON string.
func (c *Context) ResultAsJSON() (bool, error) {
	return c.jsonBinding(bindResult)
}

// ErrorAsJSON reports whether the error travels as a JSON string.
func (c *Context) ErrorAsJSON() (bool, error) {
	return c.jsonBinding(bindError)
}

func (c *Context) jsonBinding(key string) (bool, error) {
	for _, b := range c.local().Bindings {
		if b.Param != key {
			continue
		}
		if strings.TrimSpace(b.Type) != "json" {
			return false, tslink.Errorf(tslink.CodeMalformedDirective,
				"binding %s to %q is not supported; only \"json\" is", key, b.Type)
		}
		return true, nil
	}
	return false, nil
}

// BoundArgs returns the parameter bindings in declaration order, excluding
// the reserved result and error entries.
func (c *Context) BoundArgs() []Binding {
	var out []Binding
	for _, b := range c.local().Bindings {
		if b.Param == bindResult || b.Param == bindError {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Bound returns the type a parameter is bound to.
func (c *Context) Bound(param string) (string, bool) {
	for _, b := range c.BoundArgs() {
		if b.Param == param {
			return b.Type, true
		}
	}
	return "", false
}

// AddGenerics registers callback type parameters on the local layer.
func (c *Context) AddGenerics(generics ...*Generic) {
	c.layers[0].generics = append(c.layers[0].generics, generics...)
}

// Generic looks up a callback type parameter, local layer first.
func (c *Context) Generic(alias string) (*Generic, bool) {
	for _, l := range c.layers {
		for _, g := range l.generics {
			if g.Alias == alias {
				return g, true
			}
		}
	}
	return nil, false
}
