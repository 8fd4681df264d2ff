package javascript

import (
	"fmt"
	"strings"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
	"github.com/broady/tslink/tslinkgen/typescript"
)

// call describes how one function or method crosses into the addon.
type call struct {
	args       []string
	bound      map[string]bool
	async      bool
	suppress   bool
	resultJSON bool
	errorJSON  bool
}

func newCall(ctx *ir.Context, fn *ir.FuncType) (call, error) {
	c := call{bound: map[string]bool{}, async: fn.Async}
	for i, name := range fn.ArgNames() {
		name = typescript.Identifier(name)
		c.args = append(c.args, name)
		if arg, ok := fn.Args[i].(*ir.FuncArg); ok && arg.Binding != "" {
			c.bound[name] = true
		}
	}
	if ctx == nil {
		return c, nil
	}
	var err error
	c.suppress = ctx.ExceptionSuppression()
	if c.resultJSON, err = ctx.ResultAsJSON(); err != nil {
		return c, err
	}
	if c.errorJSON, err = ctx.ErrorAsJSON(); err != nil {
		return c, err
	}
	return c, nil
}

// wrapped reports whether the call needs a JavaScript wrapper.
func (c call) wrapped() bool {
	return len(c.bound) > 0 || c.resultJSON || c.errorJSON || c.suppress
}

// params is the wrapper's parameter list.
func (c call) params() string {
	return strings.Join(c.args, ", ")
}

// forward is the argument list passed to the addon; bound arguments travel
// as JSON strings.
func (c call) forward() string {
	out := make([]string, len(c.args))
	for i, a := range c.args {
		if c.bound[a] {
			out[i] = "JSON.stringify(" + a + ")"
		} else {
			out[i] = a
		}
	}
	return strings.Join(out, ", ")
}

func (c call) output(expr string) string {
	if c.resultJSON {
		return "JSON.parse(" + expr + ")"
	}
	return expr
}

// code accumulates indented JavaScript lines.
type code struct {
	b strings.Builder
}

func (w *code) line(depth int, format string, args ...any) {
	w.b.WriteString(strings.Repeat(typescript.Offset, depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *code) String() string {
	return w.b.String()
}

// body renders the statements of a wrapper calling expr at depth.
func (c call) body(w *code, depth int, expr string) {
	switch {
	case c.async:
		w.line(depth, "return %s.then((result) => {", expr)
		w.line(depth+1, "try {")
		w.line(depth+2, "return Promise.resolve(%s);", c.output("result"))
		w.line(depth+1, "} catch (e) {")
		w.line(depth+2, "return Promise.reject(e);")
		w.line(depth+1, "}")
		w.line(depth, "}).catch((e) => {")
		c.failure(w, depth+1)
		w.line(depth, "});")
	case c.suppress || c.errorJSON:
		w.line(depth, "try {")
		w.line(depth+1, "return %s;", c.output(expr))
		w.line(depth, "} catch (e) {")
		c.failure(w, depth+1)
		w.line(depth, "}")
	default:
		w.line(depth, "return %s;", c.output(expr))
	}
}

// failure converts a thrown value e into an Error. Under suppression the
// error is returned, async calls reject, anything else rethrows.
func (c call) failure(w *code, depth int) {
	verb := "throw"
	if c.suppress || c.async {
		verb = "return"
	}
	wrap := func(v string) string {
		if c.async {
			return "Promise.reject(" + v + ")"
		}
		return v
	}

	w.line(depth, "if (e instanceof Error) {")
	w.line(depth+1, "%s %s;", verb, wrap("e"))
	w.line(depth, "}")
	w.line(depth, "if (typeof e === 'string') {")
	switch {
	case !c.errorJSON:
		w.line(depth+1, "%s %s;", verb, wrap("new Error(e)"))
	case c.suppress || c.async:
		w.line(depth+1, "try {")
		w.line(depth+2, "const err = new Error(`Function/method returns error;`);")
		w.line(depth+2, "err.err = JSON.parse(e);")
		w.line(depth+2, "return %s;", wrap("err"))
		w.line(depth+1, "} catch (errParsing) {")
		w.line(depth+2, "return %s;", wrap(parseFailure))
		w.line(depth+1, "}")
	default:
		w.line(depth+1, "const err = new Error(`Function/method returns error;`);")
		w.line(depth+1, "try {")
		w.line(depth+2, "err.err = JSON.parse(e);")
		w.line(depth+1, "} catch (errParsing) {")
		w.line(depth+2, "throw %s;", parseFailure)
		w.line(depth+1, "}")
		w.line(depth+1, "throw err;")
	}
	w.line(depth, "}")
	w.line(depth, "const err = new Error(`Function/method returns error; property [err] = ${typeof e === 'object' && e !== null ? JSON.stringify(e) : e}`);")
	w.line(depth, "err.err = e;")
	w.line(depth, "%s %s;", verb, wrap("err"))
}

const parseFailure = "new Error(`Function/method returns error; fail to parse error; origin error: ${e}; error: ${errParsing}`)"

// functionBinding re-exports a free function, through a $$ wrapper when
// the call needs one.
func functionBinding(f *ir.Function) (string, error) {
	if f.Func == nil {
		return "", tslink.Errorf(tslink.CodeIncomplete, "function %s has no signature", f.Name)
	}
	name := f.Name
	if f.Ctx != nil {
		name = typescript.Identifier(f.Ctx.MethodName(f.Name))
	}
	c, err := newCall(f.Ctx, f.Func)
	if err != nil {
		return "", err
	}

	var w code
	w.b.WriteByte('\n')
	w.line(0, "const { %s } = nativeModuleRef;", name)
	if !c.wrapped() {
		w.line(0, "exports.%s = %s;", name, name)
		return w.String(), nil
	}
	alias := "$$" + name
	w.line(0, "function %s(%s) {", alias, c.params())
	c.body(&w, 1, name+"("+c.forward()+")")
	w.line(0, "}")
	w.line(0, "exports.%s = %s;", name, alias)
	return w.String(), nil
}

// classBinding re-exports a class struct. When any constructor or method
// needs a wrapper, a $$ class holding the native instance proxies every
// field and method.
func classBinding(s *ir.Struct) (string, error) {
	var (
		ctor    *ir.Field
		ctorSig call
		methods []*ir.Field
		calls   []call
		fields  []string
		wrapped bool
	)
	for _, n := range s.Fields {
		f, ok := n.(*ir.Field)
		if !ok || f.Ignored() {
			continue
		}
		fn, isFunc := f.Type.(*ir.FuncType)
		if !isFunc || (fn.HasAnonymousArgs() && !fn.Constructor) {
			fields = append(fields, f.Ctx.FieldName(f.Name))
			continue
		}
		c, err := newCall(f.Ctx, fn)
		if err != nil {
			return "", err
		}
		wrapped = wrapped || c.wrapped()
		if fn.Constructor {
			ctor, ctorSig = f, c
			continue
		}
		methods = append(methods, f)
		calls = append(calls, c)
	}

	var w code
	w.b.WriteByte('\n')
	w.line(0, "const { %s } = nativeModuleRef;", s.Name)
	if !wrapped {
		w.line(0, "exports.%s = %s;", s.Name, s.Name)
		return w.String(), nil
	}

	alias := "$$" + s.Name
	w.line(0, "class %s {", alias)
	w.line(1, "#_origin;")
	if ctor != nil {
		w.line(1, "constructor(%s) {", ctorSig.params())
		w.line(2, "this.#_origin = new %s(%s);", s.Name, ctorSig.forward())
	} else {
		w.line(1, "constructor() {")
		w.line(2, "this.#_origin = new %s();", s.Name)
	}
	w.line(1, "}")
	for _, name := range fields {
		prop := accessor(name)
		w.line(1, "get %s() {", key(name))
		w.line(2, "return this.#_origin%s;", prop)
		w.line(1, "}")
		w.line(1, "set %s(v) {", key(name))
		w.line(2, "this.#_origin%s = v;", prop)
		w.line(1, "}")
	}
	for i, m := range methods {
		name := m.Ctx.MethodName(m.Name)
		c := calls[i]
		w.line(1, "%s(%s) {", key(name), c.params())
		c.body(&w, 2, "this.#_origin"+accessor(name)+"("+c.forward()+")")
		w.line(1, "}")
	}
	w.line(0, "}")
	w.line(0, "exports.%s = %s;", s.Name, alias)
	return w.String(), nil
}

// accessor renders a member access on the native instance.
func accessor(name string) string {
	if key(name) == name {
		return "." + name
	}
	return "[" + key(name) + "]"
}
