// Package binding generates the Go side of JSON call bindings.
//
// A function whose directive binds a parameter, or sets result = "json" or
// error = "json", crosses the addon boundary with strings. For each such
// function the generated tslink_bindings.go holds a wrapper named after it
// with a Binding suffix: bound parameters are accepted as string and decoded
// into the declared Go type, a JSON result is encoded to a string, and a
// JSON error is replaced by an error whose message is the encoded value.
// The addon exports the wrapper under the original function's name.
package binding

import (
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
	"io"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
	"github.com/broady/tslink/tslinkgen/provider"
)

// FileName is the name of the generated file inside the package directory.
const FileName = "tslink_bindings.go"

const errorHelper = "tslinkJSONError"

// File accumulates the wrappers of one package.
type File struct {
	pkg      *provider.Package
	wrappers []jen.Code
	names    map[string]bool
	helper   bool
}

// NewFile returns an empty binding file for pkg.
func NewFile(pkg *provider.Package) *File {
	return &File{pkg: pkg, names: map[string]bool{}}
}

// Len returns the number of wrappers.
func (b *File) Len() int {
	return len(b.wrappers)
}

// Add generates the wrapper of a function item. It reports false for items
// that need no wrapper: anything but a function, an ignored function, or a
// function without JSON bindings. Adding the same function twice is a no-op.
func (b *File) Add(it provider.Item) (bool, error) {
	fd := it.Decl()
	if it.Kind != provider.ItemFunc || fd == nil {
		return false, nil
	}
	ctx := ir.NewContext(it.Options, ir.Defaults{})
	if ctx.IgnoreSelf() {
		return false, nil
	}
	resultJSON, err := ctx.ResultAsJSON()
	if err != nil {
		return false, tslink.Anchor(err, it.Pos)
	}
	errorJSON, err := ctx.ErrorAsJSON()
	if err != nil {
		return false, tslink.Anchor(err, it.Pos)
	}
	bound := map[string]bool{}
	for _, a := range ctx.BoundArgs() {
		bound[a.Param] = true
	}
	if len(bound) == 0 && !resultJSON && !errorJSON {
		return false, nil
	}
	if b.names[it.Name] {
		return true, nil
	}
	if fd.Type.TypeParams != nil && len(fd.Type.TypeParams.List) > 0 {
		return false, tslink.NotSupported(it.Pos, "generic function %s cannot carry JSON bindings", it.Name)
	}

	w := &wrapper{
		file:       b,
		decl:       fd,
		imports:    b.imports(fd),
		bound:      bound,
		resultJSON: resultJSON,
		errorJSON:  errorJSON,
	}
	code, err := w.build()
	if err != nil {
		return false, tslink.Anchor(err, it.Pos)
	}
	b.names[it.Name] = true
	b.wrappers = append(b.wrappers, code)
	b.helper = b.helper || (errorJSON && w.hasErr)
	return true, nil
}

// Render writes the generated file. Wrappers appear in the order they were
// added.
func (b *File) Render(w io.Writer) error {
	f := jen.NewFile(b.pkg.Name)
	f.HeaderComment("Code generated by tslink. DO NOT EDIT.")
	for _, code := range b.wrappers {
		f.Add(code)
		f.Line()
	}
	if b.helper {
		f.Comment(errorHelper + " encodes err as JSON for the JavaScript side.")
		f.Func().Id(errorHelper).Params(jen.Err().Error()).Error().Block(
			jen.List(jen.Id("data"), jen.Id("merr")).Op(":=").Qual("encoding/json", "Marshal").Call(jen.Err()),
			jen.If(jen.Id("merr").Op("!=").Nil()).Block(jen.Return(jen.Err())),
			jen.Return(jen.Qual("errors", "New").Call(jen.String().Call(jen.Id("data")))),
		)
	}
	if err := f.Render(w); err != nil {
		return tslink.Wrap(tslink.CodeRender, err, "render "+FileName)
	}
	return nil
}

// imports maps the import names visible to fd onto their paths.
func (b *File) imports(fd *ast.FuncDecl) map[string]string {
	out := map[string]string{}
	for _, f := range b.pkg.Files {
		if fd.Pos() < f.Pos() || fd.End() > f.End() {
			continue
		}
		for _, spec := range f.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			name := path[strings.LastIndex(path, "/")+1:]
			if spec.Name != nil {
				name = spec.Name.Name
			}
			out[name] = path
		}
	}
	return out
}

func (b *File) text(n ast.Node) string {
	var buf bytes.Buffer
	_ = printer.Fprint(&buf, b.pkg.Fset, n)
	return buf.String()
}

func (b *File) pos(n ast.Node) token.Position {
	return b.pkg.Fset.Position(n.Pos())
}

// param is one parameter of the wrapped function.
type param struct {
	name     string
	typ      ast.Expr
	variadic bool
}

type wrapper struct {
	file       *File
	decl       *ast.FuncDecl
	imports    map[string]string
	bound      map[string]bool
	resultJSON bool
	errorJSON  bool

	hasErr bool
	oks    []ast.Expr
}

func (w *wrapper) build() (jen.Code, error) {
	fd := w.decl
	params := w.params()
	for _, p := range params {
		if p.variadic && w.bound[p.name] {
			return nil, tslink.NotSupported(w.file.pos(p.typ), "variadic parameter %s cannot be bound", p.name)
		}
	}
	w.results()

	name := fd.Name.Name + "Binding"
	stmt := jen.Func()
	var callee *jen.Statement
	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		recv := fd.Recv.List[0]
		recvName := "recv"
		if len(recv.Names) > 0 && recv.Names[0].Name != "_" {
			recvName = recv.Names[0].Name
		}
		typ, err := w.typeCode(recv.Type)
		if err != nil {
			return nil, err
		}
		stmt.Params(jen.Id(recvName).Add(typ))
		callee = jen.Id(recvName).Dot(fd.Name.Name)
	} else {
		callee = jen.Id(fd.Name.Name)
	}

	var (
		sig  []jen.Code
		args []jen.Code
		body []jen.Code
	)
	for _, p := range params {
		typ, err := w.typeCode(p.typ)
		if err != nil {
			return nil, err
		}
		if !w.bound[p.name] {
			sig = append(sig, jen.Id(p.name).Add(typ))
			arg := jen.Id(p.name)
			if p.variadic {
				arg.Op("...")
			}
			args = append(args, arg)
			continue
		}
		value := p.name + "Value"
		sig = append(sig, jen.Id(p.name).String())
		args = append(args, jen.Id(value))
		body = append(body,
			jen.Var().Id(value).Add(typ),
			jen.If(
				jen.Err().Op("=").Qual("encoding/json", "Unmarshal").Call(jen.Index().Byte().Call(jen.Id(p.name)), jen.Op("&").Id(value)),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(w.returns()...)),
		)
	}

	outs, err := w.outputs()
	if err != nil {
		return nil, err
	}
	body = append(body, w.invoke(callee.Call(args...))...)

	doc := name + " calls " + fd.Name.Name + " across the JSON boundary."
	return jen.Comment(doc).Line().Add(stmt.Id(name).Params(sig...).Params(outs...).Block(body...)), nil
}

func (w *wrapper) params() []param {
	var out []param
	if w.decl.Type.Params == nil {
		return out
	}
	for _, field := range w.decl.Type.Params.List {
		typ := field.Type
		_, variadic := typ.(*ast.Ellipsis)
		if len(field.Names) == 0 {
			out = append(out, param{name: "arg" + strconv.Itoa(len(out)), typ: typ, variadic: variadic})
			continue
		}
		for _, n := range field.Names {
			name := n.Name
			if name == "_" {
				name = "arg" + strconv.Itoa(len(out))
			}
			out = append(out, param{name: name, typ: typ, variadic: variadic})
		}
	}
	return out
}

// results splits the declared results into values and a trailing error.
func (w *wrapper) results() {
	if w.decl.Type.Results == nil {
		return
	}
	for _, field := range w.decl.Type.Results.List {
		n := max(len(field.Names), 1)
		for range n {
			w.oks = append(w.oks, field.Type)
		}
	}
	if n := len(w.oks); n > 0 {
		if id, ok := w.oks[n-1].(*ast.Ident); ok && id.Name == "error" {
			w.hasErr = true
			w.oks = w.oks[:n-1]
		}
	}
}

// encodes reports whether the value results leave as one JSON string.
func (w *wrapper) encodes() bool {
	return w.resultJSON && len(w.oks) > 0
}

// fails reports whether the wrapper returns an error.
func (w *wrapper) fails() bool {
	return w.hasErr || len(w.bound) > 0 || w.encodes()
}

// outputs is the named result list of the wrapper.
func (w *wrapper) outputs() ([]jen.Code, error) {
	var out []jen.Code
	if w.encodes() {
		out = append(out, jen.Id("res").String())
	} else {
		for i, expr := range w.oks {
			typ, err := w.typeCode(expr)
			if err != nil {
				return nil, err
			}
			out = append(out, jen.Id("r"+strconv.Itoa(i)).Add(typ))
		}
	}
	if w.fails() {
		out = append(out, jen.Err().Error())
	}
	return out, nil
}

// returns lists the named results.
func (w *wrapper) returns() []jen.Code {
	var out []jen.Code
	if w.encodes() {
		out = append(out, jen.Id("res"))
	} else {
		for i := range w.oks {
			out = append(out, jen.Id("r"+strconv.Itoa(i)))
		}
	}
	if w.fails() {
		out = append(out, jen.Err())
	}
	return out
}

// invoke calls the wrapped function and converts its outputs.
func (w *wrapper) invoke(call *jen.Statement) []jen.Code {
	var lhs []jen.Code
	for i := range w.oks {
		lhs = append(lhs, jen.Id("r"+strconv.Itoa(i)))
	}
	if w.hasErr {
		lhs = append(lhs, jen.Err())
	}

	var out []jen.Code
	switch {
	case len(lhs) == 0:
		out = append(out, call)
	case w.encodes():
		out = append(out, jen.List(lhs...).Op(":=").Add(call))
	default:
		out = append(out, jen.List(lhs...).Op("=").Add(call))
	}

	if w.hasErr {
		onErr := []jen.Code{}
		if w.errorJSON {
			onErr = append(onErr, jen.Err().Op("=").Id(errorHelper).Call(jen.Err()))
		}
		onErr = append(onErr, jen.Return(w.returns()...))
		out = append(out, jen.If(jen.Err().Op("!=").Nil()).Block(onErr...))
	}

	if w.encodes() {
		value := jen.Id("r0")
		if len(w.oks) > 1 {
			var items []jen.Code
			for i := range w.oks {
				items = append(items, jen.Id("r"+strconv.Itoa(i)))
			}
			value = jen.Index().Interface().Values(items...)
		}
		out = append(out,
			jen.List(jen.Id("encoded"), jen.Err()).Op(":=").Qual("encoding/json", "Marshal").Call(value),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Lit(""), jen.Err())),
			jen.Id("res").Op("=").String().Call(jen.Id("encoded")),
		)
	}
	out = append(out, jen.Return(w.returns()...))
	return out
}

// typeCode converts a Go type expression, qualifying package selectors so
// the generated file imports them.
func (w *wrapper) typeCode(expr ast.Expr) (*jen.Statement, error) {
	switch t := expr.(type) {
	case *ast.Ident:
		return jen.Id(t.Name), nil
	case *ast.ParenExpr:
		return w.typeCode(t.X)
	case *ast.StarExpr:
		inner, err := w.typeCode(t.X)
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(inner), nil
	case *ast.Ellipsis:
		inner, err := w.typeCode(t.Elt)
		if err != nil {
			return nil, err
		}
		return jen.Op("...").Add(inner), nil
	case *ast.SelectorExpr:
		pkg, ok := t.X.(*ast.Ident)
		if !ok {
			break
		}
		if path, ok := w.imports[pkg.Name]; ok {
			return jen.Qual(path, t.Sel.Name), nil
		}
		return jen.Id(pkg.Name).Dot(t.Sel.Name), nil
	case *ast.ArrayType:
		elem, err := w.typeCode(t.Elt)
		if err != nil {
			return nil, err
		}
		if t.Len == nil {
			return jen.Index().Add(elem), nil
		}
		return jen.Index(jen.Id(w.file.text(t.Len))).Add(elem), nil
	case *ast.MapType:
		key, err := w.typeCode(t.Key)
		if err != nil {
			return nil, err
		}
		value, err := w.typeCode(t.Value)
		if err != nil {
			return nil, err
		}
		return jen.Map(key).Add(value), nil
	case *ast.ChanType:
		elem, err := w.typeCode(t.Value)
		if err != nil {
			return nil, err
		}
		switch t.Dir {
		case ast.RECV:
			return jen.Op("<-").Chan().Add(elem), nil
		case ast.SEND:
			return jen.Chan().Op("<-").Add(elem), nil
		}
		return jen.Chan().Add(elem), nil
	case *ast.FuncType:
		var params, results []jen.Code
		for _, list := range []struct {
			fl  *ast.FieldList
			out *[]jen.Code
		}{{t.Params, &params}, {t.Results, &results}} {
			if list.fl == nil {
				continue
			}
			for _, field := range list.fl.List {
				typ, err := w.typeCode(field.Type)
				if err != nil {
					return nil, err
				}
				for range max(len(field.Names), 1) {
					*list.out = append(*list.out, typ)
				}
			}
		}
		return jen.Func().Params(params...).Params(results...), nil
	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return jen.Interface(), nil
		}
	case *ast.IndexExpr:
		base, err := w.typeCode(t.X)
		if err != nil {
			return nil, err
		}
		arg, err := w.typeCode(t.Index)
		if err != nil {
			return nil, err
		}
		return base.Types(arg), nil
	case *ast.IndexListExpr:
		base, err := w.typeCode(t.X)
		if err != nil {
			return nil, err
		}
		var args []jen.Code
		for _, idx := range t.Indices {
			arg, err := w.typeCode(idx)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return base.Types(args...), nil
	}
	return nil, tslink.NotSupported(w.file.pos(expr), "type %s cannot appear in a binding wrapper", w.file.text(expr))
}
