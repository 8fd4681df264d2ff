// Package provider extracts tslink natures from annotated Go source.
//
// Extractor converts type expressions and function signatures. Reader walks
// one package, collects annotated declarations in visit order and inserts
// each into a registry.
package provider

import (
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
	"go/types"
	"slices"
	"strconv"
	"strings"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
)

// ExtractOptions controls primitive mapping.
type ExtractOptions struct {
	// IntOver32AsBigInt maps int, uint and uintptr to bigint.
	IntOver32AsBigInt bool

	// TypeMap overrides the mapping of an identifier to a primitive.
	TypeMap map[string]ir.PrimitiveType
}

// Extractor converts Go syntax into natures. Info may be nil; it only
// sharpens error detection and constant evaluation.
type Extractor struct {
	Fset *token.FileSet
	Info *types.Info
	Opts ExtractOptions
}

// NewExtractor returns an extractor over the given file set.
func NewExtractor(fset *token.FileSet, info *types.Info, opts ExtractOptions) *Extractor {
	return &Extractor{Fset: fset, Info: info, Opts: opts}
}

func (e *Extractor) pos(n ast.Node) token.Position {
	return e.Fset.Position(n.Pos())
}

// text returns the source text of an expression.
func (e *Extractor) text(n ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, e.Fset, n); err != nil {
		return ""
	}
	return buf.String()
}

// listText returns the types of a field list as "(A, B)".
func (e *Extractor) listText(fl *ast.FieldList) string {
	var parts []string
	for _, field := range fieldList(fl) {
		for range names(field) {
			parts = append(parts, e.text(field.Type))
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (e *Extractor) unsupported(n ast.Node, what string) error {
	return tslink.NotSupported(e.pos(n), "%s is not supported: %s", what, e.text(n))
}

// ExtractType converts a type expression.
func (e *Extractor) ExtractType(expr ast.Expr, ctx *ir.Context) (ir.Nature, error) {
	switch t := expr.(type) {
	case *ast.Ident:
		return e.ident(t, ctx)

	case *ast.ParenExpr:
		return e.ExtractType(t.X, ctx)

	case *ast.StarExpr:
		inner, err := e.ExtractType(t.X, ctx)
		if err != nil {
			return nil, err
		}
		opt := ir.NewOption(e.text(t))
		if err := opt.SetInner(inner); err != nil {
			return nil, err
		}
		return opt, nil

	case *ast.ArrayType:
		elem, err := e.ExtractType(t.Elt, ctx)
		if err != nil {
			return nil, err
		}
		if t.Len == nil {
			vec := ir.NewVec(e.text(t))
			if err := vec.SetElement(elem); err != nil {
				return nil, err
			}
			return vec, nil
		}
		if _, ok := t.Len.(*ast.Ellipsis); ok {
			return nil, e.unsupported(t, "array literal length")
		}
		arr := ir.NewArray(e.text(t))
		if err := arr.SetElement(elem); err != nil {
			return nil, err
		}
		return arr, nil

	case *ast.MapType:
		m := ir.NewMap(e.text(t))
		key, err := e.ExtractType(t.Key, ctx)
		if err != nil {
			return nil, err
		}
		if err := m.SetKey(key); err != nil {
			return nil, tslink.Anchor(err, e.pos(t.Key))
		}
		value, err := e.ExtractType(t.Value, ctx)
		if err != nil {
			return nil, err
		}
		if err := m.SetValue(value); err != nil {
			return nil, err
		}
		return m, nil

	case *ast.StructType:
		if t.Fields == nil || len(t.Fields.List) == 0 {
			return ir.NewUndefined(e.text(t)), nil
		}
		return nil, e.unsupported(t, "inline struct")

	case *ast.FuncType:
		return e.callback(t, ctx)

	case *ast.SelectorExpr:
		return nil, e.unsupported(t, "qualified type")
	case *ast.ChanType:
		return nil, e.unsupported(t, "channel")
	case *ast.InterfaceType:
		return nil, e.unsupported(t, "interface")
	case *ast.IndexExpr, *ast.IndexListExpr:
		return nil, e.unsupported(t, "generic instantiation")
	case *ast.Ellipsis:
		return nil, e.unsupported(t, "variadic parameter")
	default:
		return nil, e.unsupported(expr, "type expression")
	}
}

func (e *Extractor) ident(id *ast.Ident, ctx *ir.Context) (ir.Nature, error) {
	name := id.Name
	if p, ok := e.Opts.TypeMap[name]; ok {
		return &ir.Primitive{Type: p, Origin: ir.OriginOf(name)}, nil
	}
	switch name {
	case "int8", "int16", "int32", "uint8", "uint16", "uint32",
		"byte", "rune", "float32", "float64":
		return ir.Number(name), nil
	case "int", "uint", "uintptr":
		if e.Opts.IntOver32AsBigInt {
			return ir.BigInt(name), nil
		}
		return ir.Number(name), nil
	case "int64", "uint64":
		return ir.BigInt(name), nil
	case "string":
		return ir.String(name), nil
	case "bool":
		return ir.Boolean(name), nil
	case "any", "complex64", "complex128", "error":
		return nil, e.unsupported(id, "type")
	}
	return &ir.Ref{Name: name, Ctx: ctx}, nil
}

// callback converts a func type used as a value: arguments are anonymous.
func (e *Extractor) callback(ft *ast.FuncType, ctx *ir.Context) (*ir.FuncType, error) {
	f := ir.NewFuncType(e.text(ft), false, false)
	for _, field := range fieldList(ft.Params) {
		arg, err := e.ExtractType(field.Type, ctx)
		if err != nil {
			return nil, err
		}
		for range names(field) {
			f.AddArg(arg)
		}
	}
	out, err := e.results(ft.Results, ctx, false)
	if err != nil {
		return nil, err
	}
	if err := f.SetOut(out); err != nil {
		return nil, err
	}
	return f, nil
}

// Signature describes the Go function being extracted.
type Signature struct {
	Name       string
	Type       *ast.FuncType
	Receiver   string // receiver type name, empty for free functions
	TypeParams *ast.FieldList
}

// ExtractFunc converts a function or method signature. A leading
// context.Context parameter marks the function async.
func (e *Extractor) ExtractFunc(sig Signature, ctx *ir.Context) (*ir.FuncType, error) {
	if err := e.generics(sig.TypeParams, ctx); err != nil {
		return nil, err
	}

	params := fieldList(sig.Type.Params)
	async := false
	if len(params) > 0 && isContext(params[0].Type) {
		async = true
		if n := len(params[0].Names); n > 1 {
			return nil, tslink.NotSupported(e.pos(params[0]), "only one context.Context parameter is allowed")
		}
		params = params[1:]
	}

	constructor := ctx.AsConstructor() || (sig.Receiver != "" && e.returnsType(sig.Type.Results, sig.Receiver))
	f := ir.NewFuncType(e.text(sig.Type), async, constructor)

	var argNames []string
	for _, field := range params {
		typ, err := e.ExtractType(field.Type, ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names(field) {
			if name == "" || name == "_" {
				name = "arg" + strconv.Itoa(len(f.Args))
			}
			binding, _ := ctx.Bound(name)
			f.AddArg(&ir.FuncArg{Name: name, Ctx: ctx, Type: typ, Binding: binding})
			argNames = append(argNames, name)
		}
	}

	for _, b := range ctx.BoundArgs() {
		if !slices.Contains(argNames, b.Param) {
			return nil, tslink.Errorf(tslink.CodeUnknownBinding,
				"binding %q does not name a parameter of %s", b.Param, sig.Name).At(e.pos(sig.Type))
		}
	}
	if _, err := ctx.ResultAsJSON(); err != nil {
		return nil, tslink.Anchor(err, e.pos(sig.Type))
	}
	if _, err := ctx.ErrorAsJSON(); err != nil {
		return nil, tslink.Anchor(err, e.pos(sig.Type))
	}

	out, err := e.results(sig.Type.Results, ctx, async)
	if err != nil {
		return nil, err
	}
	if err := f.SetOut(out); err != nil {
		return nil, err
	}
	return f, nil
}

// results builds the Result of a signature. A trailing error-typed result is
// the error slot; the predeclared error carries no declared type.
func (e *Extractor) results(fl *ast.FieldList, ctx *ir.Context, async bool) (*ir.Result, error) {
	res := ir.NewResult(e.listText(fl), ctx.ExceptionSuppression(), async)

	var exprs []ast.Expr
	for _, field := range fieldList(fl) {
		for range names(field) {
			exprs = append(exprs, field.Type)
		}
	}

	var errNature ir.Nature
	if n := len(exprs); n > 0 && e.isError(exprs[n-1]) {
		last := exprs[n-1]
		exprs = exprs[:n-1]
		if !e.isPredeclaredError(last) {
			en, err := e.ExtractType(last, ctx)
			if err != nil {
				return nil, err
			}
			errNature = en
		}
	}
	if err := res.SetErr(errNature); err != nil {
		return nil, err
	}

	switch len(exprs) {
	case 0:
		return res, res.SetOk(nil)
	case 1:
		ok, err := e.ExtractType(exprs[0], ctx)
		if err != nil {
			return nil, err
		}
		return res, res.SetOk(ok)
	default:
		tuple := ir.NewTuple(e.listText(fl))
		for _, x := range exprs {
			el, err := e.ExtractType(x, ctx)
			if err != nil {
				return nil, err
			}
			tuple.Append(el)
		}
		return res, res.SetOk(tuple)
	}
}

// generics registers callback type parameters on ctx.
func (e *Extractor) generics(fl *ast.FieldList, ctx *ir.Context) error {
	for _, field := range fieldList(fl) {
		ft := callbackConstraint(field.Type)
		if ft == nil {
			return tslink.NotSupported(e.pos(field), "type parameter constraint %s is not supported; only func types are", e.text(field.Type))
		}
		fn, err := e.callback(ft, ctx)
		if err != nil {
			return err
		}
		for _, name := range field.Names {
			ctx.AddGenerics(&ir.Generic{Alias: name.Name, Func: fn})
		}
	}
	return nil
}

// callbackConstraint unwraps func(A) B and interface{ ~func(A) B }.
func callbackConstraint(expr ast.Expr) *ast.FuncType {
	switch t := expr.(type) {
	case *ast.FuncType:
		return t
	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) != 1 {
			return nil
		}
		elem := t.Methods.List[0]
		if len(elem.Names) != 0 {
			return nil
		}
		x := elem.Type
		if u, ok := x.(*ast.UnaryExpr); ok && u.Op == token.TILDE {
			x = u.X
		}
		ft, _ := x.(*ast.FuncType)
		return ft
	}
	return nil
}

func (e *Extractor) isError(expr ast.Expr) bool {
	if e.isPredeclaredError(expr) {
		return true
	}
	if e.Info == nil {
		return false
	}
	t := e.Info.TypeOf(expr)
	if t == nil {
		return false
	}
	errType := types.Universe.Lookup("error").Type().Underlying().(*types.Interface)
	return types.Implements(t, errType)
}

func (e *Extractor) isPredeclaredError(expr ast.Expr) bool {
	id, ok := expr.(*ast.Ident)
	if !ok || id.Name != "error" {
		return false
	}
	if e.Info == nil {
		return true
	}
	obj := e.Info.Uses[id]
	return obj == nil || obj == types.Universe.Lookup("error")
}

// returnsType reports whether the first non-error result is name or *name.
func (e *Extractor) returnsType(fl *ast.FieldList, name string) bool {
	list := fieldList(fl)
	return len(list) > 0 && TypeName(list[0].Type) == name
}

// TypeName returns the identifier of T or *T, or "".
func TypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	case *ast.ParenExpr:
		return TypeName(t.X)
	}
	return ""
}

func isContext(expr ast.Expr) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Context" {
		return false
	}
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "context"
}

func fieldList(fl *ast.FieldList) []*ast.Field {
	if fl == nil {
		return nil
	}
	return fl.List
}

// names expands a field into one entry per declared name. Unnamed fields
// yield a single empty name.
func names(field *ast.Field) []string {
	if len(field.Names) == 0 {
		return []string{""}
	}
	out := make([]string, len(field.Names))
	for i, n := range field.Names {
		out[i] = n.Name
	}
	return out
}
