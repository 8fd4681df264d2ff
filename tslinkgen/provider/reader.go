package provider

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/internal/directive"
	"github.com/broady/tslink/tslinkgen/ir"
)

// Package is one parsed Go package. Info may be nil.
type Package struct {
	Name  string
	Path  string
	Fset  *token.FileSet
	Files []*ast.File
	Info  *types.Info
}

// ItemKind identifies the declaration form of an Item.
type ItemKind int

const (
	ItemType ItemKind = iota
	ItemConst
	ItemFunc
)

func (k ItemKind) String() string {
	switch k {
	case ItemType:
		return "type"
	case ItemConst:
		return "const"
	case ItemFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Item is one annotated declaration.
type Item struct {
	Kind    ItemKind
	Name    string
	Pos     token.Position
	Options *ir.Options

	typeSpec  *ast.TypeSpec
	valueSpec *ast.ValueSpec
	index     int
	funcDecl  *ast.FuncDecl
}

// Decl returns the function declaration of an ItemFunc, or nil.
func (it Item) Decl() *ast.FuncDecl {
	return it.funcDecl
}

type enumConst struct {
	name  string
	spec  *ast.ValueSpec
	index int
	pos   token.Position
}

// Reader reads the annotated declarations of one package.
type Reader struct {
	pkg      *Package
	ext      *Extractor
	defaults ir.Defaults

	types      map[string]*ast.TypeSpec
	typeDocs   map[string][]*ast.CommentGroup
	typeOrder  []string
	enumConsts map[string][]enumConst
	markers    map[string]map[string]bool // marker method -> receiver types
}

// NewReader indexes the package's type declarations, typed constants and
// marker methods.
func NewReader(pkg *Package, opts ExtractOptions, defaults ir.Defaults) *Reader {
	r := &Reader{
		pkg:        pkg,
		ext:        NewExtractor(pkg.Fset, pkg.Info, opts),
		defaults:   defaults,
		types:      make(map[string]*ast.TypeSpec),
		typeDocs:   make(map[string][]*ast.CommentGroup),
		enumConsts: make(map[string][]enumConst),
		markers:    make(map[string]map[string]bool),
	}
	r.index()
	return r
}

func (r *Reader) index() {
	for _, f := range r.pkg.Files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				switch d.Tok {
				case token.TYPE:
					for _, spec := range d.Specs {
						ts := spec.(*ast.TypeSpec)
						r.types[ts.Name.Name] = ts
						r.typeDocs[ts.Name.Name] = docs(d, ts.Doc, ts.Comment)
						r.typeOrder = append(r.typeOrder, ts.Name.Name)
					}
				case token.CONST:
					var typ string
					for _, spec := range d.Specs {
						vs := spec.(*ast.ValueSpec)
						switch {
						case vs.Type != nil:
							typ = TypeName(vs.Type)
						case len(vs.Values) > 0:
							typ = ""
						}
						if typ == "" {
							continue
						}
						for i, n := range vs.Names {
							if n.Name == "_" {
								continue
							}
							r.enumConsts[typ] = append(r.enumConsts[typ], enumConst{
								name:  n.Name,
								spec:  vs,
								index: i,
								pos:   r.pkg.Fset.Position(n.Pos()),
							})
						}
					}
				}
			case *ast.FuncDecl:
				if d.Recv == nil || len(d.Recv.List) == 0 || ast.IsExported(d.Name.Name) {
					continue
				}
				if len(fieldList(d.Type.Params)) != 0 || len(fieldList(d.Type.Results)) != 0 {
					continue
				}
				recv := TypeName(d.Recv.List[0].Type)
				if recv == "" {
					continue
				}
				if r.markers[d.Name.Name] == nil {
					r.markers[d.Name.Name] = make(map[string]bool)
				}
				r.markers[d.Name.Name][recv] = true
			}
		}
	}
}

// docs returns the comment groups a directive may sit in. The declaration
// doc only counts for single-spec declarations.
func docs(d *ast.GenDecl, specDoc, specComment *ast.CommentGroup) []*ast.CommentGroup {
	groups := []*ast.CommentGroup{specDoc, specComment}
	if len(d.Specs) == 1 {
		groups = append([]*ast.CommentGroup{d.Doc}, groups...)
	}
	return groups
}

// Collect returns the annotated declarations in visit order: types, then
// constants, then functions and methods, each in source order. Constants of
// an enum type are variants and are not collected.
func (r *Reader) Collect() ([]Item, error) {
	var typeItems, constItems, funcItems []Item
	fset := r.pkg.Fset

	for _, f := range r.pkg.Files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch s := spec.(type) {
					case *ast.TypeSpec:
						dir, ok, err := directive.Find(fset, docs(d, s.Doc, s.Comment)...)
						if err != nil {
							return nil, err
						}
						if !ok {
							continue
						}
						typeItems = append(typeItems, Item{
							Kind:     ItemType,
							Name:     s.Name.Name,
							Pos:      fset.Position(s.Pos()),
							Options:  dir.Options,
							typeSpec: s,
						})
					case *ast.ValueSpec:
						if d.Tok != token.CONST {
							continue
						}
						dir, ok, err := directive.Find(fset, docs(d, s.Doc, s.Comment)...)
						if err != nil {
							return nil, err
						}
						if !ok {
							continue
						}
						for i, n := range s.Names {
							if r.isEnumConst(n.Name) {
								continue
							}
							constItems = append(constItems, Item{
								Kind:      ItemConst,
								Name:      n.Name,
								Pos:       fset.Position(n.Pos()),
								Options:   dir.Options,
								valueSpec: s,
								index:     i,
							})
						}
					}
				}
			case *ast.FuncDecl:
				dir, ok, err := directive.Find(fset, d.Doc)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				funcItems = append(funcItems, Item{
					Kind:     ItemFunc,
					Name:     funcName(d),
					Pos:      fset.Position(d.Pos()),
					Options:  dir.Options,
					funcDecl: d,
				})
			}
		}
	}

	items := append(typeItems, constItems...)
	return append(items, funcItems...), nil
}

func funcName(d *ast.FuncDecl) string {
	if d.Recv != nil && len(d.Recv.List) > 0 {
		if recv := TypeName(d.Recv.List[0].Type); recv != "" {
			return recv + "." + d.Name.Name
		}
	}
	return d.Name.Name
}

func (r *Reader) isEnumConst(name string) bool {
	for typ, consts := range r.enumConsts {
		if !r.isFlatEnumType(typ) {
			continue
		}
		for _, c := range consts {
			if c.name == name {
				return true
			}
		}
	}
	return false
}

// isFlatEnumType reports whether typ is a local non-struct, non-interface
// type with typed constants.
func (r *Reader) isFlatEnumType(typ string) bool {
	ts, ok := r.types[typ]
	if !ok || len(r.enumConsts[typ]) == 0 {
		return false
	}
	switch ts.Type.(type) {
	case *ast.StructType, *ast.InterfaceType:
		return false
	}
	return true
}

// Read extracts one item and inserts it into reg. It returns the registry
// name the item was inserted under or appended to, or "" when the item is
// ignored.
func (r *Reader) Read(reg *ir.Registry, it Item) (string, error) {
	ctx := ir.NewContext(it.Options, r.defaults)
	if ctx.IgnoreSelf() {
		return "", nil
	}
	switch it.Kind {
	case ItemType:
		return it.Name, r.readType(reg, it, ctx)
	case ItemConst:
		return it.Name, r.readConst(reg, it, ctx)
	case ItemFunc:
		return r.readFunc(reg, it, ctx)
	}
	return "", tslink.Errorf(tslink.CodeUnidentified, "unknown item kind %s", it.Kind).At(it.Pos)
}

// Module returns the module an entity belongs to: the module directive,
// else the base name of its ts target, else the Go package name.
func (r *Reader) Module(ctx *ir.Context) string {
	if m := ctx.Module(); m != "" {
		return m
	}
	if t, ok := ctx.Target(ir.TargetTS); ok && t.Path != "" {
		return strings.TrimSuffix(filepath.Base(t.Path), ".ts")
	}
	return r.pkg.Name
}

func (r *Reader) insert(reg *ir.Registry, name string, n ir.Nature, ctx *ir.Context, pos token.Position) error {
	if err := reg.Insert(name, n, r.Module(ctx)); err != nil {
		return tslink.Anchor(err, pos)
	}
	return nil
}

func (r *Reader) readType(reg *ir.Registry, it Item, ctx *ir.Context) error {
	ts := it.typeSpec
	if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
		return tslink.NotSupported(it.Pos, "generic type %s is not supported", it.Name)
	}
	switch t := ts.Type.(type) {
	case *ast.StructType:
		return r.readStruct(reg, it, t, ctx)
	case *ast.InterfaceType:
		return r.readSealed(reg, it, t, ctx)
	}
	if !ts.Assign.IsValid() && r.isFlatEnumType(it.Name) {
		return r.readFlatEnum(reg, it, ctx)
	}

	tuple := &ir.TupleStruct{Name: it.Name, Ctx: ctx, Src: ir.SourceOf(it.Pos)}
	inner, err := r.ext.ExtractType(ts.Type, ctx)
	if err != nil {
		return err
	}
	if err := tuple.SetInner(inner); err != nil {
		return err
	}
	return r.insert(reg, it.Name, tuple, ctx, it.Pos)
}

func (r *Reader) readStruct(reg *ir.Registry, it Item, st *ast.StructType, ctx *ir.Context) error {
	s := &ir.Struct{Name: it.Name, Ctx: ctx, Src: ir.SourceOf(it.Pos)}
	if err := r.insert(reg, it.Name, s, ctx, it.Pos); err != nil {
		return err
	}
	fields, err := r.fields(st, ctx)
	if err != nil {
		return err
	}
	for _, f := range fields {
		err := reg.Update(it.Name, func(n ir.Nature) error {
			return n.(*ir.Struct).AddField(f)
		})
		if err != nil {
			return tslink.Anchor(err, it.Pos)
		}
	}
	return nil
}

// fields extracts the exported, non-ignored fields of a struct. The json
// tag name, when present, is the original identifier.
func (r *Reader) fields(st *ast.StructType, parent *ir.Context) ([]*ir.Field, error) {
	var out []*ir.Field
	for _, field := range fieldList(st.Fields) {
		if len(field.Names) == 0 {
			return nil, tslink.NotSupported(r.ext.pos(field), "embedded field %s is not supported", r.ext.text(field.Type))
		}
		dir, ok, err := directive.Find(r.pkg.Fset, field.Doc, field.Comment)
		if err != nil {
			return nil, err
		}
		var opts *ir.Options
		if ok {
			opts = dir.Options
		}
		for _, n := range field.Names {
			if !ast.IsExported(n.Name) {
				continue
			}
			original, skip := jsonName(field.Tag, n.Name)
			if skip {
				continue
			}
			fctx := ir.NewContext(opts, r.defaults).WithParent(parent)
			f := &ir.Field{Name: original, Ctx: fctx}
			if f.Ignored() || fctx.IsIgnored(n.Name) {
				continue
			}
			typ, err := r.ext.ExtractType(field.Type, fctx)
			if err != nil {
				return nil, err
			}
			f.Type = typ
			out = append(out, f)
		}
	}
	return out, nil
}

func jsonName(tag *ast.BasicLit, name string) (string, bool) {
	if tag == nil {
		return name, false
	}
	raw, err := strconv.Unquote(tag.Value)
	if err != nil {
		return name, false
	}
	v, ok := reflect.StructTag(raw).Lookup("json")
	if !ok {
		return name, false
	}
	n, _, _ := strings.Cut(v, ",")
	switch n {
	case "-":
		return "", true
	case "":
		return name, false
	}
	return n, false
}

func (r *Reader) readFlatEnum(reg *ir.Registry, it Item, ctx *ir.Context) error {
	e := &ir.Enum{Name: it.Name, Ctx: ctx, Representation: r.defaults.EnumRepresentation, Src: ir.SourceOf(it.Pos)}
	if err := r.insert(reg, it.Name, e, ctx, it.Pos); err != nil {
		return err
	}
	for _, c := range r.enumConsts[it.Name] {
		dir, ok, err := directive.Find(r.pkg.Fset, c.spec.Doc, c.spec.Comment)
		if err != nil {
			return err
		}
		var opts *ir.Options
		if ok {
			opts = dir.Options
		}
		vctx := ir.NewContext(opts, r.defaults).WithParent(ctx)
		if vctx.IgnoreSelf() {
			continue
		}
		v := &ir.EnumVariant{Name: c.name, Ctx: vctx, Value: r.variantValue(c)}
		err = reg.Update(it.Name, func(n ir.Nature) error {
			return n.(*ir.Enum).AddVariant(v)
		})
		if err != nil {
			return tslink.Anchor(err, c.pos)
		}
	}
	return nil
}

// variantValue returns the literal of a numeric or string enum constant.
// Without type information implicit iota values are unknown and the
// variant falls back to its position.
func (r *Reader) variantValue(c enumConst) string {
	val, err := r.constValue(c.spec, c.index)
	if err != nil {
		return ""
	}
	switch val.Kind() {
	case constant.String, constant.Int, constant.Float:
		return formatConst(val, nil)
	}
	return ""
}

// marker returns the single unexported, argument-free method of a sealed
// interface.
func marker(iface *ast.InterfaceType) string {
	list := fieldList(iface.Methods)
	if len(list) != 1 || len(list[0].Names) != 1 {
		return ""
	}
	name := list[0].Names[0].Name
	ft, ok := list[0].Type.(*ast.FuncType)
	if !ok || ast.IsExported(name) || len(fieldList(ft.Params)) != 0 || len(fieldList(ft.Results)) != 0 {
		return ""
	}
	return name
}

func (r *Reader) readSealed(reg *ir.Registry, it Item, iface *ast.InterfaceType, ctx *ir.Context) error {
	m := marker(iface)
	if m == "" {
		return tslink.NotSupported(it.Pos,
			"interface %s is not supported; only sealed interfaces with one unexported marker method are", it.Name)
	}
	e := &ir.Enum{Name: it.Name, Ctx: ctx, Representation: r.defaults.EnumRepresentation, Src: ir.SourceOf(it.Pos)}
	if err := r.insert(reg, it.Name, e, ctx, it.Pos); err != nil {
		return err
	}

	var variants []string
	for _, name := range r.typeOrder {
		if r.markers[m][name] {
			variants = append(variants, name)
		}
	}

	for _, name := range variants {
		ts := r.types[name]
		dir, ok, err := directive.Find(r.pkg.Fset, r.typeDocs[name]...)
		if err != nil {
			return err
		}
		var opts *ir.Options
		if ok {
			opts = dir.Options
		}
		vctx := ir.NewContext(opts, r.defaults).WithParent(ctx)
		if vctx.IgnoreSelf() {
			continue
		}
		v := &ir.EnumVariant{Name: name, Ctx: vctx}
		switch t := ts.Type.(type) {
		case *ast.StructType:
			fields, err := r.fields(t, vctx)
			if err != nil {
				return err
			}
			for _, f := range fields {
				v.Fields = append(v.Fields, f)
			}
		default:
			typ, err := r.ext.ExtractType(ts.Type, vctx)
			if err != nil {
				return err
			}
			v.Fields = append(v.Fields, typ)
		}
		err = reg.Update(it.Name, func(n ir.Nature) error {
			return n.(*ir.Enum).AddVariant(v)
		})
		if err != nil {
			return tslink.Anchor(err, r.pkg.Fset.Position(ts.Pos()))
		}
	}
	return nil
}

func (r *Reader) readConst(reg *ir.Registry, it Item, ctx *ir.Context) error {
	vs := it.valueSpec
	val, err := r.constValue(vs, it.index)
	if err != nil {
		return err
	}

	var typ ir.Nature
	if vs.Type != nil {
		typ, err = r.ext.ExtractType(vs.Type, ctx)
		if err != nil {
			return err
		}
	} else {
		switch val.Kind() {
		case constant.String:
			typ = ir.String("string")
		case constant.Bool:
			typ = ir.Boolean("bool")
		case constant.Int, constant.Float:
			typ = ir.Number("number")
		default:
			return tslink.NotSupported(it.Pos, "constant %s of kind %s is not supported", it.Name, val.Kind())
		}
	}

	c := &ir.Constant{
		Name:  it.Name,
		Ctx:   ctx,
		Type:  typ,
		Value: formatConst(val, typ),
		Src:   ir.SourceOf(it.Pos),
	}
	return r.insert(reg, it.Name, c, ctx, it.Pos)
}

// constValue evaluates a constant through type information when available,
// else from its literal.
func (r *Reader) constValue(vs *ast.ValueSpec, i int) (constant.Value, error) {
	name := vs.Names[i]
	if r.pkg.Info != nil {
		if obj, ok := r.pkg.Info.Defs[name].(*types.Const); ok {
			return obj.Val(), nil
		}
	}
	if i >= len(vs.Values) {
		return nil, tslink.NotSupported(r.ext.pos(name), "constant %s has no literal value", name.Name)
	}
	if v := literal(vs.Values[i]); v != nil {
		return v, nil
	}
	return nil, tslink.NotSupported(r.ext.pos(vs.Values[i]),
		"constant %s: only literal values are supported without type information", name.Name)
}

func literal(expr ast.Expr) constant.Value {
	switch x := expr.(type) {
	case *ast.BasicLit:
		v := constant.MakeFromLiteral(x.Value, x.Kind, 0)
		if v.Kind() == constant.Unknown {
			return nil
		}
		return v
	case *ast.Ident:
		switch x.Name {
		case "true":
			return constant.MakeBool(true)
		case "false":
			return constant.MakeBool(false)
		}
	case *ast.ParenExpr:
		return literal(x.X)
	case *ast.UnaryExpr:
		if x.Op != token.SUB && x.Op != token.ADD {
			return nil
		}
		v := literal(x.X)
		if v == nil {
			return nil
		}
		return constant.UnaryOp(x.Op, v, 0)
	}
	return nil
}

func formatConst(v constant.Value, typ ir.Nature) string {
	switch v.Kind() {
	case constant.String:
		return ir.Quote(constant.StringVal(v))
	case constant.Bool:
		return strconv.FormatBool(constant.BoolVal(v))
	case constant.Int:
		s := v.ExactString()
		if p, ok := typ.(*ir.Primitive); ok && p.Type == ir.PrimitiveBigInt {
			s += "n"
		}
		return s
	case constant.Float:
		f, _ := constant.Float64Val(v)
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v.ExactString()
}

func (r *Reader) readFunc(reg *ir.Registry, it Item, ctx *ir.Context) (string, error) {
	fd := it.funcDecl
	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		return r.readMethod(reg, it, ctx)
	}
	if ctx.AsConstructor() {
		return r.readConstructor(reg, it, ctx)
	}
	fn, err := r.ext.ExtractFunc(Signature{
		Name:       fd.Name.Name,
		Type:       fd.Type,
		TypeParams: fd.Type.TypeParams,
	}, ctx)
	if err != nil {
		return "", err
	}
	f := &ir.Function{Name: fd.Name.Name, Ctx: ctx, Func: fn, Src: ir.SourceOf(it.Pos)}
	return fd.Name.Name, r.insert(reg, fd.Name.Name, f, ctx, it.Pos)
}

// parent looks up the struct a method or constructor attaches to.
func (r *Reader) parent(reg *ir.Registry, name string, pos token.Position) (*ir.Struct, error) {
	n, ok := reg.Get(name)
	if !ok {
		return nil, tslink.Errorf(tslink.CodeMissingParent, "fail to find parent entity %q", name).At(pos)
	}
	s, ok := n.(*ir.Struct)
	if !ok {
		return nil, tslink.NotSupported(pos, "methods are only supported on structs; %s is %s", name, n.Kind())
	}
	return s, nil
}

func (r *Reader) readMethod(reg *ir.Registry, it Item, ctx *ir.Context) (string, error) {
	fd := it.funcDecl
	recv := TypeName(fd.Recv.List[0].Type)
	if recv == "" {
		return "", tslink.NotSupported(it.Pos, "receiver %s is not supported", r.ext.text(fd.Recv.List[0].Type))
	}
	parent, err := r.parent(reg, recv, it.Pos)
	if err != nil {
		return "", err
	}
	if err := r.promote(reg, recv, ctx, it.Pos); err != nil {
		return "", err
	}
	mctx := ctx.WithParent(parent.Ctx)
	fn, err := r.ext.ExtractFunc(Signature{Name: fd.Name.Name, Type: fd.Type, Receiver: recv}, mctx)
	if err != nil {
		return "", err
	}
	return recv, r.attach(reg, recv, &ir.Field{Name: fd.Name.Name, Ctx: mctx, Type: fn}, it.Pos)
}

// readConstructor attaches func NewT(...) *T to struct T.
func (r *Reader) readConstructor(reg *ir.Registry, it Item, ctx *ir.Context) (string, error) {
	fd := it.funcDecl
	results := fieldList(fd.Type.Results)
	if len(results) == 0 || TypeName(results[0].Type) == "" {
		return "", tslink.Errorf(tslink.CodeMalformedDirective,
			"constructor %s must return the type it constructs", fd.Name.Name).At(it.Pos)
	}
	target := TypeName(results[0].Type)
	parent, err := r.parent(reg, target, it.Pos)
	if err != nil {
		return "", err
	}
	if err := r.promote(reg, target, ctx, it.Pos); err != nil {
		return "", err
	}
	cctx := ctx.WithParent(parent.Ctx)
	fn, err := r.ext.ExtractFunc(Signature{Name: fd.Name.Name, Type: fd.Type, TypeParams: fd.Type.TypeParams}, cctx)
	if err != nil {
		return "", err
	}
	return target, r.attach(reg, target, &ir.Field{Name: fd.Name.Name, Ctx: cctx, Type: fn}, it.Pos)
}

// promote puts struct name in class mode when a method or constructor
// directive carries the class flag.
func (r *Reader) promote(reg *ir.Registry, name string, ctx *ir.Context, pos token.Position) error {
	if !ctx.Options().Class {
		return nil
	}
	return reg.Update(name, func(n ir.Nature) error {
		s := n.(*ir.Struct)
		if s.Ctx.Options().Interface {
			return tslink.Errorf(tslink.CodeMalformedDirective,
				"class on a method of %s conflicts with its interface flag", name).At(pos)
		}
		s.Ctx = s.Ctx.WithClass()
		return nil
	})
}

func (r *Reader) attach(reg *ir.Registry, parent string, f *ir.Field, pos token.Position) error {
	err := reg.Update(parent, func(n ir.Nature) error {
		return n.(*ir.Struct).AddField(f)
	})
	if err != nil {
		return tslink.Anchor(err, pos)
	}
	return nil
}
