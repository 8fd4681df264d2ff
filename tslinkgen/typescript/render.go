package typescript

import (
	"slices"
	"strings"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
)

// renderer renders one entity. It collects the imports the entity needs
// from other files; an entity rendered into the same file needs none.
type renderer struct {
	e       *Emitter
	dest    string
	imports []string
}

func (r *renderer) dialect() Dialect {
	return r.e.opts.Dialect
}

func (r *renderer) declaration(b *strings.Builder, n ir.Nature) error {
	switch v := n.(type) {
	case *ir.Struct:
		return r.structDecl(b, v)
	case *ir.Enum:
		return r.enumDecl(b, v)
	case *ir.TupleStruct:
		b.WriteString("export type " + v.Name + " = ")
		if v.Inner == nil {
			b.WriteString("undefined")
		} else if err := r.reference(b, v.Inner); err != nil {
			return err
		}
		b.WriteString(";\n")
		return nil
	case *ir.Function:
		return r.functionDecl(b, v)
	case *ir.Constant:
		return r.constantDecl(b, v)
	default:
		return tslink.Errorf(tslink.CodeRender, "%s cannot be declared", n.Kind())
	}
}

func (r *renderer) structDecl(b *strings.Builder, s *ir.Struct) error {
	class := s.Ctx != nil && s.Ctx.AsClass()
	keyword := "export interface"
	if class {
		keyword = r.dialect().ClassKeyword
	}
	b.WriteString(keyword + " " + s.Name + " {\n")
	for _, n := range s.Fields {
		f, ok := n.(*ir.Field)
		if !ok || f.Ignored() {
			continue
		}
		if class && ir.IsConstructor(f) && !r.dialect().ClassConstructors {
			continue
		}
		b.WriteString(Offset)
		if err := r.member(b, f, class); err != nil {
			return err
		}
		b.WriteString(";\n")
	}
	b.WriteString("}\n")
	return nil
}

// member renders a field or method slot without its terminator.
func (r *renderer) member(b *strings.Builder, f *ir.Field, class bool) error {
	fn, isFunc := f.Type.(*ir.FuncType)
	switch {
	case isFunc && fn.Constructor:
		b.WriteString("constructor")
		return r.signature(b, fn, false)
	case isFunc && !fn.HasAnonymousArgs():
		if class && r.dialect().AbstractMethods {
			b.WriteString("public abstract ")
		}
		b.WriteString(propertyName(f.Ctx.MethodName(f.Name)))
		return r.signature(b, fn, false)
	default:
		b.WriteString(propertyName(f.Ctx.FieldName(f.Name)) + ": ")
		return r.bound(b, f.Binding, f.Type)
	}
}

func (r *renderer) functionDecl(b *strings.Builder, f *ir.Function) error {
	if f.Func == nil {
		return tslink.Errorf(tslink.CodeIncomplete, "function %s has no signature", f.Name)
	}
	if f.Func.Constructor {
		return tslink.Errorf(tslink.CodeNotSupported, "cannot declare constructor %s outside of a class", f.Name)
	}
	b.WriteString("export declare function " + declaredName(f))
	if err := r.signature(b, f.Func, false); err != nil {
		return err
	}
	b.WriteString(";\n")
	return nil
}

func (r *renderer) constantDecl(b *strings.Builder, c *ir.Constant) error {
	if r.dialect().DeclareConstants {
		b.WriteString("export declare const " + c.Name + ": ")
	} else {
		b.WriteString("export const " + c.Name + ": ")
	}
	if err := r.reference(b, c.Type); err != nil {
		return err
	}
	if !r.dialect().DeclareConstants {
		b.WriteString(" = " + c.Value)
	}
	b.WriteString(";\n")
	return nil
}

func (r *renderer) enumDecl(b *strings.Builder, e *ir.Enum) error {
	if e.IsFlat() {
		b.WriteString("export enum " + e.Name + " {\n")
		values := e.Values()
		for i, v := range e.Variants {
			b.WriteString(Offset + variantName(v) + " = " + values[i] + ",\n")
		}
		b.WriteString("}\n")
		return nil
	}

	if e.Representation == ir.EnumFlat {
		b.WriteString("export interface " + e.Name + " {\n")
		for _, v := range e.Variants {
			payload, err := r.payload(v)
			if err != nil {
				return err
			}
			b.WriteString(Offset + propertyName(variantName(v)) + "?: " + payload + ";\n")
		}
		b.WriteString("}\n")
		return nil
	}

	parts := make([]string, 0, len(e.Variants))
	for _, v := range e.Variants {
		name := variantName(v)
		if len(v.Fields) == 0 && e.Representation == ir.EnumDiscriminatedUnion {
			parts = append(parts, ir.Quote(name))
			continue
		}
		payload, err := r.payload(v)
		if err != nil {
			return err
		}
		parts = append(parts, "{ "+propertyName(name)+": "+payload+" }")
	}
	b.WriteString("export type " + e.Name + " = " + strings.Join(parts, " | ") + ";\n")
	return nil
}

// payload renders the data a variant carries: null when empty, the single
// positional value, a tuple of positional values or an object of named ones.
func (r *renderer) payload(v *ir.EnumVariant) (string, error) {
	if len(v.Fields) == 0 {
		return "null", nil
	}
	if v.Named() {
		var members []string
		for _, n := range v.Fields {
			f, ok := n.(*ir.Field)
			if !ok {
				return "", tslink.Errorf(tslink.CodeRender, "variant %s mixes named and positional fields", v.Name)
			}
			if f.Ignored() {
				continue
			}
			var b strings.Builder
			if err := r.member(&b, f, false); err != nil {
				return "", err
			}
			members = append(members, b.String())
		}
		return "{ " + strings.Join(members, "; ") + " }", nil
	}
	var b strings.Builder
	if len(v.Fields) > 1 {
		b.WriteByte('[')
	}
	for i, n := range v.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := r.reference(&b, n); err != nil {
			return "", err
		}
	}
	if len(v.Fields) > 1 {
		b.WriteByte(']')
	}
	return b.String(), nil
}

func variantName(v *ir.EnumVariant) string {
	if v.Ctx != nil {
		if name, ok := v.Ctx.Rename(v.Name); ok {
			return name
		}
	}
	return v.Name
}

// signature renders a parameter list and return type. In a type position,
// or when a parameter is anonymous, the arrow form is used. Constructors
// render their parameter list only.
func (r *renderer) signature(b *strings.Builder, fn *ir.FuncType, typePosition bool) error {
	anonymous := fn.HasAnonymousArgs()
	if fn.Constructor && anonymous {
		return tslink.Errorf(tslink.CodeNotSupported, "Constructor with generic types aren't supported")
	}

	names := fn.ArgNames()
	b.WriteByte('(')
	for i, a := range fn.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(escapeReservedWord(names[i]) + ": ")
		var err error
		if arg, ok := a.(*ir.FuncArg); ok {
			err = r.bound(b, arg.Binding, arg.Type)
		} else {
			err = r.reference(b, a)
		}
		if err != nil {
			return err
		}
	}
	b.WriteByte(')')
	if fn.Constructor {
		return nil
	}

	if typePosition || anonymous {
		b.WriteString(" => ")
	} else {
		b.WriteString(": ")
	}
	if fn.Async {
		b.WriteString("Promise<")
	}
	if fn.Out == nil {
		b.WriteString("void")
	} else if err := r.reference(b, fn.Out); err != nil {
		return err
	}
	if fn.Async {
		b.WriteString(">")
	}
	return nil
}

// bound renders a parameter or field type. A JSON binding replaces the Go
// type with the bound entity.
func (r *renderer) bound(b *strings.Builder, binding string, typ ir.Nature) error {
	if binding != "" {
		return r.ref(b, binding, nil)
	}
	return r.reference(b, typ)
}

func (r *renderer) reference(b *strings.Builder, n ir.Nature) error {
	if c, ok := n.(ir.Composite); ok {
		if err := c.Complete(); err != nil {
			return err
		}
	}

	switch v := n.(type) {
	case *ir.Primitive:
		b.WriteString(v.Type.TypeScript())
	case *ir.Vec:
		return r.element(b, v.Element)
	case *ir.Array:
		return r.element(b, v.Element)
	case *ir.Map:
		b.WriteString("Map<" + v.Key.Type.TypeScript() + ", ")
		if err := r.reference(b, v.Value); err != nil {
			return err
		}
		b.WriteByte('>')
	case *ir.Tuple:
		b.WriteByte('[')
		for i, el := range v.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := r.reference(b, el); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case *ir.Option:
		if err := r.reference(b, v.Inner); err != nil {
			return err
		}
		b.WriteString(" | null")
	case *ir.Result:
		return r.result(b, v)
	case *ir.Undefined:
		b.WriteString("void")
	case *ir.FuncType:
		return r.signature(b, v, true)
	case *ir.Generic:
		return r.signature(b, v.Func, true)
	case *ir.Ref:
		return r.ref(b, v.Name, v.Ctx)
	case *ir.Struct, *ir.Enum, *ir.TupleStruct:
		return r.ref(b, v.(ir.Named).EntityName(), nil)
	case *ir.FuncArg:
		return r.bound(b, v.Binding, v.Type)
	case *ir.Field:
		return r.bound(b, v.Binding, v.Type)
	default:
		return tslink.Errorf(tslink.CodeRender, "%s cannot be referenced", n.Kind())
	}
	return nil
}

// element renders T[], parenthesizing unions and function types.
func (r *renderer) element(b *strings.Builder, n ir.Nature) error {
	var el strings.Builder
	if err := r.reference(&el, n); err != nil {
		return err
	}
	if compound(el.String()) {
		b.WriteString("(" + el.String() + ")[]")
	} else {
		b.WriteString(el.String() + "[]")
	}
	return nil
}

// compound reports whether a rendered type has a top-level union or arrow.
func compound(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '[', '(', '{':
			depth++
		case '>':
			if i > 0 && s[i-1] == '=' {
				if depth == 0 {
					return true
				}
				continue
			}
			depth--
		case ']', ')', '}':
			depth--
		case '|':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// result renders a function outcome. Async outcomes render their value
// only; the Promise is added by the signature.
func (r *renderer) result(b *strings.Builder, res *ir.Result) error {
	var ok strings.Builder
	if res.Ok != nil {
		if err := r.reference(&ok, res.Ok); err != nil {
			return err
		}
	}
	if res.Async || !res.ExceptionSuppression {
		if ok.Len() == 0 {
			b.WriteString("void")
		} else {
			b.WriteString(ok.String())
		}
		return nil
	}

	shape := "Error"
	if res.Err != nil {
		var errType strings.Builder
		if err := r.reference(&errType, res.Err); err != nil {
			return err
		}
		shape = "(Error & { err?: " + errType.String() + " })"
	}
	if ok.Len() == 0 {
		b.WriteString(shape + " | void")
	} else {
		b.WriteString(ok.String() + " | " + shape)
	}
	return nil
}

// ref renders a name. Generic parameters in scope render their callback
// signature; entities living in another file are imported.
func (r *renderer) ref(b *strings.Builder, name string, scope *ir.Context) error {
	if scope != nil {
		if g, ok := scope.Generic(name); ok && g.Func != nil {
			return r.signature(b, g.Func, true)
		}
	}
	r.require(name)
	b.WriteString(name)
	return nil
}

func (r *renderer) require(name string) {
	if r.dest == "" {
		return
	}
	n, ok := r.e.reg.Get(name)
	if !ok {
		return
	}
	named, ok := n.(ir.Named)
	if !ok || !declarable(n) {
		return
	}
	dest, ok, err := r.e.Destination(named)
	if err != nil || !ok || dest == r.dest {
		return
	}
	imp := "import { " + name + " } from \"" + specifier(r.dest, dest) + "\";"
	if !slices.Contains(r.imports, imp) {
		r.imports = append(r.imports, imp)
	}
}
