package ir

import (
	"strconv"

	tslink "github.com/broady/tslink"
)

// Struct is a named record. Fields holds *Field values for both data
// fields and methods; methods are Fields whose Type is a *FuncType.
type Struct struct {
	referredBase
	Name   string
	Ctx    *Context
	Fields []Nature
	Src    Source
}

func (*Struct) Kind() NatureKind     { return KindStruct }
func (s *Struct) EntityName() string { return s.Name }
func (s *Struct) Context() *Context  { return s.Ctx }

// AddField appends a field or method slot. Names must stay unique within
// the struct.
func (s *Struct) AddField(f *Field) error {
	for _, existing := range s.Fields {
		if ef, ok := existing.(*Field); ok && ef.Name == f.Name {
			return tslink.Errorf(tslink.CodeDuplicateEntity, "%s.%s is already declared", s.Name, f.Name)
		}
	}
	s.Fields = append(s.Fields, f)
	return nil
}

// Constructor returns the constructor slot, if one was declared.
func (s *Struct) Constructor() (*Field, bool) {
	for _, n := range s.Fields {
		if IsConstructor(n) {
			return n.(*Field), true
		}
	}
	return nil, false
}

// TupleStruct is a named wrapper around one inner type (type ID string).
type TupleStruct struct {
	referredBase
	Name  string
	Ctx   *Context
	Inner Nature
	Src   Source

	innerBound bool
}

func (*TupleStruct) Kind() NatureKind     { return KindTupleStruct }
func (t *TupleStruct) EntityName() string { return t.Name }
func (t *TupleStruct) Context() *Context  { return t.Ctx }

// SetInner binds the wrapped type.
func (t *TupleStruct) SetInner(n Nature) error {
	if t.innerBound {
		return alreadyBound(KindTupleStruct, "inner type")
	}
	t.Inner = n
	t.innerBound = true
	return nil
}

// Enum is a named enumeration. Variants trickle in while the declaration is
// read; flatness is recomputed from the full set on every append.
type Enum struct {
	referredBase
	Name           string
	Ctx            *Context
	Variants       []*EnumVariant
	Representation EnumRepresentation
	Src            Source
}

func (*Enum) Kind() NatureKind     { return KindEnum }
func (e *Enum) EntityName() string { return e.Name }
func (e *Enum) Context() *Context  { return e.Ctx }

// AddVariant appends a variant and reclassifies every variant.
func (e *Enum) AddVariant(v *EnumVariant) error {
	for _, existing := range e.Variants {
		if existing.Name == v.Name {
			return tslink.Errorf(tslink.CodeDuplicateEntity, "variant %s.%s is already declared", e.Name, v.Name)
		}
	}
	e.Variants = append(e.Variants, v)
	e.Seal()
	return nil
}

// IsFlat reports whether no variant carries data. It is a property of the
// complete variant set, never of one variant.
func (e *Enum) IsFlat() bool {
	for _, v := range e.Variants {
		if len(v.Fields) > 0 {
			return false
		}
	}
	return true
}

// Seal re-applies flatness to every variant.
func (e *Enum) Seal() {
	flat := e.IsFlat()
	for _, v := range e.Variants {
		v.Flat = flat
	}
}

// Values returns the runtime value of every variant as a JavaScript literal.
// Variants with no known value take their position.
func (e *Enum) Values() []string {
	out := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		out[i] = v.Value
		if out[i] == "" {
			out[i] = strconv.Itoa(i)
		}
	}
	return out
}

// EnumVariant is one tag of an Enum. Fields holds *Field values for named
// payloads and bare natures for positional ones.
type EnumVariant struct {
	referredBase
	Name   string
	Ctx    *Context
	Fields []Nature
	Flat   bool
	// Value is the JavaScript literal of a constant variant's value, empty
	// when unknown.
	Value string
}

func (*EnumVariant) Kind() NatureKind     { return KindEnumVariant }
func (v *EnumVariant) EntityName() string { return v.Name }
func (v *EnumVariant) Context() *Context  { return v.Ctx }

// Named reports whether the payload uses named fields.
func (v *EnumVariant) Named() bool {
	for _, f := range v.Fields {
		if _, ok := f.(*Field); ok {
			return true
		}
	}
	return false
}

// Function is a free function.
type Function struct {
	referredBase
	Name string
	Ctx  *Context
	Func *FuncType
	Src  Source
}

func (*Function) Kind() NatureKind     { return KindFunction }
func (f *Function) EntityName() string { return f.Name }
func (f *Function) Context() *Context  { return f.Ctx }

// Field is a named slot of a struct or enum variant: a data field or a method.
type Field struct {
	referredBase
	Name    string
	Ctx     *Context
	Type    Nature
	Binding string // JSON-decoded type name, empty when not bound
}

func (*Field) Kind() NatureKind     { return KindField }
func (f *Field) EntityName() string { return f.Name }
func (f *Field) Context() *Context  { return f.Ctx }

// Ignored reports whether the field's own context or its struct's ignore
// list excludes it from output.
func (f *Field) Ignored() bool {
	if f.Ctx == nil {
		return false
	}
	return f.Ctx.IgnoreSelf() || f.Ctx.IsIgnored(f.Name)
}

// FuncArg is a named function parameter.
type FuncArg struct {
	referredBase
	Name    string
	Ctx     *Context
	Type    Nature
	Binding string // JSON-decoded type name, empty when not bound
}

func (*FuncArg) Kind() NatureKind     { return KindFuncArg }
func (a *FuncArg) EntityName() string { return a.Name }
func (a *FuncArg) Context() *Context  { return a.Ctx }

// Ref names another entity. It is resolved against the registry only when
// rendering and is never followed while the model is being built.
type Ref struct {
	referredBase
	Name string
	Ctx  *Context
}

func (*Ref) Kind() NatureKind     { return KindRef }
func (r *Ref) EntityName() string { return r.Name }
func (r *Ref) Context() *Context  { return r.Ctx }

// Generic is a named callback type parameter ([F func(int32) bool]).
type Generic struct {
	referredBase
	Alias string
	Func  *FuncType
}

func (*Generic) Kind() NatureKind { return KindGeneric }

// Constant is a named constant with its literal value as source text.
type Constant struct {
	referredBase
	Name  string
	Ctx   *Context
	Type  Nature
	Value string
	Src   Source
}

func (*Constant) Kind() NatureKind     { return KindConstant }
func (c *Constant) EntityName() string { return c.Name }
func (c *Constant) Context() *Context  { return c.Ctx }
