package ir

import (
	"strconv"

	tslink "github.com/broady/tslink"
)

func alreadyBound(kind NatureKind, slot string) error {
	return tslink.Errorf(tslink.CodeAlreadyBound, "%s %s is already bound", kind, slot)
}

func unbound(kind NatureKind, slot string) error {
	return tslink.Errorf(tslink.CodeIncomplete, "%s doesn't include reference to %s", kind, slot)
}

// Array is a fixed-size sequence ([N]T). Renders like Vec.
type Array struct {
	compositeBase
	Element Nature
}

func (*Array) Kind() NatureKind { return KindArray }

// NewArray returns an array with an empty element slot.
func NewArray(origin string) *Array {
	return &Array{compositeBase: compositeBase{Origin: OriginOf(origin)}}
}

// SetElement binds the element type.
func (a *Array) SetElement(n Nature) error {
	if a.Element != nil {
		return alreadyBound(KindArray, "element")
	}
	a.Element = n
	return nil
}

func (a *Array) Complete() error {
	if a.Element == nil {
		return unbound(KindArray, "element type")
	}
	return nil
}

// Vec is a growable sequence ([]T).
type Vec struct {
	compositeBase
	Element Nature
}

func (*Vec) Kind() NatureKind { return KindVec }

// NewVec returns a vec with an empty element slot.
func NewVec(origin string) *Vec {
	return &Vec{compositeBase: compositeBase{Origin: OriginOf(origin)}}
}

// SetElement binds the element type.
func (v *Vec) SetElement(n Nature) error {
	if v.Element != nil {
		return alreadyBound(KindVec, "element")
	}
	v.Element = n
	return nil
}

func (v *Vec) Complete() error {
	if v.Element == nil {
		return unbound(KindVec, "element type")
	}
	return nil
}

// MapState tracks which slot of a Map binds next.
type MapState int

const (
	MapAwaitingKey MapState = iota
	MapAwaitingValue
	MapComplete
)

// String returns the string representation of the map state.
func (s MapState) String() string {
	switch s {
	case MapAwaitingKey:
		return "AwaitingKey"
	case MapAwaitingValue:
		return "AwaitingValue"
	case MapComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Map is a key-value mapping (map[K]V). The key is always a primitive.
type Map struct {
	compositeBase
	Key   *Primitive
	Value Nature
	State MapState
}

func (*Map) Kind() NatureKind { return KindMap }

// NewMap returns a map awaiting its key.
func NewMap(origin string) *Map {
	return &Map{compositeBase: compositeBase{Origin: OriginOf(origin)}}
}

// SetKey binds the key type. Only primitives are accepted.
func (m *Map) SetKey(n Nature) error {
	if m.State != MapAwaitingKey {
		return alreadyBound(KindMap, "key")
	}
	p, ok := n.(*Primitive)
	if !ok {
		return tslink.Errorf(tslink.CodeNotSupported, "map key must be a primitive type, got %s", n.Kind())
	}
	m.Key = p
	m.State = MapAwaitingValue
	return nil
}

// SetValue binds the value type. The key must be bound first.
func (m *Map) SetValue(n Nature) error {
	switch m.State {
	case MapAwaitingKey:
		return tslink.Errorf(tslink.CodeIncomplete, "map value bound before its key")
	case MapComplete:
		return alreadyBound(KindMap, "value")
	}
	m.Value = n
	m.State = MapComplete
	return nil
}

func (m *Map) Complete() error {
	if m.State != MapComplete {
		return unbound(KindMap, "type or key")
	}
	return nil
}

// Tuple is an ordered list of element types. An empty tuple is never built;
// the unit type is Undefined.
type Tuple struct {
	compositeBase
	Elements []Nature
}

func (*Tuple) Kind() NatureKind { return KindTuple }

// NewTuple returns an empty tuple.
func NewTuple(origin string) *Tuple {
	return &Tuple{compositeBase: compositeBase{Origin: OriginOf(origin)}}
}

// Append binds the next element in source order.
func (t *Tuple) Append(n Nature) {
	t.Elements = append(t.Elements, n)
}

func (t *Tuple) Complete() error {
	if len(t.Elements) == 0 {
		return unbound(KindTuple, "any element")
	}
	return nil
}

// Option is a nullable inner type (*T).
type Option struct {
	compositeBase
	Inner Nature
}

func (*Option) Kind() NatureKind { return KindOption }

// NewOption returns an option with an empty inner slot.
func NewOption(origin string) *Option {
	return &Option{compositeBase: compositeBase{Origin: OriginOf(origin)}}
}

// SetInner binds the inner type.
func (o *Option) SetInner(n Nature) error {
	if o.Inner != nil {
		return alreadyBound(KindOption, "inner type")
	}
	o.Inner = n
	return nil
}

func (o *Option) Complete() error {
	if o.Inner == nil {
		return unbound(KindOption, "type")
	}
	return nil
}

// Result describes what a function returns. Ok and Err are both optional:
// a missing Ok renders as void, a missing Err means no declared error type.
type Result struct {
	compositeBase
	Ok                   Nature
	Err                  Nature
	ExceptionSuppression bool
	Async                bool

	okBound  bool
	errBound bool
}

func (*Result) Kind() NatureKind { return KindResult }

// NewResult returns a result with both slots empty.
func NewResult(origin string, exceptionSuppression, async bool) *Result {
	return &Result{
		compositeBase:        compositeBase{Origin: OriginOf(origin)},
		ExceptionSuppression: exceptionSuppression,
		Async:                async,
	}
}

// SetOk binds the success type. Binding nil records "no value".
func (r *Result) SetOk(n Nature) error {
	if r.okBound {
		return alreadyBound(KindResult, "ok type")
	}
	r.Ok = n
	r.okBound = true
	return nil
}

// SetErr binds the declared error type.
func (r *Result) SetErr(n Nature) error {
	if r.errBound {
		return alreadyBound(KindResult, "error type")
	}
	r.Err = n
	r.errBound = true
	return nil
}

func (r *Result) Complete() error { return nil }

// Undefined is the unit type (struct{}).
type Undefined struct {
	compositeBase
}

func (*Undefined) Kind() NatureKind { return KindUndefined }

// NewUndefined returns the unit type.
func NewUndefined(origin string) *Undefined {
	return &Undefined{compositeBase: compositeBase{Origin: OriginOf(origin)}}
}

func (*Undefined) Complete() error { return nil }

// FuncType is a function signature. Args holds *FuncArg for named
// parameters and bare natures for anonymous ones (callback shapes).
type FuncType struct {
	compositeBase
	Args        []Nature
	Out         Nature
	Async       bool
	Constructor bool

	outBound bool
}

func (*FuncType) Kind() NatureKind { return KindFuncType }

// NewFuncType returns a signature with no arguments and no output.
func NewFuncType(origin string, async, constructor bool) *FuncType {
	return &FuncType{
		compositeBase: compositeBase{Origin: OriginOf(origin)},
		Async:         async,
		Constructor:   constructor,
	}
}

// AddArg appends the next argument in declaration order.
func (f *FuncType) AddArg(n Nature) {
	f.Args = append(f.Args, n)
}

// SetOut binds the output. Binding nil records "returns nothing".
func (f *FuncType) SetOut(n Nature) error {
	if f.outBound {
		return alreadyBound(KindFuncType, "output")
	}
	f.Out = n
	f.outBound = true
	return nil
}

func (*FuncType) Complete() error { return nil }

// ArgNames returns the parameter names in order. Anonymous arguments are
// named argN after their position.
func (f *FuncType) ArgNames() []string {
	names := make([]string, len(f.Args))
	for i, a := range f.Args {
		if arg, ok := a.(*FuncArg); ok {
			names[i] = arg.Name
		} else {
			names[i] = argName(i)
		}
	}
	return names
}

// HasAnonymousArgs reports whether any argument is a bare callback shape.
func (f *FuncType) HasAnonymousArgs() bool {
	for _, a := range f.Args {
		if _, ok := a.(*FuncArg); !ok {
			return true
		}
	}
	return false
}

func argName(i int) string {
	return "arg" + strconv.Itoa(i)
}
