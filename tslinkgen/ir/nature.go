// Package ir defines the language-agnostic model tslink builds from Go
// declarations and renders into TypeScript and JavaScript.
//
// Every value in the model is a Nature. Natures fall into three categories:
// primitives (leaves), referred entities (named things other declarations can
// point at) and composites (containers with typed slots).
package ir

// Category groups the concrete Nature kinds.
type Category int

const (
	CategoryPrimitive Category = iota
	CategoryReferred
	CategoryComposite
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryPrimitive:
		return "Primitive"
	case CategoryReferred:
		return "Referred"
	case CategoryComposite:
		return "Composite"
	default:
		return "Unknown"
	}
}

// NatureKind identifies the concrete type of a Nature.
type NatureKind int

const (
	// Primitive
	KindPrimitive NatureKind = iota

	// Referred entities
	KindStruct      // Named struct with fields and methods
	KindTupleStruct // Named wrapper around one inner type
	KindEnum        // Enumeration of variants
	KindEnumVariant // One variant of an enumeration
	KindFunction    // Free function
	KindField       // Struct field or method slot
	KindFuncArg     // Function parameter
	KindRef         // Unresolved reference by name
	KindGeneric     // Named callback type parameter
	KindConstant    // Named constant

	// Composites
	KindArray     // Fixed-size sequence
	KindVec       // Growable sequence
	KindMap       // Key-value mapping
	KindTuple     // Ordered heterogeneous elements
	KindOption    // Nullable inner type
	KindResult    // Function outcome with optional error
	KindUndefined // Unit type
	KindFuncType  // Function signature
)

// String returns the string representation of the nature kind.
func (k NatureKind) String() string {
	switch k {
	case KindPrimitive:
		return "Primitive"
	case KindStruct:
		return "Struct"
	case KindTupleStruct:
		return "TupleStruct"
	case KindEnum:
		return "Enum"
	case KindEnumVariant:
		return "EnumVariant"
	case KindFunction:
		return "Function"
	case KindField:
		return "Field"
	case KindFuncArg:
		return "FuncArg"
	case KindRef:
		return "Ref"
	case KindGeneric:
		return "Generic"
	case KindConstant:
		return "Constant"
	case KindArray:
		return "Array"
	case KindVec:
		return "Vec"
	case KindMap:
		return "Map"
	case KindTuple:
		return "Tuple"
	case KindOption:
		return "Option"
	case KindResult:
		return "Result"
	case KindUndefined:
		return "Undefined"
	case KindFuncType:
		return "FuncType"
	default:
		return "Unknown"
	}
}

// Nature is the base interface of the model.
type Nature interface {
	// Kind returns the concrete kind for type switching.
	Kind() NatureKind

	// Category returns the top-level group of the kind.
	Category() Category

	// Ensure only types in this package can implement Nature.
	sealed()
}

// Named is implemented by referred natures that carry a name and a context.
type Named interface {
	Nature
	EntityName() string
	Context() *Context
}

// Composite is implemented by every container nature.
type Composite interface {
	Nature
	// Complete reports the first required slot that was never bound.
	Complete() error
}

type primitiveBase struct{}

func (primitiveBase) Category() Category { return CategoryPrimitive }
func (primitiveBase) sealed()            {}

type referredBase struct{}

func (referredBase) Category() Category { return CategoryReferred }
func (referredBase) sealed()            {}

type compositeBase struct {
	Origin Origin
}

func (compositeBase) Category() Category { return CategoryComposite }
func (compositeBase) sealed()            {}

// IsConstructor reports whether n is a struct slot holding a constructor.
func IsConstructor(n Nature) bool {
	f, ok := n.(*Field)
	if !ok {
		return false
	}
	fn, ok := f.Type.(*FuncType)
	return ok && fn.Constructor
}

// IsMethod reports whether n is a struct slot holding a function.
func IsMethod(n Nature) bool {
	f, ok := n.(*Field)
	if !ok {
		return false
	}
	_, ok = f.Type.(*FuncType)
	return ok
}
