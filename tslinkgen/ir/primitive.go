package ir

// PrimitiveType identifies the TypeScript primitive a Go type maps to.
type PrimitiveType int

const (
	PrimitiveNumber PrimitiveType = iota
	PrimitiveBigInt
	PrimitiveString
	PrimitiveBoolean
)

// String returns the string representation of the primitive type.
func (t PrimitiveType) String() string {
	switch t {
	case PrimitiveNumber:
		return "Number"
	case PrimitiveBigInt:
		return "BigInt"
	case PrimitiveString:
		return "String"
	case PrimitiveBoolean:
		return "Boolean"
	default:
		return "Unknown"
	}
}

// TypeScript returns the TypeScript spelling of the primitive.
func (t PrimitiveType) TypeScript() string {
	switch t {
	case PrimitiveNumber:
		return "number"
	case PrimitiveBigInt:
		return "bigint"
	case PrimitiveString:
		return "string"
	case PrimitiveBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType parses a TypeScript spelling ("number", "bigint", ...).
func ParsePrimitiveType(s string) (PrimitiveType, bool) {
	switch s {
	case "number":
		return PrimitiveNumber, true
	case "bigint":
		return PrimitiveBigInt, true
	case "string":
		return PrimitiveString, true
	case "boolean":
		return PrimitiveBoolean, true
	default:
		return 0, false
	}
}

// Primitive is a leaf nature. It is immutable once built.
type Primitive struct {
	primitiveBase
	Type   PrimitiveType
	Origin Origin
}

func (*Primitive) Kind() NatureKind { return KindPrimitive }

// Number returns a number primitive for the given Go identifier.
func Number(origin string) *Primitive {
	return &Primitive{Type: PrimitiveNumber, Origin: OriginOf(origin)}
}

// BigInt returns a bigint primitive for the given Go identifier.
func BigInt(origin string) *Primitive {
	return &Primitive{Type: PrimitiveBigInt, Origin: OriginOf(origin)}
}

// String returns a string primitive for the given Go identifier.
func String(origin string) *Primitive {
	return &Primitive{Type: PrimitiveString, Origin: OriginOf(origin)}
}

// Boolean returns a boolean primitive for the given Go identifier.
func Boolean(origin string) *Primitive {
	return &Primitive{Type: PrimitiveBoolean, Origin: OriginOf(origin)}
}
