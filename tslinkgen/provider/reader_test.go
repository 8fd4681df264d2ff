package provider

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
)

// load parses source files into a package without type information.
func load(t *testing.T, files ...string) *Package {
	t.Helper()
	fset := token.NewFileSet()
	pkg := &Package{Fset: fset, Path: "example.com/geo"}
	for i, src := range files {
		f, err := parser.ParseFile(fset, "file"+string(rune('a'+i))+".go", src, parser.ParseComments)
		require.NoError(t, err)
		pkg.Files = append(pkg.Files, f)
		pkg.Name = f.Name.Name
	}
	return pkg
}

// build collects and reads every annotated declaration into a new registry.
func build(t *testing.T, opts ExtractOptions, defaults ir.Defaults, files ...string) (*ir.Registry, error) {
	t.Helper()
	r := NewReader(load(t, files...), opts, defaults)
	items, err := r.Collect()
	if err != nil {
		return nil, err
	}
	reg := ir.NewRegistry()
	for _, it := range items {
		if _, err := r.Read(reg, it); err != nil {
			return reg, err
		}
	}
	return reg, nil
}

func TestReadStructWithMethods(t *testing.T) {
	src := `package geo

import "context"

//tslink:bind class
type Point struct {
	X uint32 ` + "`json:\"x\"`" + `
	Y uint32 ` + "`json:\"y\"`" + `
	Label string ` + "`json:\"-\"`" + `
	hidden int
}

//tslink:bind
func (p *Point) New(x, y uint32) *Point { return nil }

//tslink:bind
func (p *Point) Distance(ctx context.Context, other Point) (float64, error) { return 0, nil }
`
	reg, err := build(t, ExtractOptions{}, ir.Defaults{}, src)
	require.NoError(t, err)

	n, ok := reg.Get("Point")
	require.True(t, ok)
	s := n.(*ir.Struct)
	require.Len(t, s.Fields, 4)

	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.(*ir.Field).Name
	}
	assert.Equal(t, []string{"x", "y", "New", "Distance"}, names)

	ctor, ok := s.Constructor()
	require.True(t, ok, "New returns *Point and should be the constructor")
	assert.Equal(t, "New", ctor.Name)
	assert.True(t, ctor.Ctx.AsClass(), "method context should inherit class mode")

	dist := s.Fields[3].(*ir.Field).Type.(*ir.FuncType)
	assert.True(t, dist.Async, "context.Context parameter marks the method async")
	require.Len(t, dist.Args, 1)
	assert.Equal(t, "other", dist.Args[0].(*ir.FuncArg).Name)

	res := dist.Out.(*ir.Result)
	assert.True(t, res.Async)
	assert.Equal(t, ir.PrimitiveNumber, res.Ok.(*ir.Primitive).Type)
	assert.Nil(t, res.Err, "predeclared error carries no declared type")

	if m, _ := reg.ModuleOf("Point"); m != "geo" {
		t.Errorf("ModuleOf(Point) = %q, want package name geo", m)
	}
}

func TestMethodClassFlagPromotesStruct(t *testing.T) {
	src := `package geo

//tslink:bind
type Circle struct {
	R float64 ` + "`json:\"r\"`" + `
}

//tslink:bind class
func (c *Circle) Area() float64 { return 0 }
`
	reg, err := build(t, ExtractOptions{}, ir.Defaults{}, src)
	require.NoError(t, err)

	n, ok := reg.Get("Circle")
	require.True(t, ok)
	s := n.(*ir.Struct)
	assert.True(t, s.Ctx.AsClass())
	area := s.Fields[1].(*ir.Field)
	assert.True(t, area.Ctx.AsClass(), "method context should see the promoted struct")

	conflict := `package geo

//tslink:bind interface
type Circle struct{}

//tslink:bind class
func (c *Circle) Area() float64 { return 0 }
`
	_, err = build(t, ExtractOptions{}, ir.Defaults{}, conflict)
	require.Error(t, err)
	assert.Equal(t, tslink.CodeMalformedDirective, tslink.CodeOf(err))
	assert.Contains(t, err.Error(), "conflicts with its interface flag")
}

func TestReadVisitOrder(t *testing.T) {
	// The method precedes its type in source; types are still visited first.
	src := `package geo

//tslink:bind
func (p *Point) Norm() float64 { return 0 }

//tslink:bind
func Origin() Point { return Point{} }

//tslink:bind
const Version = "1.0"

//tslink:bind
type Point struct{}
`
	r := NewReader(load(t, src), ExtractOptions{}, ir.Defaults{})
	items, err := r.Collect()
	require.NoError(t, err)

	var got []string
	for _, it := range items {
		got = append(got, it.Kind.String()+":"+it.Name)
	}
	assert.Equal(t, []string{"type:Point", "const:Version", "func:Point.Norm", "func:Origin"}, got)
}

func TestReadFunctionResults(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		check  func(t *testing.T, res *ir.Result)
		supp   bool
		async  bool
		nargs  int
		errMsg string
	}{
		{
			name: "value and error",
			src:  "//tslink:bind exception_suppression\nfunc F(a *int32) (int32, error) { return 0, nil }",
			supp: true,
			check: func(t *testing.T, res *ir.Result) {
				assert.Equal(t, ir.PrimitiveNumber, res.Ok.(*ir.Primitive).Type)
				assert.Nil(t, res.Err)
			},
			nargs: 1,
		},
		{
			name: "error only",
			src:  "//tslink:bind\nfunc F() error { return nil }",
			check: func(t *testing.T, res *ir.Result) {
				assert.Nil(t, res.Ok)
			},
		},
		{
			name: "no results",
			src:  "//tslink:bind\nfunc F(x, y int8) {}",
			check: func(t *testing.T, res *ir.Result) {
				assert.Nil(t, res.Ok)
				assert.Nil(t, res.Err)
			},
			nargs: 2,
		},
		{
			name: "several results become a tuple",
			src:  "//tslink:bind\nfunc F() (string, bool, error) { return \"\", false, nil }",
			check: func(t *testing.T, res *ir.Result) {
				tuple := res.Ok.(*ir.Tuple)
				assert.Len(t, tuple.Elements, 2)
			},
		},
		{
			name:  "async",
			src:   "import \"context\"\n//tslink:bind\nfunc F(ctx context.Context, id int64) ([]string, error) { return nil, nil }",
			async: true,
			nargs: 1,
			check: func(t *testing.T, res *ir.Result) {
				assert.Equal(t, ir.KindVec, res.Ok.Kind())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := build(t, ExtractOptions{}, ir.Defaults{}, "package geo\n"+tt.src)
			require.NoError(t, err)
			n, ok := reg.Get("F")
			require.True(t, ok)
			fn := n.(*ir.Function)
			assert.Equal(t, tt.async, fn.Func.Async)
			assert.Len(t, fn.Func.Args, tt.nargs)
			res := fn.Func.Out.(*ir.Result)
			assert.Equal(t, tt.supp, res.ExceptionSuppression)
			assert.Equal(t, tt.async, res.Async)
			tt.check(t, res)
		})
	}
}

func TestReadFlatEnum(t *testing.T) {
	src := `package geo

//tslink:bind
type Color int

const (
	Red Color = iota
	Green
	//tslink:bind ignore
	Hidden
	Blue
)

//tslink:bind
const Max = 3
`
	reg, err := build(t, ExtractOptions{}, ir.Defaults{}, src)
	require.NoError(t, err)

	n, ok := reg.Get("Color")
	require.True(t, ok)
	e := n.(*ir.Enum)
	require.True(t, e.IsFlat())

	var names []string
	for _, v := range e.Variants {
		names = append(names, v.Name)
		assert.True(t, v.Flat)
	}
	assert.Equal(t, []string{"Red", "Green", "Blue"}, names)

	c, ok := reg.Get("Max")
	require.True(t, ok)
	assert.Equal(t, "3", c.(*ir.Constant).Value)
}

func TestReadEnumValues(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		typed bool
		want  []string
	}{
		{
			name: "explicit numbers",
			src:  "package geo\n\n//tslink:bind\ntype Level int\n\nconst (\n\tLow Level = 1\n\tHigh Level = 5\n)\n",
			want: []string{"1", "5"},
		},
		{
			name: "strings",
			src:  "package geo\n\n//tslink:bind\ntype Color string\n\nconst (\n\tRed Color = \"red\"\n\tBlue Color = \"blue\"\n)\n",
			want: []string{`"red"`, `"blue"`},
		},
		{
			name: "iota without type information",
			src:  "package geo\n\n//tslink:bind\ntype Level int\n\nconst (\n\tLow Level = iota\n\tHigh\n)\n",
			want: []string{"0", "1"},
		},
		{
			name:  "iota with type information",
			src:   "package geo\n\n//tslink:bind\ntype Level int\n\nconst (\n\tLow Level = iota + 1\n\tHigh\n)\n",
			typed: true,
			want:  []string{"1", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := load(t, tt.src)
			if tt.typed {
				pkg.Info = &types.Info{Defs: make(map[*ast.Ident]types.Object)}
				_, err := (&types.Config{}).Check(pkg.Path, pkg.Fset, pkg.Files, pkg.Info)
				require.NoError(t, err)
			}
			r := NewReader(pkg, ExtractOptions{}, ir.Defaults{})
			items, err := r.Collect()
			require.NoError(t, err)
			reg := ir.NewRegistry()
			for _, it := range items {
				_, err := r.Read(reg, it)
				require.NoError(t, err)
			}

			var e *ir.Enum
			for _, name := range []string{"Level", "Color"} {
				if n, ok := reg.Get(name); ok {
					e = n.(*ir.Enum)
				}
			}
			require.NotNil(t, e)
			assert.Equal(t, tt.want, e.Values())
		})
	}
}

func TestStringConstantsUseJavaScriptEscapes(t *testing.T) {
	src := `package geo

//tslink:bind
const Bad = "\xff"

//tslink:bind
const Tag = "\U000E0001"

//tslink:bind
const Quote = "say \"hi\"\n"
`
	reg, err := build(t, ExtractOptions{}, ir.Defaults{}, src)
	require.NoError(t, err)

	tests := []struct {
		name, want string
	}{
		{"Bad", `"\ufffd"`},
		{"Tag", "\"\U000E0001\""},
		{"Quote", `"say \"hi\"\n"`},
	}
	for _, tt := range tests {
		n, ok := reg.Get(tt.name)
		require.True(t, ok)
		assert.Equal(t, tt.want, n.(*ir.Constant).Value, tt.name)
	}
}

func TestReadSealedEnum(t *testing.T) {
	src := `package geo

//tslink:bind
type Shape interface{ isShape() }

type Empty struct{}
type Circle struct {
	Radius float64
}
type Count int32

func (Empty) isShape()  {}
func (Circle) isShape() {}
func (Count) isShape()  {}
`
	reg, err := build(t, ExtractOptions{}, ir.Defaults{EnumRepresentation: ir.EnumDiscriminatedUnion}, src)
	require.NoError(t, err)

	n, ok := reg.Get("Shape")
	require.True(t, ok)
	e := n.(*ir.Enum)
	assert.Equal(t, ir.EnumDiscriminatedUnion, e.Representation)
	require.Len(t, e.Variants, 3)
	assert.False(t, e.IsFlat())

	assert.Equal(t, "Empty", e.Variants[0].Name)
	assert.Empty(t, e.Variants[0].Fields)
	assert.True(t, e.Variants[1].Named())
	assert.Equal(t, "Radius", e.Variants[1].Fields[0].(*ir.Field).Name)
	assert.False(t, e.Variants[2].Named())
	assert.Equal(t, ir.KindPrimitive, e.Variants[2].Fields[0].Kind())
}

func TestReadConstructorFunction(t *testing.T) {
	src := `package geo

//tslink:bind class
type Point struct{ X int32 }

//tslink:bind constructor
func NewPoint(x int32) *Point { return nil }
`
	reg, err := build(t, ExtractOptions{}, ir.Defaults{}, src)
	require.NoError(t, err)
	assert.False(t, reg.Contains("NewPoint"), "constructor attaches to its struct")

	n, _ := reg.Get("Point")
	ctor, ok := n.(*ir.Struct).Constructor()
	require.True(t, ok)
	assert.Equal(t, "NewPoint", ctor.Name)
}

func TestReadGenericCallback(t *testing.T) {
	src := `package geo

//tslink:bind
func Each[F func(int32) bool](items []int32, cb F) {}
`
	reg, err := build(t, ExtractOptions{}, ir.Defaults{}, src)
	require.NoError(t, err)
	n, _ := reg.Get("Each")
	fn := n.(*ir.Function)
	g, ok := fn.Ctx.Generic("F")
	require.True(t, ok)
	assert.Len(t, g.Func.Args, 1)
	assert.Equal(t, "F", fn.Func.Args[1].(*ir.FuncArg).Type.(*ir.Ref).Name)
	assert.Empty(t, reg.Validate(), "a ref to a generic resolves through the context")
}

func TestReadConstants(t *testing.T) {
	src := `package geo

//tslink:bind
const (
	Name      = "geo"
	Enabled   = true
	Ratio     = 1.5
	Neg       = -2
	Big int64 = 10
)
`
	reg, err := build(t, ExtractOptions{}, ir.Defaults{}, src)
	require.NoError(t, err)

	// A const block with several specs only honors spec-level directives.
	assert.Equal(t, 0, reg.Len())

	single := `package geo

//tslink:bind
const Big int64 = 10

//tslink:bind
const Name = ` + "`geo`" + `
`
	reg, err = build(t, ExtractOptions{}, ir.Defaults{}, single)
	require.NoError(t, err)
	big, _ := reg.Get("Big")
	assert.Equal(t, "10n", big.(*ir.Constant).Value)
	name, _ := reg.Get("Name")
	assert.Equal(t, `"geo"`, name.(*ir.Constant).Value)
	assert.Equal(t, ir.PrimitiveString, name.(*ir.Constant).Type.(*ir.Primitive).Type)
}

func TestReadTypeMapAndBigInt(t *testing.T) {
	src := `package geo

//tslink:bind
type Sample struct {
	Count int
	When  Timestamp
}
`
	reg, err := build(t, ExtractOptions{
		IntOver32AsBigInt: true,
		TypeMap:           map[string]ir.PrimitiveType{"Timestamp": ir.PrimitiveNumber},
	}, ir.Defaults{}, src)
	require.NoError(t, err)
	n, _ := reg.Get("Sample")
	fields := n.(*ir.Struct).Fields
	assert.Equal(t, ir.PrimitiveBigInt, fields[0].(*ir.Field).Type.(*ir.Primitive).Type)
	assert.Equal(t, ir.PrimitiveNumber, fields[1].(*ir.Field).Type.(*ir.Primitive).Type)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code tslink.ErrorCode
		msg  string
	}{
		{
			name: "missing parent",
			src:  "type Point struct{}\n//tslink:bind\nfunc (p Point) X() int32 { return 0 }",
			code: tslink.CodeMissingParent,
			msg:  `fail to find parent entity "Point"`,
		},
		{
			name: "unknown binding",
			src:  "//tslink:bind data = \"Payload\"\nfunc F(input string) {}",
			code: tslink.CodeUnknownBinding,
			msg:  `binding "data"`,
		},
		{
			name: "unsupported channel",
			src:  "//tslink:bind\ntype S struct{ C chan int }",
			code: tslink.CodeNotSupported,
			msg:  "channel",
		},
		{
			name: "unsupported qualified type",
			src:  "//tslink:bind\nfunc F(t time.Time) {}",
			code: tslink.CodeNotSupported,
			msg:  "qualified type",
		},
		{
			name: "map with struct key",
			src:  "//tslink:bind\ntype S struct{ M map[Point]string }",
			code: tslink.CodeNotSupported,
			msg:  "map key",
		},
		{
			name: "duplicate entity",
			src:  "//tslink:bind\ntype A struct{}\n//tslink:bind\nfunc A2() {}\n//tslink:bind rename = \"x\"\nconst A = 1",
			code: tslink.CodeDuplicateEntity,
			msg:  `entity "A" already exists`,
		},
		{
			name: "open interface",
			src:  "//tslink:bind\ntype Reader interface{ Read() }",
			code: tslink.CodeNotSupported,
			msg:  "sealed interfaces",
		},
		{
			name: "result binding",
			src:  "//tslink:bind result = \"xml\"\nfunc F() string { return \"\" }",
			code: tslink.CodeMalformedDirective,
			msg:  "only \"json\"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(t, ExtractOptions{}, ir.Defaults{}, "package geo\n"+tt.src)
			require.Error(t, err)
			assert.Equal(t, tt.code, tslink.CodeOf(err), "error: %v", err)
			assert.True(t, strings.Contains(err.Error(), tt.msg), "error %q should contain %q", err.Error(), tt.msg)
		})
	}
}

func TestNotSupportedHint(t *testing.T) {
	_, err := build(t, ExtractOptions{}, ir.Defaults{}, "package geo\n//tslink:bind\ntype S struct{ C chan int }")
	require.Error(t, err)
	hints := tslink.Hints(err)
	require.NotEmpty(t, hints)
	assert.Contains(t, hints[0], "ignore")
}

func TestTypeName(t *testing.T) {
	tests := map[string]string{
		"T":         "T",
		"*T":        "T",
		"(*T)":      "T",
		"[]T":       "",
		"pkg.T":     "",
		"G[string]": "",
	}
	for src, want := range tests {
		expr, err := parser.ParseExpr(src)
		require.NoError(t, err)
		if got := TypeName(expr); got != want {
			t.Errorf("TypeName(%s) = %q, want %q", src, got, want)
		}
	}
}
