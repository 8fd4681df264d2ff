package typescript

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
	"github.com/broady/tslink/tslinkgen/sink"
)

func newCtx(opts *ir.Options) *ir.Context {
	return ir.NewContext(opts, ir.Defaults{})
}

func num() ir.Nature { return ir.Number("uint32") }

func result(ok, errType ir.Nature, suppress, async bool) *ir.Result {
	r := ir.NewResult("", suppress, async)
	_ = r.SetOk(ok)
	_ = r.SetErr(errType)
	return r
}

func signature(async, ctor bool, out ir.Nature, args ...ir.Nature) *ir.FuncType {
	f := ir.NewFuncType("", async, ctor)
	for _, a := range args {
		f.AddArg(a)
	}
	_ = f.SetOut(out)
	return f
}

func arg(name string, t ir.Nature) *ir.FuncArg {
	return &ir.FuncArg{Name: name, Type: t}
}

func option(inner ir.Nature) *ir.Option {
	o := ir.NewOption("")
	_ = o.SetInner(inner)
	return o
}

func point(t *testing.T, reg *ir.Registry, opts *ir.Options) {
	t.Helper()
	c := newCtx(opts)
	s := &ir.Struct{Name: "Point", Ctx: c}
	fc := newCtx(nil).WithParent(c)
	for _, f := range []*ir.Field{
		{Name: "x", Ctx: fc, Type: num()},
		{Name: "y", Ctx: fc, Type: num()},
		{Name: "New", Ctx: fc, Type: signature(false, true, result(&ir.Ref{Name: "Point"}, nil, false, false), arg("x", num()), arg("y", num()))},
		{Name: "Distance", Ctx: fc, Type: signature(false, false, result(num(), nil, false, false), arg("p", &ir.Ref{Name: "Point"}))},
	} {
		if err := s.AddField(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.Insert("Point", s, "geo"); err != nil {
		t.Fatal(err)
	}
}

func emit(t *testing.T, reg *ir.Registry, opts Options) *sink.Pass {
	t.Helper()
	pass := sink.NewPass()
	if err := New(reg, opts).Emit(pass); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	return pass
}

func TestStructRendering(t *testing.T) {
	tests := []struct {
		name    string
		opts    *ir.Options
		dialect Dialect
		dest    string
		want    string
	}{
		{
			name:    "interface",
			opts:    &ir.Options{},
			dialect: DialectTS,
			dest:    "ts/geo.ts",
			want: `export interface Point {
    x: number;
    y: number;
    constructor(x: number, y: number);
    Distance(p: Point): number;
}
`,
		},
		{
			name:    "abstract class omits constructor",
			opts:    &ir.Options{Class: true},
			dialect: DialectTS,
			dest:    "ts/geo.ts",
			want: `export abstract class Point {
    x: number;
    y: number;
    public abstract Distance(p: Point): number;
}
`,
		},
		{
			name:    "ambient class declares constructor",
			opts:    &ir.Options{Class: true},
			dialect: DialectDTS,
			dest:    "dist/lib.d.ts",
			want: `export declare class Point {
    x: number;
    y: number;
    constructor(x: number, y: number);
    Distance(p: Point): number;
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := ir.NewRegistry()
			point(t, reg, tt.opts)
			pass := emit(t, reg, Options{Dialect: tt.dialect, DefaultPath: "ts/geo.ts", Dist: "dist"})
			if diff := cmp.Diff(tt.want, pass.Content(tt.dest)); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.dest, diff)
			}
		})
	}
}

func TestBarrelIndex(t *testing.T) {
	reg := ir.NewRegistry()
	point(t, reg, &ir.Options{})
	c := newCtx(&ir.Options{})
	if err := reg.Insert("Origin", &ir.Function{Name: "Origin", Ctx: c, Func: signature(false, false, result(&ir.Ref{Name: "Point"}, nil, false, false))}, "geo"); err != nil {
		t.Fatal(err)
	}

	pass := emit(t, reg, Options{Dialect: DialectTS, DefaultPath: "./ts/geo.ts"})
	want := "export { Point } from \"./geo\";\nexport { Origin } from \"./geo\";\n"
	if diff := cmp.Diff(want, pass.Content("ts/index.ts")); diff != "" {
		t.Errorf("index.ts mismatch (-want +got):\n%s", diff)
	}
	if pass.Touched("dist/lib.d.ts") {
		t.Error("ts dialect should not write the ambient file")
	}
}

func TestEntitiesWithoutTargetAreSkipped(t *testing.T) {
	reg := ir.NewRegistry()
	point(t, reg, &ir.Options{})
	pass := emit(t, reg, Options{Dialect: DialectTS})
	if got := pass.Paths(); len(got) != 0 {
		t.Errorf("Paths() = %v, want none", got)
	}
}

func TestAmbientRequiresDist(t *testing.T) {
	reg := ir.NewRegistry()
	point(t, reg, &ir.Options{})
	err := New(reg, Options{Dialect: DialectDTS}).Emit(sink.NewPass())
	if !tslink.Is(err, tslink.CodeInvalidConfiguration) {
		t.Fatalf("Emit() error = %v, want %s", err, tslink.CodeInvalidConfiguration)
	}
}

func TestFunctionWithSuppressedError(t *testing.T) {
	reg := ir.NewRegistry()
	c := newCtx(&ir.Options{ExceptionSuppression: true, Targets: []ir.Target{{Kind: ir.TargetTS, Path: "ts/geo.ts"}}})
	fn := signature(false, false, result(num(), ir.String("string"), true, false), arg("a", option(ir.Number("int32"))))
	if err := reg.Insert("Distance", &ir.Function{Name: "Distance", Ctx: c, Func: fn}, "geo"); err != nil {
		t.Fatal(err)
	}

	pass := emit(t, reg, Options{Dialect: DialectDTS, Dist: "dist"})
	want := "export declare function Distance(a: number | null): number | (Error & { err?: string });\n"
	if diff := cmp.Diff(want, pass.Content("dist/lib.d.ts")); diff != "" {
		t.Errorf("lib.d.ts mismatch (-want +got):\n%s", diff)
	}
	if pass.Touched("ts/geo.ts") {
		t.Error("ambient dialect wrote the ts target")
	}

	ts := emit(t, reg, Options{Dialect: DialectTS})
	if diff := cmp.Diff(want, ts.Content("ts/geo.ts")); diff != "" {
		t.Errorf("ts/geo.ts mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumRendering(t *testing.T) {
	tests := []struct {
		name string
		repr ir.EnumRepresentation
		want string
	}{
		{
			name: "union",
			repr: ir.EnumUnion,
			want: "export type E = { One: null } | { Two: number };\n",
		},
		{
			name: "discriminated union",
			repr: ir.EnumDiscriminatedUnion,
			want: "export type E = \"One\" | { Two: number };\n",
		},
		{
			name: "flat",
			repr: ir.EnumFlat,
			want: "export interface E {\n    One?: null;\n    Two?: number;\n}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := ir.NewRegistry()
			e := &ir.Enum{Name: "E", Ctx: newCtx(nil), Representation: tt.repr}
			_ = e.AddVariant(&ir.EnumVariant{Name: "One", Ctx: newCtx(nil)})
			_ = e.AddVariant(&ir.EnumVariant{Name: "Two", Ctx: newCtx(nil), Fields: []ir.Nature{ir.Number("uint8")}})
			if err := reg.Insert("E", e, "lib"); err != nil {
				t.Fatal(err)
			}
			pass := emit(t, reg, Options{Dialect: DialectTS, DefaultPath: "lib.ts"})
			if diff := cmp.Diff(tt.want, pass.Content("lib.ts")); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlatEnumAndPayloads(t *testing.T) {
	reg := ir.NewRegistry()
	color := &ir.Enum{Name: "Color", Ctx: newCtx(nil)}
	_ = color.AddVariant(&ir.EnumVariant{Name: "Red", Ctx: newCtx(nil)})
	_ = color.AddVariant(&ir.EnumVariant{Name: "Green", Ctx: newCtx(&ir.Options{Rename: "Lime"})})
	if err := reg.Insert("Color", color, "lib"); err != nil {
		t.Fatal(err)
	}

	shape := &ir.Enum{Name: "Shape", Ctx: newCtx(nil)}
	vc := newCtx(nil)
	_ = shape.AddVariant(&ir.EnumVariant{Name: "Pair", Ctx: vc, Fields: []ir.Nature{num(), ir.String("string")}})
	_ = shape.AddVariant(&ir.EnumVariant{Name: "Circle", Ctx: vc, Fields: []ir.Nature{
		&ir.Field{Name: "radius", Ctx: vc, Type: num()},
		&ir.Field{Name: "label", Ctx: vc, Type: option(ir.String("string"))},
	}})
	if err := reg.Insert("Shape", shape, "lib"); err != nil {
		t.Fatal(err)
	}

	pass := emit(t, reg, Options{Dialect: DialectTS, DefaultPath: "lib.ts"})
	want := `export enum Color {
    Red = 0,
    Lime = 1,
}
export type Shape = { Pair: [number, string] } | { Circle: { radius: number; label: string | null } };
`
	if diff := cmp.Diff(want, pass.Content("lib.ts")); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if !color.Variants[0].Flat || shape.Variants[0].Flat {
		t.Error("variant flatness not sealed from the full variant set")
	}
}

func TestModuleDirectiveImports(t *testing.T) {
	reg := ir.NewRegistry()
	uc := newCtx(&ir.Options{Module: "units"})
	if err := reg.Insert("Meters", &ir.TupleStruct{Name: "Meters", Ctx: uc, Inner: num()}, "units"); err != nil {
		t.Fatal(err)
	}
	sc := newCtx(&ir.Options{Module: "shapes"})
	square := &ir.Struct{Name: "Square", Ctx: sc}
	_ = square.AddField(&ir.Field{Name: "side", Ctx: sc, Type: &ir.Ref{Name: "Meters"}})
	if err := reg.Insert("Square", square, "shapes"); err != nil {
		t.Fatal(err)
	}
	gc := newCtx(nil)
	if err := reg.Insert("Span", &ir.TupleStruct{Name: "Span", Ctx: gc, Inner: &ir.Ref{Name: "Meters"}}, "geo"); err != nil {
		t.Fatal(err)
	}

	pass := emit(t, reg, Options{Dialect: DialectTS, DefaultPath: "ts/geo.ts"})
	tests := []struct {
		path, want string
	}{
		{"ts/units.ts", "export type Meters = number;\n"},
		{"ts/shapes.ts", "import { Meters } from \"./units\";\nexport interface Square {\n    side: Meters;\n}\n"},
		{"ts/geo.ts", "import { Meters } from \"./units\";\nexport type Span = Meters;\n"},
		{"ts/index.ts", "export { Meters } from \"./units\";\nexport { Square } from \"./shapes\";\nexport { Span } from \"./geo\";\n"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, pass.Content(tt.path)); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestFlatEnumValues(t *testing.T) {
	reg := ir.NewRegistry()
	level := &ir.Enum{Name: "Level", Ctx: newCtx(nil)}
	_ = level.AddVariant(&ir.EnumVariant{Name: "Low", Ctx: newCtx(nil), Value: "1"})
	_ = level.AddVariant(&ir.EnumVariant{Name: "High", Ctx: newCtx(nil), Value: "5"})
	if err := reg.Insert("Level", level, "lib"); err != nil {
		t.Fatal(err)
	}
	color := &ir.Enum{Name: "Color", Ctx: newCtx(nil)}
	_ = color.AddVariant(&ir.EnumVariant{Name: "Red", Ctx: newCtx(nil), Value: `"red"`})
	if err := reg.Insert("Color", color, "lib"); err != nil {
		t.Fatal(err)
	}

	pass := emit(t, reg, Options{Dialect: DialectTS, DefaultPath: "lib.ts"})
	want := `export enum Level {
    Low = 1,
    High = 5,
}
export enum Color {
    Red = "red",
}
`
	if diff := cmp.Diff(want, pass.Content("lib.ts")); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCrossModuleImports(t *testing.T) {
	reg := ir.NewRegistry()
	bc := newCtx(&ir.Options{Targets: []ir.Target{{Kind: ir.TargetTS, Path: "ts/b.ts"}}})
	if err := reg.Insert("B", &ir.TupleStruct{Name: "B", Ctx: bc, Inner: ir.String("string")}, "b"); err != nil {
		t.Fatal(err)
	}
	ac := newCtx(&ir.Options{Targets: []ir.Target{{Kind: ir.TargetTS, Path: "ts/a.ts"}}})
	a := &ir.Struct{Name: "A", Ctx: ac}
	_ = a.AddField(&ir.Field{Name: "first", Ctx: ac, Type: &ir.Ref{Name: "B"}})
	_ = a.AddField(&ir.Field{Name: "second", Ctx: ac, Type: &ir.Ref{Name: "B"}})
	if err := reg.Insert("A", a, "a"); err != nil {
		t.Fatal(err)
	}
	cc := newCtx(&ir.Options{Targets: []ir.Target{{Kind: ir.TargetTS, Path: "ts/a.ts"}}})
	if err := reg.Insert("C", &ir.TupleStruct{Name: "C", Ctx: cc, Inner: &ir.Ref{Name: "B"}}, "a"); err != nil {
		t.Fatal(err)
	}

	pass := emit(t, reg, Options{Dialect: DialectTS})
	want := `import { B } from "./b";
export interface A {
    first: B;
    second: B;
}
export type C = B;
`
	if diff := cmp.Diff(want, pass.Content("ts/a.ts")); diff != "" {
		t.Errorf("a.ts mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(pass.Content("ts/b.ts"), "import") {
		t.Errorf("b.ts should not import anything:\n%s", pass.Content("ts/b.ts"))
	}

	// Everything shares one ambient file, so nothing is imported there.
	dts := emit(t, reg, Options{Dialect: DialectDTS, Dist: "dist"})
	if strings.Contains(dts.Content("dist/lib.d.ts"), "import") {
		t.Errorf("lib.d.ts should not import anything:\n%s", dts.Content("dist/lib.d.ts"))
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	reg := ir.NewRegistry()
	point(t, reg, &ir.Options{Class: true})
	opts := Options{Dialect: DialectTS, DefaultPath: "ts/geo.ts"}

	first := emit(t, reg, opts)
	second := emit(t, reg, opts)
	for _, p := range first.Paths() {
		if diff := cmp.Diff(first.Content(p), second.Content(p)); diff != "" {
			t.Errorf("%s differs between passes:\n%s", p, diff)
		}
	}
}

func TestConstants(t *testing.T) {
	reg := ir.NewRegistry()
	c := newCtx(nil)
	_ = reg.Insert("Version", &ir.Constant{Name: "Version", Ctx: c, Type: ir.String("string"), Value: `"1.2.0"`}, "lib")
	_ = reg.Insert("Big", &ir.Constant{Name: "Big", Ctx: c, Type: ir.BigInt("int64"), Value: "10n"}, "lib")

	ts := emit(t, reg, Options{Dialect: DialectTS, DefaultPath: "lib.ts"})
	if diff := cmp.Diff("export const Version: string = \"1.2.0\";\nexport const Big: bigint = 10n;\n", ts.Content("lib.ts")); diff != "" {
		t.Errorf("ts mismatch (-want +got):\n%s", diff)
	}
	dts := emit(t, reg, Options{Dialect: DialectDTS, Dist: "."})
	if diff := cmp.Diff("export declare const Version: string;\nexport declare const Big: bigint;\n", dts.Content("lib.d.ts")); diff != "" {
		t.Errorf("d.ts mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctionSignatures(t *testing.T) {
	generic := newCtx(nil)
	generic.AddGenerics(&ir.Generic{Alias: "F", Func: signature(false, false, ir.Boolean("bool"), ir.Number("int32"))})

	tests := []struct {
		name string
		ctx  *ir.Context
		fn   *ir.FuncType
		want string
	}{
		{
			name: "no result",
			fn:   signature(false, false, result(nil, nil, false, false)),
			want: "export declare function Run(): void;\n",
		},
		{
			name: "async",
			fn:   signature(true, false, result(num(), nil, true, true), arg("id", ir.String("string"))),
			want: "export declare function Run(id: string): Promise<number>;\n",
		},
		{
			name: "suppressed without value",
			fn:   signature(false, false, result(nil, nil, true, false)),
			want: "export declare function Run(): Error | void;\n",
		},
		{
			name: "tuple result",
			fn:   signature(false, false, result(&ir.Tuple{Elements: []ir.Nature{num(), ir.String("string")}}, nil, false, false)),
			want: "export declare function Run(): [number, string];\n",
		},
		{
			name: "generic callback",
			ctx:  generic,
			fn:   signature(false, false, result(nil, nil, false, false), arg("cb", &ir.Ref{Name: "F", Ctx: generic})),
			want: "export declare function Run(cb: (arg0: number) => boolean): void;\n",
		},
		{
			name: "bound argument",
			fn:   signature(false, false, result(nil, nil, false, false), &ir.FuncArg{Name: "data", Type: ir.String("string"), Binding: "Data"}),
			want: "export declare function Run(data: Data): void;\n",
		},
		{
			name: "reserved parameter name",
			fn:   signature(false, false, result(nil, nil, false, false), arg("new", num())),
			want: "export declare function Run(new_: number): void;\n",
		},
		{
			name: "snake case naming",
			ctx:  newCtx(&ir.Options{SnakeCaseNaming: true}),
			fn:   signature(false, false, result(nil, nil, false, false)),
			want: "export declare function run(): void;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.ctx
			if ctx == nil {
				ctx = newCtx(nil)
			}
			reg := ir.NewRegistry()
			if err := reg.Insert("Run", &ir.Function{Name: "Run", Ctx: ctx, Func: tt.fn}, "lib"); err != nil {
				t.Fatal(err)
			}
			pass := emit(t, reg, Options{Dialect: DialectDTS, Dist: "."})
			if diff := cmp.Diff(tt.want, pass.Content("lib.d.ts")); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	c := newCtx(&ir.Options{Class: true})
	badCtor := &ir.Struct{Name: "Bad", Ctx: c, Src: ir.Source{File: "bad.go", Line: 3, Column: 6}}
	_ = badCtor.AddField(&ir.Field{Name: "New", Ctx: c, Type: signature(false, true, nil, num())})

	incomplete := &ir.Struct{Name: "Partial", Ctx: newCtx(nil)}
	_ = incomplete.AddField(&ir.Field{Name: "items", Ctx: newCtx(nil), Type: ir.NewVec("[]T")})

	tests := []struct {
		name   string
		entity ir.Named
		code   tslink.ErrorCode
		errMsg string
	}{
		{name: "constructor with anonymous args", entity: badCtor, code: tslink.CodeNotSupported, errMsg: "bad.go:3:6"},
		{name: "unbound slot", entity: incomplete, code: tslink.CodeIncomplete, errMsg: "element type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := ir.NewRegistry()
			if err := reg.Insert(tt.entity.EntityName(), tt.entity, "lib"); err != nil {
				t.Fatal(err)
			}
			err := New(reg, Options{Dialect: DialectDTS, Dist: "."}).Emit(sink.NewPass())
			if err == nil {
				t.Fatal("Emit() = nil, want error")
			}
			if !tslink.Is(err, tt.code) {
				t.Errorf("Emit() error = %v, want code %s", err, tt.code)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Emit() error = %v, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestEmitTypeExpr(t *testing.T) {
	m := ir.NewMap("map[string][]int32")
	_ = m.SetKey(ir.String("string"))
	vec := ir.NewVec("[]int32")
	_ = vec.SetElement(ir.Number("int32"))
	_ = m.SetValue(vec)

	optVec := ir.NewVec("[]*int32")
	_ = optVec.SetElement(option(ir.Number("int32")))

	callbacks := ir.NewVec("[]func(int32)")
	_ = callbacks.SetElement(signature(false, false, nil, ir.Number("int32")))

	e := New(ir.NewRegistry(), Options{Dialect: DialectTS})
	tests := []struct {
		name string
		in   ir.Nature
		want string
	}{
		{"bigint", ir.BigInt("int64"), "bigint"},
		{"map", m, "Map<string, number[]>"},
		{"vec of option", optVec, "(number | null)[]"},
		{"vec of callbacks", callbacks, "((arg0: number) => void)[]"},
		{"unit", ir.NewUndefined("struct{}"), "void"},
		{"suppressed with named error", result(nil, &ir.Ref{Name: "Failure"}, true, false), "(Error & { err?: Failure }) | void"},
		{"sync result", result(ir.Boolean("bool"), ir.String("string"), false, false), "boolean"},
		{"async suppressed", result(ir.Boolean("bool"), nil, true, true), "boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EmitTypeExpr(tt.in)
			if err != nil {
				t.Fatalf("EmitTypeExpr() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("EmitTypeExpr() = %q, want %q", got, tt.want)
			}
		})
	}
}
