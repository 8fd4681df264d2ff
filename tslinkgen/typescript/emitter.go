// Package typescript renders the registry into TypeScript declarations.
package typescript

import (
	"path"
	"path/filepath"
	"strings"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
	"github.com/broady/tslink/tslinkgen/sink"
)

// Offset is one level of indentation.
const Offset = "    "

// Options configures an Emitter.
type Options struct {
	Dialect Dialect

	// DefaultPath receives ts entities without a ts target.
	// When empty such entities are not rendered.
	DefaultPath string

	// Dist is the directory of the native addon. The ambient dialect
	// writes Dist/lib.d.ts for entities without a d.ts target.
	Dist string
}

// Emitter renders every declarable entity of a registry in one dialect.
type Emitter struct {
	reg  *ir.Registry
	opts Options
}

// New creates an Emitter over reg.
func New(reg *ir.Registry, opts Options) *Emitter {
	return &Emitter{reg: reg, opts: opts}
}

// Emit renders the whole registry into pass. Entities are rendered in
// registry order; imports needed by an entity are appended ahead of it.
func (e *Emitter) Emit(pass *sink.Pass) error {
	for _, entry := range e.reg.Entries() {
		named, ok := entry.Nature.(ir.Named)
		if !ok || !declarable(entry.Nature) {
			continue
		}
		dest, ok, err := e.Destination(named)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		r := &renderer{e: e, dest: dest}
		var body strings.Builder
		if err := r.declaration(&body, entry.Nature); err != nil {
			return tslink.Anchor(err, sourceOf(entry.Nature).Position())
		}

		for _, imp := range r.imports {
			line := imp + "\n"
			if !pass.Contains(dest, line) {
				pass.Append(dest, line)
			}
		}
		pass.Append(dest, body.String())

		if e.opts.Dialect.Barrel {
			e.export(pass, dest, declaredName(named))
		}
	}
	return nil
}

// EmitTypeExpr renders n as it appears in a type position.
func (e *Emitter) EmitTypeExpr(n ir.Nature) (string, error) {
	r := &renderer{e: e}
	var b strings.Builder
	if err := r.reference(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Destination returns the file n renders into: its target, else the file
// of its module directive, else the dialect default. ok is false when the
// dialect has nowhere to put it.
func (e *Emitter) Destination(n ir.Named) (dest string, ok bool, err error) {
	var target ir.Target
	var hasTarget bool
	var module string
	if ctx := n.Context(); ctx != nil {
		target, hasTarget = ctx.Target(e.opts.Dialect.Target)
		module = ctx.Module()
	}
	if hasTarget && target.Path != "" {
		return slashPath(target.Path), true, nil
	}

	switch e.opts.Dialect.Target {
	case ir.TargetDTS:
		if e.opts.Dist == "" {
			return "", false, tslink.Errorf(tslink.CodeInvalidConfiguration,
				"No path to folder with node module. Set correct path in tslink.toml; field \"node\"")
		}
		return path.Join(slashPath(e.opts.Dist), "lib.d.ts"), true, nil
	default:
		// An explicit module gets its own file next to the default one.
		if module != "" {
			return path.Join(path.Dir(slashPath(e.opts.DefaultPath)), module+".ts"), true, nil
		}
		if e.opts.DefaultPath == "" {
			return "", false, nil
		}
		return slashPath(e.opts.DefaultPath), true, nil
	}
}

// export adds name to the index.ts next to dest.
func (e *Emitter) export(pass *sink.Pass, dest, name string) {
	index := path.Join(path.Dir(dest), "index.ts")
	if index == dest {
		return
	}
	line := "export { " + name + " } from \"" + specifier(index, dest) + "\";\n"
	if !pass.Contains(index, line) {
		pass.Append(index, line)
	}
}

func slashPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// specifier returns the module specifier importing to from the file from.
func specifier(from, to string) string {
	to = strings.TrimSuffix(to, ".d.ts")
	to = strings.TrimSuffix(to, ".ts")
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(from)), filepath.FromSlash(to))
	if err != nil {
		return "./" + path.Base(to)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

func declarable(n ir.Nature) bool {
	switch n.(type) {
	case *ir.Struct, *ir.Enum, *ir.TupleStruct, *ir.Function, *ir.Constant:
		return true
	}
	return false
}

// declaredName is the binding an entity is exported under.
func declaredName(n ir.Named) string {
	if f, ok := n.(*ir.Function); ok && f.Ctx != nil {
		return Identifier(f.Ctx.MethodName(f.Name))
	}
	return n.EntityName()
}

func sourceOf(n ir.Nature) ir.Source {
	switch v := n.(type) {
	case *ir.Struct:
		return v.Src
	case *ir.Enum:
		return v.Src
	case *ir.TupleStruct:
		return v.Src
	case *ir.Function:
		return v.Src
	case *ir.Constant:
		return v.Src
	}
	return ir.Source{}
}
