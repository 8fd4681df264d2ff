// Package javascript renders lib.js, the loader shim that requires the
// native addon and re-exports its surface, and the package.json next to it.
package javascript

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/ir"
	"github.com/broady/tslink/tslinkgen/sink"
	"github.com/broady/tslink/tslinkgen/typescript"
)

// Options configures an Emitter.
type Options struct {
	// Dist is the directory of the native addon.
	Dist string

	// Addon is the file name of the native addon inside Dist.
	Addon string

	// Package fills package.json.
	Package Manifest
}

// Emitter renders the loader shim of a registry.
type Emitter struct {
	reg  *ir.Registry
	opts Options
}

// New creates an Emitter over reg.
func New(reg *ir.Registry, opts Options) *Emitter {
	return &Emitter{reg: reg, opts: opts}
}

func (e *Emitter) validate() error {
	if e.opts.Dist == "" {
		return tslink.Errorf(tslink.CodeInvalidConfiguration,
			"No path to folder with node module. Set correct path in tslink.toml; field \"node\"")
	}
	if e.opts.Addon == "" {
		return tslink.Errorf(tslink.CodeInvalidConfiguration,
			"No node module file name. Set correct path in tslink.toml; field \"node\"")
	}
	return nil
}

// LibPath returns the slash-separated path of lib.js.
func (e *Emitter) LibPath() string {
	return path.Join(filepath.ToSlash(filepath.Clean(e.opts.Dist)), "lib.js")
}

// header loads the addon relative to the loader itself.
func (e *Emitter) header() string {
	return `"use strict";
Object.defineProperty(exports, "__esModule", { value: true });

const path = require("path");
const fs = require("fs");

function native() {
    const modulePath = path.resolve(module.path, './` + e.opts.Addon + `');
    if (!fs.existsSync(modulePath)) {
        throw new Error(` + "`Fail to find native module in: ${modulePath}`" + `);
    }
    return require(modulePath);
}
const nativeModuleRef = native();
`
}

// Emit renders lib.js into pass. Flat enums and constants come first as
// plain values, then class structs and functions bound from the addon.
// Entities with a js target go to that file instead.
func (e *Emitter) Emit(pass *sink.Pass) error {
	if err := e.validate(); err != nil {
		return err
	}
	lib := e.LibPath()
	pass.Append(lib, e.header())

	entries := e.reg.Entries()
	for _, entry := range entries {
		switch v := entry.Nature.(type) {
		case *ir.Enum:
			if v.IsFlat() {
				e.append(pass, v, enumObject(v))
			}
		case *ir.Constant:
			e.append(pass, v, "exports."+v.Name+" = "+v.Value+";\n")
		}
	}
	for _, entry := range entries {
		var (
			out string
			err error
		)
		switch v := entry.Nature.(type) {
		case *ir.Struct:
			if v.Ctx == nil || !v.Ctx.AsClass() {
				continue
			}
			out, err = classBinding(v)
		case *ir.Function:
			out, err = functionBinding(v)
		default:
			continue
		}
		if err != nil {
			var src ir.Source
			switch v := entry.Nature.(type) {
			case *ir.Struct:
				src = v.Src
			case *ir.Function:
				src = v.Src
			}
			return tslink.Anchor(err, src.Position())
		}
		e.append(pass, entry.Nature.(ir.Named), out)
	}
	return nil
}

// append writes out into the entity's js target, starting a new target
// file with the loader header.
func (e *Emitter) append(pass *sink.Pass, n ir.Named, out string) {
	dest := e.LibPath()
	if ctx := n.Context(); ctx != nil {
		if t, ok := ctx.Target(ir.TargetJS); ok && t.Path != "" {
			dest = filepath.ToSlash(filepath.Clean(t.Path))
		}
	}
	if !pass.Touched(dest) {
		pass.Append(dest, e.header())
	}
	pass.Append(dest, out)
}

// enumObject renders a flat enum as a frozen two-way lookup object.
func enumObject(en *ir.Enum) string {
	var b strings.Builder
	b.WriteString("exports." + en.Name + " = Object.freeze({\n")
	values := en.Values()
	for i, v := range en.Variants {
		name := v.Name
		if v.Ctx != nil {
			if renamed, ok := v.Ctx.Rename(v.Name); ok {
				name = renamed
			}
		}
		// Only numeric values get a reverse entry.
		if ir.NumericLiteral(values[i]) {
			fmt.Fprintf(&b, "%s%s: %s, %s: %s,\n", typescript.Offset, key(name), values[i], ir.Quote(values[i]), ir.Quote(name))
			continue
		}
		fmt.Fprintf(&b, "%s%s: %s,\n", typescript.Offset, key(name), values[i])
	}
	b.WriteString("});\n")
	return b.String()
}

// key renders an object key, quoting it when it is not an identifier.
func key(name string) string {
	if typescript.Identifier(name) == name {
		return name
	}
	return ir.Quote(name)
}
