// Package tslinkgen generates TypeScript declarations and the JavaScript
// loader for Go declarations annotated with //tslink:bind.
//
// A Session visits packages one declaration at a time. After every
// declaration the whole registry is rendered again into a fresh pass, so the
// files flushed at the end are exactly the result of the last render.
//
// Example:
//
//	cfg, err := config.Load(".")
//	...
//	s := tslinkgen.New(cfg).WithBindings().Session()
//	for _, pkg := range pkgs {
//	    if err := s.Visit(ctx, pkg); err != nil {
//	        return err
//	    }
//	}
//	return s.Flush(ctx)
package tslinkgen

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/internal/discover"
	"github.com/broady/tslink/tslinkgen/binding"
	"github.com/broady/tslink/tslinkgen/config"
	"github.com/broady/tslink/tslinkgen/ir"
	"github.com/broady/tslink/tslinkgen/javascript"
	"github.com/broady/tslink/tslinkgen/provider"
	"github.com/broady/tslink/tslinkgen/sink"
	"github.com/broady/tslink/tslinkgen/typescript"
)

// Generator holds the settings shared by every session of a run.
type Generator struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      sink.OutputSink
	bindings bool
}

// New creates a Generator writing below the configured project root.
func New(cfg *config.Config) *Generator {
	return &Generator{cfg: cfg, out: sink.NewFilesystemSink(cfg.Root)}
}

// WithLogger sets the logger for visit and render events.
// If not set, slog.Default() will be used.
func (g *Generator) WithLogger(logger *slog.Logger) *Generator {
	g.logger = logger
	return g
}

// WithBindings enables tslink_bindings.go generation.
func (g *Generator) WithBindings() *Generator {
	g.bindings = true
	return g
}

// ToSink replaces the filesystem sink, e.g. with a MemorySink for dry runs.
func (g *Generator) ToSink(out sink.OutputSink) *Generator {
	g.out = out
	return g
}

// Session starts a build over an empty registry.
func (g *Generator) Session() *Session {
	logger := g.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		gen:      g,
		logger:   logger,
		reg:      ir.NewRegistry(),
		bindings: map[string]*binding.File{},
		pass:     sink.NewPass(),
	}
}

// Run visits pkgs in order and validates the model. The session is returned
// even on failure; its pass holds the last successful render.
func (g *Generator) Run(ctx context.Context, pkgs []*provider.Package) (*Session, error) {
	s := g.Session()
	for _, pkg := range pkgs {
		if err := s.Visit(ctx, pkg); err != nil {
			return s, err
		}
	}
	return s, s.Validate()
}

// Session is one incremental build.
type Session struct {
	gen      *Generator
	logger   *slog.Logger
	reg      *ir.Registry
	bindings map[string]*binding.File // by package directory
	dirs     []string                 // package directories in visit order
	pass     *sink.Pass
	visited  int
}

// Registry returns the model built so far.
func (s *Session) Registry() *ir.Registry {
	return s.reg
}

// Declarations returns the number of declarations read so far.
func (s *Session) Declarations() int {
	return s.visited
}

// Pass returns the files of the last render.
func (s *Session) Pass() *sink.Pass {
	return s.pass
}

// Visit reads the annotated declarations of pkg in order: types first, then
// constants, then functions and methods. Every declaration is followed by a
// full render.
func (s *Session) Visit(ctx context.Context, pkg *provider.Package) error {
	cfg := s.gen.cfg
	r := provider.NewReader(pkg, cfg.ExtractOptions(), cfg.Defaults())
	items, err := r.Collect()
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "visiting package",
		slog.String("package", pkg.Path),
		slog.Int("declarations", len(items)))

	var bf *binding.File
	if s.gen.bindings {
		if bf, err = s.bindingFile(pkg); err != nil {
			return err
		}
	}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		name, err := r.Read(s.reg, it)
		if err != nil {
			return err
		}
		if bf != nil {
			if _, err := bf.Add(it); err != nil {
				return err
			}
		}
		s.visited++
		s.logger.DebugContext(ctx, "declaration read",
			slog.String("declaration", it.Name),
			slog.String("kind", it.Kind.String()),
			slog.String("entity", name),
			slog.String("pos", it.Pos.String()))

		if err := s.Render(); err != nil {
			return err
		}
	}
	return nil
}

// bindingFile returns the wrapper file of pkg's directory.
func (s *Session) bindingFile(pkg *provider.Package) (*binding.File, error) {
	dir := discover.Dir(pkg)
	if dir == "" {
		return binding.NewFile(pkg), nil
	}
	rel, err := filepath.Rel(s.gen.cfg.Root, dir)
	if err != nil {
		return nil, tslink.Wrap(tslink.CodeInvalidConfiguration, err, "resolve package "+pkg.Path)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, tslink.Errorf(tslink.CodeInvalidConfiguration,
			"package %s is outside of the project root %s", pkg.Path, s.gen.cfg.Root)
	}
	if bf, ok := s.bindings[rel]; ok {
		return bf, nil
	}
	bf := binding.NewFile(pkg)
	s.bindings[rel] = bf
	s.dirs = append(s.dirs, rel)
	return bf, nil
}

// Render draws the whole registry into a fresh pass. The previous pass is
// kept when rendering fails.
func (s *Session) Render() error {
	cfg := s.gen.cfg
	pass := sink.NewPass()

	if err := typescript.New(s.reg, cfg.TypeScript(typescript.DialectTS)).Emit(pass); err != nil {
		return err
	}
	if s.reg.Len() > 0 {
		if err := typescript.New(s.reg, cfg.TypeScript(typescript.DialectDTS)).Emit(pass); err != nil {
			return err
		}
		js := javascript.New(s.reg, cfg.JavaScript())
		if err := js.Emit(pass); err != nil {
			return err
		}
		if err := js.EmitManifest(pass); err != nil {
			return err
		}
	}

	for _, dir := range s.dirs {
		bf := s.bindings[dir]
		if bf.Len() == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := bf.Render(&buf); err != nil {
			return err
		}
		pass.Append(path.Join(dir, binding.FileName), buf.String())
	}

	s.pass = pass
	return nil
}

// Validate checks that every reference in the registry resolves.
func (s *Session) Validate() error {
	return errors.Join(s.reg.Validate()...)
}

// Flush writes the last render into the generator's sink.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.pass.Flush(ctx, sink.WithLogging(s.gen.out, s.logger)); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "generation complete",
		slog.Int("declarations", s.visited),
		slog.Int("entities", s.reg.Len()),
		slog.Int("files", len(s.pass.Paths())))
	return nil
}
