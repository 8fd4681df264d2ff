package gen

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/pterm/pterm"

	"github.com/broady/tslink/cmd/tslink/internal/diag"
	"github.com/broady/tslink/internal/discover"
	"github.com/broady/tslink/internal/watch"
	"github.com/broady/tslink/tslinkgen"
	"github.com/broady/tslink/tslinkgen/config"
	"github.com/broady/tslink/tslinkgen/sink"
)

type Cmd struct {
	Patterns []string `arg:"" optional:"" help:"Packages to scan (default: current directory)." default:"."`
	Dir      string   `help:"Directory to run in." short:"C" default:"." type:"existingdir"`
	Bindings bool     `help:"Write tslink_bindings.go next to annotated packages." short:"b"`
	DryRun   bool     `help:"List the files that would be written." name:"dry-run" short:"n"`
	Watch    bool     `help:"Watch for changes and regenerate." short:"w"`
}

func (c *Cmd) Run(ctx context.Context, logger *slog.Logger) error {
	configs := config.NewProvider(c.Dir)
	dirs, err := c.generate(ctx, logger, configs)
	if !c.Watch {
		return err
	}
	if err != nil {
		diag.Report(os.Stderr, err)
	}

	cfg, err := configs.Get()
	if err != nil {
		return err
	}
	w, err := watch.New(logger, append(dirs, cfg.Root)...)
	if err != nil {
		return err
	}
	defer w.Close()

	pterm.Info.Printfln("watching %d directories", len(dirs)+1)
	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		for _, name := range changed {
			if base := filepath.Base(name); base == config.FileName || base == "go.mod" {
				configs = config.NewProvider(c.Dir)
				break
			}
		}
		dirs, err := c.generate(ctx, logger, configs)
		if err != nil {
			diag.Report(os.Stderr, err)
			return nil
		}
		for _, dir := range dirs {
			if err := w.Add(dir); err != nil {
				return err
			}
		}
		return nil
	})
}

// generate runs one build and returns the directories of the visited
// packages.
func (c *Cmd) generate(ctx context.Context, logger *slog.Logger, configs *config.Provider) ([]string, error) {
	cfg, err := configs.Get()
	if err != nil {
		return nil, err
	}
	res, err := discover.Load(ctx, c.Dir, c.Patterns...)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(res.Packages))
	for _, pkg := range res.Packages {
		dirs = append(dirs, discover.Dir(pkg))
	}

	g := tslinkgen.New(cfg).WithLogger(logger)
	if c.Bindings {
		g.WithBindings()
	}
	var mem *sink.MemorySink
	if c.DryRun {
		mem = sink.NewMemorySink()
		g.ToSink(mem)
	}

	s, err := g.Run(ctx, res.Packages)
	if err != nil {
		return dirs, err
	}
	if err := s.Flush(ctx); err != nil {
		return dirs, err
	}

	paths := s.Pass().Paths()
	if mem != nil {
		for _, p := range slices.Sorted(slices.Values(paths)) {
			pterm.Println(p)
		}
		return dirs, nil
	}
	pterm.Success.Printfln("%d declarations, %d files written", s.Declarations(), len(paths))
	return dirs, nil
}
