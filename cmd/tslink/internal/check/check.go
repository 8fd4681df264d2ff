package check

import (
	"context"
	"log/slog"

	"github.com/pterm/pterm"

	"github.com/broady/tslink/internal/discover"
	"github.com/broady/tslink/tslinkgen"
	"github.com/broady/tslink/tslinkgen/config"
	"github.com/broady/tslink/tslinkgen/sink"
)

type Cmd struct {
	Patterns []string `arg:"" optional:"" help:"Packages to scan (default: current directory)." default:"."`
	Dir      string   `help:"Directory to run in." short:"C" default:"." type:"existingdir"`
}

func (c *Cmd) Run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load(c.Dir)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Loaded settings for %s (%s)", cfg.Module, cfg.Root)

	res, err := discover.Load(ctx, c.Dir, c.Patterns...)
	if err != nil {
		return err
	}

	// Render everything but write nothing.
	s, err := tslinkgen.New(cfg).WithLogger(logger).WithBindings().ToSink(sink.NewMemorySink()).Run(ctx, res.Packages)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("%d packages, %d declarations, %d entities", len(res.Packages), s.Declarations(), s.Registry().Len())
	pterm.Success.Println("All references resolvable")
	return nil
}
