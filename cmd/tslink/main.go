package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/broady/tslink/cmd/tslink/internal/check"
	"github.com/broady/tslink/cmd/tslink/internal/diag"
	"github.com/broady/tslink/cmd/tslink/internal/gen"
)

type CLI struct {
	Verbose bool `help:"Log every declaration read." short:"v"`

	Version VersionCmd `cmd:"" help:"Print version information."`
	Gen     gen.Cmd    `cmd:"" help:"Generate TypeScript declarations, the JavaScript loader and package.json."`
	Check   check.Cmd  `cmd:"" help:"Read and validate annotated declarations without writing files."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("tslink"),
		kong.Description("Generate TypeScript bindings for Go declarations marked with //tslink:bind."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := kctx.Run(logger); err != nil {
		diag.Report(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
