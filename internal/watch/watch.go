// Package watch reruns generation when Go sources or settings change.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	tslink "github.com/broady/tslink"
	"github.com/broady/tslink/tslinkgen/binding"
	"github.com/broady/tslink/tslinkgen/config"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// BuildFunc is called with the changed files after every debounced burst.
// Returning an error stops the watcher.
type BuildFunc func(ctx context.Context, changed []string) error

// Watcher watches a set of directories, non-recursively.
type Watcher struct {
	Debounce time.Duration

	fs     *fsnotify.Watcher
	logger *slog.Logger
	dirs   map[string]bool
}

// New watches dirs. A nil logger uses slog.Default().
func New(logger *slog.Logger, dirs ...string) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, tslink.Wrap(tslink.CodeIO, err, "create watcher")
	}
	w := &Watcher{Debounce: DefaultDebounce, fs: fs, logger: logger, dirs: map[string]bool{}}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			fs.Close()
			return nil, err
		}
	}
	return w, nil
}

// Add watches one more directory. Adding a directory twice is a no-op.
func (w *Watcher) Add(dir string) error {
	dir = filepath.Clean(dir)
	if w.dirs[dir] {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return tslink.Wrap(tslink.CodeIO, err, "watch "+dir)
	}
	w.dirs[dir] = true
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Relevant reports whether a change to name can affect the output.
// Generated bindings and tests are ignored.
func Relevant(name string) bool {
	base := filepath.Base(name)
	switch {
	case base == binding.FileName:
		return false
	case base == config.FileName, base == "go.mod":
		return true
	case strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~"):
		return false
	}
	return strings.HasSuffix(base, ".go") && !strings.HasSuffix(base, "_test.go")
}

// Run calls build after every burst of relevant changes until ctx is done.
func (w *Watcher) Run(ctx context.Context, build BuildFunc) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = map[string]bool{}
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !Relevant(ev.Name) {
				continue
			}
			w.logger.DebugContext(ctx, "change detected",
				slog.String("file", ev.Name),
				slog.String("op", ev.Op.String()))
			pending[ev.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "watcher error", slog.Any("error", err))

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			clear(pending)
			if err := build(ctx, changed); err != nil {
				return err
			}
		}
	}
}
