package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"/src/geo/geo.go", true},
		{"/src/go.mod", true},
		{"/src/tslink.toml", true},
		{"/src/geo/geo_test.go", false},
		{"/src/geo/tslink_bindings.go", false},
		{"/src/geo/.geo.go.swp", false},
		{"/src/geo/geo.go~", false},
		{"/src/dist/lib.js", false},
		{"/src/ts/geo.ts", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Relevant(tt.name), tt.name)
	}
}

func TestRunBuildsAfterChange(t *testing.T) {
	dir := t.TempDir()
	w, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), dir)
	require.NoError(t, err)
	defer w.Close()
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	builds := make(chan []string, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ctx context.Context, changed []string) error {
			builds <- changed
			return errors.New("stop")
		})
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	geo := filepath.Join(dir, "geo.go")
	require.NoError(t, os.WriteFile(geo, []byte("package geo\n"), 0o644))

	select {
	case changed := <-builds:
		assert.Equal(t, []string{geo}, changed)
	case <-ctx.Done():
		t.Fatal("no build after change")
	}
	assert.EqualError(t, <-done, "stop")
}

func TestRunStopsWithContext(t *testing.T) {
	w, err := New(nil, t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx, func(context.Context, []string) error {
		t.Error("unexpected build")
		return nil
	}))
}

func TestAddMissingDirectory(t *testing.T) {
	w, err := New(nil)
	require.NoError(t, err)
	defer w.Close()
	assert.Error(t, w.Add(filepath.Join(t.TempDir(), "missing")))
}
