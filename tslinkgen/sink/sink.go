// Package sink provides output destinations for generated files.
//
// Rendering never writes directly: every emitter appends into a Pass, and a
// completed Pass is flushed into an OutputSink. A failed pass therefore
// leaves the previous files in place.
package sink

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	tslink "github.com/broady/tslink"
)

// OutputSink receives generated file content.
// Implementations must be safe for concurrent calls.
type OutputSink interface {
	// WriteFile writes content to a path relative to the sink's root.
	WriteFile(ctx context.Context, path string, content []byte) error
}

// FilesystemSink writes below a root directory, normally the directory of
// the project's go.mod.
type FilesystemSink struct {
	// Root is the base directory for all writes.
	Root string

	// Mode is the file permission mode (default: 0644).
	Mode os.FileMode
}

// NewFilesystemSink creates a FilesystemSink writing below root.
func NewFilesystemSink(root string) *FilesystemSink {
	return &FilesystemSink{
		Root: root,
		Mode: 0644,
	}
}

// WriteFile writes content to path below the root. Parent directories are
// created as needed. Writes go through a temp file and a rename; a file
// whose content is already identical is left untouched.
func (s *FilesystemSink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := filepath.Join(s.Root, filepath.FromSlash(path))
	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return tslink.Wrap(tslink.CodeAccess, err, "resolve output root")
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return tslink.Wrap(tslink.CodeAccess, err, "resolve output path")
	}
	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) && absPath != absRoot {
		return tslink.Errorf(tslink.CodeAccess, "path escapes output root: %q", path)
	}

	if existing, err := os.ReadFile(fullPath); err == nil && bytes.Equal(existing, content) {
		return nil
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return tslink.Wrap(tslink.CodeIO, err, "create output directory")
	}

	mode := s.Mode
	if mode == 0 {
		mode = 0644
	}

	tmp, err := os.CreateTemp(dir, ".tslink-*.tmp")
	if err != nil {
		return tslink.Wrap(tslink.CodeIO, err, "create temp file")
	}
	tmpPath := tmp.Name()
	// Leftover temp files share the .tslink-*.tmp prefix.
	cleanup := func() { _ = os.Remove(tmpPath) }

	_, writeErr := tmp.Write(content)
	closeErr := tmp.Close()
	if writeErr != nil {
		cleanup()
		return tslink.Wrap(tslink.CodeIO, writeErr, "write "+path)
	}
	if closeErr != nil {
		cleanup()
		return tslink.Wrap(tslink.CodeIO, closeErr, "close "+path)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return tslink.Wrap(tslink.CodeAccess, err, "set mode of "+path)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		cleanup()
		return tslink.Wrap(tslink.CodeIO, err, "replace "+path)
	}
	return nil
}

// MemorySink stores generated files in memory. It backs dry runs and tests.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content under path.
func (s *MemorySink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[path] = bytes.Clone(content)
	return nil
}

// Files returns a copy of all written files.
func (s *MemorySink) Files() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(s.files))
	for path, content := range s.files {
		out[path] = bytes.Clone(content)
	}
	return out
}

// Get returns the content of a single file, or nil if not found.
func (s *MemorySink) Get(path string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.files[path]
	if !ok {
		return nil
	}
	return bytes.Clone(content)
}

// Reset clears all stored files.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[string][]byte)
}

// ValidatePath checks that a path is relative, slash-separated, clean and
// free of parent directory components.
func ValidatePath(path string) error {
	if err := validatePath(path); err != nil {
		return tslink.Errorf(tslink.CodeAccess, "invalid output path %q: %v", path, err)
	}
	return nil
}

func validatePath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return errors.New("absolute paths not allowed")
	}
	// Drive letters count as absolute even on Unix.
	if len(path) >= 2 && path[1] == ':' && ((path[0] >= 'A' && path[0] <= 'Z') || (path[0] >= 'a' && path[0] <= 'z')) {
		return errors.New("absolute paths not allowed")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return errors.New("path traversal not allowed")
		}
	}
	slashed := filepath.ToSlash(path)
	if cleaned := filepath.ToSlash(filepath.Clean(slashed)); cleaned != slashed {
		return errors.New("path is not clean (expected " + cleaned + ")")
	}
	return nil
}
