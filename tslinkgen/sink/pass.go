package sink

import (
	"bytes"
	"context"
	"strings"
	"sync"
)

// Pass collects the files of one full render of the registry. The first
// append to a path starts it empty; later appends in the same pass extend
// it. Paths keep the order of their first append.
type Pass struct {
	mu    sync.Mutex
	order []string
	files map[string]*bytes.Buffer
}

// NewPass returns an empty pass.
func NewPass() *Pass {
	return &Pass{files: make(map[string]*bytes.Buffer)}
}

func (p *Pass) buffer(path string) *bytes.Buffer {
	buf, ok := p.files[path]
	if !ok {
		buf = new(bytes.Buffer)
		p.files[path] = buf
		p.order = append(p.order, path)
	}
	return buf
}

// Append adds content to path, truncating it if this pass has not touched
// it yet.
func (p *Pass) Append(path, content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer(path).WriteString(content)
}

// Contains reports whether this pass already wrote substr into path.
func (p *Pass) Contains(path, substr string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf, ok := p.files[path]
	return ok && strings.Contains(buf.String(), substr)
}

// Touched reports whether this pass wrote path.
func (p *Pass) Touched(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.files[path]
	return ok
}

// Content returns what this pass wrote into path.
func (p *Pass) Content(path string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if buf, ok := p.files[path]; ok {
		return buf.String()
	}
	return ""
}

// Paths returns the written paths in first-append order.
func (p *Pass) Paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.order...)
}

// Flush writes every file of the pass into out, in first-append order.
// It stops at the first failing write.
func (p *Pass) Flush(ctx context.Context, out OutputSink) error {
	for _, path := range p.Paths() {
		if err := out.WriteFile(ctx, path, []byte(p.Content(path))); err != nil {
			return err
		}
	}
	return nil
}
