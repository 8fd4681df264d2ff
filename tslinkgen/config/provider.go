package config

import "sync"

// Provider loads the configuration on first use and hands out the same
// result afterwards, including a load error.
type Provider struct {
	dir  string
	once sync.Once
	cfg  *Config
	err  error
}

// NewProvider returns a provider for the project at or above dir.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

// Get returns the configuration, loading it at most once.
func (p *Provider) Get() (*Config, error) {
	p.once.Do(func() {
		p.cfg, p.err = Load(p.dir)
	})
	return p.cfg, p.err
}
