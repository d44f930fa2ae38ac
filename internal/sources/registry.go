package sources

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig is one entry in the YAML source registry file.
type SourceConfig struct {
	Key            string `yaml:"key"`
	Adapter        string `yaml:"adapter"` // mock | http-json
	BaseURL        string `yaml:"base_url,omitempty"`
	Query          string `yaml:"query,omitempty"`
	Trusted        bool   `yaml:"trusted,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
}

type registryFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// Registry holds the configured adapters for a deployment, in file order.
type Registry struct {
	adapters map[string]Adapter
	trusted  map[string]bool
	order    []string
}

// LoadRegistry reads the YAML source registry from path.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	return NewRegistry(file.Sources)
}

// NewRegistry builds a registry from source configs.
func NewRegistry(configs []SourceConfig) (*Registry, error) {
	reg := &Registry{
		adapters: make(map[string]Adapter, len(configs)),
		trusted:  make(map[string]bool),
	}
	for _, cfg := range configs {
		if cfg.Key == "" {
			return nil, fmt.Errorf("source config missing key")
		}
		if _, exists := reg.adapters[cfg.Key]; exists {
			return nil, fmt.Errorf("duplicate source key: %s", cfg.Key)
		}

		var adapter Adapter
		var err error
		switch cfg.Adapter {
		case "", "mock":
			adapter = NewMockAdapter(cfg.Key, cfg.BaseURL)
		case "http-json":
			adapter, err = NewHTTPJSONAdapter(cfg.Key, cfg.BaseURL, cfg.Query,
				time.Duration(cfg.TimeoutSeconds)*time.Second)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", cfg.Key, err)
			}
		default:
			return nil, fmt.Errorf("source %s: unknown adapter %q", cfg.Key, cfg.Adapter)
		}

		if err := reg.Register(adapter, cfg.Trusted); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Register adds an adapter under its own key. Keys are unique.
func (r *Registry) Register(adapter Adapter, trusted bool) error {
	key := adapter.Key()
	if key == "" {
		return fmt.Errorf("adapter has an empty key")
	}
	if _, exists := r.adapters[key]; exists {
		return fmt.Errorf("duplicate source key: %s", key)
	}
	r.adapters[key] = adapter
	r.order = append(r.order, key)
	if trusted {
		r.trusted[key] = true
	}
	return nil
}

// Get returns the adapter for key.
func (r *Registry) Get(key string) (Adapter, bool) {
	adapter, ok := r.adapters[key]
	return adapter, ok
}

// Keys returns all source keys in registry order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// TrustedKeys returns the source keys whose listings auto-approve.
func (r *Registry) TrustedKeys() []string {
	var keys []string
	for _, key := range r.order {
		if r.trusted[key] {
			keys = append(keys, key)
		}
	}
	return keys
}
