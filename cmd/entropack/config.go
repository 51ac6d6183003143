package main

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/seiflotfy/entropack"
	"github.com/seiflotfy/entropack/code"
)

// fileConfig is the optional YAML configuration. Flags given on the command
// line take precedence over its values.
type fileConfig struct {
	Coder     string `json:"coder,omitempty"`
	Hamming   int    `json:"hamming,omitempty"`
	ChunkSize int    `json:"chunkSize,omitempty"`
	CacheSize int    `json:"cacheSize,omitempty"`
	Debug     bool   `json:"debug,omitempty"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(buf, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// merge overlays the flags that were set explicitly.
func (c *fileConfig) merge(set map[string]bool, f *fileConfig) {
	if set["coder"] {
		c.Coder = f.Coder
	}
	if set["hamming"] {
		c.Hamming = f.Hamming
	}
	if set["chunk"] {
		c.ChunkSize = f.ChunkSize
	}
	if set["debug"] {
		c.Debug = f.Debug
	}
}

func (c *fileConfig) options() ([]entropack.Option, error) {
	var opts []entropack.Option
	if c.Coder != "" {
		k, err := code.ParseKind(c.Coder)
		if err != nil {
			return nil, err
		}
		opts = append(opts, entropack.WithCoder(k))
	}
	if c.Hamming != 0 {
		opts = append(opts, entropack.WithHamming(c.Hamming))
	}
	if c.ChunkSize != 0 {
		opts = append(opts, entropack.WithChunkSize(c.ChunkSize))
	}
	if c.CacheSize != 0 {
		opts = append(opts, entropack.WithCodebookCacheSize(c.CacheSize))
	}
	return opts, nil
}
