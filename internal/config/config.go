// Package config holds the options of an aggregation run.
//
// Options come from defaults, then an optional YAML file, then command line
// flags. A file looks like:
//
//	workers: 8
//	chunk_size: 64MiB
//	digits: 1
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/miku/brcchunk/internal/chunk"
)

// Config configures a run.
type Config struct {
	// Workers is the number of ranges aggregated in parallel.
	Workers int `yaml:"workers"`

	// ChunkSize is the target size of a range. Actual ranges differ by up
	// to one line.
	ChunkSize ByteSize `yaml:"chunk_size"`

	// Digits is the number of fractional digits printed.
	Digits int `yaml:"digits"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Workers:   runtime.NumCPU(),
		ChunkSize: chunk.DefaultSize,
		Digits:    1,
	}
}

// Load reads a YAML file on top of the defaults. Unknown fields are an
// error.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that all options are usable.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Digits < 0 {
		return fmt.Errorf("digits must not be negative, got %d", c.Digits)
	}
	return nil
}

// ByteSize is a size in bytes, written either as a plain integer or in
// humanized form, like "10MB" or "64MiB".
type ByteSize int64

// ParseByteSize parses s as a byte size.
func ParseByteSize(s string) (ByteSize, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ByteSize(n), nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > uint64(1<<63-1) {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return ByteSize(n), nil
}

// String implements pflag.Value.
func (b *ByteSize) String() string { return humanize.Bytes(uint64(*b)) }

// Set implements pflag.Value.
func (b *ByteSize) Set(s string) error {
	v, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Type implements pflag.Value.
func (b *ByteSize) Type() string { return "size" }

// UnmarshalYAML accepts integers and size strings.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: chunk size must be a scalar", value.Line)
	}
	return b.Set(value.Value)
}
