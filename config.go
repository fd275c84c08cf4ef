package storemodel

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config carries the process-wide defaults consulted by casting, serialization
// and nested validation. Schemas, polymorphic types and per-call options may
// reference their own Config; otherwise Global() is used.
//
// A Config is read without synchronization while a cast or serialize call is
// in flight. Mutating it concurrently with such calls is the caller's
// responsibility to avoid.
type Config struct {
	// MergeErrors selects the strategy for single nested models: nil or false
	// marks the attribute invalid, true merges messages, a string names a
	// registered strategy, and a Strategy is used verbatim.
	MergeErrors any `yaml:"merge_errors"`
	// MergeArrayErrors is the selector for Many attributes.
	MergeArrayErrors any `yaml:"merge_array_errors"`
	// MergeHashErrors is the selector for Hash attributes.
	MergeHashErrors any `yaml:"merge_hash_errors"`

	SerializeUnknownAttributes bool `yaml:"serialize_unknown_attributes"`
	SerializeEnumsAsLabel      bool `yaml:"serialize_enums_as_label"`
	// SerializeEmptyAttributes=false omits attributes whose value is nil or empty.
	SerializeEmptyAttributes bool `yaml:"serialize_empty_attributes"`
	// EnableParentAssignment points nested instances at their container on write.
	EnableParentAssignment bool `yaml:"enable_parent_assignment"`

	Logger   *slog.Logger `yaml:"-"`
	Observer Observer     `yaml:"-"`
}

// DefaultConfig returns a Config holding the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		SerializeUnknownAttributes: true,
		SerializeEnumsAsLabel:      true,
		SerializeEmptyAttributes:   true,
		EnableParentAssignment:     true,
	}
}

// Clone returns a shallow copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

func (c *Config) observer() Observer {
	if c.Observer == nil {
		return nopObserver{}
	}
	return c.Observer
}

var discardLogger = slog.New(slog.DiscardHandler)

var (
	defaultMu     sync.RWMutex
	defaultConfig = DefaultConfig()
)

// Global returns the process-wide Config.
func Global() *Config {
	defaultMu.RLock()
	c := defaultConfig
	defaultMu.RUnlock()
	return c
}

// SetGlobal replaces the process-wide Config; nil values are ignored.
func SetGlobal(c *Config) {
	if c == nil {
		return
	}
	defaultMu.Lock()
	defaultConfig = c
	defaultMu.Unlock()
}

// ResetGlobal restores the built-in process-wide Config.
func ResetGlobal() {
	defaultMu.Lock()
	defaultConfig = DefaultConfig()
	defaultMu.Unlock()
}

// LoadConfig reads a YAML document into a Config seeded with the built-in
// defaults, so keys absent from the document keep their default value.
// An empty document yields the defaults.
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("storemodel: decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile is LoadConfig over the file at path.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storemodel: open config: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

// resolveConfig returns the first non-nil config, falling back to Global().
func resolveConfig(cs ...*Config) *Config {
	for _, c := range cs {
		if c != nil {
			return c
		}
	}
	return Global()
}
