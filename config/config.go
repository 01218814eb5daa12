package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolverConfig configures the hierarchical config resolver.
type ResolverConfig struct {
	// EnvPrefix is prepended to upper-cased key names for environment
	// lookup: with "INTERVIEWROOM_", key "api_url" reads
	// INTERVIEWROOM_API_URL.
	EnvPrefix string

	// GlobalConfigDir names the directory under ~/.config/ holding the
	// global config file.
	GlobalConfigDir string

	// GlobalConfigFile defaults to "config.yaml".
	GlobalConfigFile string

	// LocalConfigName is the local config filename, looked up in LocalDir.
	LocalConfigName string

	// LocalDir defaults to the working directory.
	LocalDir string

	// Defaults are the built-in values. Their keys are also the keys
	// checked in the environment.
	Defaults map[string]string

	// ValidKeys restricts which file keys are read. Nil allows all.
	ValidKeys []string

	// ErrWriter receives warnings. Defaults to os.Stderr.
	ErrWriter io.Writer
}

func (c ResolverConfig) globalConfigFile() string {
	if c.GlobalConfigFile != "" {
		return c.GlobalConfigFile
	}
	return "config.yaml"
}

// Resolver merges defaults, config files, environment, and flags.
type Resolver struct {
	config     ResolverConfig
	globalPath string
	localPath  string

	// Warnings collects non-fatal issues found while resolving.
	Warnings []string
}

// NewResolver creates a resolver with paths derived from cfg.
func NewResolver(cfg ResolverConfig) *Resolver {
	var globalPath, localPath string

	if cfg.GlobalConfigDir != "" {
		if home, err := os.UserHomeDir(); err == nil {
			globalPath = filepath.Join(home, ".config", cfg.GlobalConfigDir, cfg.globalConfigFile())
		}
	}

	if cfg.LocalConfigName != "" {
		dir := cfg.LocalDir
		if dir == "" {
			dir, _ = os.Getwd()
		}
		if dir != "" {
			localPath = filepath.Join(dir, cfg.LocalConfigName)
		}
	}

	return NewResolverWithPaths(cfg, globalPath, localPath)
}

// NewResolverWithPaths creates a resolver reading the given files. Either
// path may be empty.
func NewResolverWithPaths(cfg ResolverConfig, globalPath, localPath string) *Resolver {
	if cfg.ErrWriter == nil {
		cfg.ErrWriter = os.Stderr
	}
	return &Resolver{
		config:     cfg,
		globalPath: globalPath,
		localPath:  localPath,
	}
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	fmt.Fprintf(r.config.ErrWriter, "Warning: %s\n", msg)
}

// Resolved holds the merged configuration.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for key, or "" if unset.
func (c *Resolved) Get(key string) string {
	return c.values[key]
}

// Source returns where key's value came from.
func (c *Resolved) Source(key string) Source {
	return c.sources[key]
}

// GetWithSource returns both the value and its source.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	return c.values[key], c.sources[key]
}

// All returns a copy of all key-value pairs.
func (c *Resolved) All() map[string]string {
	result := make(map[string]string, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result
}

// Keys returns all keys, sorted.
func (c *Resolved) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *Resolved) set(key, value string, src Source) {
	c.values[key] = value
	c.sources[key] = src
}

// Resolve merges all sources.
// Priority (highest to lowest): env > local > global > defaults.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	for key, value := range r.config.Defaults {
		cfg.set(key, value, SourceDefault)
	}
	r.applyFile(cfg, r.globalPath, SourceGlobal)
	r.applyFile(cfg, r.localPath, SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithFlags resolves and then applies non-empty flag overrides.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()
	for key, value := range flags {
		if value != "" {
			cfg.set(key, value, SourceFlag)
		}
	}
	return cfg
}

func (r *Resolver) applyFile(cfg *Resolved, path string, src Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return // missing file is not an error
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if len(r.config.ValidKeys) > 0 && !slices.Contains(r.config.ValidKeys, key) {
			r.warn(fmt.Sprintf("%s: unknown key %q ignored", path, key))
			continue
		}
		if s := toString(value); s != "" {
			cfg.set(key, s, src)
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	if r.config.EnvPrefix == "" {
		return
	}

	keys := make(map[string]bool, len(r.config.Defaults)+len(cfg.values))
	for k := range r.config.Defaults {
		keys[k] = true
	}
	for k := range cfg.values {
		keys[k] = true
	}

	for key := range keys {
		envKey := r.config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if value := os.Getenv(envKey); value != "" {
			cfg.set(key, value, SourceEnv)
		}
	}
}

// GlobalPath returns the global config file path.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the local config file path.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			if s := toString(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
