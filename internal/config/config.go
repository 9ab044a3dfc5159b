// Package config loads editions settings from defaults, an optional TOML
// file and EDITIONS_* environment variables, in that order of precedence
// (later wins). CLI flags are applied by the caller on top of the result.
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/opfilter"
)

// Registry kinds.
const (
	RegistryNoop   = "noop"
	RegistryMemory = "memory"
	RegistryExpr   = "expr"
	RegistryGRPC   = "grpc"
)

// Blob backends.
const (
	BlobsSQLite = "sqlite"
	BlobsMemory = "memory"
)

var (
	validLevels    = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json"}
	validRegistry  = []string{RegistryNoop, RegistryMemory, RegistryExpr, RegistryGRPC}
	validBackends  = []string{BlobsSQLite, BlobsMemory}
	defaultFactory = ident.Labeled("editions.factory")
)

// Config is the resolved configuration.
type Config struct {
	Database  string
	LogLevel  string
	LogFormat string
	Factory   ident.Address
	Template  ident.Address
	Filter    FilterConfig
	Registry  RegistryConfig
	Blobs     BlobsConfig
}

// FilterConfig controls the operator filter gate of every edition.
type FilterConfig struct {
	FailOpen    bool
	OwnerBypass bool

	// DefaultOnCreate starts new editions on the canonical filter when the
	// create call names none.
	DefaultOnCreate bool
}

// RegistryConfig selects the operator registry implementation.
type RegistryConfig struct {
	Kind       string
	Endpoint   string
	Timeout    time.Duration
	Expression string
	Blocked    []ident.Address
}

// BlobsConfig selects the blob store backend.
type BlobsConfig struct {
	Backend string
}

// Default returns the built-in configuration.
func Default() Config {
	policy := opfilter.DefaultPolicy()
	return Config{
		Database:  "editions.db",
		LogLevel:  "info",
		LogFormat: "text",
		Factory:   defaultFactory,
		Template:  ident.Labeled("editions.template"),
		Filter: FilterConfig{
			FailOpen:    policy.FailOpen,
			OwnerBypass: policy.OwnerBypass,
		},
		Registry: RegistryConfig{
			Kind:    RegistryMemory,
			Timeout: 5 * time.Second,
		},
		Blobs: BlobsConfig{Backend: BlobsSQLite},
	}
}

// Policy returns the gate policy described by c.
func (c Config) Policy() opfilter.Policy {
	return opfilter.Policy{FailOpen: c.Filter.FailOpen, OwnerBypass: c.Filter.OwnerBypass}
}

// DefaultFilter returns the filter new editions start on when the create call
// names none.
func (c Config) DefaultFilter() ident.Address {
	if c.Filter.DefaultOnCreate {
		return opfilter.CanonicalFilter
	}
	return ident.Zero
}

// Load resolves the configuration. An empty path skips the file; a path that
// does not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values and cross-field requirements.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("config: database is required")
	}
	if !slices.Contains(validLevels, c.LogLevel) {
		return fmt.Errorf("config: log_level %q: must be one of %v", c.LogLevel, validLevels)
	}
	if !slices.Contains(validFormats, c.LogFormat) {
		return fmt.Errorf("config: log_format %q: must be one of %v", c.LogFormat, validFormats)
	}
	if c.Factory.IsZero() {
		return fmt.Errorf("config: factory must not be the zero identity")
	}
	if !slices.Contains(validRegistry, c.Registry.Kind) {
		return fmt.Errorf("config: registry.kind %q: must be one of %v", c.Registry.Kind, validRegistry)
	}
	if c.Registry.Kind == RegistryGRPC && c.Registry.Endpoint == "" {
		return fmt.Errorf("config: registry.endpoint is required for kind %q", RegistryGRPC)
	}
	if c.Registry.Timeout <= 0 {
		return fmt.Errorf("config: registry.timeout must be positive")
	}
	if !slices.Contains(validBackends, c.Blobs.Backend) {
		return fmt.Errorf("config: blobs.backend %q: must be one of %v", c.Blobs.Backend, validBackends)
	}
	return nil
}

type fileConfig struct {
	Database  string `toml:"database"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	Factory   string `toml:"factory"`
	Template  string `toml:"template"`
	Filter    struct {
		FailOpen        bool `toml:"fail_open"`
		OwnerBypass     bool `toml:"owner_bypass"`
		DefaultOnCreate bool `toml:"default_on_create"`
	} `toml:"filter"`
	Registry struct {
		Kind       string   `toml:"kind"`
		Endpoint   string   `toml:"endpoint"`
		Timeout    string   `toml:"timeout"`
		Expression string   `toml:"expression"`
		Blocked    []string `toml:"blocked"`
	} `toml:"registry"`
	Blobs struct {
		Backend string `toml:"backend"`
	} `toml:"blobs"`
}

func applyFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("database") {
		cfg.Database = strings.TrimSpace(raw.Database)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("log_format") {
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(raw.LogFormat))
	}
	if meta.IsDefined("factory") {
		if cfg.Factory, err = parseAddress("factory", raw.Factory); err != nil {
			return err
		}
	}
	if meta.IsDefined("template") {
		if cfg.Template, err = parseAddress("template", raw.Template); err != nil {
			return err
		}
	}

	if meta.IsDefined("filter", "fail_open") {
		cfg.Filter.FailOpen = raw.Filter.FailOpen
	}
	if meta.IsDefined("filter", "owner_bypass") {
		cfg.Filter.OwnerBypass = raw.Filter.OwnerBypass
	}
	if meta.IsDefined("filter", "default_on_create") {
		cfg.Filter.DefaultOnCreate = raw.Filter.DefaultOnCreate
	}

	if meta.IsDefined("registry", "kind") {
		cfg.Registry.Kind = strings.ToLower(strings.TrimSpace(raw.Registry.Kind))
	}
	if meta.IsDefined("registry", "endpoint") {
		cfg.Registry.Endpoint = strings.TrimSpace(raw.Registry.Endpoint)
	}
	if meta.IsDefined("registry", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Registry.Timeout))
		if err != nil {
			return fmt.Errorf("parse registry.timeout: %w", err)
		}
		cfg.Registry.Timeout = d
	}
	if meta.IsDefined("registry", "expression") {
		cfg.Registry.Expression = raw.Registry.Expression
	}
	if meta.IsDefined("registry", "blocked") {
		if cfg.Registry.Blocked, err = parseAddresses("registry.blocked", raw.Registry.Blocked); err != nil {
			return err
		}
	}

	if meta.IsDefined("blobs", "backend") {
		cfg.Blobs.Backend = strings.ToLower(strings.TrimSpace(raw.Blobs.Backend))
	}
	return nil
}

// envConfig mirrors Config for EDITIONS_* variables. It is seeded from the
// current values so unset variables leave them untouched.
type envConfig struct {
	Database        string        `env:"DATABASE"`
	LogLevel        string        `env:"LOG_LEVEL"`
	LogFormat       string        `env:"LOG_FORMAT"`
	Factory         string        `env:"FACTORY"`
	Template        string        `env:"TEMPLATE"`
	FailOpen        bool          `env:"FILTER_FAIL_OPEN"`
	OwnerBypass     bool          `env:"FILTER_OWNER_BYPASS"`
	DefaultOnCreate bool          `env:"FILTER_DEFAULT_ON_CREATE"`
	RegistryKind    string        `env:"REGISTRY_KIND"`
	Endpoint        string        `env:"REGISTRY_ENDPOINT"`
	Timeout         time.Duration `env:"REGISTRY_TIMEOUT"`
	Expression      string        `env:"REGISTRY_EXPRESSION"`
	Blocked         []string      `env:"REGISTRY_BLOCKED" envSeparator:","`
	BlobsBackend    string        `env:"BLOBS_BACKEND"`
}

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "EDITIONS_"

func applyEnv(cfg *Config) error {
	raw := envConfig{
		Database:        cfg.Database,
		LogLevel:        cfg.LogLevel,
		LogFormat:       cfg.LogFormat,
		Factory:         cfg.Factory.Hex(),
		Template:        cfg.Template.Hex(),
		FailOpen:        cfg.Filter.FailOpen,
		OwnerBypass:     cfg.Filter.OwnerBypass,
		DefaultOnCreate: cfg.Filter.DefaultOnCreate,
		RegistryKind:    cfg.Registry.Kind,
		Endpoint:        cfg.Registry.Endpoint,
		Timeout:         cfg.Registry.Timeout,
		Expression:      cfg.Registry.Expression,
		Blocked:         hexAll(cfg.Registry.Blocked),
		BlobsBackend:    cfg.Blobs.Backend,
	}
	if err := env.ParseWithOptions(&raw, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	factory, err := parseAddress(EnvPrefix+"FACTORY", raw.Factory)
	if err != nil {
		return err
	}
	template, err := parseAddress(EnvPrefix+"TEMPLATE", raw.Template)
	if err != nil {
		return err
	}
	blocked, err := parseAddresses(EnvPrefix+"REGISTRY_BLOCKED", raw.Blocked)
	if err != nil {
		return err
	}

	cfg.Database = raw.Database
	cfg.LogLevel = strings.ToLower(raw.LogLevel)
	cfg.LogFormat = strings.ToLower(raw.LogFormat)
	cfg.Factory = factory
	cfg.Template = template
	cfg.Filter = FilterConfig{
		FailOpen:        raw.FailOpen,
		OwnerBypass:     raw.OwnerBypass,
		DefaultOnCreate: raw.DefaultOnCreate,
	}
	cfg.Registry = RegistryConfig{
		Kind:       strings.ToLower(raw.RegistryKind),
		Endpoint:   raw.Endpoint,
		Timeout:    raw.Timeout,
		Expression: raw.Expression,
		Blocked:    blocked,
	}
	cfg.Blobs.Backend = strings.ToLower(raw.BlobsBackend)
	return nil
}

func parseAddress(key, s string) (ident.Address, error) {
	addr, err := ident.Parse(strings.TrimSpace(s))
	if err != nil {
		return ident.Zero, fmt.Errorf("parse %s: %w", key, err)
	}
	return addr, nil
}

func parseAddresses(key string, in []string) ([]ident.Address, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]ident.Address, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		addr, err := parseAddress(key, s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func hexAll(addrs []ident.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
