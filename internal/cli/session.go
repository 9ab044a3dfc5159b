package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/editions/internal/blobstore"
	"github.com/roach88/editions/internal/config"
	"github.com/roach88/editions/internal/host"
	"github.com/roach88/editions/internal/ident"
	"github.com/roach88/editions/internal/opfilter"
	"github.com/roach88/editions/internal/opfilter/grpcregistry"
	"github.com/roach88/editions/internal/store"
)

// session is an opened ledger with a host rebuilt from it.
type session struct {
	cfg      config.Config
	store    *store.Store
	host     *host.Host
	registry opfilter.Registry
	logger   *slog.Logger
	closers  []func() error
}

// loadConfig resolves the configuration and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

// openLedger opens the configured store and registry without building a
// host. Logs go to logw.
func openLedger(opts *RootOptions, logw io.Writer) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	s := &session{cfg: cfg, logger: newLogger(cfg, opts.Verbose, logw)}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open ledger", err)
	}
	s.store = st
	s.closers = append(s.closers, st.Close)

	registry, err := s.buildRegistry()
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, "build registry", err)
	}
	s.registry = registry
	return s, nil
}

// openSession opens the ledger and replays it into a host.
func openSession(ctx context.Context, opts *RootOptions, logw io.Writer) (*session, error) {
	s, err := openLedger(opts, logw)
	if err != nil {
		return nil, err
	}
	h, err := host.Open(ctx, s.hostOptions())
	if err != nil {
		s.Close()
		return nil, WrapExitError(ExitFailure, "replay ledger", err)
	}
	s.host = h
	s.logger.Debug("session opened", "database", s.cfg.Database, "registry", s.cfg.Registry.Kind, "seq", h.Seq())
	return s, nil
}

// hostOptions describes a host over the session's store.
func (s *session) hostOptions() host.Options {
	return host.Options{
		Store:         s.store,
		Blobs:         s.buildBlobs(),
		Registry:      s.registry,
		Policy:        s.cfg.Policy(),
		Factory:       s.cfg.Factory,
		Template:      s.cfg.Template,
		DefaultFilter: s.cfg.DefaultFilter(),
		Logger:        s.logger,
	}
}

// Close releases everything the session opened, last opened first.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *session) buildBlobs() blobstore.Store {
	if s.cfg.Blobs.Backend == config.BlobsMemory {
		return blobstore.NewMemory()
	}
	return blobstore.NewSQLite(s.store)
}

func (s *session) buildRegistry() (opfilter.Registry, error) {
	rc := s.cfg.Registry
	switch rc.Kind {
	case config.RegistryNoop:
		return opfilter.Noop{}, nil
	case config.RegistryMemory:
		m := opfilter.NewMemory()
		if len(rc.Blocked) > 0 {
			m.Block(opfilter.CanonicalFilter, rc.Blocked...)
		}
		return m, nil
	case config.RegistryExpr:
		e, err := opfilter.NewExpr(rc.Expression, rc.Blocked)
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.RegistryGRPC:
		c, err := grpcregistry.Dial(rc.Endpoint, rc.Timeout)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, c.Close)
		return c, nil
	}
	return nil, fmt.Errorf("unknown registry kind %q", rc.Kind)
}

// newLogger builds the CLI logger. --verbose forces debug level.
func newLogger(cfg config.Config, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// parseIdentity accepts a hex address or an @label.
func parseIdentity(s string) (ident.Address, error) {
	s = strings.TrimSpace(s)
	if label, ok := strings.CutPrefix(s, "@"); ok {
		if label == "" {
			return ident.Zero, fmt.Errorf("empty label")
		}
		return ident.Labeled(label), nil
	}
	return ident.Parse(s)
}

// caller resolves the --as flag.
func caller(opts *RootOptions) (ident.Address, error) {
	if opts.Caller == "" {
		return ident.Zero, NewExitError(ExitCommandError, "--as is required for calls")
	}
	addr, err := parseIdentity(opts.Caller)
	if err != nil {
		return ident.Zero, WrapExitError(ExitCommandError, "invalid --as", err)
	}
	return addr, nil
}

// identityArg parses a positional or flag identity, mapping failures to a
// command error that names what was being parsed.
func identityArg(what, s string) (ident.Address, error) {
	addr, err := parseIdentity(s)
	if err != nil {
		return ident.Zero, WrapExitError(ExitCommandError, "invalid "+what, err)
	}
	return addr, nil
}
