package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/fable"
	"github.com/aretw0/fable/internal/config"
	"github.com/aretw0/fable/internal/logging"
	"github.com/aretw0/fable/internal/telemetry"
	"github.com/aretw0/fable/pkg/adapters/file"
	"github.com/aretw0/fable/pkg/adapters/memory"
	"github.com/aretw0/fable/pkg/adapters/openai"
	"github.com/aretw0/fable/pkg/adapters/process"
	"github.com/aretw0/fable/pkg/adapters/redis"
	"github.com/aretw0/fable/pkg/adapters/sqlite"
	"github.com/aretw0/fable/pkg/persistence/middleware"
	"github.com/aretw0/fable/pkg/ports"
	"github.com/aretw0/fable/pkg/provider"
	"github.com/aretw0/fable/pkg/registry"
	"github.com/aretw0/fable/pkg/session"
	"go.opentelemetry.io/otel"
)

// Stack holds the process-wide collaborators assembled from Config.
type Stack struct {
	Config   *config.Config
	Logger   *slog.Logger
	Sessions *session.Manager
	Provider ports.ServiceProvider
	Metrics  *telemetry.Metrics

	closers []func(context.Context) error
}

// Build assembles logging, tracing, persistence and the provider chain.
// Close must be called to flush logs and traces.
func Build(ctx context.Context, cfg *config.Config) (*Stack, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, logCloser, err := logging.New(level, logging.Options{JSON: cfg.LogJSON, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}

	st := &Stack{Config: cfg, Logger: logger}
	st.closers = append(st.closers, func(context.Context) error { return logCloser.Close() })

	shutdown, err := telemetry.Setup(ctx, "fable", cfg.OTELEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	} else {
		st.closers = append(st.closers, shutdown)
	}

	if cfg.Metrics {
		st.Metrics = telemetry.NewMetrics()
	}

	sessions, err := st.buildSessions()
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	st.Sessions = sessions

	p, err := st.buildProvider()
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	st.Provider = p
	return st, nil
}

func (st *Stack) buildSessions() (*session.Manager, error) {
	cfg := st.Config
	opts := []session.Option{session.WithLogger(st.Logger)}

	var store ports.SessionStore
	switch cfg.Store {
	case config.StoreFile:
		store = file.New(cfg.SessionDir)
	case config.StoreRedis:
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.RedisTTL))
		store = rs
		opts = append(opts, session.WithLocker(redis.NewLocker(rs.Client(), "fable:lock:")))
		st.closers = append(st.closers, func(context.Context) error { return rs.Client().Close() })
	case config.StoreSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		ss, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = ss
		st.closers = append(st.closers, func(context.Context) error { return ss.Close() })
	default:
		store = memory.NewStore()
	}

	var mws []middleware.Middleware
	if len(cfg.PIIPatterns) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PIIPatterns))
	}
	keys, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    keys[0],
			FallbackKeys: keys[1:],
		}))
	}
	if len(mws) > 0 {
		store = middleware.Chain(store, mws...)
	}
	return session.NewManager(store, opts...), nil
}

func (st *Stack) buildProvider() (ports.ServiceProvider, error) {
	cfg := st.Config
	var base ports.ServiceProvider = provider.Null{}
	if cfg.OpenAIKey != "" {
		opts := []openai.Option{
			openai.WithAPIKey(cfg.OpenAIKey),
			openai.WithLogger(st.Logger),
		}
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
		}
		if len(cfg.Models) > 0 {
			opts = append(opts, openai.WithModel(cfg.Models[0]))
		}
		base = openai.New(opts...)
	}
	web := provider.NewWeb(base, &http.Client{Timeout: 15 * time.Second})

	var p ports.ServiceProvider = web
	if cfg.CacheSize > 0 {
		cached, err := provider.NewCached(web, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		p = cached
	}
	return provider.NewSafe(p, st.Logger), nil
}

// Engine loads the story at source with the stack wired in.
func (st *Stack) Engine(source string) (*fable.Engine, error) {
	funcs, err := st.functions(source)
	if err != nil {
		return nil, err
	}
	opts := []fable.Option{
		fable.WithFunctions(funcs),
		fable.WithLogger(st.Logger),
		fable.WithOptions(st.Config.Options()),
		fable.WithProvider(st.Provider),
		fable.WithTracer(otel.Tracer("github.com/aretw0/fable")),
	}
	if st.Metrics != nil {
		opts = append(opts, fable.WithLifecycleHooks(st.Metrics.Hooks()))
	}
	engine, err := fable.New(source, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// functions registers the tools configured for source.
func (st *Stack) functions(source string) (*registry.Registry, error) {
	reg := registry.New()
	path := st.Config.Tools
	if path == "" {
		return reg, nil
	}
	dir := source
	if info, err := os.Stat(source); err == nil && !info.IsDir() {
		dir = filepath.Dir(source)
	}
	if !filepath.IsAbs(path) {
		if candidate := filepath.Join(dir, path); fileExists(candidate) {
			path = candidate
		}
	}
	tools, err := process.LoadTools(path)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(process.WithBaseDir(filepath.Dir(path)), process.WithLogger(st.Logger))
	if err := runner.Register(reg, tools); err != nil {
		return nil, err
	}
	if len(tools) > 0 {
		st.Logger.Debug("tools registered", "path", path, "names", reg.Names())
	}
	return reg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Close releases the stack in reverse order of construction.
func (st *Stack) Close(ctx context.Context) error {
	var errs []error
	for i := len(st.closers) - 1; i >= 0; i-- {
		errs = append(errs, st.closers[i](ctx))
	}
	st.closers = nil
	return errors.Join(errs...)
}
