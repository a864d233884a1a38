// Package flags implements the feature-flag engine: an in-memory flag store
// seeded from caller-supplied defaults and refreshed from a remote config
// endpoint, with the defaults as explicit fallback on any fetch failure.
package flags

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/averline/splitkit/internal/domain"
)

// Config holds engine options.
type Config struct {
	// Endpoint is the remote config URL. If empty, the fetch is skipped
	// and only Defaults are used.
	Endpoint string
	// Defaults is the baseline name->enabled map. Entries not present in
	// a remote response retain their default value.
	Defaults map[string]bool
	// RefreshInterval re-runs the fetch-and-merge cycle at this cadence
	// until Stop is called. Zero disables periodic refresh.
	RefreshInterval time.Duration
	// Debug enables debug-level log lines on fetch and refresh.
	Debug bool
	// HTTPClient overrides the fetch client. Nil uses a 10s-timeout client.
	HTTPClient *http.Client
	// Logger overrides the engine logger. Nil uses slog.Default.
	Logger *slog.Logger
}

// Engine holds the flag state for one application instance. It replaces the
// module-level globals of a typical client SDK so tests can run multiple
// independent instances.
type Engine struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	flags map[string]domain.FeatureFlag

	cancelMu sync.Mutex
	cancel   context.CancelFunc

	onUpdate func(map[string]bool)
}

// New creates an Engine. Call Init to populate it.
func New(cfg Config) *Engine {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "flags"),
		flags:  make(map[string]domain.FeatureFlag),
	}
}

// OnUpdate registers a callback invoked with a name->enabled snapshot after
// every successful merge (including the initial seed). Register before Init.
func (e *Engine) OnUpdate(fn func(map[string]bool)) {
	e.onUpdate = fn
}

// Init seeds the flag map from defaults, performs the initial remote fetch
// when an endpoint is configured, and schedules periodic refresh. Fetch
// failures are logged and recovered by keeping the defaults; they are never
// returned to the caller. Calling Init again clears any prior refresh timer
// before scheduling a new one.
func (e *Engine) Init(ctx context.Context) {
	e.stopRefresh()

	e.swap(e.seeded())
	if e.cfg.Debug {
		e.logger.Debug("flags seeded from defaults", "count", len(e.cfg.Defaults))
	}

	if e.cfg.Endpoint != "" {
		e.refreshOnce(ctx)
	}

	if e.cfg.Endpoint != "" && e.cfg.RefreshInterval > 0 {
		e.startRefresh(ctx, e.cfg.RefreshInterval)
	}
}

// Stop cancels any scheduled refresh. It is idempotent and safe to call at
// any time; an in-flight fetch is allowed to resolve and its result is
// discarded on the next Init.
func (e *Engine) Stop() {
	e.stopRefresh()
}

// IsEnabled returns the stored enabled state for name, or def when the flag
// is unknown. It never fails.
func (e *Engine) IsEnabled(name string, def bool) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if f, ok := e.flags[name]; ok {
		return f.Enabled
	}
	return def
}

// Flag returns the full flag record, or nil when the flag is unknown.
func (e *Engine) Flag(name string) *domain.FeatureFlag {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if f, ok := e.flags[name]; ok {
		out := f
		return &out
	}
	return nil
}

// All returns a name->enabled snapshot of current state.
func (e *Engine) All() map[string]bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]bool, len(e.flags))
	for name, f := range e.flags {
		out[name] = f.Enabled
	}
	return out
}

// Bound returns a zero-argument accessor for one flag. Each call performs a
// fresh read of current state; it is not a subscription.
func (e *Engine) Bound(name string, def bool) func() bool {
	return func() bool {
		return e.IsEnabled(name, def)
	}
}

// seeded builds a fresh flag map from the configured defaults.
func (e *Engine) seeded() map[string]domain.FeatureFlag {
	m := make(map[string]domain.FeatureFlag, len(e.cfg.Defaults))
	for name, enabled := range e.cfg.Defaults {
		m[name] = domain.FeatureFlag{Name: name, Enabled: enabled}
	}
	return m
}

func (e *Engine) swap(m map[string]domain.FeatureFlag) {
	e.mu.Lock()
	e.flags = m
	e.mu.Unlock()

	if e.onUpdate != nil {
		e.onUpdate(e.All())
	}
}

// refreshOnce performs one fetch-and-merge cycle. The merged map is rebuilt
// wholesale from defaults plus the response, so flags that disappear from
// remote config fall back to their default value.
func (e *Engine) refreshOnce(ctx context.Context) {
	fetched, err := e.fetchRemote(ctx)
	if err != nil {
		e.logger.Warn("remote config fetch failed, keeping current flags",
			"endpoint", e.cfg.Endpoint, "error", err)
		return
	}

	m := e.seeded()
	for _, f := range fetched {
		m[f.Name] = f
	}
	e.swap(m)

	if e.cfg.Debug {
		e.logger.Debug("flags merged from remote config",
			"fetched", len(fetched), "total", len(m))
	}
}

func (e *Engine) startRefresh(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	e.cancelMu.Lock()
	e.cancel = cancel
	e.cancelMu.Unlock()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.refreshOnce(ctx)
			}
		}
	}()
}

func (e *Engine) stopRefresh() {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
