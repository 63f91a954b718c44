// Package strata implements a spatial desktop-navigation engine: one shared
// tree of sectors, apps, windows and sub-views, observed by independent
// per-viewport depth cursors that zoom, jump, split and merge without ever
// blocking each other.
package strata

import (
	"context"
	"log/slog"

	"github.com/stratadesk/strata/internal/logging"
	"github.com/stratadesk/strata/internal/metrics"
	"github.com/stratadesk/strata/pkg/bridge"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/engine"
	"github.com/stratadesk/strata/pkg/graph"
	"github.com/stratadesk/strata/pkg/ports"
	"github.com/stratadesk/strata/pkg/split"
	"github.com/stratadesk/strata/pkg/viewport"
)

// Version is the release version, overridable at build time via
// -ldflags "-X github.com/stratadesk/strata.Version=...".
var Version = "0.1.0-dev"

// System is the fully wired navigation core: the shared graph, the
// per-viewport navigation engine, split management and the command/event
// bridge. Use New to construct one.
type System struct {
	Graph     *graph.Graph
	Engine    *engine.Engine
	Viewports *viewport.Manager
	Splits    *split.Controller
	Bridge    *bridge.Bridge

	logger *slog.Logger
}

// Option configures the System.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	clusters ports.ClusterStore
	meta     ports.MetaStore
	locker   ports.DistributedLocker
	metrics  *metrics.Metrics
}

// WithLogger sets the structured logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClusterStore enables persistent path bookmarks.
func WithClusterStore(store ports.ClusterStore) Option {
	return func(c *config) {
		c.clusters = store
	}
}

// WithMetaStore persists node metadata outside the in-memory graph.
func WithMetaStore(store ports.MetaStore) Option {
	return func(c *config) {
		c.meta = store
	}
}

// WithLocker enables distributed viewport locking for multi-replica
// deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *config) {
		c.locker = locker
	}
}

// WithMetrics attaches Prometheus instrumentation to the bridge.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// New wires a complete system. Call Close when done to stop the graph's
// owner goroutine.
func New(opts ...Option) *System {
	cfg := &config{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	g := graph.New(graph.WithLogger(cfg.logger))

	vmOpts := []viewport.Option{viewport.WithLogger(cfg.logger)}
	if cfg.locker != nil {
		vmOpts = append(vmOpts, viewport.WithLocker(cfg.locker))
	}
	vm := viewport.NewManager(g.Root(), vmOpts...)

	sys := &System{
		Graph:     g,
		Viewports: vm,
		logger:    cfg.logger,
	}

	// The engine publishes through the bridge; the bridge is constructed
	// after it, so route through the system to break the cycle.
	sys.Engine = engine.New(g, vm,
		engine.WithLogger(cfg.logger),
		engine.WithEmitter(sys.publish),
	)
	sys.Splits = split.NewController(vm,
		split.WithLogger(cfg.logger),
		split.WithEmitter(sys.publish),
	)

	bridgeOpts := []bridge.Option{bridge.WithLogger(cfg.logger)}
	if cfg.clusters != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithClusterStore(cfg.clusters))
	}
	if cfg.meta != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithMetaStore(cfg.meta))
	}
	if cfg.metrics != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithMetrics(cfg.metrics))
	}
	sys.Bridge = bridge.New(g, sys.Engine, vm, sys.Splits, bridgeOpts...)

	return sys
}

func (s *System) publish(ev domain.Event) {
	if s.Bridge != nil {
		s.Bridge.Publish(ev)
	}
}

// DeleteNode removes a subtree and clamps every viewport that referenced a
// removed node before returning, so a dangling path is never observable
// through Viewports. Calling Graph.DeleteNode directly leaves that clamp to
// a separate Engine.HandleRemoved call; this method bundles the two. The
// removed node ids and the clamped viewport ids are returned.
func (s *System) DeleteNode(ctx context.Context, id domain.NodeID) ([]domain.NodeID, []domain.ViewportID, error) {
	return s.Bridge.DeleteNode(ctx, id)
}

// Close stops the graph's owner goroutine.
func (s *System) Close() {
	s.Graph.Close()
}
