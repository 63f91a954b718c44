// Package bridge is the command/event boundary between the navigation core
// and its collaborators (compositors, hotkey daemons, scripting clients).
// Commands arrive as a flat envelope with a type tag and a loosely typed
// payload; events leave on a fan-out stream. Every command produces at least
// one event: either its domain events or an error event mirroring the
// returned error.
package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/stratadesk/strata/internal/logging"
	"github.com/stratadesk/strata/internal/metrics"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/engine"
	"github.com/stratadesk/strata/pkg/graph"
	"github.com/stratadesk/strata/pkg/ports"
	"github.com/stratadesk/strata/pkg/split"
	"github.com/stratadesk/strata/pkg/viewport"
)

// Command types accepted by Dispatch.
const (
	CmdZoomIn             = "zoom_in"
	CmdZoomOut            = "zoom_out"
	CmdJumpTo             = "jump_to"
	CmdCancel             = "cancel"
	CmdCompleteTransition = "complete_transition"
	CmdSplit              = "split"
	CmdMerge              = "merge"
	CmdCreateNode         = "create_node"
	CmdMoveNode           = "move_node"
	CmdDeleteNode         = "delete_node"
	CmdCreateViewport     = "create_viewport"
	CmdDestroyViewport    = "destroy_viewport"
	CmdDetachOutput       = "detach_output"
	CmdFocus              = "focus"
	CmdClusterSet         = "cluster_set"
	CmdClusterDelete      = "cluster_delete"
	CmdClusterJump        = "cluster_jump"
)

// Command is the wire envelope for a single request.
type Command struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Bridge routes commands to the core components and fans resulting events
// out to stream subscribers.
type Bridge struct {
	graph     *graph.Graph
	engine    *engine.Engine
	viewports *viewport.Manager
	splits    *split.Controller
	clusters  ports.ClusterStore
	meta      ports.MetaStore

	streams *StreamManager
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithClusterStore enables the cluster bookmark commands.
func WithClusterStore(store ports.ClusterStore) Option {
	return func(b *Bridge) {
		b.clusters = store
	}
}

// WithMetaStore persists node metadata alongside the in-memory graph.
func WithMetaStore(store ports.MetaStore) Option {
	return func(b *Bridge) {
		b.meta = store
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// New wires a bridge over the core components. The engine's emitter should
// be b.Publish so its events reach the stream.
func New(g *graph.Graph, e *engine.Engine, vm *viewport.Manager, sc *split.Controller, opts ...Option) *Bridge {
	b := &Bridge{
		graph:     g,
		engine:    e,
		viewports: vm,
		splits:    sc,
		streams:   NewStreamManager(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Streams exposes the event fan-out for transport adapters.
func (b *Bridge) Streams() *StreamManager {
	return b.streams
}

// Publish stamps and broadcasts an event. It is the emitter the core
// components are wired with.
func (b *Bridge) Publish(ev domain.Event) {
	domain.Emitter(b.broadcast).Emit(ev)
}

func (b *Bridge) broadcast(ev domain.Event) {
	if b.metrics != nil {
		b.metrics.Events.WithLabelValues(string(ev.Type)).Inc()
	}
	b.streams.Broadcast(ev)
}

// Payload shapes, decoded from the loosely typed envelope.

type viewportPayload struct {
	Viewport domain.ViewportID `mapstructure:"viewport"`
}

type zoomInPayload struct {
	Viewport domain.ViewportID `mapstructure:"viewport"`
	Node     domain.NodeID     `mapstructure:"node"`
}

type jumpToPayload struct {
	Viewport domain.ViewportID `mapstructure:"viewport"`
	Path     []domain.NodeID   `mapstructure:"path"`
}

type splitPayload struct {
	Viewport domain.ViewportID `mapstructure:"viewport"`
	Axis     string            `mapstructure:"axis"`
}

type mergePayload struct {
	Primary   domain.ViewportID `mapstructure:"primary"`
	Secondary domain.ViewportID `mapstructure:"secondary"`
}

type createNodePayload struct {
	Parent domain.NodeID `mapstructure:"parent"`
	Kind   string        `mapstructure:"kind"`
	Meta   string        `mapstructure:"meta"`
}

type moveNodePayload struct {
	Node   domain.NodeID `mapstructure:"node"`
	Parent domain.NodeID `mapstructure:"parent"`
}

type nodePayload struct {
	Node domain.NodeID `mapstructure:"node"`
}

type createViewportPayload struct {
	Output   string           `mapstructure:"output"`
	Label    string           `mapstructure:"label"`
	Geometry *domain.Geometry `mapstructure:"geometry"`
}

type outputPayload struct {
	Output string `mapstructure:"output"`
}

type clusterSetPayload struct {
	Name     string            `mapstructure:"name"`
	Viewport domain.ViewportID `mapstructure:"viewport"`
	Path     []domain.NodeID   `mapstructure:"path"`
}

type clusterNamePayload struct {
	Name string `mapstructure:"name"`
}

type clusterJumpPayload struct {
	Viewport domain.ViewportID `mapstructure:"viewport"`
	Name     string            `mapstructure:"name"`
}

func decode[T any](payload map[string]any) (T, error) {
	var out T
	if err := mapstructure.Decode(payload, &out); err != nil {
		return out, fmt.Errorf("invalid payload: %w", err)
	}
	return out, nil
}

// Dispatch executes one command. The returned value depends on the command
// type (created ids, viewport state) and may be nil. On error an error event
// carrying the protocol code is published and the error is returned.
func (b *Bridge) Dispatch(ctx context.Context, cmd Command) (any, error) {
	result, vp, err := b.dispatch(ctx, cmd)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		b.Publish(domain.ErrorEvent(vp, err))
		b.logger.Debug("command failed", "type", cmd.Type, "err", err)
	}
	if b.metrics != nil {
		b.metrics.Commands.WithLabelValues(cmd.Type, outcome).Inc()
		b.refreshGauges()
	}
	return result, err
}

// refreshGauges recomputes the state gauges from authoritative sources.
func (b *Bridge) refreshGauges() {
	b.metrics.Nodes.Set(float64(b.graph.Snapshot().Len()))

	views := b.viewports.List()
	b.metrics.Viewports.Set(float64(len(views)))
	inFlight := 0
	for _, v := range views {
		if v.Transitioning {
			inFlight++
		}
	}
	b.metrics.TransitionsInFlight.Set(float64(inFlight))
}

func (b *Bridge) dispatch(ctx context.Context, cmd Command) (any, domain.ViewportID, error) {
	switch cmd.Type {
	case CmdZoomIn:
		p, err := decode[zoomInPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		return nil, p.Viewport, b.engine.ZoomIn(ctx, p.Viewport, p.Node)

	case CmdZoomOut:
		p, err := decode[viewportPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		return nil, p.Viewport, b.engine.ZoomOut(ctx, p.Viewport)

	case CmdJumpTo:
		p, err := decode[jumpToPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		return nil, p.Viewport, b.engine.JumpTo(ctx, p.Viewport, domain.Path(p.Path))

	case CmdCancel:
		p, err := decode[viewportPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		return nil, p.Viewport, b.engine.CancelTransition(ctx, p.Viewport)

	case CmdCompleteTransition:
		p, err := decode[viewportPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		return nil, p.Viewport, b.engine.CompleteTransition(ctx, p.Viewport)

	case CmdSplit:
		p, err := decode[splitPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		secondary, err := b.splits.Split(ctx, p.Viewport, split.Axis(p.Axis))
		return secondary, p.Viewport, err

	case CmdMerge:
		p, err := decode[mergePayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		if err := b.splits.Merge(ctx, p.Primary, p.Secondary); err != nil {
			return nil, p.Secondary, err
		}
		survivor, err := b.viewports.Get(p.Primary)
		return survivor, p.Primary, err

	case CmdCreateNode:
		return b.createNode(ctx, cmd.Payload)

	case CmdMoveNode:
		p, err := decode[moveNodePayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		return nil, "", b.graph.MoveNode(ctx, p.Node, p.Parent)

	case CmdDeleteNode:
		p, err := decode[nodePayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		removed, _, err := b.DeleteNode(ctx, p.Node)
		return removed, "", err

	case CmdCreateViewport:
		p, err := decode[createViewportPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		anchor := domain.Anchor{Output: p.Output, Label: p.Label, Geometry: domain.FullGeometry()}
		if p.Geometry != nil {
			anchor.Geometry = *p.Geometry
		}
		v := b.viewports.Create(anchor)
		b.Publish(domain.Event{Type: domain.EventViewportCreated, Viewport: v.ID, Path: v.Path, Depth: v.Path.Depth()})
		return v, v.ID, nil

	case CmdDestroyViewport:
		p, err := decode[viewportPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		if err := b.viewports.Destroy(p.Viewport); err != nil {
			return nil, p.Viewport, err
		}
		b.splits.Forget(p.Viewport)
		b.Publish(domain.Event{Type: domain.EventViewportDestroyed, Viewport: p.Viewport})
		return nil, p.Viewport, nil

	case CmdDetachOutput:
		p, err := decode[outputPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		migrated, destroyed := b.viewports.DetachOutput(p.Output)
		b.splits.Forget(destroyed...)
		for _, id := range migrated {
			if v, err := b.viewports.Get(id); err == nil {
				b.Publish(domain.ViewportStateEvent(v))
			}
		}
		for _, id := range destroyed {
			b.Publish(domain.Event{Type: domain.EventViewportDestroyed, Viewport: id})
		}
		return map[string]any{"migrated": migrated, "destroyed": destroyed}, "", nil

	case CmdFocus:
		p, err := decode[viewportPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		return nil, p.Viewport, b.viewports.Focus(p.Viewport)

	case CmdClusterSet:
		return b.clusterSet(ctx, cmd.Payload)

	case CmdClusterDelete:
		p, err := decode[clusterNamePayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		if b.clusters == nil {
			return nil, "", fmt.Errorf("no cluster store configured")
		}
		return nil, "", b.clusters.Delete(ctx, p.Name)

	case CmdClusterJump:
		p, err := decode[clusterJumpPayload](cmd.Payload)
		if err != nil {
			return nil, "", err
		}
		if b.clusters == nil {
			return nil, p.Viewport, fmt.Errorf("no cluster store configured")
		}
		c, err := b.clusters.Load(ctx, p.Name)
		if err != nil {
			return nil, p.Viewport, err
		}
		return nil, p.Viewport, b.engine.JumpTo(ctx, p.Viewport, c.Path)

	default:
		return nil, "", fmt.Errorf("unknown command type %q", cmd.Type)
	}
}

func (b *Bridge) createNode(ctx context.Context, payload map[string]any) (any, domain.ViewportID, error) {
	p, err := decode[createNodePayload](payload)
	if err != nil {
		return nil, "", err
	}
	kind := domain.Kind(p.Kind)
	if !kind.Valid() {
		return nil, "", fmt.Errorf("create node kind %q: %w", p.Kind, domain.ErrInvalidKind)
	}

	id, err := b.graph.CreateNode(ctx, p.Parent, kind, []byte(p.Meta))
	if err != nil {
		return nil, "", err
	}
	if b.meta != nil && p.Meta != "" {
		if err := b.meta.Put(ctx, id, []byte(p.Meta)); err != nil {
			b.logger.Warn("failed to persist node metadata", "node", id, "err", err)
		}
	}
	return id, "", nil
}

// DeleteNode removes a subtree and applies the mutation-race policy in one
// step: affected viewports are clamped, persisted metadata for the removed
// nodes is dropped and the node_removed event is published before this
// returns. Library consumers should call this (or System.DeleteNode) rather
// than Graph.DeleteNode, which leaves viewport paths dangling until
// Engine.HandleRemoved runs.
func (b *Bridge) DeleteNode(ctx context.Context, node domain.NodeID) ([]domain.NodeID, []domain.ViewportID, error) {
	removed, err := b.graph.DeleteNode(ctx, node)
	if err != nil {
		return nil, nil, err
	}
	affected := b.engine.HandleRemoved(ctx, removed)

	if b.meta != nil {
		for _, id := range removed {
			if err := b.meta.Delete(ctx, id); err != nil {
				b.logger.Warn("failed to delete node metadata", "node", id, "err", err)
			}
		}
	}

	b.Publish(domain.NodeRemovedEvent(node, removed, affected))
	return removed, affected, nil
}

func (b *Bridge) clusterSet(ctx context.Context, payload map[string]any) (any, domain.ViewportID, error) {
	p, err := decode[clusterSetPayload](payload)
	if err != nil {
		return nil, "", err
	}
	if b.clusters == nil {
		return nil, p.Viewport, fmt.Errorf("no cluster store configured")
	}
	if p.Name == "" {
		return nil, p.Viewport, fmt.Errorf("cluster name is required")
	}

	path := domain.Path(p.Path)
	if len(path) == 0 {
		// Bookmark the viewport's current position.
		v, err := b.viewports.Get(p.Viewport)
		if err != nil {
			return nil, p.Viewport, err
		}
		path = v.Path
	}
	if !b.graph.Snapshot().ValidPath(path) {
		return nil, p.Viewport, fmt.Errorf("cluster %s path %s: %w", p.Name, path, domain.ErrNotFound)
	}

	c := domain.Cluster{Name: p.Name, Path: path.Clone()}
	return c, p.Viewport, b.clusters.Save(ctx, c)
}
