// Package http exposes the bridge over a plain JSON/SSE transport: POST a
// command envelope, watch events over server-sent events, query state over
// GET. The state endpoints answer from immutable graph snapshots and never
// block navigation.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stratadesk/strata/pkg/bridge"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/graph"
	"github.com/stratadesk/strata/pkg/ports"
	"github.com/stratadesk/strata/pkg/viewport"
)

// Server routes transport requests to the bridge.
type Server struct {
	bridge    *bridge.Bridge
	graph     *graph.Graph
	viewports *viewport.Manager
	clusters  ports.ClusterStore
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	version   string
}

// Option configures the Server.
type Option func(*Server)

// WithClusterStore enables the GET /clusters endpoint.
func WithClusterStore(store ports.ClusterStore) Option {
	return func(s *Server) {
		s.clusters = store
	}
}

// WithMetricsGatherer enables the GET /metrics endpoint.
func WithMetricsGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithVersion sets the version reported by GET /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewHandler builds the HTTP handler for the daemon.
func NewHandler(b *bridge.Bridge, g *graph.Graph, vm *viewport.Manager, opts ...Option) http.Handler {
	s := &Server{
		bridge:    b,
		graph:     g,
		viewports: vm,
		logger:    slog.Default(),
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/commands", s.PostCommand)
	r.Get("/events", s.SubscribeEvents)
	r.Get("/graph", s.GetGraph)
	r.Get("/viewports", s.GetViewports)
	r.Get("/clusters", s.GetClusters)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusFor maps protocol error codes to HTTP statuses.
func statusFor(err error) int {
	switch domain.ErrorCode(err) {
	case "not_found", "viewport_not_found", "cluster_not_found":
		return http.StatusNotFound
	case "busy":
		return http.StatusConflict
	case "invalid_kind", "cycle", "invalid_child", "at_root", "not_transitioning", "not_siblings":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{
		"code":    domain.ErrorCode(err),
		"message": err.Error(),
	})
}

// PostCommand handles POST /commands.
func (s *Server) PostCommand(w http.ResponseWriter, r *http.Request) {
	var cmd bridge.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "bad_request",
			"message": "invalid command envelope",
		})
		s.logger.Warn("invalid command envelope", "err", err)
		return
	}

	result, err := s.bridge.Dispatch(r.Context(), cmd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// treeNode is the JSON shape of a graph node in GET /graph.
type treeNode struct {
	ID       domain.NodeID   `json:"id"`
	Kind     domain.Kind     `json:"kind"`
	Meta     json.RawMessage `json:"meta,omitempty"`
	Children []*treeNode     `json:"children,omitempty"`
}

// GetGraph handles GET /graph: the full tree from the current snapshot.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	snap := s.graph.Snapshot()

	var build func(id domain.NodeID) *treeNode
	build = func(id domain.NodeID) *treeNode {
		n, ok := snap.Node(id)
		if !ok {
			return nil
		}
		out := &treeNode{ID: n.ID, Kind: n.Kind, Meta: n.Meta}
		for _, c := range n.Children {
			if child := build(c); child != nil {
				out.Children = append(out.Children, child)
			}
		}
		return out
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version": snap.Version(),
		"root":    build(s.graph.Root()),
	})
}

// GetViewports handles GET /viewports.
func (s *Server) GetViewports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.viewports.List())
}

// GetClusters handles GET /clusters.
func (s *Server) GetClusters(w http.ResponseWriter, r *http.Request) {
	if s.clusters == nil {
		writeJSON(w, http.StatusOK, []domain.Cluster{})
		return
	}
	clusters, err := s.clusters.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if clusters == nil {
		clusters = []domain.Cluster{}
	}
	writeJSON(w, http.StatusOK, clusters)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "strata",
		"version": s.version,
	})
}

// SubscribeEvents handles GET /events as an SSE stream. An optional
// ?viewport= query restricts delivery to events scoped to that viewport.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SSE requested on a non-flushing writer")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	filter := domain.ViewportID(r.URL.Query().Get("viewport"))
	ch, cancel := s.bridge.Streams().Subscribe(filter)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "viewport", filter)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("event encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
