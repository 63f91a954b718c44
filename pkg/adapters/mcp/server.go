// Package mcp exposes navigation as Model Context Protocol tools so agent
// clients can drive viewports and inspect the spatial tree. Tool calls are
// routed through the bridge like any other collaborator.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stratadesk/strata/pkg/bridge"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/graph"
	"github.com/stratadesk/strata/pkg/viewport"
)

// Server wraps the bridge and exposes it as an MCP server.
type Server struct {
	bridge    *bridge.Bridge
	graph     *graph.Graph
	viewports *viewport.Manager
	mcpServer *server.MCPServer
}

// NewServer creates the MCP server and registers the tool set.
func NewServer(b *bridge.Bridge, g *graph.Graph, vm *viewport.Manager, version string) *Server {
	s := &Server{
		bridge:    b,
		graph:     g,
		viewports: vm,
		mcpServer: server.NewMCPServer("strata-mcp", strings.TrimSpace(version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// dispatch forwards a tool call as a bridge command and formats the result.
func (s *Server) dispatch(ctx context.Context, cmdType string, payload map[string]any) (*mcp.CallToolResult, error) {
	result, err := s.bridge.Dispatch(ctx, bridge.Command{Type: cmdType, Payload: payload})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if result == nil {
		return mcp.NewToolResultText(`{"ok":true}`), nil
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("zoom_in",
		mcp.WithDescription("Zoom a viewport one level into a child of its current node."),
		mcp.WithString("viewport", mcp.Required(), mcp.Description("Viewport ID")),
		mcp.WithString("node", mcp.Required(), mcp.Description("Child node ID to enter")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		return s.dispatch(ctx, bridge.CmdZoomIn, map[string]any{
			"viewport": args["viewport"],
			"node":     args["node"],
		})
	})

	s.mcpServer.AddTool(mcp.NewTool("zoom_out",
		mcp.WithDescription("Zoom a viewport one level out towards the sectors overview."),
		mcp.WithString("viewport", mcp.Required(), mcp.Description("Viewport ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		return s.dispatch(ctx, bridge.CmdZoomOut, map[string]any{
			"viewport": args["viewport"],
		})
	})

	s.mcpServer.AddTool(mcp.NewTool("jump_to",
		mcp.WithDescription("Jump a viewport to an arbitrary path, routed through the nearest common ancestor."),
		mcp.WithString("viewport", mcp.Required(), mcp.Description("Viewport ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("JSON array of node IDs from the root, e.g. [\"root\",\"sector-1\"]")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		pathStr, _ := args["path"].(string)
		var path []string
		if err := json.Unmarshal([]byte(pathStr), &path); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid path: %v", err)), nil
		}
		return s.dispatch(ctx, bridge.CmdJumpTo, map[string]any{
			"viewport": args["viewport"],
			"path":     path,
		})
	})

	s.mcpServer.AddTool(mcp.NewTool("complete_transition",
		mcp.WithDescription("Acknowledge that the in-flight transition of a viewport finished rendering."),
		mcp.WithString("viewport", mcp.Required(), mcp.Description("Viewport ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		return s.dispatch(ctx, bridge.CmdCompleteTransition, map[string]any{
			"viewport": args["viewport"],
		})
	})

	s.mcpServer.AddTool(mcp.NewTool("split",
		mcp.WithDescription("Split a viewport's region in two and create an independent secondary viewport."),
		mcp.WithString("viewport", mcp.Required(), mcp.Description("Primary viewport ID")),
		mcp.WithString("axis", mcp.Required(), mcp.Description("Split axis: vertical or horizontal")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		return s.dispatch(ctx, bridge.CmdSplit, map[string]any{
			"viewport": args["viewport"],
			"axis":     args["axis"],
		})
	})

	s.mcpServer.AddTool(mcp.NewTool("merge",
		mcp.WithDescription("Merge a split secondary viewport back into its primary."),
		mcp.WithString("primary", mcp.Required(), mcp.Description("Primary viewport ID")),
		mcp.WithString("secondary", mcp.Required(), mcp.Description("Secondary viewport ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		return s.dispatch(ctx, bridge.CmdMerge, map[string]any{
			"primary":   args["primary"],
			"secondary": args["secondary"],
		})
	})

	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the full spatial tree for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.treeJSON()), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("list_viewports",
		mcp.WithDescription("List all viewports with their paths and transition state."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.viewports.List())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode viewports: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("strata://tree", "Current Spatial Tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "strata://tree",
				MIMEType: "application/json",
				Text:     s.treeJSON(),
			},
		}, nil
	})
}

// treeJSON serializes the current snapshot as a flat node list in
// depth-first order.
func (s *Server) treeJSON() string {
	snap := s.graph.Snapshot()
	type node struct {
		ID       domain.NodeID   `json:"id"`
		Kind     domain.Kind     `json:"kind"`
		Parent   domain.NodeID   `json:"parent,omitempty"`
		Depth    int             `json:"depth"`
		Children []domain.NodeID `json:"children,omitempty"`
		Meta     json.RawMessage `json:"meta,omitempty"`
	}
	var nodes []node
	snap.Walk(func(n domain.Node, depth int) {
		nodes = append(nodes, node{
			ID:       n.ID,
			Kind:     n.Kind,
			Parent:   n.Parent,
			Depth:    depth,
			Children: n.Children,
			Meta:     n.Meta,
		})
	})
	jsonBytes, err := json.Marshal(map[string]any{
		"version": snap.Version(),
		"nodes":   nodes,
	})
	if err != nil {
		return "{}"
	}
	return string(jsonBytes)
}
