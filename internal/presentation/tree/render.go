// Package tree renders the spatial hierarchy for the terminal, colored by
// node kind when the output supports it.
package tree

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/graph"
)

var kindColors = map[domain.Kind]string{
	domain.KindRoot:    "#818cf8",
	domain.KindSector:  "#a78bfa",
	domain.KindApp:     "#c084fc",
	domain.KindWindow:  "#e879f9",
	domain.KindSubView: "#f472b6",
}

// Node is the renderable tree shape. It matches the JSON served by the
// daemon's /graph endpoint, so remote trees render the same as local ones.
type Node struct {
	ID       domain.NodeID   `json:"id"`
	Kind     domain.Kind     `json:"kind"`
	Meta     json.RawMessage `json:"meta,omitempty"`
	Children []*Node         `json:"children,omitempty"`
}

// FromSnapshot converts a graph snapshot into the renderable shape.
func FromSnapshot(snap *graph.Snapshot) *Node {
	var build func(id domain.NodeID) *Node
	build = func(id domain.NodeID) *Node {
		n, ok := snap.Node(id)
		if !ok {
			return nil
		}
		out := &Node{ID: n.ID, Kind: n.Kind, Meta: n.Meta}
		for _, c := range n.Children {
			if child := build(c); child != nil {
				out.Children = append(out.Children, child)
			}
		}
		return out
	}
	return build(graph.RootID)
}

// Renderer writes an indented tree view.
type Renderer struct {
	out     io.Writer
	profile termenv.Profile
}

// NewRenderer creates a renderer for w. Colors are disabled automatically
// when w is not a terminal.
func NewRenderer(w io.Writer) *Renderer {
	profile := termenv.Ascii
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		profile = termenv.ColorProfile()
	}
	return &Renderer{out: w, profile: profile}
}

// Render writes the tree, one node per line. Viewports are listed beside the
// node their path currently ends at; the focused cursor is starred and a
// transitioning one marked with a tilde.
func (r *Renderer) Render(root *Node, viewports []domain.Viewport) {
	if root == nil {
		return
	}

	cursors := make(map[domain.NodeID][]domain.Viewport)
	for _, v := range viewports {
		if leaf, ok := v.Path.Leaf(); ok {
			cursors[leaf] = append(cursors[leaf], v)
		}
	}

	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		indent := strings.Repeat("  ", depth)
		label := string(n.ID)
		if name := metaName(n.Meta); name != "" {
			label = fmt.Sprintf("%s (%s)", label, name)
		}

		styled := termenv.String(label).Foreground(r.profile.Color(kindColors[n.Kind])).String()
		line := fmt.Sprintf("%s%s  [%s]", indent, styled, n.Kind)

		for _, v := range cursors[n.ID] {
			marker := fmt.Sprintf("  <- %s", v.ID)
			if v.Focused {
				marker += " *"
			}
			if v.Transitioning {
				marker += " ~"
			}
			line += termenv.String(marker).Foreground(r.profile.Color("#fb7185")).String()
		}
		fmt.Fprintln(r.out, line)

		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
}

// metaName pulls a display name out of a metadata blob, best effort.
func metaName(meta []byte) string {
	if len(meta) == 0 {
		return ""
	}
	var m struct {
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(meta, &m); err != nil {
		return ""
	}
	if m.Name != "" {
		return m.Name
	}
	return m.Title
}
