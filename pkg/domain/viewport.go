package domain

// ViewportID identifies an independent navigation cursor.
type ViewportID string

// Geometry is the fractional region a viewport occupies on its output,
// with all fields in the 0..1 range.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullGeometry covers the whole output.
func FullGeometry() Geometry {
	return Geometry{X: 0, Y: 0, Width: 1, Height: 1}
}

// Anchor ties a viewport to a physical output. The output id is owned by the
// hardware collaborator; the core only matches on it during detach.
type Anchor struct {
	Output   string   `json:"output"`
	Label    string   `json:"label,omitempty"`
	Geometry Geometry `json:"geometry"`
}

// Viewport is an independent depth cursor into the shared graph.
// Path is always a valid root-to-node walk in the current graph.
// While Transitioning, Pending holds the in-flight transition descriptor;
// the viewport is released by an explicit completion signal from the
// rendering collaborator, never by an internal timer.
type Viewport struct {
	ID            ViewportID  `json:"id"`
	Anchor        Anchor      `json:"anchor"`
	Path          Path        `json:"path"`
	Transitioning bool        `json:"transitioning"`
	Pending       *Transition `json:"pending,omitempty"`
	Focused       bool        `json:"focused,omitempty"`
}

// Clone returns a deep copy safe to hand to callers.
func (v Viewport) Clone() Viewport {
	out := v
	out.Path = v.Path.Clone()
	if v.Pending != nil {
		p := v.Pending.Clone()
		out.Pending = &p
	}
	return out
}
