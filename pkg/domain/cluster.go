package domain

// Cluster is a named bookmark of a path. It is persisted opaquely through a
// ClusterStore and never appears as a structural node in the graph.
type Cluster struct {
	Name string `json:"name"`
	Path Path   `json:"path"`
}
