package ports

import (
	"context"

	"github.com/stratadesk/strata/pkg/domain"
)

// ClusterStore persists named path bookmarks. The core treats the stored
// payload as opaque; only the name and the path snapshot are meaningful.
type ClusterStore interface {
	// Save persists a bookmark, overwriting any previous one of the same name.
	Save(ctx context.Context, c domain.Cluster) error

	// Load retrieves a bookmark by name.
	// Returns domain.ErrClusterNotFound if the name is unknown.
	Load(ctx context.Context, name string) (domain.Cluster, error)

	// Delete removes a bookmark. Deleting an unknown name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all stored bookmarks in unspecified order.
	List(ctx context.Context) ([]domain.Cluster, error)
}

// MetaStore persists per-node metadata blobs. The blobs are owned by the
// persistence collaborator and never interpreted structurally by the core.
type MetaStore interface {
	// Put stores the blob for a node, replacing any previous value.
	Put(ctx context.Context, node domain.NodeID, meta []byte) error

	// Get retrieves the blob for a node. A node without metadata yields a
	// nil blob and no error.
	Get(ctx context.Context, node domain.NodeID) ([]byte, error)

	// Delete removes the blob for a node.
	Delete(ctx context.Context, node domain.NodeID) error
}
