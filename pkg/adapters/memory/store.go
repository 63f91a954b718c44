// Package memory provides in-memory store adapters, the default for
// single-process deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/stratadesk/strata/pkg/domain"
)

// ClusterStore implements ports.ClusterStore in memory.
// Safe for concurrent use.
type ClusterStore struct {
	mu   sync.RWMutex
	data map[string]domain.Cluster
}

// NewClusterStore creates an empty in-memory cluster store.
func NewClusterStore() *ClusterStore {
	return &ClusterStore{
		data: make(map[string]domain.Cluster),
	}
}

// Save persists a bookmark, overwriting any previous one of the same name.
func (s *ClusterStore) Save(ctx context.Context, c domain.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy on write so the caller can't mutate stored state by slice aliasing.
	c.Path = c.Path.Clone()
	s.data[c.Name] = c
	return nil
}

// Load retrieves a bookmark by name.
func (s *ClusterStore) Load(ctx context.Context, name string) (domain.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[name]
	if !ok {
		return domain.Cluster{}, fmt.Errorf("cluster %s: %w", name, domain.ErrClusterNotFound)
	}
	c.Path = c.Path.Clone()
	return c, nil
}

// Delete removes a bookmark. Unknown names are ignored.
func (s *ClusterStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns all stored bookmarks.
func (s *ClusterStore) List(ctx context.Context) ([]domain.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Cluster, 0, len(s.data))
	for _, c := range s.data {
		c.Path = c.Path.Clone()
		out = append(out, c)
	}
	return out, nil
}

// MetaStore implements ports.MetaStore in memory.
// Safe for concurrent use.
type MetaStore struct {
	mu   sync.RWMutex
	data map[domain.NodeID][]byte
}

// NewMetaStore creates an empty in-memory metadata store.
func NewMetaStore() *MetaStore {
	return &MetaStore{
		data: make(map[domain.NodeID][]byte),
	}
}

// Put stores the blob for a node.
func (s *MetaStore) Put(ctx context.Context, node domain.NodeID, meta []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[node] = append([]byte(nil), meta...)
	return nil
}

// Get retrieves the blob for a node, nil when absent.
func (s *MetaStore) Get(ctx context.Context, node domain.NodeID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.data[node]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), blob...), nil
}

// Delete removes the blob for a node.
func (s *MetaStore) Delete(ctx context.Context, node domain.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, node)
	return nil
}
