// Package redis provides Redis-backed store adapters for multi-process
// deployments where bookmarks and node metadata must outlive any single
// daemon, plus the distributed locker used to serialize viewport updates
// across replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/stratadesk/strata/pkg/domain"
)

// ClusterStore implements ports.ClusterStore on Redis. Bookmarks are stored
// as JSON values with a set index for listing.
type ClusterStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// ClusterOption configures a ClusterStore.
type ClusterOption func(*ClusterStore)

// WithClusterPrefix overrides the key prefix.
func WithClusterPrefix(prefix string) ClusterOption {
	return func(s *ClusterStore) {
		s.prefix = prefix
	}
}

// WithClusterTTL sets an expiration on bookmarks. Zero means no expiration.
func WithClusterTTL(ttl time.Duration) ClusterOption {
	return func(s *ClusterStore) {
		s.ttl = ttl
	}
}

// NewClusterStore creates a store over an existing client.
func NewClusterStore(client *backend.Client, opts ...ClusterOption) *ClusterStore {
	s := &ClusterStore{
		client: client,
		prefix: "strata:cluster:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ClusterStore) key(name string) string {
	return s.prefix + name
}

func (s *ClusterStore) indexKey() string {
	return s.prefix + "index"
}

// Save persists a bookmark and adds it to the index.
func (s *ClusterStore) Save(ctx context.Context, c domain.Cluster) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(c.Name), data, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), c.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cluster to redis: %w", err)
	}
	return nil
}

// Load retrieves a bookmark by name.
func (s *ClusterStore) Load(ctx context.Context, name string) (domain.Cluster, error) {
	val, err := s.client.Get(ctx, s.key(name)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Cluster{}, fmt.Errorf("cluster %s: %w", name, domain.ErrClusterNotFound)
		}
		return domain.Cluster{}, fmt.Errorf("failed to get cluster from redis: %w", err)
	}

	var c domain.Cluster
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return domain.Cluster{}, fmt.Errorf("failed to unmarshal cluster: %w", err)
	}
	return c, nil
}

// Delete removes a bookmark. Unknown names are ignored.
func (s *ClusterStore) Delete(ctx context.Context, name string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(name))
	pipe.SRem(ctx, s.indexKey(), name)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns all stored bookmarks. Names whose value expired are pruned
// from the index lazily.
func (s *ClusterStore) List(ctx context.Context) ([]domain.Cluster, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}

	out := make([]domain.Cluster, 0, len(names))
	for _, name := range names {
		c, err := s.Load(ctx, name)
		if errors.Is(err, domain.ErrClusterNotFound) {
			_ = s.client.SRem(ctx, s.indexKey(), name).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MetaStore implements ports.MetaStore on Redis.
type MetaStore struct {
	client *backend.Client
	prefix string
}

// NewMetaStore creates a metadata store over an existing client.
func NewMetaStore(client *backend.Client, prefix string) *MetaStore {
	if prefix == "" {
		prefix = "strata:meta:"
	}
	return &MetaStore{client: client, prefix: prefix}
}

// Put stores the blob for a node.
func (s *MetaStore) Put(ctx context.Context, node domain.NodeID, meta []byte) error {
	if err := s.client.Set(ctx, s.prefix+string(node), meta, 0).Err(); err != nil {
		return fmt.Errorf("failed to save metadata to redis: %w", err)
	}
	return nil
}

// Get retrieves the blob for a node, nil when absent.
func (s *MetaStore) Get(ctx context.Context, node domain.NodeID) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+string(node)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metadata from redis: %w", err)
	}
	return val, nil
}

// Delete removes the blob for a node.
func (s *MetaStore) Delete(ctx context.Context, node domain.NodeID) error {
	return s.client.Del(ctx, s.prefix+string(node)).Err()
}
