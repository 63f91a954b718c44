// Package bolt provides a bbolt-backed store adapter: a single local file,
// no external service, suitable for desktop deployments where bookmarks and
// node metadata should survive daemon restarts.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/stratadesk/strata/pkg/domain"
)

var (
	bucketClusters = []byte("clusters")
	bucketMeta     = []byte("meta")
)

// Store implements ports.ClusterStore and, via Meta, ports.MetaStore on one
// bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database file and ensures the buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketClusters, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a bookmark.
func (s *Store) Save(ctx context.Context, c domain.Cluster) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal cluster: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketClusters).Put([]byte(c.Name), data)
	})
}

// Load retrieves a bookmark by name.
func (s *Store) Load(ctx context.Context, name string) (domain.Cluster, error) {
	var c domain.Cluster
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketClusters).Get([]byte(name))
		if data == nil {
			return fmt.Errorf("cluster %s: %w", name, domain.ErrClusterNotFound)
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return domain.Cluster{}, err
	}
	return c, nil
}

// Delete removes a bookmark. Unknown names are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketClusters).Delete([]byte(name))
	})
}

// List returns all stored bookmarks.
func (s *Store) List(ctx context.Context) ([]domain.Cluster, error) {
	var out []domain.Cluster
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketClusters).ForEach(func(_, data []byte) error {
			var c domain.Cluster
			if err := json.Unmarshal(data, &c); err != nil {
				return err
			}
			out = append(out, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Meta exposes the metadata bucket as a ports.MetaStore.
func (s *Store) Meta() *MetaStore {
	return &MetaStore{db: s.db}
}

// MetaStore implements ports.MetaStore on the shared database.
type MetaStore struct {
	db *bolt.DB
}

// Put stores the blob for a node.
func (s *MetaStore) Put(ctx context.Context, node domain.NodeID, meta []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(node), meta)
	})
}

// Get retrieves the blob for a node, nil when absent.
func (s *MetaStore) Get(ctx context.Context, node domain.NodeID) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte(node))
		if data != nil {
			out = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the blob for a node.
func (s *MetaStore) Delete(ctx context.Context, node domain.NodeID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Delete([]byte(node))
	})
}
