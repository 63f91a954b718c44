// Package tests provides reusable contract suites that verify an adapter
// complies with the ports interfaces. Adapter packages call them from their
// own tests.
package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/ports"
)

// RunClusterStoreContract verifies a ClusterStore implementation.
func RunClusterStoreContract(t *testing.T, store ports.ClusterStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		if !errors.Is(err, domain.ErrClusterNotFound) {
			t.Fatalf("expected ErrClusterNotFound, got %v", err)
		}
	})

	t.Run("Save_Load_RoundTrip", func(t *testing.T) {
		want := domain.Cluster{
			Name: "work",
			Path: domain.Path{"root", "sector-1", "app-2"},
		}
		if err := store.Save(ctx, want); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		got, err := store.Load(ctx, "work")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if got.Name != want.Name || !got.Path.Equal(want.Path) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	})

	t.Run("Save_Overwrites", func(t *testing.T) {
		first := domain.Cluster{Name: "media", Path: domain.Path{"root", "sector-2"}}
		second := domain.Cluster{Name: "media", Path: domain.Path{"root", "sector-3"}}
		if err := store.Save(ctx, first); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := store.Save(ctx, second); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		got, err := store.Load(ctx, "media")
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if !got.Path.Equal(second.Path) {
			t.Errorf("expected overwrite to win, got %v", got.Path)
		}
	})

	t.Run("List", func(t *testing.T) {
		clusters, err := store.List(ctx)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		names := make(map[string]bool, len(clusters))
		for _, c := range clusters {
			names[c.Name] = true
		}
		for _, want := range []string{"work", "media"} {
			if !names[want] {
				t.Errorf("cluster %q missing from list", want)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "work"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, err := store.Load(ctx, "work"); !errors.Is(err, domain.ErrClusterNotFound) {
			t.Errorf("expected ErrClusterNotFound after delete, got %v", err)
		}
		// Idempotent.
		if err := store.Delete(ctx, "work"); err != nil {
			t.Errorf("repeat delete failed: %v", err)
		}
	})
}

// RunMetaStoreContract verifies a MetaStore implementation.
func RunMetaStoreContract(t *testing.T, store ports.MetaStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get_Missing", func(t *testing.T) {
		blob, err := store.Get(ctx, "window-9")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if blob != nil {
			t.Errorf("expected nil blob for missing node, got %q", blob)
		}
	})

	t.Run("Put_Get_RoundTrip", func(t *testing.T) {
		want := []byte(`{"title":"editor"}`)
		if err := store.Put(ctx, "window-1", want); err != nil {
			t.Fatalf("put failed: %v", err)
		}

		got, err := store.Get(ctx, "window-1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if string(got) != string(want) {
			t.Errorf("blob mismatch: got %q, want %q", got, want)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, "window-1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		blob, err := store.Get(ctx, "window-1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if blob != nil {
			t.Errorf("expected nil blob after delete, got %q", blob)
		}
	})
}
