// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/graph"
)

func testWeights(version int) *Weights {
	return &Weights{
		Version:      version,
		EmbeddingDim: 2,
		NumLayers:    1,
		NumUsers:     1,
		NumVenues:    2,
		Table:        []float64{0.1, 0.2, 0.3, 0.4, 0.5, float64(version)},
		Edges:        []graph.Edge{{Src: 0, Dst: 1}, {Src: 0, Dst: 2}},
	}
}

func TestNewWeightStore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{"creates directory if not exists", func(t *testing.T) string { return filepath.Join(t.TempDir(), "new_dir") }},
		{"uses existing directory", func(t *testing.T) string { return t.TempDir() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, err := NewWeightStore(tt.setup(t))
			if err != nil {
				t.Fatalf("NewWeightStore() error = %v", err)
			}
			if store.LatestVersion() != 0 {
				t.Errorf("LatestVersion() = %d, want 0", store.LatestVersion())
			}
		})
	}
}

func TestWeightStore_SaveAndLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewWeightStore(dir)
	if err != nil {
		t.Fatalf("NewWeightStore() error = %v", err)
	}

	info, err := store.Save(ctx, testWeights(1))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if info.Checksum == "" || info.SizeBytes == 0 {
		t.Errorf("Save() info = %+v, want checksum and size", info)
	}
	if _, err := store.Save(ctx, testWeights(2)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	t.Run("load latest", func(t *testing.T) {
		w, _, err := store.Load(ctx, 0)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if w.Version != 2 || w.Table[5] != 2 {
			t.Errorf("Load(0) version = %d, table = %v", w.Version, w.Table)
		}
		if !slices.Equal(w.Edges, testWeights(2).Edges) {
			t.Errorf("Load(0) edges = %v", w.Edges)
		}
	})

	t.Run("load specific", func(t *testing.T) {
		w, _, err := store.Load(ctx, 1)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !slices.Equal(w.Table, testWeights(1).Table) {
			t.Errorf("Load(1) table = %v", w.Table)
		}
	})

	t.Run("missing version", func(t *testing.T) {
		if _, _, err := store.Load(ctx, 9); !errors.Is(err, recommend.ErrNotFound) {
			t.Errorf("Load(9) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("reopen finds latest", func(t *testing.T) {
		reopened, err := NewWeightStore(dir)
		if err != nil {
			t.Fatalf("NewWeightStore() error = %v", err)
		}
		if reopened.LatestVersion() != 2 {
			t.Errorf("LatestVersion() = %d, want 2", reopened.LatestVersion())
		}
	})
}

func TestWeightStore_Corruption(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	store, _ := NewWeightStore(dir)
	if _, err := store.Save(ctx, testWeights(1)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(dir, "lightgcn_v1.gob.gz")
	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, _, err := store.Load(ctx, 1); err == nil {
		t.Error("Load() of corrupted file succeeded")
	}
}

func TestWeightStore_InvalidVersion(t *testing.T) {
	t.Parallel()
	store, _ := NewWeightStore(t.TempDir())
	if _, err := store.Save(context.Background(), testWeights(0)); !errors.Is(err, recommend.ErrInvalidConfig) {
		t.Errorf("Save(v0) error = %v, want ErrInvalidConfig", err)
	}
	if _, _, err := store.Load(context.Background(), 0); !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("Load() on empty store error = %v, want ErrNotFound", err)
	}
}

func TestWeightStore_PruneAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := NewWeightStore(t.TempDir())
	for v := 1; v <= 5; v++ {
		if _, err := store.Save(ctx, testWeights(v)); err != nil {
			t.Fatalf("Save(v%d) error = %v", v, err)
		}
	}

	removed, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if !slices.Equal(removed, []int{1, 2, 3}) {
		t.Errorf("Prune() removed = %v, want [1 2 3]", removed)
	}
	versions, _ := store.Versions()
	if !slices.Equal(versions, []int{4, 5}) {
		t.Errorf("Versions() = %v, want [4 5]", versions)
	}

	if err := store.Delete(ctx, 5); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.LatestVersion() != 4 {
		t.Errorf("LatestVersion() after delete = %d, want 4", store.LatestVersion())
	}
}

func TestParseWeightFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"lightgcn_v1.gob.gz", 1, true},
		{"lightgcn_v12.gob.gz", 12, true},
		{"lightgcn_v0.gob.gz", 0, false},
		{"lightgcn_vx.gob.gz", 0, false},
		{"lightgcn_v3.gob.gz.tmp", 0, false},
		{"ease_v1.gob.gz", 0, false},
	}
	for _, tt := range tests {
		v, ok := parseWeightFilename(tt.name)
		if v != tt.version || ok != tt.ok {
			t.Errorf("parseWeightFilename(%q) = %d,%v, want %d,%v", tt.name, v, ok, tt.version, tt.ok)
		}
	}
}
