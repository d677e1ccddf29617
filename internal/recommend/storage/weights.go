// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/graph"
)

// ModelName is the file name prefix of weight artifacts.
const ModelName = "lightgcn"

const weightFileSuffix = ".gob.gz"

// Weights is the serializable weight artifact of a trained model.
type Weights struct {
	Version      int
	EmbeddingDim int
	NumLayers    int
	NumUsers     int
	NumVenues    int

	// Table is the (NumUsers+NumVenues) x EmbeddingDim embedding table,
	// row-major.
	Table []float64

	// Edges is the edge list the model was trained on.
	Edges []graph.Edge
}

// FileInfo describes a stored weight file.
type FileInfo struct {
	Version   int       `json:"version"`
	SavedAt   time.Time `json:"saved_at"`
	Checksum  string    `json:"checksum"`
	SizeBytes int64     `json:"size_bytes"`
}

// storedFile is the on-disk format for weight files.
type storedFile struct {
	Info           FileInfo
	CompressedData []byte
}

// WeightStore manages weight files in a directory.
type WeightStore struct {
	baseDir string
	mu      sync.RWMutex
	latest  int
}

// NewWeightStore opens a weight store, creating baseDir if needed.
func NewWeightStore(baseDir string) (*WeightStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &WeightStore{baseDir: baseDir}
	versions, err := s.scanVersions()
	if err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	if len(versions) > 0 {
		s.latest = versions[len(versions)-1]
	}
	return s, nil
}

// scanVersions returns the stored versions in ascending order.
func (s *WeightStore) scanVersions() ([]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if v, ok := parseWeightFilename(entry.Name()); ok {
			versions = append(versions, v)
		}
	}
	slices.Sort(versions)
	return versions, nil
}

// parseWeightFilename extracts the version from "lightgcn_v{n}.gob.gz".
func parseWeightFilename(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, ModelName+"_v")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, weightFileSuffix)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(rest)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// LatestVersion returns the highest stored version, or 0 if none.
func (s *WeightStore) LatestVersion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Save writes w under w.Version. The file is written to a temporary name
// and renamed into place.
func (s *WeightStore) Save(ctx context.Context, w *Weights) (*FileInfo, error) {
	if w.Version < 1 {
		return nil, fmt.Errorf("%w: weight version must be positive, got %d", recommend.ErrInvalidConfig, w.Version)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, fmt.Errorf("encode weights: %w", err)
	}
	raw := buf.Bytes()
	hash := sha256.Sum256(raw)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress weights: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	info := FileInfo{
		Version:   w.Version,
		SavedAt:   time.Now().UTC(),
		Checksum:  hex.EncodeToString(hash[:]),
		SizeBytes: int64(compressed.Len()),
	}

	final := s.path(w.Version)
	tmp := final + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from the store directory and a version number
	if err != nil {
		return nil, fmt.Errorf("create weight file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(storedFile{Info: info, CompressedData: compressed.Bytes()}); err != nil {
		_ = f.Close()      //nolint:errcheck // already failing
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("write weight file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("close weight file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return nil, fmt.Errorf("rename weight file: %w", err)
	}

	if w.Version > s.latest {
		s.latest = w.Version
	}
	return &info, nil
}

// Load reads the weights of a version. Version 0 loads the latest. A
// missing file yields an error wrapping recommend.ErrNotFound.
func (s *WeightStore) Load(ctx context.Context, version int) (*Weights, *FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		version = s.latest
	}
	if version == 0 {
		return nil, nil, fmt.Errorf("no stored weights: %w", recommend.ErrNotFound)
	}

	f, err := os.Open(s.path(version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("weights v%d: %w", version, recommend.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open weight file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, nil, fmt.Errorf("read weight file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress weights: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed weights: %w", err)
	}

	hash := sha256.Sum256(raw)
	if got := hex.EncodeToString(hash[:]); got != sf.Info.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Info.Checksum, got)
	}

	var w Weights
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&w); err != nil {
		return nil, nil, fmt.Errorf("decode weights: %w", err)
	}
	return &w, &sf.Info, nil
}

// Versions returns every stored version in ascending order.
func (s *WeightStore) Versions() ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanVersions()
}

// Delete removes one version.
func (s *WeightStore) Delete(_ context.Context, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(version)); err != nil {
		return fmt.Errorf("delete weights v%d: %w", version, err)
	}
	if version == s.latest {
		versions, err := s.scanVersions()
		if err != nil {
			return fmt.Errorf("read directory: %w", err)
		}
		s.latest = 0
		if len(versions) > 0 {
			s.latest = versions[len(versions)-1]
		}
	}
	return nil
}

// Prune deletes all but the newest keep versions and returns the removed
// version numbers.
func (s *WeightStore) Prune(_ context.Context, keep int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep = max(keep, 1)
	versions, err := s.scanVersions()
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	if len(versions) <= keep {
		return nil, nil
	}

	stale := versions[:len(versions)-keep]
	var removed []int
	for _, v := range stale {
		if err := os.Remove(s.path(v)); err == nil {
			removed = append(removed, v)
		}
	}
	return removed, nil
}

func (s *WeightStore) path(version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", ModelName, version, weightFileSuffix))
}
