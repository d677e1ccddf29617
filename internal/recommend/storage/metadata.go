// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/graph"
)

const (
	metaKeyPrefix = "model/meta/"
	activeKey     = "model/active"
)

// Metadata is the metadata artifact of a trained model version.
type Metadata struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	TrainedAt time.Time `json:"trained_at"`

	DurationMS   int64 `json:"duration_ms"`
	EmbeddingDim int   `json:"embedding_dim"`
	NumLayers    int   `json:"num_layers"`

	// Graph holds the ID mappings the model was trained with.
	Graph *graph.Metadata `json:"graph"`

	EpochLosses   []float64 `json:"epoch_losses"`
	BestLoss      float64   `json:"best_loss"`
	PositivePairs int       `json:"positive_pairs"`
}

// MetadataStore keeps model metadata in BadgerDB.
type MetadataStore struct {
	db     *badger.DB
	ownsDB bool
}

// OpenMetadataStore opens a BadgerDB at path. An empty path opens an
// in-memory database.
func OpenMetadataStore(path string) (*MetadataStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for model metadata: %w", err)
	}
	return &MetadataStore{db: db, ownsDB: true}, nil
}

// NewMetadataStoreFromDB wraps an existing BadgerDB handle. Close leaves
// the handle open.
func NewMetadataStoreFromDB(db *badger.DB) *MetadataStore {
	return &MetadataStore{db: db}
}

// Close closes the database if the store opened it.
func (s *MetadataStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// metaKey zero-pads versions so that key order matches version order.
func metaKey(version int) []byte {
	return []byte(fmt.Sprintf("%s%010d", metaKeyPrefix, version))
}

// Put stores m under m.Version, replacing any previous value.
func (s *MetadataStore) Put(ctx context.Context, m *Metadata) error {
	if m == nil || m.Version < 1 {
		return fmt.Errorf("%w: metadata version must be positive", recommend.ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(m.Version), data)
	})
}

// Get returns the metadata of a version with its ID mappings restored.
func (s *MetadataStore) Get(ctx context.Context, version int) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("metadata v%d: %w", version, recommend.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get metadata: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if err != nil {
		return nil, err
	}
	if err := restoreGraph(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func restoreGraph(m *Metadata) error {
	if m.Graph == nil {
		return fmt.Errorf("metadata v%d has no graph mapping", m.Version)
	}
	if err := m.Graph.Restore(); err != nil {
		return fmt.Errorf("restore metadata v%d: %w", m.Version, err)
	}
	return nil
}

// SetActive marks a stored version as the serving version.
func (s *MetadataStore) SetActive(ctx context.Context, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(version)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("metadata v%d: %w", version, recommend.ErrNotFound)
			}
			return err
		}
		return txn.Set([]byte(activeKey), []byte(strconv.Itoa(version)))
	})
}

// ActiveVersion returns the serving version, or 0 if none is set.
func (s *MetadataStore) ActiveVersion(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var version int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(activeKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := strconv.Atoi(string(val))
			version = v
			return err
		})
	})
	if err != nil {
		return 0, fmt.Errorf("get active version: %w", err)
	}
	return version, nil
}

// Versions returns all stored versions in ascending order.
func (s *MetadataStore) Versions(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var versions []int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(metaKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			v, err := strconv.Atoi(string(it.Item().Key()[len(prefix):]))
			if err != nil {
				continue
			}
			versions = append(versions, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	return versions, nil
}

// NextVersion returns one past the highest stored version.
func (s *MetadataStore) NextVersion(ctx context.Context) (int, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 1, nil
	}
	return versions[len(versions)-1] + 1, nil
}

// Delete removes a version. Deleting the active version clears the active
// marker.
func (s *MetadataStore) Delete(ctx context.Context, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(metaKey(version)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		item, err := txn.Get([]byte(activeKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(val) == strconv.Itoa(version) {
			return txn.Delete([]byte(activeKey))
		}
		return nil
	})
}
