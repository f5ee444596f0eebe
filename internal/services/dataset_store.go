package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"bankdash/internal/dataset"
	"bankdash/internal/infrastructure"
)

// StoredDataset is a dataset held by the store together with its upload
// metadata.
type StoredDataset struct {
	ID         string
	Name       string
	Format     dataset.Format
	SizeBytes  int64
	UploadedAt time.Time
	// Revision starts at 1 and increases with every Replace.
	Revision int
	Data     dataset.Dataset
}

// DatasetStore is an in-memory, capacity-bounded dataset store. When full,
// Put evicts the oldest upload. Datasets have value semantics, so entries
// handed out by Get can be read without holding the lock.
type DatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*StoredDataset
	capacity int
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewDatasetStore creates a store holding at most capacity datasets. metrics
// may be nil.
func NewDatasetStore(capacity int, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DatasetStore {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &DatasetStore{
		datasets: make(map[string]*StoredDataset),
		capacity: capacity,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "dataset_store"),
	}
}

// Put stores a new dataset and returns the ids evicted to make room.
func (s *DatasetStore) Put(ctx context.Context, entry StoredDataset) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.datasets[entry.ID]; exists {
		return nil, fmt.Errorf("dataset %s already exists", entry.ID)
	}

	var evicted []string
	for len(s.datasets) >= s.capacity {
		oldest := s.oldestLocked()
		delete(s.datasets, oldest)
		evicted = append(evicted, oldest)
		s.logger.InfoContext(ctx, "dataset evicted",
			slog.String("dataset_id", oldest),
			slog.Int("capacity", s.capacity))
	}

	if entry.Revision == 0 {
		entry.Revision = 1
	}
	s.datasets[entry.ID] = &entry

	infrastructure.RecordStoreChange(ctx, s.metrics, int64(1-len(evicted)), len(evicted))
	return evicted, nil
}

// oldestLocked returns the id of the earliest upload. Callers hold mu.
func (s *DatasetStore) oldestLocked() string {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, d := range s.datasets {
		if oldestID == "" || d.UploadedAt.Before(oldestAt) ||
			(d.UploadedAt.Equal(oldestAt) && id < oldestID) {
			oldestID, oldestAt = id, d.UploadedAt
		}
	}
	return oldestID
}

// Get retrieves a dataset by ID
func (s *DatasetStore) Get(id string) (StoredDataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.datasets[id]
	if !exists {
		return StoredDataset{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	// Return a copy to prevent external modification
	return *d, nil
}

// Replace swaps the data of a stored dataset. The swap only happens when the
// stored revision still equals revision, so two concurrent writers cannot
// silently overwrite each other. It returns the updated entry.
func (s *DatasetStore) Replace(id string, revision int, data dataset.Dataset) (StoredDataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.datasets[id]
	if !exists {
		return StoredDataset{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	if d.Revision != revision {
		return StoredDataset{}, fmt.Errorf("%w: %s is at revision %d, expected %d", ErrDatasetConflict, id, d.Revision, revision)
	}

	d.Data = data
	d.Revision++
	return *d, nil
}

// List returns every stored dataset, oldest upload first.
func (s *DatasetStore) List() []StoredDataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StoredDataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UploadedAt.Equal(result[j].UploadedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UploadedAt.Before(result[j].UploadedAt)
	})
	return result
}

// Delete removes a dataset from the store
func (s *DatasetStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.datasets[id]; !exists {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	delete(s.datasets, id)
	infrastructure.RecordStoreChange(ctx, s.metrics, -1, 0)
	return nil
}

// Len returns the number of stored datasets.
func (s *DatasetStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

// Capacity returns the maximum number of stored datasets.
func (s *DatasetStore) Capacity() int {
	return s.capacity
}
