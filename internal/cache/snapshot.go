package cache

import (
	"sync"
	"time"

	"github.com/dennisdiepolder/salesboard/internal/normalize"
	"github.com/dennisdiepolder/salesboard/internal/types"
)

// Snapshot is one dashboard load: the normalized table plus how it was
// obtained. A snapshot is never modified after it is stored.
type Snapshot struct {
	Records   []types.NormalizedTaskRecord
	Schema    *types.Schema
	FetchedAt time.Time
	Report    normalize.Report
	Err       error
}

// Status summarises the snapshot for clients
func (s *Snapshot) Status() types.SnapshotStatus {
	status := types.SnapshotStatus{
		FetchedAt: s.FetchedAt,
		Records:   len(s.Records),
		Columns:   s.Schema.Len(),
		NoData:    len(s.Records) == 0,
	}
	if s.Err != nil {
		status.Error = s.Err.Error()
	}
	return status
}

// SnapshotStore holds the snapshot currently served by the dashboard
type SnapshotStore struct {
	current *Snapshot
	mu      sync.RWMutex
}

// NewSnapshotStore creates a store holding an empty snapshot
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		current: &Snapshot{
			Records: []types.NormalizedTaskRecord{},
			Schema:  types.NewSchema(nil, nil),
		},
	}
}

// Set replaces the current snapshot
func (c *SnapshotStore) Set(s *Snapshot) {
	if s.Records == nil {
		s.Records = []types.NormalizedTaskRecord{}
	}
	if s.Schema == nil {
		s.Schema = types.NewSchema(nil, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = s
}

// Current returns the snapshot being served
func (c *SnapshotStore) Current() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Size returns the number of records in the current snapshot
func (c *SnapshotStore) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.current.Records)
}
