package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dennisdiepolder/salesboard/internal/types"
)

func TestNewSnapshotStoreIsEmpty(t *testing.T) {
	store := NewSnapshotStore()

	snap := store.Current()
	if snap == nil {
		t.Fatal("expected an empty snapshot, got nil")
	}
	if store.Size() != 0 {
		t.Errorf("expected 0 records, got %d", store.Size())
	}

	status := snap.Status()
	if !status.NoData {
		t.Error("expected NoData for the initial snapshot")
	}
	if status.Columns != 0 {
		t.Errorf("expected 0 columns, got %d", status.Columns)
	}
}

func TestSnapshotStoreSet(t *testing.T) {
	store := NewSnapshotStore()
	now := time.Now()

	schema := types.NewSchema([]string{"A", "B"}, nil)
	store.Set(&Snapshot{
		Records:   make([]types.NormalizedTaskRecord, 3),
		Schema:    schema,
		FetchedAt: now,
	})

	if store.Size() != 3 {
		t.Errorf("expected 3 records, got %d", store.Size())
	}

	status := store.Current().Status()
	if status.NoData {
		t.Error("expected data")
	}
	if status.Columns != 2 {
		t.Errorf("expected 2 columns, got %d", status.Columns)
	}
	if !status.FetchedAt.Equal(now) {
		t.Errorf("expected FetchedAt %v, got %v", now, status.FetchedAt)
	}
}

func TestSnapshotStoreSetFailure(t *testing.T) {
	store := NewSnapshotStore()
	store.Set(&Snapshot{Err: errors.New("unexpected status code: 401")})

	snap := store.Current()
	if snap.Records == nil {
		t.Error("expected records to be an empty slice, not nil")
	}

	status := snap.Status()
	if !status.NoData {
		t.Error("expected NoData after a failed fetch")
	}
	if status.Error != "unexpected status code: 401" {
		t.Errorf("unexpected error text %q", status.Error)
	}
}

func TestSnapshotStoreConcurrentAccess(t *testing.T) {
	store := NewSnapshotStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.Set(&Snapshot{Records: make([]types.NormalizedTaskRecord, n)})
		}(i)
		go func() {
			defer wg.Done()
			_ = store.Current().Status()
		}()
	}
	wg.Wait()
}
