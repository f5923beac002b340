package refresh

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/dennisdiepolder/salesboard/internal/cache"
	"github.com/dennisdiepolder/salesboard/internal/normalize"
	"github.com/dennisdiepolder/salesboard/internal/types"
)

// Fetcher loads the raw task list from the CRM
type Fetcher interface {
	FetchTasks(ctx context.Context) (types.TaskPage, error)
}

// Broadcaster pushes a message to connected dashboards
type Broadcaster interface {
	Broadcast(message []byte)
}

// Recorder receives refresh measurements
type Recorder interface {
	RecordFetch(duration time.Duration, err error)
	RecordNormalization(report normalize.Report)
	UpdateSnapshot(records, columns int, at time.Time)
}

// Refresher loads the task list, normalizes it and publishes the result as
// the current snapshot
type Refresher struct {
	fetcher     Fetcher
	store       *cache.SnapshotStore
	broadcaster Broadcaster
	recorder    Recorder
	interval    time.Duration
	group       singleflight.Group
	now         func() time.Time
	logger      zerolog.Logger
}

// NewRefresher creates a Refresher. broadcaster and recorder may be nil; an
// interval of zero disables periodic refreshes.
func NewRefresher(fetcher Fetcher, store *cache.SnapshotStore, broadcaster Broadcaster, recorder Recorder, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		fetcher:     fetcher,
		store:       store,
		broadcaster: broadcaster,
		recorder:    recorder,
		interval:    interval,
		now:         time.Now,
		logger:      logger,
	}
}

// Refresh performs one load. A failed fetch replaces the snapshot with an
// empty one carrying the error, so the dashboard shows "no data" instead of
// stale figures. Concurrent calls share a single load.
func (r *Refresher) Refresh(ctx context.Context) (types.SnapshotStatus, error) {
	// The shared load must not die with whichever caller started it
	loadCtx := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do("refresh", func() (any, error) {
		return r.load(loadCtx), nil
	})

	snap := v.(*cache.Snapshot)
	return snap.Status(), snap.Err
}

func (r *Refresher) load(ctx context.Context) *cache.Snapshot {
	start := r.now()
	page, err := r.fetcher.FetchTasks(ctx)
	duration := r.now().Sub(start)
	if r.recorder != nil {
		r.recorder.RecordFetch(duration, err)
	}

	snap := &cache.Snapshot{FetchedAt: r.now()}
	if err != nil {
		r.logger.Error().Err(err).Dur("duration", duration).Msg("failed to fetch tasks")
		snap.Err = err
	} else {
		records, report := normalize.NormalizeWithReport(page.Records)
		report.SkippedRecords = page.Skipped
		snap.Records = records
		snap.Report = report
		if len(records) > 0 {
			snap.Schema = records[0].Schema
		}
		if r.recorder != nil {
			r.recorder.RecordNormalization(report)
		}
		r.logger.Info().
			Int("records", report.Records).
			Int("columns", report.Columns).
			Int("malformed_dates", report.MalformedDates).
			Int("unknown_status_codes", report.UnknownStatusCodes).
			Int("skipped_records", report.SkippedRecords).
			Dur("duration", duration).
			Msg("tasks refreshed")
	}

	r.store.Set(snap)
	status := snap.Status()
	if r.recorder != nil {
		r.recorder.UpdateSnapshot(status.Records, status.Columns, status.FetchedAt)
	}
	r.notify(status)
	return snap
}

func (r *Refresher) notify(status types.SnapshotStatus) {
	if r.broadcaster == nil {
		return
	}
	data, err := json.Marshal(types.RefreshNotice{Type: types.RefreshNoticeType, Status: status})
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to marshal refresh notice")
		return
	}
	r.broadcaster.Broadcast(data)
}

// Start loads once and then every interval until ctx is cancelled
func (r *Refresher) Start(ctx context.Context) {
	r.Refresh(ctx)

	if r.interval <= 0 {
		r.logger.Info().Msg("periodic refresh disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("refresher started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("refresher stopped")
			return

		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}
