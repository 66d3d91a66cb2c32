// Package persistence implements spec §4.7/§5: synchronous SAVE,
// background BGSAVE over an isolated store snapshot, and the
// auto-save scheduler that checks (seconds, changes) thresholds
// against the store's dirty counter. The background-save isolation
// and errgroup-supervised scheduler loop follow the same
// "operate on a point-in-time copy, never the live structure" shape
// ClusterCockpit-cc-backend's archiving worker uses for its own
// async path.
package persistence

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jameswagner/coolcache/internal/command"
	"github.com/jameswagner/coolcache/internal/config"
	"github.com/jameswagner/coolcache/internal/metrics"
	"github.com/jameswagner/coolcache/internal/rdb"
	"github.com/jameswagner/coolcache/internal/store"
	"github.com/jameswagner/coolcache/internal/stream"
)

var _ command.Persister = (*Scheduler)(nil)

// Scheduler owns the on-disk snapshot file and the auto-save loop.
type Scheduler struct {
	path    string
	store   *store.Store
	streams *stream.Index
	logger  *zap.Logger
	metrics *metrics.Metrics
	rules   []config.SaveRule

	mu       sync.Mutex
	lastSave atomic.Int64
	saving   atomic.Bool
}

// New builds a scheduler writing to dir/filename.
func New(dir, filename string, rules []config.SaveRule, st *store.Store, streams *stream.Index, logger *zap.Logger, mx *metrics.Metrics) *Scheduler {
	s := &Scheduler{
		path:    filepath.Join(dir, filename),
		store:   st,
		streams: streams,
		logger:  logger,
		metrics: mx,
		rules:   rules,
	}
	return s
}

// LoadIfExists restores the keyspace and stream namespace from the
// snapshot file at path, if one is present (spec §4.8: startup load).
func (s *Scheduler) LoadIfExists() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	snap, streams, err := rdb.Read(f, time.Now())
	if err != nil {
		return errors.Wrap(err, "persistence: load snapshot")
	}
	s.store.Restore(snap)
	s.streams.Restore(streams)
	s.lastSave.Store(time.Now().Unix())
	if s.logger != nil {
		s.logger.Info("loaded snapshot", zap.String("path", s.path), zap.Int("keys", len(snap.Entries)))
	}
	return nil
}

// Save writes the current keyspace synchronously, blocking the caller
// until the write completes. It holds the scheduler's own mutex, which
// serializes it with background saves; internal/store.Store's mutex is
// held only while the snapshot is copied, so other commands keep
// running during the write.
func (s *Scheduler) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	snap := s.store.Snapshot()
	streams := s.streams.Snapshot()
	if err := s.writeSnapshot(snap, streams); err != nil {
		return err
	}
	s.store.ResetDirty()
	s.lastSave.Store(time.Now().Unix())
	if s.metrics != nil {
		s.metrics.SaveDuration.Observe(time.Since(start).Seconds())
		s.metrics.LastSaveSeconds.Set(float64(s.lastSave.Load()))
	}
	return nil
}

// BGSave takes an isolated snapshot on the calling goroutine (cheap:
// it's a deep copy, not disk I/O) and writes it out on a background
// goroutine, so the caller — and every other command — is never
// blocked on disk I/O.
func (s *Scheduler) BGSave() error {
	if !s.saving.CompareAndSwap(false, true) {
		return errors.New("background save already in progress")
	}
	snap := s.store.Snapshot()
	streams := s.streams.Snapshot()
	go func() {
		defer s.saving.Store(false)
		start := time.Now()
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.writeSnapshot(snap, streams); err != nil {
			if s.logger != nil {
				s.logger.Error("background save failed", zap.Error(err))
			}
			return
		}
		s.store.ResetDirty()
		s.lastSave.Store(time.Now().Unix())
		if s.metrics != nil {
			s.metrics.SaveDuration.Observe(time.Since(start).Seconds())
			s.metrics.LastSaveSeconds.Set(float64(s.lastSave.Load()))
		}
	}()
	return nil
}

// LastSaveUnix returns the unix timestamp of the last successful save
// or snapshot load, or 0 before either has happened.
func (s *Scheduler) LastSaveUnix() int64 {
	return s.lastSave.Load()
}

func (s *Scheduler) writeSnapshot(snap store.Snapshot, streams map[string][]stream.Entry) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "persistence: create temp snapshot")
	}
	if err := rdb.Write(f, snap, streams); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "persistence: write snapshot")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "persistence: close snapshot")
	}
	return os.Rename(tmp, s.path)
}

// RunAutoSave supervises the (seconds, changes) auto-save rules of
// spec §4.7 until ctx is canceled, checking the dirty counter once a
// second. A failing save is logged, not fatal — the next tick tries
// again.
func (s *Scheduler) RunAutoSave(ctx context.Context) error {
	if len(s.rules) == 0 {
		<-ctx.Done()
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.maybeAutoSave()
			}
		}
	})
	return g.Wait()
}

func (s *Scheduler) maybeAutoSave() {
	dirty := s.store.DirtyCount()
	if s.metrics != nil {
		s.metrics.DirtyKeys.Set(float64(dirty))
	}
	if dirty == 0 {
		return
	}
	elapsed := time.Since(time.Unix(s.lastSave.Load(), 0))
	for _, r := range s.rules {
		if elapsed >= time.Duration(r.Seconds)*time.Second && int(dirty) >= r.Changes {
			if err := s.BGSave(); err != nil && s.logger != nil {
				s.logger.Error("auto-save failed", zap.Error(err))
			}
			return
		}
	}
}
