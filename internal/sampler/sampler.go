// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package sampler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/netifmon/netifmond/internal/debugsrv"
	"github.com/netifmon/netifmond/internal/ifaces"
	"github.com/netifmon/netifmond/internal/netlinkx"
	"github.com/netifmon/netifmond/internal/store"
)

const (
	// SampleInterval is the per-sample tick period (spec.md §4.F).
	SampleInterval = 1 * time.Second
	// RefreshInterval is the interface-list refresh cadence (spec.md §4.F).
	RefreshInterval = 60 * time.Second
	// maxConcurrentStatsFetches bounds netlink pressure per tick.
	maxConcurrentStatsFetches = 10
)

// nowFunc is overridable in tests.
var nowFunc = time.Now

// Sampler holds the cached interface list and the previous-sample
// cache, and runs the interleaved sample/refresh loop described in
// spec.md §4.F. sample_tick and refresh_tick are mutually exclusive at
// the outer loop (a single select), so the cached interface list is
// never read and replaced concurrently.
type Sampler struct {
	Log      *zap.Logger
	Adapter  netlinkx.Adapter
	DB       store.Client
	ServerID string
	Filter   *ifaces.Filter
	Metrics  *debugsrv.Metrics // optional; nil disables metric recording

	cache *snapshotCache
	names []string
}

// NewSampler seeds the cached interface list from the filter at
// startup, per spec.md §4.F ("initialized from C at startup").
func NewSampler(log *zap.Logger, adapter netlinkx.Adapter, db store.Client, serverID string, filter *ifaces.Filter) (*Sampler, error) {
	links, err := adapter.ListLinks()
	if err != nil {
		return nil, err
	}
	return &Sampler{
		Log:      log,
		Adapter:  adapter,
		DB:       db,
		ServerID: serverID,
		Filter:   filter,
		cache:    newSnapshotCache(),
		names:    filter.Select(links),
	}, nil
}

// Run executes the interleaved 1s sample / 60s refresh loop until ctx
// is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	sampleT := time.NewTicker(SampleInterval)
	defer sampleT.Stop()
	refreshT := time.NewTicker(RefreshInterval)
	defer refreshT.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refreshT.C:
			s.refresh(ctx)
		case <-sampleT.C:
			s.sampleOnce(ctx)
		}
	}
}

// refresh re-queries the interface list, discarding the cache only on
// a non-empty success (spec.md §4.F: "discarding only on non-empty
// success"), so a transient netlink failure never empties the cached
// list the sampler relies on.
func (s *Sampler) refresh(ctx context.Context) {
	links, err := s.Adapter.ListLinks()
	if err != nil {
		s.Log.Warn("sampler: refresh failed, keeping previous interface list", zap.Error(err))
		return
	}
	names := s.Filter.Select(links)
	if len(names) == 0 {
		s.Log.Warn("sampler: refresh matched no interfaces, keeping previous interface list")
		return
	}
	s.names = names
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	start := nowFunc()
	ts := uint32(start.Unix())
	if s.Metrics != nil {
		s.Metrics.SampleTicks.Inc()
		defer func() { s.Metrics.SampleDuration.Observe(nowFunc().Sub(start).Seconds()) }()
	}

	type sampled struct {
		stats netlinkx.LinkStats
		ok    bool
	}
	results := make([]sampled, len(s.names))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentStatsFetches)
	for i, name := range s.names {
		i, name := i, name
		g.Go(func() error {
			st, err := s.Adapter.StatsByName(name)
			if err != nil {
				s.Log.Warn("sampler: failed to read stats", zap.String("interface", name), zap.Error(err))
				return nil
			}
			results[i] = sampled{stats: st, ok: true}
			return nil
		})
	}
	_ = g.Wait()

	var (
		mu   sync.Mutex
		rows []store.Stat
	)
	for _, r := range results {
		if !r.ok {
			continue
		}
		prev, hadPrev := s.cache.swap(r.stats.Name, r.stats)
		if !hadPrev {
			continue // first sample after a cache miss produces no row (spec.md §3)
		}
		if st, ok := delta(s.ServerID, ts, prev, r.stats); ok {
			mu.Lock()
			rows = append(rows, st)
			mu.Unlock()
		} else {
			s.Log.Warn("sampler: counter underflow, skipping delta for interface", zap.String("interface", r.stats.Name))
		}
	}

	if len(rows) == 0 {
		return
	}
	if err := s.DB.InsertStats(ctx, rows); err != nil {
		s.Log.Warn("sampler: failed to write stat rows", zap.Error(err))
	}
}
