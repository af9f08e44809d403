// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package sampler implements the per-interval counter-delta stats
// loop: the previous-sample cache and the 1s/60s sampling engine
// (spec.md §4.F).
package sampler

import (
	"sync"

	"github.com/netifmon/netifmond/internal/netlinkx"
)

// snapshotCache is the process-local mapping from interface name to
// the last observed raw counter snapshot (spec.md §3
// PreviousSampleCache). It is exclusively owned by the sampler task
// and guarded by one mutex; entries persist until the sampler exits —
// there is no TTL and no eviction.
type snapshotCache struct {
	mu   sync.Mutex
	prev map[string]netlinkx.LinkStats
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{prev: make(map[string]netlinkx.LinkStats)}
}

// swap replaces the cached snapshot for name with current and returns
// the previous one, if any. Call sites must compute the emitted delta
// from the returned previous snapshot before relying on the cache
// reflecting `current` again — the spec requires that the delta row
// for interface i is computed before i's snapshot is replaced within
// the same tick (spec.md §5).
func (c *snapshotCache) swap(name string, current netlinkx.LinkStats) (prev netlinkx.LinkStats, hadPrev bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, hadPrev = c.prev[name]
	c.prev[name] = current
	return prev, hadPrev
}
