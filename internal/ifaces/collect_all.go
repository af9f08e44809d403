// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ifaces

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/netifmon/netifmond/internal/netlinkx"
	"github.com/netifmon/netifmond/internal/store"
)

// maxConcurrentAddressFetches bounds netlink pressure when collecting
// addresses for every filtered interface in one tick (spec.md §4.D/§5).
const maxConcurrentAddressFetches = 10

// CollectAll lists links, applies filter, and collects a store.Addr
// for every admitted interface, bounded at 10 concurrent netlink
// calls. A per-interface failure is logged and that interface is
// dropped from the result, matching original_source's
// get_interface_addresses: only a totally empty result (every
// interface failed, or there were none to begin with) is surfaced as
// an error that makes the caller skip the whole tick.
func CollectAll(ctx context.Context, log *zap.Logger, adapter netlinkx.Adapter, filter *Filter, serverID string) ([]store.Addr, error) {
	links, err := adapter.ListLinks()
	if err != nil {
		return nil, fmt.Errorf("ifaces: list links: %w", err)
	}
	names := filter.Select(links)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no interfaces matched the filter", netlinkx.ErrRequestFailed)
	}

	var mu sync.Mutex
	var addrs []store.Addr
	var lastErr error

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAddressFetches)
	for _, name := range names {
		name := name
		g.Go(func() error {
			a, err := CollectAddress(adapter, serverID, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				if log != nil {
					log.Error("failed to collect addresses for interface", zap.String("interface", name), zap.Error(err))
				}
				return nil
			}
			addrs = append(addrs, a)
			return nil
		})
	}
	_ = g.Wait() // errors are collected above; CollectAddress never returns a group-fatal error

	if len(addrs) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, netlinkx.ErrRequestFailed
	}
	return addrs, nil
}
