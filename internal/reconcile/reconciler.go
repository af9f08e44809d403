// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/netifmon/netifmond/internal/debugsrv"
	"github.com/netifmon/netifmond/internal/ifaces"
	"github.com/netifmon/netifmond/internal/netlinkx"
	"github.com/netifmon/netifmond/internal/store"
)

// Interval is the steady-state reconcile tick period (spec.md §2, §4.E).
const Interval = 5 * time.Second

// Reconciler owns the 5-second reconcile loop and the stronger
// startup reset. It holds no mutable cache of its own — every tick
// re-derives fresh and stored state from the netlink adapter and the
// database, so a failed tick never leaves stale state behind.
type Reconciler struct {
	Log      *zap.Logger
	Adapter  netlinkx.Adapter
	DB       store.Client
	ServerID string
	Filter   *ifaces.Filter
	Metrics  *debugsrv.Metrics // optional; nil disables metric recording
}

// ResetAndPopulate performs the startup reset described in spec.md
// §4.E: drop the server's entire addr partition, then bulk-insert the
// full fresh set. This is how the agent repairs itself after an
// abrupt prior shutdown, rather than trying to diff against
// potentially stale rows.
func (r *Reconciler) ResetAndPopulate(ctx context.Context) error {
	fresh, err := ifaces.CollectAll(ctx, r.Log, r.Adapter, r.Filter, r.ServerID)
	if err != nil {
		return err
	}
	if err := r.DB.DropAddrPartition(ctx, r.ServerID); err != nil {
		return err
	}
	return r.DB.InsertAddrs(ctx, fresh)
}

// Run executes the steady-state 5s reconcile loop until ctx is
// cancelled. It returns the context's error on cancellation; any
// per-tick failure is logged and the loop continues (spec.md §4.E:
// "Sub-batch failures are logged and ignored; the next tick will
// re-derive the same diff and retry").
func (r *Reconciler) Run(ctx context.Context) error {
	t := time.NewTicker(Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) {
	if r.Metrics != nil {
		r.Metrics.ReconcileTicks.Inc()
	}

	fresh, err := ifaces.CollectAll(ctx, r.Log, r.Adapter, r.Filter, r.ServerID)
	if err != nil {
		if r.Metrics != nil {
			r.Metrics.ReconcileErrors.Inc()
		}
		r.Log.Warn("reconcile: failed to collect fresh addresses, skipping tick", zap.Error(err))
		return
	}
	stored, err := r.DB.SelectAddrs(ctx, r.ServerID)
	if err != nil {
		if r.Metrics != nil {
			r.Metrics.ReconcileErrors.Inc()
		}
		r.Log.Warn("reconcile: failed to read stored addresses, skipping tick", zap.Error(err))
		return
	}

	creates, updates, deletes := Diff(fresh, stored)

	// Ordering within the tick: creates happen-before updates
	// happen-before deletes (spec.md §5).
	if len(creates) > 0 {
		if err := r.DB.InsertAddrs(ctx, creates); err != nil {
			r.Log.Warn("reconcile: create batch failed", zap.Error(err))
		}
	}
	if len(updates) > 0 {
		r.applyUpdates(ctx, updates)
	}
	if len(deletes) > 0 {
		names := make([]string, len(deletes))
		for i, d := range deletes {
			names[i] = d.Interface
		}
		if err := r.DB.DeleteAddrs(ctx, r.ServerID, names); err != nil {
			r.Log.Warn("reconcile: delete batch failed", zap.Error(err))
		}
	}
}

// applyUpdates dispatches one ALTER TABLE UPDATE per row concurrently,
// per spec.md §4.E.
func (r *Reconciler) applyUpdates(ctx context.Context, updates []store.Addr) {
	done := make(chan struct{}, len(updates))
	for _, u := range updates {
		u := u
		go func() {
			defer func() { done <- struct{}{} }()
			if err := r.DB.UpdateAddr(ctx, u); err != nil {
				r.Log.Warn("reconcile: update failed", zap.String("interface", u.Interface), zap.Error(err))
			}
		}()
	}
	for range updates {
		<-done
	}
}
