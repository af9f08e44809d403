// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package orchestrator spawns the reconciler and sampler tasks and
// propagates fatal errors (spec.md §4.H).
package orchestrator

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/netifmon/netifmond/internal/reconcile"
	"github.com/netifmon/netifmond/internal/sampler"
)

// Run starts the reconciler and sampler loops and blocks until either
// terminates, for any reason — success or failure. Per spec.md §4.H
// there is no automatic task restart; the caller (cmd/netifmond) turns
// a non-nil return into a non-zero process exit and relies on the
// host's service manager for supervision.
func Run(ctx context.Context, log *zap.Logger, rec *reconcile.Reconciler, samp *sampler.Sampler) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := rec.Run(gctx)
		log.Error("reconciler task terminated", zap.Error(err))
		return err
	})
	g.Go(func() error {
		err := samp.Run(gctx)
		log.Error("sampler task terminated", zap.Error(err))
		return err
	})

	return g.Wait()
}
