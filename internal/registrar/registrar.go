// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package registrar writes the startup Server row (spec.md §4.G).
package registrar

import (
	"context"
	"fmt"

	"github.com/netifmon/netifmond/internal/store"
)

// Register inserts or updates the server row identified by s.ServerID.
// Any failure here is fatal at startup per spec.md §7 — the caller is
// expected to exit non-zero on error.
func Register(ctx context.Context, db store.Client, s store.Server) error {
	if err := db.UpsertServer(ctx, s); err != nil {
		return fmt.Errorf("registrar: upsert server %s: %w", s.ServerID, err)
	}
	return nil
}
