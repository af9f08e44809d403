// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package reconcile implements the address-diff state machine that
// drives create/update/delete operations against the store: the core
// of netifmond's reconciliation engine (spec.md §4.E).
package reconcile

import (
	"github.com/netifmon/netifmond/internal/store"
)

// Diff computes creates/updates/deletes between the freshly collected
// address set and what is currently stored, per spec.md §4.E:
//
//	creates = { a ∈ fresh  | a.interface ∉ stored.interfaces }
//	deletes = { a ∈ stored | a.interface ∉ fresh.interfaces }
//	updates = { a ∈ fresh  | ∃ b ∈ stored, same interface,
//	                         a.ipv6 ≠ b.ipv6 ∨ a.ipv6_peer ≠ b.ipv6_peer }
//
// The three sets are pairwise disjoint by interface, and Diff(x, x) is
// always (nil, nil, nil) — a rename is never fused into an update, it
// is always a delete of the old name plus a create of the new one.
func Diff(fresh, stored []store.Addr) (creates, updates, deletes []store.Addr) {
	storedByIface := make(map[string]store.Addr, len(stored))
	for _, a := range stored {
		storedByIface[a.Interface] = a
	}
	freshIfaces := make(map[string]bool, len(fresh))

	for _, f := range fresh {
		freshIfaces[f.Interface] = true
		b, ok := storedByIface[f.Interface]
		if !ok {
			creates = append(creates, f)
			continue
		}
		if !tuplesEqual(f.IPv6, b.IPv6) || !tuplesEqual(f.IPv6Peer, b.IPv6Peer) {
			updates = append(updates, f)
		}
	}

	for _, s := range stored {
		if !freshIfaces[s.Interface] {
			deletes = append(deletes, s)
		}
	}
	return creates, updates, deletes
}

// tuplesEqual compares two IPTuple slices by value; IPTuple.PrefixLen
// is a pointer, so a plain slices.Equal would compare identity instead
// of the prefix length it points to and spuriously flag every row as
// changed.
func tuplesEqual(a, b []store.IPTuple) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Addr != b[i].Addr {
			return false
		}
		switch {
		case a[i].PrefixLen == nil && b[i].PrefixLen == nil:
			continue
		case a[i].PrefixLen == nil || b[i].PrefixLen == nil:
			return false
		case *a[i].PrefixLen != *b[i].PrefixLen:
			return false
		}
	}
	return true
}
