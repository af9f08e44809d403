// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ifaces

import (
	"fmt"

	"github.com/netifmon/netifmond/internal/netlinkx"
	"github.com/netifmon/netifmond/internal/store"
)

// CollectAddress retrieves one interface's addresses via the netlink
// adapter and folds each entry into a store.Addr, per spec.md §4.D:
//   - ipv6 always gets an entry: Local if present, else Address, else
//     the empty tuple.
//   - ipv6_peer only gets an entry when Address and Local are both
//     present and differ (the peer address), or when both are absent
//     (the empty tuple) — so ipv6_peer can be shorter than ipv6.
func CollectAddress(adapter netlinkx.Adapter, serverID, name string) (store.Addr, error) {
	entries, err := adapter.AddressesByName(name)
	if err != nil {
		return store.Addr{}, fmt.Errorf("ifaces: collect %s: %w", name, err)
	}

	addr := store.Addr{ServerID: serverID, Interface: name}
	for _, e := range entries {
		switch {
		case e.Local.IsValid():
			addr.IPv6 = append(addr.IPv6, store.IPTuple{Addr: e.Local, PrefixLen: prefixPtr(e.PrefixLen)})
		case e.Address.IsValid():
			addr.IPv6 = append(addr.IPv6, store.IPTuple{Addr: e.Address, PrefixLen: prefixPtr(e.PrefixLen)})
		default:
			addr.IPv6 = append(addr.IPv6, store.IPTuple{})
		}

		switch {
		case e.Local.IsValid() && e.Address.IsValid() && e.Local != e.Address:
			addr.IPv6Peer = append(addr.IPv6Peer, store.IPTuple{Addr: e.Address, PrefixLen: prefixPtr(e.PrefixLen)})
		case !e.Local.IsValid() && !e.Address.IsValid():
			addr.IPv6Peer = append(addr.IPv6Peer, store.IPTuple{})
		}
	}
	return addr, nil
}

func prefixPtr(p uint8) *uint8 { return &p }
