// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package reconcile

import (
	"context"
	"net/netip"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/netifmon/netifmond/internal/ifaces"
	"github.com/netifmon/netifmond/internal/netlinkx"
	"github.com/netifmon/netifmond/internal/store"
)

type fakeAdapter struct {
	links map[string]netlinkx.LinkInfo
	addrs map[string][]netlinkx.AddrEntry
}

func (f *fakeAdapter) ListLinks() ([]netlinkx.LinkInfo, error) {
	out := make([]netlinkx.LinkInfo, 0, len(f.links))
	for _, l := range f.links {
		out = append(out, l)
	}
	return out, nil
}
func (f *fakeAdapter) LinkByName(name string) (netlinkx.LinkInfo, error) { return f.links[name], nil }
func (f *fakeAdapter) IndexForName(name string) (uint32, error)         { return 0, nil }
func (f *fakeAdapter) StatsByName(name string) (netlinkx.LinkStats, error) {
	return netlinkx.LinkStats{}, nil
}
func (f *fakeAdapter) Close() error { return nil }
func (f *fakeAdapter) AddressesByName(name string) ([]netlinkx.AddrEntry, error) {
	return f.addrs[name], nil
}

type fakeDB struct {
	mu       sync.Mutex
	stored   []store.Addr
	dropped  bool
	inserted []store.Addr
	updated  []store.Addr
	deleted  []string
}

func (d *fakeDB) UpsertServer(ctx context.Context, s store.Server) error { return nil }
func (d *fakeDB) SelectAddrs(ctx context.Context, serverID string) ([]store.Addr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]store.Addr(nil), d.stored...), nil
}
func (d *fakeDB) InsertAddrs(ctx context.Context, rows []store.Addr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inserted = append(d.inserted, rows...)
	d.stored = append(d.stored, rows...)
	return nil
}
func (d *fakeDB) UpdateAddr(ctx context.Context, a store.Addr) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updated = append(d.updated, a)
	return nil
}
func (d *fakeDB) DeleteAddrs(ctx context.Context, serverID string, interfaces []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, interfaces...)
	return nil
}
func (d *fakeDB) DropAddrPartition(ctx context.Context, serverID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropped = true
	d.stored = nil
	return nil
}
func (d *fakeDB) InsertStats(ctx context.Context, rows []store.Stat) error { return nil }
func (d *fakeDB) Close() error                                            { return nil }

func TestResetAndPopulate(t *testing.T) {
	adapter := &fakeAdapter{
		links: map[string]netlinkx.LinkInfo{"eth0": {Name: "eth0"}},
		addrs: map[string][]netlinkx.AddrEntry{
			"eth0": {{Local: mustAddr("::ffff:10.0.0.1"), PrefixLen: 24}},
		},
	}
	db := &fakeDB{stored: []store.Addr{{ServerID: "s1", Interface: "stale0"}}}

	r := &Reconciler{
		Log: zap.NewNop(), Adapter: adapter, DB: db,
		ServerID: "s1", Filter: ifaces.CompileFilter(nil, nil),
	}
	if err := r.ResetAndPopulate(context.Background()); err != nil {
		t.Fatalf("ResetAndPopulate() error = %v", err)
	}
	if !db.dropped {
		t.Error("ResetAndPopulate() did not drop the existing partition")
	}
	if len(db.inserted) != 1 || db.inserted[0].Interface != "eth0" {
		t.Errorf("ResetAndPopulate() inserted = %+v, want exactly the fresh eth0 row", db.inserted)
	}
}

func TestTickAppliesUpdatesAndDeletes(t *testing.T) {
	adapter := &fakeAdapter{
		links: map[string]netlinkx.LinkInfo{"eth0": {Name: "eth0"}},
		addrs: map[string][]netlinkx.AddrEntry{
			"eth0": {{Local: mustAddr("::ffff:10.0.0.9"), PrefixLen: 24}},
		},
	}
	db := &fakeDB{stored: []store.Addr{
		{ServerID: "s1", Interface: "eth0", IPv6: []store.IPTuple{{Addr: mustAddr("::ffff:10.0.0.1"), PrefixLen: u8(24)}}},
		{ServerID: "s1", Interface: "gone0"},
	}}

	r := &Reconciler{
		Log: zap.NewNop(), Adapter: adapter, DB: db,
		ServerID: "s1", Filter: ifaces.CompileFilter(nil, nil),
	}
	r.tick(context.Background())

	if len(db.updated) != 1 || db.updated[0].Interface != "eth0" {
		t.Errorf("tick() updated = %+v, want an update for eth0", db.updated)
	}
	if len(db.deleted) != 1 || db.deleted[0] != "gone0" {
		t.Errorf("tick() deleted = %+v, want gone0", db.deleted)
	}
}

func mustAddr(s string) netip.Addr { return netip.MustParseAddr(s) }
