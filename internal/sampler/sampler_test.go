// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package sampler

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/netifmon/netifmond/internal/ifaces"
	"github.com/netifmon/netifmond/internal/netlinkx"
	"github.com/netifmon/netifmond/internal/store"
)

type fakeAdapter struct {
	mu    sync.Mutex
	links []netlinkx.LinkInfo
	stats map[string]netlinkx.LinkStats
}

func (f *fakeAdapter) ListLinks() ([]netlinkx.LinkInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]netlinkx.LinkInfo(nil), f.links...), nil
}
func (f *fakeAdapter) LinkByName(name string) (netlinkx.LinkInfo, error) {
	return netlinkx.LinkInfo{}, nil
}
func (f *fakeAdapter) IndexForName(name string) (uint32, error) { return 0, nil }
func (f *fakeAdapter) StatsByName(name string) (netlinkx.LinkStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[name], nil
}
func (f *fakeAdapter) AddressesByName(name string) ([]netlinkx.AddrEntry, error) { return nil, nil }
func (f *fakeAdapter) Close() error                                             { return nil }

type fakeDB struct {
	mu   sync.Mutex
	rows []store.Stat
}

func (d *fakeDB) UpsertServer(ctx context.Context, s store.Server) error { return nil }
func (d *fakeDB) SelectAddrs(ctx context.Context, serverID string) ([]store.Addr, error) {
	return nil, nil
}
func (d *fakeDB) InsertAddrs(ctx context.Context, rows []store.Addr) error { return nil }
func (d *fakeDB) UpdateAddr(ctx context.Context, a store.Addr) error       { return nil }
func (d *fakeDB) DeleteAddrs(ctx context.Context, serverID string, interfaces []string) error {
	return nil
}
func (d *fakeDB) DropAddrPartition(ctx context.Context, serverID string) error { return nil }
func (d *fakeDB) InsertStats(ctx context.Context, rows []store.Stat) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = append(d.rows, rows...)
	return nil
}
func (d *fakeDB) Close() error { return nil }

func TestSampleOnceSkipsFirstObservation(t *testing.T) {
	adapter := &fakeAdapter{
		links: []netlinkx.LinkInfo{{Name: "eth0"}},
		stats: map[string]netlinkx.LinkStats{"eth0": {Name: "eth0", RxBytes: 1000}},
	}
	db := &fakeDB{}
	s, err := NewSampler(zap.NewNop(), adapter, db, "srv1", ifaces.CompileFilter(nil, nil))
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}

	s.sampleOnce(context.Background())
	if len(db.rows) != 0 {
		t.Fatalf("sampleOnce() inserted %d rows on the first observation, want 0 (no previous sample yet)", len(db.rows))
	}

	adapter.mu.Lock()
	adapter.stats["eth0"] = netlinkx.LinkStats{Name: "eth0", RxBytes: 1500}
	adapter.mu.Unlock()

	s.sampleOnce(context.Background())
	if len(db.rows) != 1 {
		t.Fatalf("sampleOnce() inserted %d rows on the second observation, want 1", len(db.rows))
	}
	if db.rows[0].Rx != 500 {
		t.Errorf("sampleOnce() delta Rx = %d, want 500", db.rows[0].Rx)
	}
}

func TestRefreshKeepsOldListOnEmptyMatch(t *testing.T) {
	adapter := &fakeAdapter{links: []netlinkx.LinkInfo{{Name: "eth0"}}}
	db := &fakeDB{}
	filter := ifaces.CompileFilter(nil, nil)
	s, err := NewSampler(zap.NewNop(), adapter, db, "srv1", filter)
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}

	adapter.mu.Lock()
	adapter.links = nil // next ListLinks() returns nothing to match
	adapter.mu.Unlock()

	s.refresh(context.Background())
	if len(s.names) != 1 || s.names[0] != "eth0" {
		t.Errorf("refresh() names = %v, want the previous list kept intact", s.names)
	}
}
