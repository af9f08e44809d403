// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package netlinkx wraps the kernel RTM link/address facility used to
// discover interfaces, their addresses, and their Stats64 counters.
package netlinkx

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/jsimonetti/rtnetlink"
	"golang.org/x/sys/unix"
)

// ErrRequestFailed is returned when a netlink request succeeds at the
// transport level but yields data the caller cannot act on: an empty
// address set, or a link with no Stats64 attribute.
var ErrRequestFailed = errors.New("netlinkx: request failed")

// LinkInfo is the subset of a LinkMessage the filter and sampler need.
type LinkInfo struct {
	Name       string
	Index      uint32
	IsUp       bool
	IsLoopback bool
}

// LinkStats is one link's Stats64 snapshot.
type LinkStats struct {
	Name      string
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
	RxDropped uint64
	TxDropped uint64
	RxErrors  uint64
	TxErrors  uint64
}

// AddrEntry is one raw address entry as returned by RTM_GETADDR,
// before the address collector folds it into a store.Addr.
type AddrEntry struct {
	Address   netip.Addr // peer/remote address, if any
	Local     netip.Addr // local address, if any
	PrefixLen uint8
}

// Adapter is the netlink surface the core depends on. Implemented by
// *Conn in production and by a fake in tests.
type Adapter interface {
	ListLinks() ([]LinkInfo, error)
	LinkByName(name string) (LinkInfo, error)
	IndexForName(name string) (uint32, error)
	StatsByName(name string) (LinkStats, error)
	AddressesByName(name string) ([]AddrEntry, error)
	Close() error
}

// Conn is an Adapter backed by a real rtnetlink connection.
type Conn struct {
	conn *rtnetlink.Conn
}

// Dial opens a netlink route/address socket.
func Dial() (*Conn, error) {
	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("netlinkx: dial: %w", err)
	}
	return &Conn{conn: conn}, nil
}

func (c *Conn) Close() error { return c.conn.Close() }

func interfaceName(attrs *rtnetlink.LinkAttributes) string {
	if attrs == nil {
		return ""
	}
	return attrs.Name
}

func isLoopback(msg rtnetlink.LinkMessage) bool {
	return msg.Flags&unix.IFF_LOOPBACK != 0
}

func toLinkInfo(msg rtnetlink.LinkMessage) LinkInfo {
	return LinkInfo{
		Name:       interfaceName(msg.Attributes),
		Index:      msg.Index,
		IsUp:       msg.Flags&unix.IFF_UP != 0,
		IsLoopback: isLoopback(msg),
	}
}

// ListLinks enumerates every link the kernel knows about.
func (c *Conn) ListLinks() ([]LinkInfo, error) {
	msgs, err := c.conn.Link.List()
	if err != nil {
		return nil, fmt.Errorf("netlinkx: list links: %w", err)
	}
	out := make([]LinkInfo, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toLinkInfo(m))
	}
	return out, nil
}

// LinkByName resolves a single link by its IfName attribute.
func (c *Conn) LinkByName(name string) (LinkInfo, error) {
	links, err := c.ListLinks()
	if err != nil {
		return LinkInfo{}, err
	}
	for _, l := range links {
		if l.Name == name {
			return l, nil
		}
	}
	return LinkInfo{}, fmt.Errorf("netlinkx: no such link %q", name)
}

// IndexForName resolves a link's kernel ifindex by name.
func (c *Conn) IndexForName(name string) (uint32, error) {
	l, err := c.LinkByName(name)
	if err != nil {
		return 0, err
	}
	return l.Index, nil
}

// StatsByName fetches a link's Stats64 counters.
func (c *Conn) StatsByName(name string) (LinkStats, error) {
	msgs, err := c.conn.Link.List()
	if err != nil {
		return LinkStats{}, fmt.Errorf("netlinkx: list links for stats: %w", err)
	}
	for _, m := range msgs {
		if interfaceName(m.Attributes) != name {
			continue
		}
		if m.Attributes == nil || m.Attributes.Stats64 == nil {
			return LinkStats{}, fmt.Errorf("%w: %s has no Stats64 attribute", ErrRequestFailed, name)
		}
		s := m.Attributes.Stats64
		return LinkStats{
			Name:      name,
			RxBytes:   s.RXBytes,
			TxBytes:   s.TXBytes,
			RxPackets: s.RXPackets,
			TxPackets: s.TXPackets,
			RxDropped: s.RXDropped,
			TxDropped: s.TXDropped,
			RxErrors:  s.RXErrors,
			TxErrors:  s.TXErrors,
		}, nil
	}
	return LinkStats{}, fmt.Errorf("%w: no such link %s", ErrRequestFailed, name)
}

// linkLocalPrefix is fe80::/10.
var linkLocalPrefix = netip.MustParsePrefix("fe80::/10")

// AddressesByName fetches every address assigned to the named link,
// dropping fe80::/10 entries with a /64 prefix (kernel-assigned
// link-local, never persisted). IPv4 addresses arrive from the kernel
// already as plain 4-byte addresses and are mapped to IPv4-in-IPv6.
func (c *Conn) AddressesByName(name string) ([]AddrEntry, error) {
	idx, err := c.IndexForName(name)
	if err != nil {
		return nil, err
	}
	msgs, err := c.conn.Address.List()
	if err != nil {
		return nil, fmt.Errorf("netlinkx: list addresses: %w", err)
	}
	var out []AddrEntry
	for _, m := range msgs {
		if m.Index != idx {
			continue
		}
		entry := AddrEntry{PrefixLen: m.PrefixLength}
		if m.Attributes != nil {
			entry.Address = toMappedAddr(m.Attributes.Address)
			entry.Local = toMappedAddr(m.Attributes.Local)
		}
		if isLinkLocal64(entry) {
			continue
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s has no addresses", ErrRequestFailed, name)
	}
	return out, nil
}

func isLinkLocal64(e AddrEntry) bool {
	if e.PrefixLen != 64 {
		return false
	}
	for _, a := range []netip.Addr{e.Address, e.Local} {
		if a.IsValid() && linkLocalPrefix.Contains(a) {
			return true
		}
	}
	return false
}

// toMappedAddr converts a raw kernel address into netip.Addr, mapping
// bare IPv4 addresses into the ::ffff:a.b.c.d form spec.md requires.
func toMappedAddr(ip net.IP) netip.Addr {
	if ip == nil {
		return netip.Addr{}
	}
	if v4 := ip.To4(); v4 != nil {
		var b [16]byte
		b[10], b[11] = 0xff, 0xff
		copy(b[12:], v4)
		return netip.AddrFrom16(b)
	}
	a, ok := netip.AddrFromSlice(ip.To16())
	if !ok {
		return netip.Addr{}
	}
	return a
}
