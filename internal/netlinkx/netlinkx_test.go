// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package netlinkx

import (
	"net"
	"net/netip"
	"testing"
)

func TestToMappedAddr(t *testing.T) {
	tests := []struct {
		name string
		ip   net.IP
		want netip.Addr
	}{
		{
			name: "plain IPv4 is mapped into ::ffff:a.b.c.d form",
			ip:   net.IPv4(10, 0, 0, 1),
			want: netip.MustParseAddr("::ffff:10.0.0.1"),
		},
		{
			name: "already-IPv6 address passes through unchanged",
			ip:   net.ParseIP("2001:db8::1"),
			want: netip.MustParseAddr("2001:db8::1"),
		},
		{
			name: "nil IP yields the invalid zero Addr",
			ip:   nil,
			want: netip.Addr{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toMappedAddr(tt.ip)
			if got != tt.want {
				t.Errorf("toMappedAddr(%v) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestIsLinkLocal64(t *testing.T) {
	tests := []struct {
		name string
		e    AddrEntry
		want bool
	}{
		{
			name: "fe80::/10 at /64 on Local is dropped",
			e:    AddrEntry{Local: netip.MustParseAddr("fe80::1"), PrefixLen: 64},
			want: true,
		},
		{
			name: "fe80::/10 at /64 on Address is dropped",
			e:    AddrEntry{Address: netip.MustParseAddr("fe80::2"), PrefixLen: 64},
			want: true,
		},
		{
			name: "fe80::/10 at a non-/64 prefix is retained",
			e:    AddrEntry{Local: netip.MustParseAddr("fe80::1"), PrefixLen: 128},
			want: false,
		},
		{
			name: "a /64 global address is retained",
			e:    AddrEntry{Local: netip.MustParseAddr("2001:db8::1"), PrefixLen: 64},
			want: false,
		},
		{
			name: "a mapped IPv4 address at /64 is retained",
			e:    AddrEntry{Local: netip.MustParseAddr("::ffff:10.0.0.1"), PrefixLen: 64},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLinkLocal64(tt.e); got != tt.want {
				t.Errorf("isLinkLocal64(%+v) = %v, want %v", tt.e, got, tt.want)
			}
		})
	}
}
