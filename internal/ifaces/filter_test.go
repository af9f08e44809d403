// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package ifaces

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/netifmon/netifmond/internal/netlinkx"
)

func strp(s string) *string { return &s }

func TestCompileFilterSelect(t *testing.T) {
	links := []netlinkx.LinkInfo{
		{Name: "lo", IsLoopback: true},
		{Name: "eth0"},
		{Name: "eth1"},
		{Name: "wlan0"},
	}

	tests := []struct {
		name     string
		patterns []*string
		want     []string
	}{
		{
			name:     "nil patterns is wildcard",
			patterns: nil,
			want:     []string{"eth0", "eth1", "wlan0"},
		},
		{
			name:     "a None entry anywhere is a wildcard",
			patterns: []*string{strp("^eth.*"), nil},
			want:     []string{"eth0", "eth1", "wlan0"},
		},
		{
			name:     "explicit patterns only admit matches",
			patterns: []*string{strp("^eth.*")},
			want:     []string{"eth0", "eth1"},
		},
		{
			name:     "no pattern matches means empty selection",
			patterns: []*string{strp("^nomatch$")},
			want:     nil,
		},
		{
			name:     "uncompilable pattern never matches but does not abort the filter",
			patterns: []*string{strp("(unterminated"), strp("^wlan0$")},
			want:     []string{"wlan0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := CompileFilter(nil, tt.patterns)
			got := f.Select(links)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Select() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectAlwaysExcludesLoopback(t *testing.T) {
	links := []netlinkx.LinkInfo{{Name: "lo", IsLoopback: true}}
	f := CompileFilter(nil, nil)
	if got := f.Select(links); got != nil {
		t.Errorf("Select() = %v, want nil (loopback must never be admitted)", got)
	}
}
