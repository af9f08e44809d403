// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package sampler

import (
	"github.com/netifmon/netifmond/internal/netlinkx"
	"github.com/netifmon/netifmond/internal/store"
)

// delta computes current-minus-previous for every counter. ok is false
// when any counter would underflow (current < previous) — a interface
// flap or driver reload reset the kernel's Stats64 counters. Per
// spec.md §9's resolution of the counter-underflow open question, the
// caller must skip emitting a Stat row in that case rather than
// producing a near-2^64 wrapped value.
func delta(serverID string, ts uint32, prev, cur netlinkx.LinkStats) (st store.Stat, ok bool) {
	sub := func(a, b uint64) (uint64, bool) {
		if a < b {
			return 0, false
		}
		return a - b, true
	}

	var good bool
	st.ServerID = serverID
	st.Interface = cur.Name
	st.Timestamp = ts

	if st.Rx, good = sub(cur.RxBytes, prev.RxBytes); !good {
		return store.Stat{}, false
	}
	if st.Tx, good = sub(cur.TxBytes, prev.TxBytes); !good {
		return store.Stat{}, false
	}
	if st.RxP, good = sub(cur.RxPackets, prev.RxPackets); !good {
		return store.Stat{}, false
	}
	if st.TxP, good = sub(cur.TxPackets, prev.TxPackets); !good {
		return store.Stat{}, false
	}
	if st.RxD, good = sub(cur.RxDropped, prev.RxDropped); !good {
		return store.Stat{}, false
	}
	if st.TxD, good = sub(cur.TxDropped, prev.TxDropped); !good {
		return store.Stat{}, false
	}
	if st.RxE, good = sub(cur.RxErrors, prev.RxErrors); !good {
		return store.Stat{}, false
	}
	if st.TxE, good = sub(cur.TxErrors, prev.TxErrors); !good {
		return store.Stat{}, false
	}
	return st, true
}
