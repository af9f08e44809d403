// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package store models the fleet-wide ClickHouse schema (server, addr,
// stat) and exposes a narrow Client interface the core reconciler,
// sampler, and registrar depend on instead of the driver directly.
package store

import "net/netip"

// Server is one host running netifmond.
type Server struct {
	ServerID        string
	Hostname        string
	Label           string
	Lat             float64
	Lng             float64
	InterfaceFilter []*string // nil entry == wildcard "None" rule
	City            *string
	Country         *string
	Priority        *uint8
	Center          *bool
}

// IPTuple is one element of an Addr.IPv6 / Addr.IPv6Peer array: an
// optional address paired with an optional prefix length. The zero
// Addr (!Valid()) represents the Rust source's Option::None.
type IPTuple struct {
	Addr      netip.Addr
	PrefixLen *uint8
}

// Addr is one interface's address set on one server. IPv4 addresses
// are always stored mapped into IPv6 (Addr.Is4In6()).
type Addr struct {
	ServerID  string
	Interface string
	IPv6      []IPTuple
	IPv6Peer  []IPTuple
}

// Stat is one delta sample for one interface between two sampler ticks.
type Stat struct {
	ServerID  string
	Interface string
	Timestamp uint32
	Rx, Tx    uint64
	RxP, TxP  uint64
	RxD, TxD  uint64
	RxE, TxE  uint64
}

const createServerTable = `
CREATE TABLE IF NOT EXISTS server (
	server_id String,
	hostname String,
	label String,
	lat Float64,
	lng Float64,
	interface_filter Array(Nullable(String)),
	city Nullable(String),
	country Nullable(String),
	priority Nullable(UInt8),
	center Nullable(UInt8)
) ENGINE = ReplacingMergeTree
ORDER BY server_id`

const createAddrTable = `
CREATE TABLE IF NOT EXISTS addr (
	server_id String,
	interface String,
	ipv6 Array(Tuple(Nullable(IPv6), Nullable(UInt8))),
	ipv6_peer Array(Tuple(Nullable(IPv6), Nullable(UInt8)))
) ENGINE = ReplacingMergeTree
PARTITION BY server_id
ORDER BY (server_id, interface)`

const createStatTable = `
CREATE TABLE IF NOT EXISTS stat (
	server_id String,
	interface String,
	timestamp DateTime,
	rx UInt64,
	tx UInt64,
	rx_p UInt64,
	tx_p UInt64,
	rx_d UInt64,
	tx_d UInt64,
	rx_e UInt64,
	tx_e UInt64
) ENGINE = MergeTree
PARTITION BY server_id
ORDER BY (server_id, interface, timestamp)`

// Schema is the full set of DDL statements, in creation order. The
// daemon itself never executes them; the tables must already exist.
var Schema = []string{createServerTable, createAddrTable, createStatTable}
