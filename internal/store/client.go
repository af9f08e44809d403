// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

package store

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	chdriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Client is the typed insert/update/delete/select surface the core
// components depend on. It deliberately hides the driver so E, F, and
// G never import the clickhouse package directly.
type Client interface {
	UpsertServer(ctx context.Context, s Server) error
	SelectAddrs(ctx context.Context, serverID string) ([]Addr, error)
	InsertAddrs(ctx context.Context, rows []Addr) error
	UpdateAddr(ctx context.Context, a Addr) error
	DeleteAddrs(ctx context.Context, serverID string, interfaces []string) error
	DropAddrPartition(ctx context.Context, serverID string) error
	InsertStats(ctx context.Context, rows []Stat) error
	Close() error
}

// Options configures the ClickHouse connection. Field names match the
// config file's [clickhouse] section (see internal/config).
type Options struct {
	Hostname string
	Port     int
	Database string
	User     string
	Password string
}

type client struct {
	conn chdriver.Conn
}

// Open dials the ClickHouse native protocol endpoint.
func Open(ctx context.Context, opts Options) (Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.Hostname, opts.Port)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse: open %s:%d: %w", opts.Hostname, opts.Port, err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse: ping %s:%d: %w", opts.Hostname, opts.Port, err)
	}
	return &client{conn: conn}, nil
}

func (c *client) Close() error { return c.conn.Close() }

func boolPtrToUint8(b *bool) *uint8 {
	if b == nil {
		return nil
	}
	var v uint8
	if *b {
		v = 1
	}
	return &v
}

func (c *client) UpsertServer(ctx context.Context, s Server) error {
	var exists uint8
	row := c.conn.QueryRow(ctx, `SELECT count() FROM server WHERE server_id = ?`, s.ServerID)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("store: check server existence: %w", err)
	}
	if exists == 0 {
		return c.conn.Exec(ctx, `INSERT INTO server
			(server_id, hostname, label, lat, lng, interface_filter, city, country, priority, center)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ServerID, s.Hostname, s.Label, s.Lat, s.Lng, s.InterfaceFilter,
			s.City, s.Country, s.Priority, boolPtrToUint8(s.Center))
	}
	return c.conn.Exec(ctx, `ALTER TABLE server UPDATE
			hostname = ?, label = ?, lat = ?, lng = ?, interface_filter = ?,
			city = ?, country = ?, priority = ?, center = ?
			WHERE server_id = ?`,
		s.Hostname, s.Label, s.Lat, s.Lng, s.InterfaceFilter,
		s.City, s.Country, s.Priority, boolPtrToUint8(s.Center), s.ServerID)
}

func tupleArray(ts []IPTuple) [][]any {
	out := make([][]any, len(ts))
	for i, t := range ts {
		var addr *netip.Addr
		if t.Addr.IsValid() {
			a := t.Addr
			addr = &a
		}
		out[i] = []any{addr, t.PrefixLen}
	}
	return out
}

func (c *client) SelectAddrs(ctx context.Context, serverID string) ([]Addr, error) {
	rows, err := c.conn.Query(ctx, `SELECT interface, ipv6, ipv6_peer FROM addr WHERE server_id = ?`, serverID)
	if err != nil {
		return nil, fmt.Errorf("store: select addrs for %s: %w", serverID, err)
	}
	defer rows.Close()

	var out []Addr
	for rows.Next() {
		var (
			iface    string
			ipv6     [][]any
			ipv6Peer [][]any
		)
		if err := rows.Scan(&iface, &ipv6, &ipv6Peer); err != nil {
			return nil, fmt.Errorf("store: scan addr row: %w", err)
		}
		out = append(out, Addr{
			ServerID:  serverID,
			Interface: iface,
			IPv6:      tuplesFromAny(ipv6),
			IPv6Peer:  tuplesFromAny(ipv6Peer),
		})
	}
	return out, rows.Err()
}

func tuplesFromAny(raw [][]any) []IPTuple {
	out := make([]IPTuple, len(raw))
	for i, r := range raw {
		if len(r) != 2 {
			continue
		}
		if a, ok := r[0].(*netip.Addr); ok && a != nil {
			out[i].Addr = *a
		}
		if p, ok := r[1].(*uint8); ok {
			out[i].PrefixLen = p
		}
	}
	return out
}

func (c *client) InsertAddrs(ctx context.Context, rows []Addr) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, `INSERT INTO addr (server_id, interface, ipv6, ipv6_peer)`)
	if err != nil {
		return fmt.Errorf("store: prepare addr batch: %w", err)
	}
	for _, a := range rows {
		if err := batch.Append(a.ServerID, a.Interface, tupleArray(a.IPv6), tupleArray(a.IPv6Peer)); err != nil {
			return fmt.Errorf("store: append addr %s/%s: %w", a.ServerID, a.Interface, err)
		}
	}
	return batch.Send()
}

func (c *client) UpdateAddr(ctx context.Context, a Addr) error {
	return c.conn.Exec(ctx, `ALTER TABLE addr UPDATE ipv6 = ?, ipv6_peer = ? WHERE server_id = ? AND interface = ?`,
		tupleArray(a.IPv6), tupleArray(a.IPv6Peer), a.ServerID, a.Interface)
}

func (c *client) DeleteAddrs(ctx context.Context, serverID string, interfaces []string) error {
	if len(interfaces) == 0 {
		return nil
	}
	clauses := make([]string, len(interfaces))
	args := make([]any, 0, len(interfaces)*2)
	for i, name := range interfaces {
		clauses[i] = "(server_id = ? AND interface = ?)"
		args = append(args, serverID, name)
	}
	query := "DELETE FROM addr WHERE " + strings.Join(clauses, " OR ")
	return c.conn.Exec(ctx, query, args...)
}

func (c *client) DropAddrPartition(ctx context.Context, serverID string) error {
	return c.conn.Exec(ctx, `ALTER TABLE addr DROP PARTITION ?`, serverID)
}

func (c *client) InsertStats(ctx context.Context, rows []Stat) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, `INSERT INTO stat
		(server_id, interface, timestamp, rx, tx, rx_p, tx_p, rx_d, tx_d, rx_e, tx_e)`)
	if err != nil {
		return fmt.Errorf("store: prepare stat batch: %w", err)
	}
	for _, s := range rows {
		if err := batch.Append(s.ServerID, s.Interface, s.Timestamp,
			s.Rx, s.Tx, s.RxP, s.TxP, s.RxD, s.TxD, s.RxE, s.TxE); err != nil {
			return fmt.Errorf("store: append stat %s/%s: %w", s.ServerID, s.Interface, err)
		}
	}
	return batch.Send()
}
