// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package config assembles a ServerConfig from command-line flags,
// CLICKHOUSE_-prefixed environment variables, and a TOML file, in
// that precedence order (spec.md §6).
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/fftoml"

	"github.com/netifmon/netifmond/internal/store"
)

// ErrInvalidConfig is wrapped by every validation failure Load returns.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ClickHouse holds the resolved database connection parameters.
type ClickHouse struct {
	User     string
	Password string
	DB       string
	Hostname string
	Port     int
}

// ServerConfig is the fully resolved configuration the core consumes:
// server identity, filter rules, logging destination, and the
// database endpoint.
type ServerConfig struct {
	Server     store.Server
	ClickHouse ClickHouse
	LogsPath   string
	ConfigPath string
}

// Load parses args (normally os.Args[1:]) into a ServerConfig,
// applying flag > env (CLICKHOUSE_ prefix) > Config.toml > default
// precedence via github.com/peterbourgon/ff.
func Load(args []string) (ServerConfig, error) {
	fs := flag.NewFlagSet("netifmond", flag.ContinueOnError)

	var (
		serverID  = fs.String("server_id", "", "stable server identifier; defaults to /etc/machine-id or a random value")
		hostname  = fs.String("hostname", "", "hostname; defaults to /etc/hostname")
		label     = fs.String("label", "", "human-readable label for this server (required)")
		ifFilter  = fs.String("interface_filter", "", "comma-separated list of interface-name regexes; empty elements are wildcards")
		lat       = fs.Float64("lat", 0, "latitude (required)")
		lng       = fs.Float64("lng", 0, "longitude (required)")
		city      = fs.String("city", "", "city name")
		country   = fs.String("country", "", "country name")
		priority  = fs.Uint("priority", 0, "server priority")
		center    = fs.Bool("center", false, "whether this server is a network center")
		logsPath  = fs.String("logs_path", "/var/log/netifmond/netifmond.log", "rolling log file path")
		configPth = fs.String("config", "Config.toml", "config file path")

		chUser = fs.String("clickhouse_user", "default", "ClickHouse user")
		chPass = fs.String("clickhouse_password", "", "ClickHouse password")
		chDB   = fs.String("clickhouse_db", "default", "ClickHouse database")
		chHost = fs.String("clickhouse_hostname", "127.0.0.1", "ClickHouse hostname")
		chPort = fs.Int("clickhouse_port", 9000, "ClickHouse native protocol port")
	)

	if err := ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(fftoml.Parser),
		ff.WithAllowMissingConfigFile(true),
		ff.WithEnvVarPrefix("CLICKHOUSE"),
	); err != nil {
		return ServerConfig{}, fmt.Errorf("config: parse: %w", err)
	}

	cfg := ServerConfig{
		Server: store.Server{
			ServerID:        *serverID,
			Hostname:        *hostname,
			Label:           *label,
			Lat:             *lat,
			Lng:             *lng,
			InterfaceFilter: parseFilter(*ifFilter),
		},
		ClickHouse: ClickHouse{
			User:     *chUser,
			Password: *chPass,
			DB:       *chDB,
			Hostname: *chHost,
			Port:     *chPort,
		},
		LogsPath:   *logsPath,
		ConfigPath: *configPth,
	}
	if *city != "" {
		cfg.Server.City = city
	}
	if *country != "" {
		cfg.Server.Country = country
	}
	if *priority != 0 {
		p := uint8(*priority)
		cfg.Server.Priority = &p
	}
	cfg.Server.Center = center

	if err := validate(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// parseFilter splits a comma-separated --interface_filter value into
// the []*string "optional pattern" representation spec.md §3
// describes: an empty element is the None/wildcard rule.
func parseFilter(raw string) []*string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]*string, len(parts))
	for i, p := range parts {
		if p == "" {
			out[i] = nil
			continue
		}
		v := p
		out[i] = &v
	}
	return out
}

func validate(cfg ServerConfig) error {
	var missing []string
	if cfg.Server.Label == "" {
		missing = append(missing, "label")
	}
	if cfg.Server.Lat == 0 && cfg.Server.Lng == 0 {
		missing = append(missing, "lat/lng")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required field(s): %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}
