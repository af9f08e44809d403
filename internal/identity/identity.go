// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package identity derives a host's stable server_id and hostname
// (spec.md §4.A), independent of how the caller assembled its
// override/config values.
package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// machineIDPath and hostnamePath are vars, not consts, so tests can
// point them at a temp file instead of the real host paths.
var (
	machineIDPath = "/etc/machine-id"
	hostnamePath  = "/etc/hostname"
)

// ResolveServerID returns, in order: cliOverride if non-empty, else
// configured if non-empty, else the trimmed contents of
// /etc/machine-id, else 16 random bytes hex-encoded.
func ResolveServerID(cliOverride, configured string) (string, error) {
	if cliOverride != "" {
		return cliOverride, nil
	}
	if configured != "" {
		return configured, nil
	}
	if b, err := os.ReadFile(machineIDPath); err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("identity: generate random server_id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ResolveHostname returns, in order: cliOverride if non-empty, else
// configured if non-empty, else the trimmed contents of
// /etc/hostname. Unlike ResolveServerID there is no generated
// fallback — spec.md §4.A requires this resolution to fail fatally.
func ResolveHostname(cliOverride, configured string) (string, error) {
	if cliOverride != "" {
		return cliOverride, nil
	}
	if configured != "" {
		return configured, nil
	}
	b, err := os.ReadFile(hostnamePath)
	if err != nil {
		return "", fmt.Errorf("identity: no hostname override/config and %s is unreadable: %w", hostnamePath, err)
	}
	hostname := strings.TrimSpace(string(b))
	if hostname == "" {
		return "", fmt.Errorf("identity: %s is empty", hostnamePath)
	}
	return hostname, nil
}
