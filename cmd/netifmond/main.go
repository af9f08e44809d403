// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// The netifmond binary registers this host in a central ClickHouse
// fleet database, discovers its network interfaces over netlink, and
// continuously reconciles and samples them. See SPEC_FULL.md.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/netifmon/netifmond/internal/config"
	"github.com/netifmon/netifmond/internal/debugsrv"
	"github.com/netifmon/netifmond/internal/identity"
	"github.com/netifmon/netifmond/internal/ifaces"
	"github.com/netifmon/netifmond/internal/logging"
	"github.com/netifmon/netifmond/internal/netlinkx"
	"github.com/netifmon/netifmond/internal/orchestrator"
	"github.com/netifmon/netifmond/internal/reconcile"
	"github.com/netifmon/netifmond/internal/registrar"
	"github.com/netifmon/netifmond/internal/sampler"
	"github.com/netifmon/netifmond/internal/store"
)

// debugListenAddr is the loopback-only address the debug/metrics
// surface binds to (component M).
const debugListenAddr = "127.0.0.1:6060"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "netifmond:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	log, flush, err := logging.New(cfg.LogsPath)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer flush()

	serverID, err := identity.ResolveServerID(cfg.Server.ServerID, cfg.Server.ServerID)
	if err != nil {
		log.Error("failed to resolve server_id", zap.Error(err))
		return err
	}
	cfg.Server.ServerID = serverID

	hostname, err := identity.ResolveHostname(cfg.Server.Hostname, cfg.Server.Hostname)
	if err != nil {
		log.Error("failed to resolve hostname", zap.Error(err))
		return err
	}
	cfg.Server.Hostname = hostname

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(ctx, store.Options{
		Hostname: cfg.ClickHouse.Hostname,
		Port:     cfg.ClickHouse.Port,
		Database: cfg.ClickHouse.DB,
		User:     cfg.ClickHouse.User,
		Password: cfg.ClickHouse.Password,
	})
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()

	nl, err := netlinkx.Dial()
	if err != nil {
		log.Error("failed to open netlink connection", zap.Error(err))
		return err
	}
	defer nl.Close()

	if err := registrar.Register(ctx, db, cfg.Server); err != nil {
		log.Error("server registration failed", zap.Error(err))
		return err
	}
	log.Info("server registered", zap.String("server_id", cfg.Server.ServerID), zap.String("hostname", cfg.Server.Hostname))

	filter := ifaces.CompileFilter(log, cfg.Server.InterfaceFilter)

	metrics, reg := debugsrv.NewMetrics()

	rec := &reconcile.Reconciler{
		Log:      log,
		Adapter:  nl,
		DB:       db,
		ServerID: cfg.Server.ServerID,
		Filter:   filter,
		Metrics:  metrics,
	}
	if err := rec.ResetAndPopulate(ctx); err != nil {
		log.Error("initial reconcile failed", zap.Error(err))
		return err
	}
	log.Info("initial reconcile complete")

	samp, err := sampler.NewSampler(log, nl, db, cfg.Server.ServerID, filter)
	if err != nil {
		log.Error("failed to start sampler", zap.Error(err))
		return err
	}
	samp.Metrics = metrics

	dbg := &debugsrv.Server{Log: log, Addr: debugListenAddr, Reg: reg}
	go func() { _ = dbg.Run(ctx) }()

	err = orchestrator.Run(ctx, log, rec, samp)
	if ctx.Err() != nil {
		log.Info("shutting down on signal")
		return nil
	}
	return err
}
