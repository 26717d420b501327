package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ik-labs/route-pilot/pkg/agentsession"
	"github.com/ik-labs/route-pilot/pkg/config"
	"github.com/ik-labs/route-pilot/pkg/gateway"
	"github.com/ik-labs/route-pilot/pkg/inference"
	"github.com/ik-labs/route-pilot/pkg/ledger"
	"github.com/ik-labs/route-pilot/pkg/ledger/retention"
	"github.com/ik-labs/route-pilot/pkg/policy/watcher"
	"github.com/ik-labs/route-pilot/pkg/quota"
	"github.com/ik-labs/route-pilot/pkg/rates"
	"github.com/ik-labs/route-pilot/pkg/receipts"
	"github.com/ik-labs/route-pilot/pkg/router"
	"github.com/ik-labs/route-pilot/pkg/subagent"
	"github.com/ik-labs/route-pilot/pkg/telemetry/metrics"
)

// app bundles every collaborator a routepilot subcommand needs. Every
// subcommand builds one via newApp instead of repeating the wiring
// inline, sharing it across infer/chat/chain/evidence.
type app struct {
	cfg     *config.Config
	ledger  *ledger.Ledger
	metrics *metrics.Metrics

	gateway *gateway.Client
	router  *router.Supervisor
	quota   *quota.Store
	rates   *rates.Table

	receipts *receipts.Recorder
	policies *watcher.Store
	pruner   *retention.Pruner

	agents     *subagent.Registry
	fetcher    *subagent.Fetcher
	subagents  *subagent.Controller
	inference  *inference.Driver
	agentsess  *agentsession.Driver
}

// newApp loads config and wires every collaborator. The returned close
// func stops the policy watcher and retention scheduler and closes the
// ledger; callers defer it.
func newApp(ctx context.Context) (*app, func(), error) {
	if err := config.Initialize(); err != nil {
		return nil, nil, err
	}
	cfg := config.Get()

	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, nil, err
	}

	m := metrics.New(prometheus.NewRegistry())

	gw := gateway.New(cfg.GatewayBaseURL, cfg.GatewayAPIKey, nil)
	sup := router.New(gw, l, m.Router, router.Flags{PrimaryStall: cfg.ChaosPrimaryStall, HTTP5xx: cfg.ChaosHTTP5xx})
	q := quota.New(l, m.Quota)
	rt := rates.New(nil)

	rec := receipts.New(l, receipts.Config{
		Secret:       cfg.JWTSecret,
		Redact:       cfg.Redact,
		RedactFields: cfg.RedactFields,
		MirrorDir:    mirrorDirOrEmpty(cfg),
		Metrics:      m.Receipts,
	})

	policies, err := watcher.New(cfg.PolicyDir, slog.Default())
	if err != nil {
		l.Close()
		return nil, nil, err
	}
	go func() {
		if err := policies.Watch(ctx); err != nil {
			slog.Error("policy watcher stopped", "error", err)
		}
	}()

	agentSpecs, err := subagent.LoadSpecDir(cfg.AgentsDir)
	if err != nil {
		policies.Stop()
		l.Close()
		return nil, nil, err
	}
	agents := subagent.NewRegistry(agentSpecs)
	fetcher := subagent.NewFetcher(cfg.HTTPFetchAllowlist)

	ctrl := subagent.New(sup, agents, policies, rec, rt, l, fetcher, subagent.Config{
		HTTPFetchURLTemplate: cfg.HTTPFetchURLTemplate,
		HTTPFetchMax:         cfg.HTTPFetchMax,
		DryRun:               cfg.DryRun,
		SnapshotInput:        cfg.SnapshotInput,
	})

	infd := inference.New(sup, q, rec, rt, l, gw, cfg.UsageProbe, cfg.SnapshotInput)
	sessd := agentsession.New(sup, q, rec, rt, l, agents, policies, cfg.SnapshotInput)

	pruner := retention.NewPruner(l, retention.DefaultConfig())
	if err := pruner.Start(ctx); err != nil {
		slog.Warn("retention scheduler failed to start", "error", err)
	}

	a := &app{
		cfg: cfg, ledger: l, metrics: m,
		gateway: gw, router: sup, quota: q, rates: rt,
		receipts: rec, policies: policies, pruner: pruner,
		agents: agents, fetcher: fetcher, subagents: ctrl,
		inference: infd, agentsess: sessd,
	}

	closeFn := func() {
		pruner.Stop()
		policies.Stop()
		l.Close()
	}
	return a, closeFn, nil
}

func mirrorDirOrEmpty(cfg *config.Config) string {
	if !cfg.MirrorJSON {
		return ""
	}
	return cfg.MirrorDir
}
