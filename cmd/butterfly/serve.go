package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/api"
	"github.com/talgya/butterfly-city/internal/config"
	"github.com/talgya/butterfly-city/internal/engine"
	"github.com/talgya/butterfly-city/internal/entropy"
	"github.com/talgya/butterfly-city/internal/persistence"
	"github.com/talgya/butterfly-city/internal/world"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	var extra int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the town over HTTP with a live event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg, extra)
		},
	}
	cmd.Flags().StringVar(&cfg.HTTPAddr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&cfg.ArchivePath, "archive", "", "SQLite event archive path (empty disables)")
	cmd.Flags().IntVar(&extra, "extra", 0, "random villagers to add after the starter cast")
	cmd.Flags().BoolVar(&cfg.TrustProxy, "trust-proxy", false, "take client IPs from X-Forwarded-For / X-Real-IP")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, extra int) error {
	seed := cfg.EffectiveSeed()
	rng := entropy.FromConfig(cfg.RandomOrgKey, seed)
	slog.Info("Butterfly City starting", "seed", seed, "max_events", cfg.MaxEvents, "random_org", cfg.RandomOrgKey != "")

	town := engine.NewTown(engine.TownConfig{Seed: seed, MaxEvents: cfg.MaxEvents, Rand: rng})

	// ── Archive (subscribed before anyone arrives) ───────────────────
	var archive *persistence.Archive
	if cfg.ArchivePath != "" {
		var err error
		archive, err = persistence.Open(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer archive.Close()
		if err := archive.SaveMeta("seed", strconv.FormatInt(seed, 10)); err != nil {
			slog.Warn("failed to record seed", "error", err)
		}
		town.Events().Subscribe(archive.Record)
	}

	// ── Villagers ────────────────────────────────────────────────────
	town.Populate(agents.StarterCast)
	if extra > 0 {
		town.AddRandom(extra)
	}

	// ── Plaza and clock ──────────────────────────────────────────────
	plaza := world.NewPlaza(seed)
	town.WithLock(plaza.Place)
	slog.Info("plaza ready", "plaza", plaza.String())

	clock := engine.NewClock()
	clock.Interval = cfg.Tick
	clock.OnTick = func(_ uint64, delta time.Duration) {
		town.WithLock(func(vs []*agents.Villager) { plaza.Step(vs, delta) })
	}
	clock.OnSecond = town.Idle
	go clock.Run(ctx)

	// ── HTTP ─────────────────────────────────────────────────────────
	server := api.NewServer(api.Config{
		Town:        town,
		Plaza:       plaza,
		Archive:     archive,
		Addr:        cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOrigins,
		NudgeRate:   cfg.NudgeRate,
		TrustProxy:  cfg.TrustProxy,
	})
	err := server.ListenAndServe(ctx)
	clock.Stop()

	slog.Info("Butterfly City stopped",
		"villagers", len(town.Villagers()),
		"events", town.Events().Len(),
		"uptime", town.Uptime().Round(time.Second))
	return err
}
