// Command butterfly runs Butterfly City: a scripted demo, the drama
// scenario, or the HTTP server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/butterfly-city/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:   "butterfly",
		Short: "Butterfly City - where tiny nudges create big stories",
		Long: `Butterfly City is a social simulation of villagers with traits,
moods, and relationships. You nudge them; their personalities decide
what happens next.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("seed") {
				loaded.Seed = cfg.Seed
			}
			if flags.Changed("max-events") {
				loaded.MaxEvents = cfg.MaxEvents
			}
			if flags.Changed("log-level") {
				loaded.LogLevel = cfg.LogLevel
			}
			if flags.Changed("addr") {
				loaded.HTTPAddr = cfg.HTTPAddr
			}
			if flags.Changed("archive") {
				loaded.ArchivePath = cfg.ArchivePath
			}
			if flags.Changed("trust-proxy") {
				loaded.TrustProxy = cfg.TrustProxy
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			cfg = loaded

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: cfg.SlogLevel(),
			}))
			slog.SetDefault(logger)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.Int64Var(&cfg.Seed, "seed", 0, "random seed (0 = time-based)")
	pf.IntVar(&cfg.MaxEvents, "max-events", 100, "event log capacity")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "debug, info, warn, or error")

	root.AddCommand(demoCmd(&cfg))
	root.AddCommand(scenarioCmd(&cfg))
	root.AddCommand(serveCmd(&cfg))
	return root
}
