package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/config"
	"github.com/talgya/butterfly-city/internal/engine"
	"github.com/talgya/butterfly-city/internal/entropy"
	"github.com/talgya/butterfly-city/internal/render"
)

// call is one nudge addressed by villager name.
type call struct {
	kind   engine.NudgeKind
	names  []string
	silent bool // run without printing consequences
}

// beat is one titled step of a script.
type beat struct {
	heading string
	calls   []call
	scene   bool
}

var demoScript = []beat{
	{heading: "NUDGE 1: Introduce Alice and Bob", scene: true, calls: []call{
		{kind: engine.NudgeIntroduce, names: []string{"Alice", "Bob"}},
	}},
	{heading: "NUDGE 2: Introduce Carol and Dave", scene: true, calls: []call{
		{kind: engine.NudgeIntroduce, names: []string{"Carol", "Dave"}},
	}},
	{heading: "NUDGE 3: Carol gossips to Alice about Bob", scene: true, calls: []call{
		{kind: engine.NudgeGossip, names: []string{"Carol", "Alice", "Bob"}},
	}},
	{heading: "NUDGE 4: Encourage romance between Carol and Dave", scene: true, calls: []call{
		{kind: engine.NudgeRomance, names: []string{"Carol", "Dave"}},
	}},
	{heading: "NUDGE 5: Introduce Eve to everyone", scene: true, calls: []call{
		{kind: engine.NudgeIntroduce, names: []string{"Eve", "Alice"}},
		{kind: engine.NudgeIntroduce, names: []string{"Eve", "Bob"}},
	}},
	{heading: "NUDGE 6: Dave and Bob compete", scene: true, calls: []call{
		{kind: engine.NudgeIntroduce, names: []string{"Dave", "Bob"}, silent: true},
		{kind: engine.NudgeCompetition, names: []string{"Dave", "Bob"}},
	}},
	{heading: "NUDGE 7: Eve tries to gossip (but she's a peacemaker!)", scene: true, calls: []call{
		{kind: engine.NudgeGossip, names: []string{"Eve", "Carol", "Dave"}},
	}},
}

var dramaScript = []beat{
	{heading: "The jock and artist meet at an art show", calls: []call{
		{kind: engine.NudgeIntroduce, names: []string{"Jake", "Aria"}},
	}},
	{heading: "The nerd and artist bond over creativity", calls: []call{
		{kind: engine.NudgeIntroduce, names: []string{"Nina", "Aria"}},
	}},
	{heading: "Love triangle? The jock makes a move", calls: []call{
		{kind: engine.NudgeRomance, names: []string{"Jake", "Aria"}},
	}},
	{heading: "The rebel spreads rumors", calls: []call{
		{kind: engine.NudgeIntroduce, names: []string{"Rex", "Nina"}, silent: true},
		{kind: engine.NudgeGossip, names: []string{"Rex", "Nina", "Jake"}},
	}},
	{heading: "Everyone gathers for a study party", calls: []call{
		{kind: engine.NudgeGroupEvent, names: []string{"Nina", "Jake", "Aria", "Rex"}},
	}},
}

// runScript plays beats against town, printing through con.
func runScript(ctx context.Context, town *engine.Town, con *render.Console, beats []beat) error {
	for _, b := range beats {
		con.Heading(b.heading)
		for _, c := range b.calls {
			req := engine.NudgeRequest{Kind: c.kind}
			for _, name := range c.names {
				v, ok := town.VillagerByName(name)
				if !ok {
					return fmt.Errorf("%w: %s", engine.ErrUnknownVillager, name)
				}
				req.Villagers = append(req.Villagers, v.ID)
			}
			out, err := town.RunNudge(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", b.heading, err)
			}
			if !c.silent {
				con.Consequences(out.Consequences)
			}
		}
		if b.scene {
			con.Scene(town.Snapshot())
		}
	}
	return nil
}

func newScriptTown(cfg *config.Config) *engine.Town {
	seed := cfg.EffectiveSeed()
	return engine.NewTown(engine.TownConfig{
		Seed:      seed,
		MaxEvents: cfg.MaxEvents,
		Rand:      entropy.FromConfig(cfg.RandomOrgKey, seed),
	})
}

func runDemo(ctx context.Context, town *engine.Town, w io.Writer) error {
	con := render.NewConsole(w)
	fmt.Fprint(w, "\n🦋 WELCOME TO BUTTERFLY CITY 🦋\n\n")
	fmt.Fprint(w, "A town where your tiny nudges create big consequences...\n")

	con.Heading("Creating Villagers")
	for _, v := range town.Populate(agents.StarterCast) {
		con.Villager(v)
	}
	con.Scene(town.Snapshot())

	if err := runScript(ctx, town, con, demoScript); err != nil {
		return err
	}

	con.Heading("EVENT HISTORY")
	con.Events(town.Events().RecentEvents(20))

	con.Heading("FINAL STATE")
	con.Scene(town.Snapshot())
	fmt.Fprint(w, "🎮 DEMO COMPLETE! 🎮\n")
	return nil
}

func runDrama(ctx context.Context, town *engine.Town, w io.Writer) error {
	con := render.NewConsole(w)
	con.Heading("Custom Scenario: High School Drama")
	town.Populate(agents.HighSchoolCast)
	con.Scene(town.Snapshot())

	if err := runScript(ctx, town, con, dramaScript); err != nil {
		return err
	}

	con.Scene(town.Snapshot())
	con.Events(town.Events().RecentEvents(15))
	return nil
}

func demoCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the seven-nudge demo with the starter cast",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), newScriptTown(cfg), cmd.OutOrStdout())
		},
	}
}

func scenarioCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "scenario",
		Short: "Run the high school drama scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrama(cmd.Context(), newScriptTown(cfg), cmd.OutOrStdout())
		},
	}
}
