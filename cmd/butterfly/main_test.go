package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/talgya/butterfly-city/internal/engine"
	"github.com/talgya/butterfly-city/internal/entropy"
	"github.com/talgya/butterfly-city/internal/render"
)

func testTown() *engine.Town {
	return engine.NewTown(engine.TownConfig{Seed: 1, Rand: entropy.Fixed(0.9)})
}

func TestRunDemo(t *testing.T) {
	var buf bytes.Buffer
	town := testTown()
	if err := runDemo(context.Background(), town, &buf); err != nil {
		t.Fatalf("demo: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"=== Creating Villagers ===",
		"Alice (happy) - Traits: friendly, artistic",
		"Alice and Bob meet (Affinity: 5)",
		"Dave rejects Carol! The atmosphere is tense.",
		"=== NUDGE 6: Dave and Bob compete ===",
		"Dave wins the competition!",
		"=== EVENT HISTORY ===",
		"DEMO COMPLETE",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("demo output missing %q", want)
		}
	}

	// The silent introduction in nudge 6 still happened.
	dave, _ := town.VillagerByName("Dave")
	bob, _ := town.VillagerByName("Bob")
	if dave.Relationship(bob) == nil {
		t.Fatal("Dave and Bob were never introduced")
	}
	if n := len(town.Events().EventsByType(engine.EventNudge)); n != 9 {
		t.Fatalf("nudge events: got %d, want 9", n)
	}
}

func TestRunDrama(t *testing.T) {
	var buf bytes.Buffer
	if err := runDrama(context.Background(), testTown(), &buf); err != nil {
		t.Fatalf("scenario: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"High School Drama",
		"Jake and Aria meet (Affinity: 0)",
		"Aria rejects Jake!",
		"Nina feels proud of hosting!",
		"Jake and Rex meet at the party",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("scenario output missing %q", want)
		}
	}
}

func TestRunScriptUnknownName(t *testing.T) {
	town := testTown()
	err := runScript(context.Background(), town, render.NewConsole(&bytes.Buffer{}), []beat{
		{heading: "ghosts", calls: []call{{kind: engine.NudgeIntroduce, names: []string{"Casper", "Slimer"}}}},
	})
	if err == nil {
		t.Fatal("expected unknown villager error")
	}
}

func TestRootCommandDemo(t *testing.T) {
	cmd := rootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"demo", "--seed", "7", "--max-events", "50"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(buf.String(), "DEMO COMPLETE") {
		t.Fatal("demo did not complete")
	}
}

func TestRootCommandRejectsBadConfig(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"demo", "--max-events", "0"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected validation error")
	}
}
