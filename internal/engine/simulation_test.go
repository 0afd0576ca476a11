package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/entropy"
)

func newTestTown(t *testing.T) (*Town, []*agents.Villager) {
	t.Helper()
	town := NewTown(TownConfig{Seed: 42, Rand: entropy.Fixed(0.9)})
	cast := town.Populate(agents.StarterCast)
	if len(cast) != len(agents.StarterCast) {
		t.Fatalf("populated %d villagers", len(cast))
	}
	return town, cast
}

func TestCreateVillagerLogsGameEvent(t *testing.T) {
	town, cast := newTestTown(t)
	games := town.Events().EventsByType(EventGame)
	if len(games) != len(cast) {
		t.Fatalf("game events: got %d, want %d", len(games), len(cast))
	}
	if games[0].Description != "Alice joins Butterfly City!" || games[0].Metadata["villager"] != "Alice" {
		t.Fatalf("unexpected event: %+v", games[0])
	}
	v, ok := town.VillagerByName("Carol")
	if !ok || !v.HasTrait(agents.TraitGossip) {
		t.Fatal("VillagerByName failed")
	}
	if _, ok := town.Villager(v.ID); !ok {
		t.Fatal("Villager lookup by id failed")
	}
	if _, ok := town.VillagerByName("Zed"); ok {
		t.Fatal("unexpected villager")
	}
}

func TestSameSeedSameIDs(t *testing.T) {
	a, _ := newTestTown(t)
	b, _ := newTestTown(t)
	va, vb := a.Villagers(), b.Villagers()
	for i := range va {
		if va[i].ID != vb[i].ID {
			t.Fatalf("villager %d: %s != %s", i, va[i].ID, vb[i].ID)
		}
	}
}

func TestRunNudgeDispatch(t *testing.T) {
	town, cast := newTestTown(t)
	alice, bob, carol, dave, eve := cast[0], cast[1], cast[2], cast[3], cast[4]
	ctx := context.Background()

	out, err := town.RunNudge(ctx, NudgeRequest{Kind: NudgeIntroduce, Villagers: []agents.VillagerID{alice.ID, bob.ID}})
	if err != nil {
		t.Fatalf("introduce: %v", err)
	}
	// friendly +15, shy -10, nothing shared.
	if len(out.Consequences) != 1 || alice.Relationship(bob).Affinity != 5 {
		t.Fatalf("introduce outcome: %+v", out)
	}

	if _, err := town.RunNudge(ctx, NudgeRequest{Kind: "GOSSIP", Villagers: []agents.VillagerID{carol.ID, alice.ID, bob.ID}}); err != nil {
		t.Fatalf("gossip: %v", err)
	}
	// bonus 1.5: -22.5 from 5.
	if got := alice.Relationship(bob).Affinity; got != -17.5 {
		t.Fatalf("alice->bob after gossip: %v", got)
	}

	if _, err := town.RunNudge(ctx, NudgeRequest{Kind: NudgeRomance, Villagers: []agents.VillagerID{carol.ID, dave.ID}}); err != nil {
		t.Fatalf("romance: %v", err)
	}
	if carol.Mood != agents.MoodAnxious {
		t.Fatalf("strangers romance: carol mood %s", carol.Mood)
	}

	out, err = town.RunNudge(ctx, NudgeRequest{Kind: NudgeCompetition, Villagers: []agents.VillagerID{dave.ID, eve.ID}})
	if err != nil {
		t.Fatalf("competition: %v", err)
	}
	// Fixed 0.9: dave wins, eve (friendly) loses with no relationship.
	if out.Consequences[0].Description != "Dave wins the competition!" {
		t.Fatalf("competition outcome: %+v", out)
	}

	out, err = town.RunNudge(ctx, NudgeRequest{Kind: NudgeGroupEvent, Villagers: []agents.VillagerID{eve.ID, dave.ID, carol.ID}, EventType: "bonfire"})
	if err != nil {
		t.Fatalf("group event: %v", err)
	}
	if eve.Mood != agents.MoodExcited || dave.Relationship(carol) == nil {
		t.Fatalf("group event outcome: %+v", out)
	}
}

func TestRunNudgeInputErrors(t *testing.T) {
	town, cast := newTestTown(t)
	a, b := cast[0].ID, cast[1].ID
	tests := []struct {
		name string
		req  NudgeRequest
		want error
	}{
		{"unknown kind", NudgeRequest{Kind: "hug", Villagers: []agents.VillagerID{a, b}}, ErrUnknownNudge},
		{"too few", NudgeRequest{Kind: NudgeIntroduce, Villagers: []agents.VillagerID{a}}, ErrWrongArity},
		{"too many", NudgeRequest{Kind: NudgeRomance, Villagers: []agents.VillagerID{a, b, cast[2].ID}}, ErrWrongArity},
		{"gossip needs three", NudgeRequest{Kind: NudgeGossip, Villagers: []agents.VillagerID{a, b}}, ErrWrongArity},
		{"group needs host", NudgeRequest{Kind: NudgeGroupEvent}, ErrWrongArity},
		{"unknown villager", NudgeRequest{Kind: NudgeIntroduce, Villagers: []agents.VillagerID{a, "nobody"}}, ErrUnknownVillager},
		{"same villager", NudgeRequest{Kind: NudgeIntroduce, Villagers: []agents.VillagerID{a, a}}, ErrSameVillager},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := town.Events().Len()
			_, err := town.RunNudge(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if town.Events().Len() != before {
				t.Fatal("rejected nudges must not log")
			}
		})
	}
}

func TestRunNudgeCancelledContext(t *testing.T) {
	town, cast := newTestTown(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := town.RunNudge(ctx, NudgeRequest{Kind: NudgeIntroduce, Villagers: []agents.VillagerID{cast[0].ID, cast[1].ID}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestRunNudgeSerialized(t *testing.T) {
	town, cast := newTestTown(t)
	alice, eve := cast[0], cast[4]
	if _, err := town.RunNudge(context.Background(), NudgeRequest{Kind: NudgeIntroduce, Villagers: []agents.VillagerID{alice.ID, eve.ID}}); err != nil {
		t.Fatal(err)
	}
	alice.Relationship(eve).Affinity = -100
	eve.Relationship(alice).Affinity = -100

	// Each group event adds +5 to both halves; 40 concurrent runs land on exactly +100.
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			town.RunNudge(context.Background(), NudgeRequest{Kind: NudgeGroupEvent, Villagers: []agents.VillagerID{cast[1].ID, alice.ID, eve.ID}})
		}()
	}
	wg.Wait()

	views := town.Snapshot()
	for _, v := range views {
		if v.ID != alice.ID {
			continue
		}
		for _, rel := range v.Relationships {
			if rel.PeerID == eve.ID && rel.Affinity != 100 {
				t.Fatalf("alice->eve: got %v, want 100", rel.Affinity)
			}
		}
	}
}

func TestViewAndSummary(t *testing.T) {
	town, cast := newTestTown(t)
	if _, err := town.View("missing"); !errors.Is(err, ErrUnknownVillager) {
		t.Fatalf("got %v", err)
	}
	town.RunNudge(context.Background(), NudgeRequest{Kind: NudgeIntroduce, Villagers: []agents.VillagerID{cast[0].ID, cast[4].ID}})
	sum, err := town.RelationshipSummary(cast[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum) != 1 || sum[0].Name != "Eve" {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestIdleBehaviorIsNoop(t *testing.T) {
	town, _ := newTestTown(t)
	before := town.Snapshot()
	n := town.Events().Len()
	town.Idle(1)
	after := town.Snapshot()
	if town.Events().Len() != n || len(before) != len(after) {
		t.Fatal("idle hook must not change state")
	}
	for i := range before {
		if before[i].Mood != after[i].Mood {
			t.Fatal("idle hook changed a mood")
		}
	}
}

func TestAddRandom(t *testing.T) {
	town, _ := newTestTown(t)
	extra := town.AddRandom(3)
	if len(extra) != 3 || len(town.Villagers()) != 8 {
		t.Fatalf("villagers: got %d", len(town.Villagers()))
	}
	for _, v := range extra {
		if len(v.Traits) != 2 || v.Traits[0] == v.Traits[1] || !v.Mood.Known() {
			t.Fatalf("bad random villager: %+v", v)
		}
		if got, ok := town.Villager(v.ID); !ok || got != v {
			t.Fatalf("%s not indexed", v.Name)
		}
	}
	if n := len(town.Events().EventsByType(EventGame)); n != 8 {
		t.Fatalf("arrival events: got %d", n)
	}
}
