package agents

import "testing"

func newPair() (*Villager, *Villager) {
	a := NewVillager("Alice", []Trait{TraitFriendly}, MoodHappy)
	b := NewVillager("Bob", []Trait{TraitShy}, "")
	return a, b
}

func TestNewVillagerDefaults(t *testing.T) {
	a, b := newPair()
	if b.Mood != MoodNeutral {
		t.Fatalf("default mood: got %q, want %q", b.Mood, MoodNeutral)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids must be non-empty and distinct: %q %q", a.ID, b.ID)
	}
	if !a.HasTrait(TraitFriendly) || a.HasTrait(TraitShy) {
		t.Fatalf("HasTrait mismatch for %v", a.Traits)
	}
	if got := a.String(); got != "Alice (happy) - Traits: friendly" {
		t.Fatalf("String: got %q", got)
	}
}

func TestSetRelationshipIsOneDirectional(t *testing.T) {
	a, b := newPair()
	a.SetRelationship(b, 10, "")

	rel := a.Relationship(b)
	if rel == nil {
		t.Fatal("expected a->b relationship")
	}
	if rel.Type != RelNeutral || rel.Affinity != 10 || rel.PeerName != "Bob" {
		t.Fatalf("unexpected record: %+v", rel)
	}
	if b.Relationship(a) != nil {
		t.Fatal("mirror must not be created implicitly")
	}
}

func TestModifyAffinityWithoutRelationshipIsNoop(t *testing.T) {
	a, b := newPair()
	a.ModifyAffinity(b, 50)
	if a.Relationship(b) != nil {
		t.Fatal("ModifyAffinity must not create a relationship")
	}
}

func TestModifyAffinityClampsAndClassifies(t *testing.T) {
	tests := []struct {
		name     string
		start    Affinity
		startTyp RelationshipType
		delta    Affinity
		want     Affinity
		wantTyp  RelationshipType
	}{
		{"zero delta keeps value", 30, RelNeutral, 0, 30, RelNeutral},
		{"rises to friend", 50, RelNeutral, 15, 65, RelFriend},
		{"exactly sixty is neutral", 50, RelNeutral, 10, 60, RelNeutral},
		{"clamps high", 90, RelNeutral, 50, 100, RelFriend},
		{"clamps low", -90, RelNeutral, -50, -100, RelRival},
		{"exactly minus forty is neutral", -30, RelNeutral, -10, -40, RelNeutral},
		{"romance sticky when high", 70, RelRomance, 10, 80, RelRomance},
		{"romance not sticky when low", 0, RelRomance, -50, -50, RelRival},
		{"romance drops to neutral in band", 70, RelRomance, -30, 40, RelNeutral},
		{"rival recovers to neutral", -50, RelRival, 20, -30, RelNeutral},
		{"half points kept", 0, RelNeutral, -22.5, -22.5, RelNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := newPair()
			a.SetRelationship(b, tt.start, tt.startTyp)
			a.ModifyAffinity(b, tt.delta)
			rel := a.Relationship(b)
			if rel.Affinity != tt.want || rel.Type != tt.wantTyp {
				t.Fatalf("got %v/%s, want %v/%s", rel.Affinity, rel.Type, tt.want, tt.wantTyp)
			}
		})
	}
}

func TestModifyAffinityStaysInRange(t *testing.T) {
	a, b := newPair()
	a.SetRelationship(b, 0, RelNeutral)
	deltas := []Affinity{75, 75, -13, -200, 37.5, 300, -1, -99, -99, 7}
	for i, d := range deltas {
		a.ModifyAffinity(b, d)
		got := a.Relationship(b).Affinity
		if got < MinAffinity || got > MaxAffinity {
			t.Fatalf("step %d: affinity %v out of range", i, got)
		}
	}
}

func TestRelationshipSummarySorted(t *testing.T) {
	a := NewVillager("Alice", nil, "")
	c := NewVillager("Carol", nil, "")
	b := NewVillager("Bob", nil, "")
	a.SetRelationship(c, -45, RelRival)
	a.SetRelationship(b, 20, RelNeutral)

	got := a.RelationshipSummary()
	if len(got) != 2 || got[0].Name != "Bob" || got[1].Name != "Carol" {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if got[1].Type != RelRival || got[1].Affinity != -45 {
		t.Fatalf("summary lost fields: %+v", got[1])
	}
}

func TestPeerNameIsNotKeptInSync(t *testing.T) {
	a, b := newPair()
	a.SetRelationship(b, 0, RelNeutral)
	b.Name = "Robert"
	if got := a.Relationship(b).PeerName; got != "Bob" {
		t.Fatalf("peer name: got %q, want stale %q", got, "Bob")
	}
}
