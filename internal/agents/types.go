// Package agents provides the villager data model: traits, moods, positions,
// and the per-villager relationship store.
package agents

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// VillagerID is an opaque unique identifier, stable for a villager's lifetime.
type VillagerID string

// NewVillagerID allocates a fresh random identifier.
func NewVillagerID() VillagerID {
	return VillagerID(uuid.NewString())
}

// Trait is a personality tag. The known set is closed; unknown strings are
// accepted and simply never match a rule.
type Trait string

const (
	TraitFriendly    Trait = "friendly"
	TraitShy         Trait = "shy"
	TraitArtistic    Trait = "artistic"
	TraitAthletic    Trait = "athletic"
	TraitBookish     Trait = "bookish"
	TraitRebellious  Trait = "rebellious"
	TraitRomantic    Trait = "romantic"
	TraitCompetitive Trait = "competitive"
	TraitGossip      Trait = "gossip"
	TraitPeacemaker  Trait = "peacemaker"
)

var allTraits = []Trait{
	TraitFriendly, TraitShy, TraitArtistic, TraitAthletic, TraitBookish,
	TraitRebellious, TraitRomantic, TraitCompetitive, TraitGossip, TraitPeacemaker,
}

// AllTraits returns the known traits in declaration order.
func AllTraits() []Trait {
	out := make([]Trait, len(allTraits))
	copy(out, allTraits)
	return out
}

// Known reports whether t is one of the enumerated traits.
func (t Trait) Known() bool {
	for _, k := range allTraits {
		if k == t {
			return true
		}
	}
	return false
}

// Mood is a villager's current emotional state. No history is kept.
type Mood string

const (
	MoodHappy      Mood = "happy"
	MoodSad        Mood = "sad"
	MoodAngry      Mood = "angry"
	MoodExcited    Mood = "excited"
	MoodAnxious    Mood = "anxious"
	MoodNeutral    Mood = "neutral"
	MoodLoveStruck Mood = "love-struck"
	MoodJealous    Mood = "jealous"
)

var allMoods = []Mood{
	MoodHappy, MoodSad, MoodAngry, MoodExcited,
	MoodAnxious, MoodNeutral, MoodLoveStruck, MoodJealous,
}

// AllMoods returns the known moods in declaration order.
func AllMoods() []Mood {
	out := make([]Mood, len(allMoods))
	copy(out, allMoods)
	return out
}

// Known reports whether m is one of the enumerated moods.
func (m Mood) Known() bool {
	for _, k := range allMoods {
		if k == m {
			return true
		}
	}
	return false
}

// Position is a 2D coordinate owned by the presentation layer.
// The engine never reads it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Villager is a simulated character. Villagers are never destroyed during
// a session and are mutated in place by nudges.
type Villager struct {
	ID     VillagerID `json:"id"`
	Name   string     `json:"name"` // not required unique
	Traits []Trait    `json:"traits"`
	Mood   Mood       `json:"mood"`

	// Directed: each side owns its own half and the halves can diverge.
	Relationships map[VillagerID]*Relationship `json:"-"`

	Position Position `json:"position"`
}

// NewVillager creates a villager with a fresh ID. An empty mood defaults
// to neutral.
func NewVillager(name string, traits []Trait, mood Mood) *Villager {
	if mood == "" {
		mood = MoodNeutral
	}
	t := make([]Trait, len(traits))
	copy(t, traits)
	return &Villager{
		ID:            NewVillagerID(),
		Name:          name,
		Traits:        t,
		Mood:          mood,
		Relationships: make(map[VillagerID]*Relationship),
	}
}

// HasTrait reports whether the villager carries the trait.
func (v *Villager) HasTrait(t Trait) bool {
	for _, have := range v.Traits {
		if have == t {
			return true
		}
	}
	return false
}

// PrimaryTrait returns the first trait, used only by presentation.
func (v *Villager) PrimaryTrait() (Trait, bool) {
	if len(v.Traits) == 0 {
		return "", false
	}
	return v.Traits[0], true
}

// SetMood overwrites the mood unconditionally.
func (v *Villager) SetMood(m Mood) {
	v.Mood = m
}

// SetPosition moves the villager. Called by presentation only.
func (v *Villager) SetPosition(x, y float64) {
	v.Position = Position{X: x, Y: y}
}

func (v *Villager) String() string {
	names := make([]string, len(v.Traits))
	for i, t := range v.Traits {
		names[i] = string(t)
	}
	return fmt.Sprintf("%s (%s) - Traits: %s", v.Name, v.Mood, strings.Join(names, ", "))
}
