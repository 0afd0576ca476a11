// Villager spawning: the factory used by the town, plus the starter cast
// and random villagers for scenarios.
package agents

import (
	"math/rand"

	"github.com/google/uuid"
)

// Spawner creates villagers. IDs are drawn from the seeded source so a
// given seed always produces the same cast.
type Spawner struct {
	rng *rand.Rand
}

// NewSpawner creates a villager spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng: rand.New(rand.NewSource(seed + 300)),
	}
}

// Spawn creates a villager with the given name, traits, and initial mood.
func (s *Spawner) Spawn(name string, traits []Trait, mood Mood) *Villager {
	v := NewVillager(name, traits, mood)
	v.ID = s.nextID()
	return v
}

func (s *Spawner) nextID() VillagerID {
	id, err := uuid.NewRandomFromReader(s.rng)
	if err != nil {
		// math/rand never fails to read; fall back to the global source anyway.
		return NewVillagerID()
	}
	return VillagerID(id.String())
}

// SpawnRandom creates a villager with a generated name, two distinct
// traits, and a random known mood.
func (s *Spawner) SpawnRandom() *Villager {
	first := s.rng.Intn(len(allTraits))
	second := s.rng.Intn(len(allTraits) - 1)
	if second >= first {
		second++
	}
	traits := []Trait{allTraits[first], allTraits[second]}
	mood := allMoods[s.rng.Intn(len(allMoods))]
	return s.Spawn(s.generateName(), traits, mood)
}

// SpawnPopulation creates count random villagers.
func (s *Spawner) SpawnPopulation(count int) []*Villager {
	out := make([]*Villager, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.SpawnRandom())
	}
	return out
}

// CastMember describes one villager of a scripted cast.
type CastMember struct {
	Name   string
	Traits []Trait
	Mood   Mood
}

// StarterCast is the default five-villager town.
var StarterCast = []CastMember{
	{Name: "Alice", Traits: []Trait{TraitFriendly, TraitArtistic}, Mood: MoodHappy},
	{Name: "Bob", Traits: []Trait{TraitShy, TraitBookish}, Mood: MoodNeutral},
	{Name: "Carol", Traits: []Trait{TraitRomantic, TraitGossip}, Mood: MoodExcited},
	{Name: "Dave", Traits: []Trait{TraitCompetitive, TraitAthletic}, Mood: MoodNeutral},
	{Name: "Eve", Traits: []Trait{TraitPeacemaker, TraitFriendly}, Mood: MoodHappy},
}

// HighSchoolCast is the four-villager drama scenario.
var HighSchoolCast = []CastMember{
	{Name: "Jake", Traits: []Trait{TraitAthletic, TraitCompetitive}, Mood: MoodExcited},
	{Name: "Nina", Traits: []Trait{TraitBookish, TraitShy}, Mood: MoodNeutral},
	{Name: "Aria", Traits: []Trait{TraitArtistic, TraitRomantic}, Mood: MoodHappy},
	{Name: "Rex", Traits: []Trait{TraitRebellious, TraitGossip}, Mood: MoodNeutral},
}

func (s *Spawner) generateName() string {
	var firsts []string
	if s.rng.Float32() < 0.5 {
		firsts = maleNames
	} else {
		firsts = femaleNames
	}
	return firsts[s.rng.Intn(len(firsts))]
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Willa",
}
