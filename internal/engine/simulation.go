// Town ties the villager registry, the nudge resolver, and the event log
// together behind a single lock.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/entropy"
)

// Input errors returned by RunNudge. The resolver itself has no error paths.
var (
	ErrUnknownVillager = errors.New("unknown villager")
	ErrUnknownNudge    = errors.New("unknown nudge kind")
	ErrWrongArity      = errors.New("wrong number of villagers for nudge")
	ErrSameVillager    = errors.New("a villager cannot be nudged toward themselves")
)

// NudgeKind names a nudge.
type NudgeKind string

const (
	NudgeIntroduce   NudgeKind = "introduce"
	NudgeGossip      NudgeKind = "gossip"
	NudgeRomance     NudgeKind = "romance"
	NudgeCompetition NudgeKind = "competition"
	NudgeGroupEvent  NudgeKind = "group_event"
)

// ParseNudgeKind maps a name to a NudgeKind.
func ParseNudgeKind(name string) (NudgeKind, error) {
	switch k := NudgeKind(strings.ToLower(strings.TrimSpace(name))); k {
	case NudgeIntroduce, NudgeGossip, NudgeRomance, NudgeCompetition, NudgeGroupEvent:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownNudge, name)
}

// arity returns the minimum and maximum villager count for a kind.
// Max of zero means unbounded.
func (k NudgeKind) arity() (int, int) {
	switch k {
	case NudgeGossip:
		return 3, 3
	case NudgeGroupEvent:
		return 1, 0
	default:
		return 2, 2
	}
}

// NudgeRequest is a nudge addressed by villager IDs. For group events the
// first villager hosts and the rest attend.
type NudgeRequest struct {
	Kind      NudgeKind           `json:"kind"`
	Villagers []agents.VillagerID `json:"villagers"`
	EventType string              `json:"event_type,omitempty"`
}

// TownConfig configures a town.
type TownConfig struct {
	Seed      int64
	MaxEvents int
	Rand      entropy.Source // nil: seeded from Seed
}

// Town owns the villagers and serializes every nudge.
type Town struct {
	mu        sync.Mutex
	villagers []*agents.Villager
	index     map[agents.VillagerID]*agents.Villager

	spawner  *agents.Spawner
	resolver *Resolver
	events   *EventLog
	started  time.Time

	// IdleBehavior runs on presentation ticks; see NoIdleBehavior.
	IdleBehavior func(t *Town, tick uint64)
}

// NewTown creates an empty town.
func NewTown(cfg TownConfig) *Town {
	log := NewEventLog(cfg.MaxEvents)
	rng := cfg.Rand
	if rng == nil {
		rng = entropy.Seeded(cfg.Seed)
	}
	return &Town{
		index:        make(map[agents.VillagerID]*agents.Villager),
		spawner:      agents.NewSpawner(cfg.Seed),
		resolver:     NewResolver(log, rng),
		events:       log,
		started:      time.Now(),
		IdleBehavior: NoIdleBehavior,
	}
}

// NoIdleBehavior is the autonomous-behavior hook. Villagers do nothing on
// their own.
func NoIdleBehavior(*Town, uint64) {}

// Idle runs the autonomous-behavior hook for one presentation tick.
func (t *Town) Idle(tick uint64) {
	if t.IdleBehavior != nil {
		t.IdleBehavior(t, tick)
	}
}

// Events returns the town's event log.
func (t *Town) Events() *EventLog {
	return t.events
}

// Uptime returns how long the town has existed.
func (t *Town) Uptime() time.Duration {
	return time.Since(t.started)
}

// CreateVillager spawns a villager and announces it.
func (t *Town) CreateVillager(name string, traits []agents.Trait, mood agents.Mood) *agents.Villager {
	t.mu.Lock()
	v := t.spawner.Spawn(name, traits, mood)
	t.admit(v)
	t.mu.Unlock()

	t.announce(v)
	return v
}

// AddRandom spawns n villagers with generated names, traits, and moods.
func (t *Town) AddRandom(n int) []*agents.Villager {
	t.mu.Lock()
	vs := t.spawner.SpawnPopulation(n)
	for _, v := range vs {
		t.admit(v)
	}
	t.mu.Unlock()

	for _, v := range vs {
		t.announce(v)
	}
	return vs
}

func (t *Town) admit(v *agents.Villager) {
	t.villagers = append(t.villagers, v)
	t.index[v.ID] = v
}

func (t *Town) announce(v *agents.Villager) {
	t.events.Log(EventGame, fmt.Sprintf("%s joins Butterfly City!", v.Name),
		map[string]any{"villager": v.Name})
	slog.Debug("villager created", "id", v.ID, "name", v.Name, "traits", v.Traits, "mood", v.Mood)
}

// Populate creates one villager per cast member, in order.
func (t *Town) Populate(cast []agents.CastMember) []*agents.Villager {
	out := make([]*agents.Villager, 0, len(cast))
	for _, c := range cast {
		out = append(out, t.CreateVillager(c.Name, c.Traits, c.Mood))
	}
	return out
}

// Villager looks up a villager by ID.
func (t *Town) Villager(id agents.VillagerID) (*agents.Villager, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.index[id]
	return v, ok
}

// VillagerByName returns the first villager with the given name.
func (t *Town) VillagerByName(name string) (*agents.Villager, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, v := range t.villagers {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Villagers returns the villagers in creation order.
func (t *Town) Villagers() []*agents.Villager {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*agents.Villager, len(t.villagers))
	copy(out, t.villagers)
	return out
}

// VillagerView is a consistent snapshot of one villager.
type VillagerView struct {
	ID            agents.VillagerID            `json:"id"`
	Name          string                       `json:"name"`
	Traits        []agents.Trait               `json:"traits"`
	Mood          agents.Mood                  `json:"mood"`
	Position      agents.Position              `json:"position"`
	Relationships []agents.RelationshipSummary `json:"relationships"`
}

// Snapshot copies every villager under the town lock.
func (t *Town) Snapshot() []VillagerView {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]VillagerView, 0, len(t.villagers))
	for _, v := range t.villagers {
		out = append(out, viewOf(v))
	}
	return out
}

// View copies one villager under the town lock.
func (t *Town) View(id agents.VillagerID) (VillagerView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.index[id]
	if !ok {
		return VillagerView{}, fmt.Errorf("%w: %s", ErrUnknownVillager, id)
	}
	return viewOf(v), nil
}

func viewOf(v *agents.Villager) VillagerView {
	traits := make([]agents.Trait, len(v.Traits))
	copy(traits, v.Traits)
	return VillagerView{
		ID:            v.ID,
		Name:          v.Name,
		Traits:        traits,
		Mood:          v.Mood,
		Position:      v.Position,
		Relationships: v.RelationshipSummary(),
	}
}

// RelationshipSummary lists a villager's bonds.
func (t *Town) RelationshipSummary(id agents.VillagerID) ([]agents.RelationshipSummary, error) {
	view, err := t.View(id)
	if err != nil {
		return nil, err
	}
	return view.Relationships, nil
}

// WithLock runs fn while holding the town lock. Presentation ticks use it
// to move villagers without interleaving with nudges.
func (t *Town) WithLock(fn func(villagers []*agents.Villager)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.villagers)
}

// RunNudge resolves a nudge addressed by villager IDs. Event listeners run
// while the town lock is held and must not call back into the town.
func (t *Town) RunNudge(ctx context.Context, req NudgeRequest) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	kind, err := ParseNudgeKind(string(req.Kind))
	if err != nil {
		return Outcome{}, err
	}
	lo, hi := kind.arity()
	if n := len(req.Villagers); n < lo || (hi > 0 && n > hi) {
		return Outcome{}, fmt.Errorf("%w: %s takes %s, got %d", ErrWrongArity, kind, arityText(lo, hi), n)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	vs := make([]*agents.Villager, len(req.Villagers))
	seen := make(map[agents.VillagerID]bool, len(req.Villagers))
	for i, id := range req.Villagers {
		v, ok := t.index[id]
		if !ok {
			return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownVillager, id)
		}
		if seen[id] {
			return Outcome{}, fmt.Errorf("%w: %s", ErrSameVillager, v.Name)
		}
		seen[id] = true
		vs[i] = v
	}

	var out Outcome
	switch kind {
	case NudgeIntroduce:
		out = t.resolver.Introduce(vs[0], vs[1])
	case NudgeGossip:
		out = t.resolver.ShareGossip(vs[0], vs[1], vs[2])
	case NudgeRomance:
		out = t.resolver.EncourageRomance(vs[0], vs[1])
	case NudgeCompetition:
		out = t.resolver.StartCompetition(vs[0], vs[1])
	case NudgeGroupEvent:
		out = t.resolver.OrganizeGroupEvent(vs[0], vs[1:], req.EventType)
	}

	slog.Info("nudge resolved", "kind", kind, "villagers", len(vs), "consequences", len(out.Consequences))
	return out, nil
}

func arityText(lo, hi int) string {
	switch {
	case hi == 0:
		return fmt.Sprintf("at least %d villagers", lo)
	case lo == hi:
		return fmt.Sprintf("%d villagers", lo)
	default:
		return fmt.Sprintf("%d-%d villagers", lo, hi)
	}
}
