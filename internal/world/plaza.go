// Plaza is the presentation-side street villagers wander along. Positions
// live here and are copied onto villagers each step; the engine never
// reads them.
package world

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/engine"
)

// Street layout.
const (
	DefaultWidth   = 2400.0
	DefaultGroundY = 530.0
	HouseCount     = 6

	startX       = 120.0
	startSpacing = 180.0
	arriveWithin = 2.0
	maxStep      = 0.05 // seconds
	effectTime   = 1.8  // seconds
)

// House is a building along the street.
type House struct {
	X      float64 `json:"x"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the x coordinate of the house's door.
func (h House) Center() float64 {
	return h.X + h.Width/2
}

// Effect is a short-lived overlay shown above a villager after a nudge.
type Effect struct {
	Kind  string  `json:"kind"`
	Timer float64 `json:"timer"`
}

// Effect kinds by consequence type. Neutral consequences have none.
var effectFor = map[engine.ConsequenceType]string{
	engine.ConsequenceRomance:  "hearts",
	engine.ConsequenceRivalry:  "anger",
	engine.ConsequenceChaos:    "fire",
	engine.ConsequenceNegative: "tears",
	engine.ConsequencePositive: "sparkles",
}

type walker struct {
	index     int
	x, y      float64
	targetX   float64
	speed     float64
	idleTimer float64
	effect    *Effect
}

// Plaza tracks wander state per villager. Safe for concurrent use.
type Plaza struct {
	Width   float64
	GroundY float64
	Houses  []House

	mu      sync.Mutex
	walkers map[agents.VillagerID]*walker
	rng     *rand.Rand
	noise   opensimplex.Noise
	elapsed float64
}

// NewPlaza builds a street with HouseCount houses.
func NewPlaza(seed int64) *Plaza {
	rng := rand.New(rand.NewSource(seed + 500))
	p := &Plaza{
		Width:   DefaultWidth,
		GroundY: DefaultGroundY,
		walkers: make(map[agents.VillagerID]*walker),
		rng:     rng,
		noise:   opensimplex.New(seed),
	}
	for i := 0; i < HouseCount; i++ {
		p.Houses = append(p.Houses, House{
			X:      140 + float64(i)*380 + rng.Float64()*60,
			Width:  140 + rng.Float64()*40,
			Height: 120 + rng.Float64()*30,
		})
	}
	return p
}

// Place gives every villager not yet on the plaza a starting spot. Villagers
// line up startSpacing apart in arrival order.
func (p *Plaza) Place(villagers []*agents.Villager) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range villagers {
		if _, ok := p.walkers[v.ID]; ok {
			continue
		}
		i := len(p.walkers)
		x := startX + float64(i)*startSpacing
		w := &walker{
			index:     i,
			x:         x,
			y:         p.GroundY - 10,
			targetX:   x,
			speed:     55 + p.rng.Float64()*35,
			idleTimer: 1 + p.rng.Float64()*2,
		}
		p.walkers[v.ID] = w
		v.SetPosition(w.x, w.y)
	}
}

// Step advances every placed villager by delta, capped at 50ms. Callers
// hold the town lock so positions are not written mid-nudge.
func (p *Plaza) Step(villagers []*agents.Villager, delta time.Duration) {
	dt := math.Min(delta.Seconds(), maxStep)
	if dt <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.elapsed += dt

	for _, v := range villagers {
		w, ok := p.walkers[v.ID]
		if !ok {
			continue
		}

		w.idleTimer -= dt
		if w.idleTimer <= 0 {
			house := p.Houses[p.rng.Intn(len(p.Houses))]
			w.targetX = house.Center() + p.jitter(w.index, 20)
			w.idleTimer = 2.5 + p.rng.Float64()*2.5
		}

		if gap := w.targetX - w.x; math.Abs(gap) > arriveWithin {
			move := math.Copysign(w.speed*dt, gap)
			if math.Abs(move) > math.Abs(gap) {
				move = gap
			}
			w.x += move
		}

		if w.effect != nil {
			w.effect.Timer -= dt
			if w.effect.Timer <= 0 {
				w.effect = nil
			}
		}

		v.SetPosition(w.x, w.y)
	}
}

// jitter samples smooth noise in [-spread, spread] for walker i.
func (p *Plaza) jitter(i int, spread float64) float64 {
	return p.noise.Eval2(p.elapsed, float64(i)*7.3) * spread
}

// Gather points the given villagers at their common center for a short
// while, so a nudge plays out face to face.
func (p *Plaza) Gather(ids ...agents.VillagerID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ws []*walker
	center := 0.0
	for _, id := range ids {
		if w, ok := p.walkers[id]; ok {
			ws = append(ws, w)
			center += w.x
		}
	}
	if len(ws) == 0 {
		return
	}
	center /= float64(len(ws))
	for _, w := range ws {
		w.targetX = center + p.jitter(w.index, 12)
		w.idleTimer = 2
	}
}

// React shows an effect over the given villagers for each consequence that
// has one. Later consequences replace earlier effects.
func (p *Plaza) React(out engine.Outcome, ids ...agents.VillagerID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range out.Consequences {
		kind, ok := effectFor[c.Type]
		if !ok {
			continue
		}
		for _, id := range ids {
			if w, ok := p.walkers[id]; ok {
				w.effect = &Effect{Kind: kind, Timer: effectTime}
			}
		}
	}
}

// EffectOn returns the active effect over a villager.
func (p *Plaza) EffectOn(id agents.VillagerID) (Effect, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.walkers[id]
	if !ok || w.effect == nil {
		return Effect{}, false
	}
	return *w.effect, true
}

// Target returns where a villager is heading.
func (p *Plaza) Target(id agents.VillagerID) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.walkers[id]
	if !ok {
		return 0, false
	}
	return w.targetX, true
}

// String returns a summary of the plaza.
func (p *Plaza) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("Plaza(width=%.0f, houses=%d, villagers=%d)", p.Width, len(p.Houses), len(p.walkers))
}
