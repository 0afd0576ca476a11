// Nudges are player interventions on villagers. Each nudge mutates villagers
// and their bonds in place, logs to the event log, and returns the
// consequences for display.
package engine

import (
	"fmt"

	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/entropy"
)

// ConsequenceType classifies a nudge outcome for display.
type ConsequenceType string

const (
	ConsequencePositive ConsequenceType = "positive"
	ConsequenceNegative ConsequenceType = "negative"
	ConsequenceNeutral  ConsequenceType = "neutral"
	ConsequenceRomance  ConsequenceType = "romance"
	ConsequenceRivalry  ConsequenceType = "rivalry"
	ConsequenceChaos    ConsequenceType = "chaos"
)

// Consequence is one displayed outcome of a nudge. Not persisted.
type Consequence struct {
	Type        ConsequenceType `json:"type"`
	Description string          `json:"description"`
}

// Outcome is what a nudge returns to its caller.
type Outcome struct {
	Consequences []Consequence `json:"consequences"`
}

func (o *Outcome) add(typ ConsequenceType, format string, args ...any) {
	o.Consequences = append(o.Consequences, Consequence{
		Type:        typ,
		Description: fmt.Sprintf(format, args...),
	})
}

// Affinity arithmetic shared by the nudges.
const (
	friendlyBonus    agents.Affinity = 15
	shyPenalty       agents.Affinity = 10
	sharedTraitBonus agents.Affinity = 10

	hitItOffAbove    agents.Affinity = 20
	awkwardBelow     agents.Affinity = -10
	smittenAbove     agents.Affinity = 30
	smittenBoost     agents.Affinity = 20
	gossipBond       agents.Affinity = 10
	gossipDamage     agents.Affinity = -15
	gossipMultiplier agents.Affinity = 1.5
	peacemakerSnub   agents.Affinity = -20
	groupMeetStart   agents.Affinity = 10
	groupReunion     agents.Affinity = 5
)

// Resolver applies nudge rules. It is not safe for concurrent use; the
// town serializes calls.
type Resolver struct {
	log *EventLog
	rng entropy.Source
}

// NewResolver creates a resolver logging to log and flipping coins with rng.
// A nil log gets a fresh default log; a nil rng uses crypto/rand.
func NewResolver(log *EventLog, rng entropy.Source) *Resolver {
	if log == nil {
		log = NewEventLog(DefaultMaxEvents)
	}
	if rng == nil {
		rng = entropy.Crypto()
	}
	return &Resolver{log: log, rng: rng}
}

// Log returns the resolver's event log.
func (r *Resolver) Log() *EventLog {
	return r.log
}

// IntroductionAffinity computes the starting affinity between a and b.
// Shared traits are counted over a's list without deduplication.
func IntroductionAffinity(a, b *agents.Villager) agents.Affinity {
	var aff agents.Affinity
	if a.HasTrait(agents.TraitFriendly) {
		aff += friendlyBonus
	}
	if b.HasTrait(agents.TraitFriendly) {
		aff += friendlyBonus
	}
	if a.HasTrait(agents.TraitShy) {
		aff -= shyPenalty
	}
	if b.HasTrait(agents.TraitShy) {
		aff -= shyPenalty
	}
	for _, t := range a.Traits {
		if b.HasTrait(t) {
			aff += sharedTraitBonus
		}
	}
	return aff
}

// Introduce has a and b meet. Villagers who already know each other are
// left untouched.
func (r *Resolver) Introduce(a, b *agents.Villager) Outcome {
	r.log.Log(EventNudge,
		fmt.Sprintf("You introduce %s to %s", a.Name, b.Name),
		map[string]any{"villager1": a.Name, "villager2": b.Name})

	var out Outcome
	if a.Relationship(b) != nil {
		out.add(ConsequenceNeutral, "%s and %s already know each other", a.Name, b.Name)
		return out
	}

	aff := IntroductionAffinity(a, b)
	a.SetRelationship(b, aff, agents.RelNeutral)
	b.SetRelationship(a, aff, agents.RelNeutral)

	switch {
	case aff > hitItOffAbove:
		a.SetMood(agents.MoodHappy)
		b.SetMood(agents.MoodHappy)
		out.add(ConsequencePositive, "%s and %s hit it off! (Affinity: %v)", a.Name, b.Name, aff)
		r.log.Log(EventConsequence, fmt.Sprintf("%s and %s became friends!", a.Name, b.Name), nil)
	case aff < awkwardBelow:
		out.add(ConsequenceNegative, "%s and %s don't seem to click (Affinity: %v)", a.Name, b.Name, aff)
		r.log.Log(EventConsequence, fmt.Sprintf("%s and %s feel awkward around each other", a.Name, b.Name), nil)
	default:
		out.add(ConsequenceNeutral, "%s and %s meet (Affinity: %v)", a.Name, b.Name, aff)
	}

	// Only a's half becomes romance; b's mirror keeps its derived type.
	if a.HasTrait(agents.TraitRomantic) && aff > smittenAbove {
		a.SetMood(agents.MoodLoveStruck)
		a.ModifyAffinity(b, smittenBoost)
		a.Relationship(b).Type = agents.RelRomance
		out.add(ConsequenceRomance, "%s is smitten with %s!", a.Name, b.Name)
		r.log.Log(EventConsequence, fmt.Sprintf("%s develops romantic feelings!", a.Name),
			map[string]any{"target": b.Name})
	}
	return out
}

// ShareGossip has gossiper tell listener about subject.
func (r *Resolver) ShareGossip(gossiper, listener, subject *agents.Villager) Outcome {
	r.log.Log(EventNudge,
		fmt.Sprintf("You nudge %s to gossip with %s about %s", gossiper.Name, listener.Name, subject.Name),
		map[string]any{"gossiper": gossiper.Name, "listener": listener.Name, "subject": subject.Name})

	var out Outcome
	bonus := agents.Affinity(1.0)
	if gossiper.HasTrait(agents.TraitGossip) {
		bonus = gossipMultiplier
	}

	if gossiper.Relationship(listener) != nil {
		gossiper.ModifyAffinity(listener, gossipBond*bonus)
		listener.ModifyAffinity(gossiper, gossipBond*bonus)
		out.add(ConsequencePositive, "%s and %s bond over gossip", gossiper.Name, listener.Name)
	}

	if rel := listener.Relationship(subject); rel != nil {
		listener.ModifyAffinity(subject, gossipDamage*bonus)
		out.add(ConsequenceNegative, "%s's opinion of %s decreases", listener.Name, subject.Name)

		if rel.Affinity < agents.RivalThreshold {
			rel.Type = agents.RelRival
			listener.SetMood(agents.MoodAngry)
			out.add(ConsequenceRivalry, "%s and %s are now rivals!", listener.Name, subject.Name)
			r.log.Log(EventConsequence, fmt.Sprintf("A rivalry forms between %s and %s!", listener.Name, subject.Name), nil)
		}
	}

	if listener.HasTrait(agents.TraitPeacemaker) {
		gossiper.ModifyAffinity(listener, peacemakerSnub)
		listener.SetMood(agents.MoodSad)
		out.add(ConsequenceChaos, "%s (a peacemaker) is disappointed in %s for gossiping!", listener.Name, gossiper.Name)
		r.log.Log(EventConsequence, fmt.Sprintf("%s disapproves of gossip", listener.Name), nil)
	}
	return out
}

// EncourageRomance has admirer make a romantic gesture toward target.
func (r *Resolver) EncourageRomance(admirer, target *agents.Villager) Outcome {
	r.log.Log(EventNudge,
		fmt.Sprintf("You encourage %s to make a romantic gesture toward %s", admirer.Name, target.Name),
		map[string]any{"admirer": admirer.Name, "target": target.Name})

	var out Outcome
	rel := admirer.Relationship(target)
	if rel == nil {
		out.add(ConsequenceChaos, "%s and %s barely know each other! This is awkward!", admirer.Name, target.Name)
		admirer.SetMood(agents.MoodAnxious)
		return out
	}

	switch aff := rel.Affinity; {
	case aff > 40:
		admirer.ModifyAffinity(target, 30)
		target.ModifyAffinity(admirer, 25)
		admirer.SetMood(agents.MoodLoveStruck)
		target.SetMood(agents.MoodLoveStruck)
		rel.Type = agents.RelRomance
		if back := target.Relationship(admirer); back != nil {
			back.Type = agents.RelRomance
		}
		out.add(ConsequenceRomance, "%s and %s start a romance!", admirer.Name, target.Name)
		r.log.Log(EventConsequence, fmt.Sprintf("Romance blooms between %s and %s!", admirer.Name, target.Name), nil)
	case aff > 0:
		admirer.ModifyAffinity(target, 10)
		target.ModifyAffinity(admirer, -5)
		admirer.SetMood(agents.MoodAnxious)
		target.SetMood(agents.MoodNeutral)
		out.add(ConsequenceChaos, "%s is flattered but not interested. %s feels awkward.", target.Name, admirer.Name)
		r.log.Log(EventConsequence, fmt.Sprintf("%s's romantic gesture is politely declined", admirer.Name), nil)
	default:
		admirer.ModifyAffinity(target, -10)
		target.ModifyAffinity(admirer, -20)
		admirer.SetMood(agents.MoodSad)
		target.SetMood(agents.MoodAngry)
		out.add(ConsequenceChaos, "%s rejects %s! The atmosphere is tense.", target.Name, admirer.Name)
		r.log.Log(EventConsequence, fmt.Sprintf("%s's romantic gesture backfires spectacularly!", admirer.Name), nil)
	}

	r.checkForJealousy(admirer, target, &out)
	return out
}

// checkForJealousy is the hook for villagers reacting to a romance they
// are not part of. It currently changes nothing.
func (r *Resolver) checkForJealousy(admirer, target *agents.Villager, out *Outcome) {}

// StartCompetition pits a against b; the winner is a coin flip.
func (r *Resolver) StartCompetition(a, b *agents.Villager) Outcome {
	r.log.Log(EventNudge,
		fmt.Sprintf("You set up a friendly competition between %s and %s", a.Name, b.Name),
		map[string]any{"villager1": a.Name, "villager2": b.Name})

	var out Outcome

	// Snapshot a's view before any mutation below.
	var before *agents.Affinity
	if rel := a.Relationship(b); rel != nil {
		aff := rel.Affinity
		before = &aff
	}

	winner, loser := b, a
	if r.rng.Float64() > 0.5 {
		winner, loser = a, b
	}

	out.add(ConsequenceNeutral, "%s wins the competition!", winner.Name)

	switch {
	case loser.HasTrait(agents.TraitCompetitive):
		loser.ModifyAffinity(winner, -25)
		loser.SetMood(agents.MoodAngry)
		out.add(ConsequenceRivalry, "%s (competitive) doesn't take the loss well!", loser.Name)

		if before != nil && *before < agents.RivalThreshold {
			out.add(ConsequenceRivalry, "%s and %s become rivals!", loser.Name, winner.Name)
			r.log.Log(EventConsequence, "Competition creates a rivalry!", nil)
		}
	case loser.HasTrait(agents.TraitFriendly):
		loser.ModifyAffinity(winner, 10)
		winner.ModifyAffinity(loser, 10)
		loser.SetMood(agents.MoodHappy)
		winner.SetMood(agents.MoodHappy)
		out.add(ConsequencePositive, "%s (friendly) is a good sport. Their friendship strengthens!", loser.Name)
	default:
		loser.ModifyAffinity(winner, -5)
		loser.SetMood(agents.MoodNeutral)
	}
	return out
}

// DefaultGroupEvent is used when OrganizeGroupEvent gets no event type.
const DefaultGroupEvent = "party"

// OrganizeGroupEvent has host throw an event for attendees. Strangers meet,
// acquaintances grow closer, and shy villagers dislike big crowds.
func (r *Resolver) OrganizeGroupEvent(host *agents.Villager, attendees []*agents.Villager, eventType string) Outcome {
	if eventType == "" {
		eventType = DefaultGroupEvent
	}
	names := make([]string, len(attendees))
	for i, v := range attendees {
		names[i] = v.Name
	}
	r.log.Log(EventNudge,
		fmt.Sprintf("%s organizes a %s with %d attendees", host.Name, eventType, len(attendees)),
		map[string]any{"host": host.Name, "attendees": names})

	var out Outcome
	host.SetMood(agents.MoodExcited)
	out.add(ConsequencePositive, "%s feels proud of hosting!", host.Name)

	for i := 0; i < len(attendees); i++ {
		for j := i + 1; j < len(attendees); j++ {
			v1, v2 := attendees[i], attendees[j]
			if v1.Relationship(v2) == nil {
				v1.SetRelationship(v2, groupMeetStart, agents.RelNeutral)
				v2.SetRelationship(v1, groupMeetStart, agents.RelNeutral)
				out.add(ConsequencePositive, "%s and %s meet at the %s", v1.Name, v2.Name, eventType)
			} else {
				v1.ModifyAffinity(v2, groupReunion)
				v2.ModifyAffinity(v1, groupReunion)
			}
		}
	}

	if len(attendees) > 3 {
		for _, v := range attendees {
			if v.HasTrait(agents.TraitShy) {
				v.SetMood(agents.MoodAnxious)
				out.add(ConsequenceChaos, "%s (shy) feels overwhelmed by the crowd!", v.Name)
			}
		}
	}
	return out
}
