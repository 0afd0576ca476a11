// Relationship store. Each villager owns the directed half of every bond
// it has. Mirrors are written explicitly by callers.
package agents

import "sort"

// Affinity bounds and reclassification thresholds.
const (
	MinAffinity Affinity = -100
	MaxAffinity Affinity = 100

	FriendThreshold Affinity = 60  // above: friend (romance is sticky)
	RivalThreshold  Affinity = -40 // below: rival
)

// Affinity is one villager's feeling toward another, clamped to [-100, 100].
// Gossip scales deltas by 1.5, so half-points occur.
type Affinity float64

// Clamp bounds a to [MinAffinity, MaxAffinity].
func (a Affinity) Clamp() Affinity {
	if a < MinAffinity {
		return MinAffinity
	}
	if a > MaxAffinity {
		return MaxAffinity
	}
	return a
}

// RelationshipType labels a bond.
type RelationshipType string

const (
	RelNeutral RelationshipType = "neutral"
	RelFriend  RelationshipType = "friend"
	RelRomance RelationshipType = "romance"
	RelRival   RelationshipType = "rival"
)

// Relationship is the directed half of a bond, owned by the source villager.
type Relationship struct {
	PeerID   VillagerID       `json:"peer_id"`
	PeerName string           `json:"peer_name"` // copied at creation, not kept in sync
	Affinity Affinity         `json:"affinity"`
	Type     RelationshipType `json:"type"`
}

// RelationshipSummary is the presentation view of one bond.
type RelationshipSummary struct {
	PeerID   VillagerID       `json:"peer_id"`
	Name     string           `json:"name"`
	Affinity Affinity         `json:"affinity"`
	Type     RelationshipType `json:"type"`
}

// ClassifyAffinity derives a relationship type from affinity.
// Romance survives the high branch but not the low one.
func ClassifyAffinity(current RelationshipType, a Affinity) RelationshipType {
	switch {
	case a > FriendThreshold:
		if current == RelRomance {
			return RelRomance
		}
		return RelFriend
	case a < RivalThreshold:
		return RelRival
	default:
		return RelNeutral
	}
}

// SetRelationship inserts or overwrites v's half of the bond with peer.
// The mirror on peer is not touched.
func (v *Villager) SetRelationship(peer *Villager, affinity Affinity, typ RelationshipType) {
	if typ == "" {
		typ = RelNeutral
	}
	if v.Relationships == nil {
		v.Relationships = make(map[VillagerID]*Relationship)
	}
	v.Relationships[peer.ID] = &Relationship{
		PeerID:   peer.ID,
		PeerName: peer.Name,
		Affinity: affinity,
		Type:     typ,
	}
}

// Relationship returns v's half of the bond with peer, or nil.
func (v *Villager) Relationship(peer *Villager) *Relationship {
	return v.Relationships[peer.ID]
}

// ModifyAffinity adds delta to v's bond with peer, clamps it, and
// reclassifies the type. No-op when no bond exists.
func (v *Villager) ModifyAffinity(peer *Villager, delta Affinity) {
	rel, ok := v.Relationships[peer.ID]
	if !ok {
		return
	}
	rel.Affinity = (rel.Affinity + delta).Clamp()
	rel.Type = ClassifyAffinity(rel.Type, rel.Affinity)
}

// RelationshipSummary lists v's bonds sorted by peer name, then peer ID.
func (v *Villager) RelationshipSummary() []RelationshipSummary {
	out := make([]RelationshipSummary, 0, len(v.Relationships))
	for _, rel := range v.Relationships {
		out = append(out, RelationshipSummary{
			PeerID:   rel.PeerID,
			Name:     rel.PeerName,
			Affinity: rel.Affinity,
			Type:     rel.Type,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PeerID < out[j].PeerID
	})
	return out
}
