// Package render draws the town for terminals.
package render

import (
	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/engine"
)

// DefaultGlyph is shown for villagers without a recognised primary trait.
const DefaultGlyph = "🦋"

var traitGlyphs = map[agents.Trait]string{
	agents.TraitFriendly:    "😊",
	agents.TraitShy:         "😳",
	agents.TraitArtistic:    "🎨",
	agents.TraitAthletic:    "⚽",
	agents.TraitBookish:     "📚",
	agents.TraitRebellious:  "😎",
	agents.TraitRomantic:    "💝",
	agents.TraitCompetitive: "🏆",
	agents.TraitGossip:      "💬",
	agents.TraitPeacemaker:  "☮️",
}

var moodIcons = map[agents.Mood]string{
	agents.MoodHappy:      "😊",
	agents.MoodSad:        "😢",
	agents.MoodAngry:      "😠",
	agents.MoodExcited:    "🤩",
	agents.MoodAnxious:    "😰",
	agents.MoodNeutral:    "😐",
	agents.MoodLoveStruck: "😍",
	agents.MoodJealous:    "😒",
}

var relationshipIcons = map[agents.RelationshipType]string{
	agents.RelFriend:  "💚",
	agents.RelRomance: "💖",
	agents.RelRival:   "⚡",
	agents.RelNeutral: "➖",
}

var consequenceIcons = map[engine.ConsequenceType]string{
	engine.ConsequencePositive: "✅",
	engine.ConsequenceNegative: "❌",
	engine.ConsequenceNeutral:  "ℹ️",
	engine.ConsequenceRomance:  "💖",
	engine.ConsequenceRivalry:  "⚡",
	engine.ConsequenceChaos:    "🌀",
}

// Glyph picks a villager's sprite from the first trait in traits.
func Glyph(traits []agents.Trait) string {
	if len(traits) == 0 {
		return DefaultGlyph
	}
	if g, ok := traitGlyphs[traits[0]]; ok {
		return g
	}
	return DefaultGlyph
}

// MoodIcon falls back to the neutral face.
func MoodIcon(m agents.Mood) string {
	if icon, ok := moodIcons[m]; ok {
		return icon
	}
	return moodIcons[agents.MoodNeutral]
}

// RelationshipIcon falls back to the neutral marker.
func RelationshipIcon(t agents.RelationshipType) string {
	if icon, ok := relationshipIcons[t]; ok {
		return icon
	}
	return relationshipIcons[agents.RelNeutral]
}

// ConsequenceIcon falls back to the neutral marker.
func ConsequenceIcon(t engine.ConsequenceType) string {
	if icon, ok := consequenceIcons[t]; ok {
		return icon
	}
	return consequenceIcons[engine.ConsequenceNeutral]
}
