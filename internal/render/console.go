package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/talgya/butterfly-city/internal/agents"
	"github.com/talgya/butterfly-city/internal/engine"
)

const sceneWidth = 80

// ANSI colours per consequence type.
var consequenceColors = map[engine.ConsequenceType]string{
	engine.ConsequencePositive: "\x1b[32m",
	engine.ConsequenceNegative: "\x1b[31m",
	engine.ConsequenceRomance:  "\x1b[35m",
	engine.ConsequenceRivalry:  "\x1b[33m",
	engine.ConsequenceChaos:    "\x1b[36m",
}

const colorReset = "\x1b[0m"

// Console writes the town as plain text, coloured on terminals.
type Console struct {
	w     io.Writer
	color bool
	title cases.Caser

	// Now is the reference time for event ages.
	Now func() time.Time
}

// NewConsole writes to w. Colour is enabled only when w is a terminal.
func NewConsole(w io.Writer) *Console {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Console{
		w:     w,
		color: color,
		title: cases.Title(language.English),
		Now:   time.Now,
	}
}

// Label title-cases a trait or mood name for display.
func (c *Console) Label(s string) string {
	return c.title.String(s)
}

func labels[T ~string](c *Console, vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = c.Label(string(v))
	}
	return strings.Join(parts, ", ")
}

// Heading prints a section title.
func (c *Console) Heading(title string) {
	fmt.Fprintf(c.w, "\n=== %s ===\n\n", title)
}

// Scene prints every villager with mood, traits, and bonds.
func (c *Console) Scene(villagers []engine.VillagerView) {
	rule := strings.Repeat("=", sceneWidth)
	fmt.Fprintf(c.w, "\n%s\n%*s\n%s\n\n", rule, sceneWidth/2+7, "BUTTERFLY CITY", rule)

	for _, v := range villagers {
		fmt.Fprintf(c.w, "%s %s %s [%s]\n", Glyph(v.Traits), v.Name, MoodIcon(v.Mood), c.Label(string(v.Mood)))
		fmt.Fprintf(c.w, "   Traits: %s\n", labels(c, v.Traits))
		if len(v.Relationships) > 0 {
			fmt.Fprintln(c.w, "   Relationships:")
			for _, r := range v.Relationships {
				fmt.Fprintf(c.w, "     %s %s: %v (%s)\n", RelationshipIcon(r.Type), r.Name, r.Affinity, r.Type)
			}
		}
		fmt.Fprintln(c.w)
	}
	fmt.Fprintf(c.w, "%s\n\n", rule)
}

// Consequences prints a numbered list of nudge outcomes.
func (c *Console) Consequences(cs []engine.Consequence) {
	fmt.Fprintln(c.w, "\n--- CONSEQUENCES ---")
	for i, q := range cs {
		line := fmt.Sprintf("%d. %s %s", i+1, ConsequenceIcon(q.Type), q.Description)
		if col, ok := consequenceColors[q.Type]; ok && c.color {
			line = col + line + colorReset
		}
		fmt.Fprintln(c.w, line)
	}
	fmt.Fprint(c.w, "-------------------\n\n")
}

// Events prints log entries oldest first with their age.
func (c *Console) Events(events []engine.Event) {
	now := c.Now()
	for _, e := range events {
		fmt.Fprintf(c.w, "#%d [%s] %s: %s\n", e.ID, humanize.RelTime(e.Timestamp, now, "ago", "from now"), e.Type, e.Description)
	}
}

// Villager prints a one-line description.
func (c *Console) Villager(v *agents.Villager) {
	fmt.Fprintf(c.w, "%s %s\n", Glyph(v.Traits), v)
}
