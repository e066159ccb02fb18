// Package prompts assembles the system prompt for each turn: the
// persona, the current date, the user's custom instructions, and a set
// of briefs that surface live state (open tasks, system status) to the
// model without it having to ask.
package prompts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stewardhq/steward/internal/prefs"
)

// DefaultPersona is used when the config doesn't override it.
const DefaultPersona = `You are Steward, a personal assistant that manages the user's tasks, notes, health log, reading list, trading journal, and day-to-day records through the tools available to you.

Be concise and direct. When the user asks you to record something, use a tool rather than just acknowledging. When you need information about the user's records, look it up with a tool rather than guessing. Confirm what you did in one or two sentences.`

// Brief produces one section of live context for the system prompt.
// Briefs fail open: a brief that errors is logged and omitted, never
// blocking the turn.
type Brief interface {
	Name() string
	Generate(ctx context.Context, userID string) (string, error)
}

// Assembler builds system prompts.
type Assembler struct {
	persona string
	prefs   *prefs.Store
	briefs  []Brief
	logger  *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewAssembler creates an assembler. An empty persona falls back to
// DefaultPersona; prefs may be nil when custom instructions are not
// wanted.
func NewAssembler(persona string, prefStore *prefs.Store, logger *slog.Logger) *Assembler {
	if persona == "" {
		persona = DefaultPersona
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		persona: persona,
		prefs:   prefStore,
		logger:  logger,
		now:     time.Now,
	}
}

// AddBrief appends a brief producer. Nil briefs are ignored.
func (a *Assembler) AddBrief(b Brief) {
	if b != nil {
		a.briefs = append(a.briefs, b)
	}
}

// Build assembles the system prompt for one turn.
func (a *Assembler) Build(ctx context.Context, userID string) string {
	var sections []string
	sections = append(sections, a.persona)
	sections = append(sections, fmt.Sprintf("Current date: %s", a.now().UTC().Format("Monday, January 2, 2006")))

	if a.prefs != nil {
		p, err := a.prefs.Get(userID)
		if err != nil {
			a.logger.Warn("prefs unavailable for prompt", "user_id", userID, "error", err)
		} else if p.CustomInstructions != "" {
			sections = append(sections, "User instructions:\n"+p.CustomInstructions)
		}
	}

	for _, b := range a.briefs {
		content, err := b.Generate(ctx, userID)
		if err != nil {
			a.logger.Warn("brief failed", "brief", b.Name(), "user_id", userID, "error", err)
			continue
		}
		if content != "" {
			sections = append(sections, content)
		}
	}

	return strings.Join(sections, "\n\n")
}
