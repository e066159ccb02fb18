package prompts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stewardhq/steward/internal/buildinfo"
	"github.com/stewardhq/steward/internal/records"
)

// OpenTasksBrief surfaces today's open and overdue tasks so the model
// can answer "what should I do today" without a tool round.
type OpenTasksBrief struct {
	store *records.Store
	max   int
}

// NewOpenTasksBrief creates the brief. max caps the listed tasks;
// zero or less means 10.
func NewOpenTasksBrief(store *records.Store, max int) *OpenTasksBrief {
	if max <= 0 {
		max = 10
	}
	return &OpenTasksBrief{store: store, max: max}
}

func (b *OpenTasksBrief) Name() string { return "open_tasks" }

func (b *OpenTasksBrief) Generate(ctx context.Context, userID string) (string, error) {
	date := time.Now().UTC().Format("2006-01-02")
	tasks, err := b.store.TodayTasks(userID, date)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("Tasks due or overdue today:\n")
	for i, t := range tasks {
		if i >= b.max {
			sb.WriteString(fmt.Sprintf("...and %d more\n", len(tasks)-b.max))
			break
		}
		line := fmt.Sprintf("- [%s] %s", t.Priority, t.Title)
		if t.DueDate != "" && t.DueDate < date {
			line += fmt.Sprintf(" (overdue, due %s)", t.DueDate)
		}
		sb.WriteString(line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// SystemStatusBrief tells the model what it is running as, so it can
// answer questions about itself accurately.
type SystemStatusBrief struct {
	model string
}

// NewSystemStatusBrief creates the brief; model is the configured
// default model name.
func NewSystemStatusBrief(model string) *SystemStatusBrief {
	return &SystemStatusBrief{model: model}
}

func (b *SystemStatusBrief) Name() string { return "system_status" }

func (b *SystemStatusBrief) Generate(ctx context.Context, userID string) (string, error) {
	return fmt.Sprintf("System: %s, default model %s, up %s.",
		buildinfo.String(), b.model, buildinfo.Uptime()), nil
}
