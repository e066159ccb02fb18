// Package tools defines the tools available to the assistant and the
// registry that dispatches model-requested tool calls onto the record
// store. Every handler is scoped to the calling user; tools can never
// read or write another user's records.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/stewardhq/steward/internal/records"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, userID string, args map[string]any) (any, error)
}

// Registry holds the available tools.
type Registry struct {
	tools  map[string]*Tool
	store  *records.Store
	logger *slog.Logger
}

// NewRegistry creates a registry with every builtin tool registered.
func NewRegistry(store *records.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:  make(map[string]*Tool),
		store:  store,
		logger: logger,
	}
	r.registerTaskTools()
	r.registerCaptureTools()
	r.registerHealthTools()
	r.registerDocumentTools()
	r.registerVentureTools()
	r.registerTradingTools()
	r.registerShoppingTools()
	r.registerBookTools()
	r.registerDayTools()
	return r
}

// Register adds a tool. Registering the same name twice is a
// programming error and fails loudly.
func (r *Registry) Register(t *Tool) error {
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool already registered: %s", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// mustRegister is for builtins, whose names are compile-time constants.
func (r *Registry) mustRegister(t *Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns all tools in the wire format the model expects,
// sorted by name so requests are deterministic.
func (r *Registry) Definitions() []map[string]any {
	defs := make([]map[string]any, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		defs = append(defs, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return defs
}

// Invoke runs a tool and returns its result as a JSON string. Failures
// of any kind, including unknown tools, bad arguments, and handler
// panics, come back as a JSON error payload rather than a Go error so
// the model can see what went wrong and correct itself.
func (r *Registry) Invoke(ctx context.Context, userID, name string, args map[string]any) string {
	tool := r.tools[name]
	if tool == nil {
		return errorPayload(fmt.Sprintf("unknown tool: %s", name))
	}

	start := time.Now()
	result, err := r.invoke(ctx, tool, userID, args)
	elapsed := time.Since(start)

	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "user_id", userID, "duration", elapsed, "error", err)
		return errorPayload(err.Error())
	}
	r.logger.Debug("tool ok", "tool", name, "user_id", userID, "duration", elapsed)

	raw, err := json.Marshal(result)
	if err != nil {
		return errorPayload(fmt.Sprintf("encode result: %v", err))
	}
	return string(raw)
}

func (r *Registry) invoke(ctx context.Context, tool *Tool, userID string, args map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panic: %v", rec)
		}
	}()
	return tool.Handler(ctx, userID, args)
}

func errorPayload(msg string) string {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return string(raw)
}

// decodeArgs maps loosely-typed model arguments onto a typed args
// struct by round-tripping through JSON.
func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// today formats the current UTC date the way date arguments are passed.
func today() string {
	return time.Now().UTC().Format("2006-01-02")
}
