// Package agent implements the turn engine: it takes one user message,
// assembles context, loops the model through tool rounds, and persists
// everything the turn produced.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/guard"
	"github.com/stewardhq/steward/internal/llm"
	"github.com/stewardhq/steward/internal/memory"
	"github.com/stewardhq/steward/internal/prefs"
	"github.com/stewardhq/steward/internal/prompts"
	"github.com/stewardhq/steward/internal/tools"
)

// Classified engine failures. The API layer maps these onto status codes.
var (
	// ErrNotConfigured means no provider client can serve the requested model.
	ErrNotConfigured = errors.New("no completion provider configured")

	// ErrRateLimited means the user's turn budget is exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrProvider wraps upstream provider failures.
	ErrProvider = errors.New("provider error")
)

// fallbackAnswer is returned when the turn hits the round ceiling or
// the round deadline and the model can't be coaxed into a final answer.
const fallbackAnswer = "I wasn't able to finish working through that. The changes I completed so far have been saved; ask me to continue if you'd like me to pick it up again."

// Turn is the result of one completed engine turn. UserMessage and
// AssistantMessage are the persisted records, ids and timestamps
// included, so callers can reference them later. SessionID is empty
// for turns run against the user's global history.
type Turn struct {
	SessionID        string          `json:"session_id,omitempty"`
	Content          string          `json:"content"`
	Model            string          `json:"model"`
	Rounds           int             `json:"rounds"`
	ToolCalls        int             `json:"tool_calls"`
	InputTokens      int             `json:"input_tokens"`
	OutputTokens     int             `json:"output_tokens"`
	UserMessage      *memory.Message `json:"user_message"`
	AssistantMessage *memory.Message `json:"assistant_message"`
}

// Engine orchestrates turns.
type Engine struct {
	logger   *slog.Logger
	clients  map[string]llm.Client
	memory   *memory.Store
	prefs    *prefs.Store
	registry *tools.Registry
	prompts  *prompts.Assembler
	guard    *guard.Guard
	cfg      config.EngineConfig

	defaultModel string
	providerFor  func(model string) string
}

// Options wires an Engine. Clients maps provider name to client;
// Guard and Prefs may be nil.
type Options struct {
	Logger       *slog.Logger
	Clients      map[string]llm.Client
	Memory       *memory.Store
	Prefs        *prefs.Store
	Registry     *tools.Registry
	Prompts      *prompts.Assembler
	Guard        *guard.Guard
	Engine       config.EngineConfig
	DefaultModel string
	ProviderFor  func(model string) string
}

// New creates a turn engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Engine
	if cfg.ToolRounds <= 0 {
		cfg.ToolRounds = 5
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	if cfg.RoundTimeoutSec <= 0 {
		cfg.RoundTimeoutSec = 60
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	providerFor := opts.ProviderFor
	if providerFor == nil {
		providerFor = func(string) string { return "anthropic" }
	}
	return &Engine{
		logger:       logger,
		clients:      opts.Clients,
		memory:       opts.Memory,
		prefs:        opts.Prefs,
		registry:     opts.Registry,
		prompts:      opts.Prompts,
		guard:        opts.Guard,
		cfg:          cfg,
		defaultModel: opts.DefaultModel,
		providerFor:  providerFor,
	}
}

// Send runs one turn and returns the final answer.
func (e *Engine) Send(ctx context.Context, userID, sessionID, text string) (*Turn, error) {
	return e.run(ctx, userID, sessionID, text, nil)
}

// SendStream runs one turn, streaming tokens and tool events to the
// callback as they happen. The callback also receives a KindDone event
// before SendStream returns.
func (e *Engine) SendStream(ctx context.Context, userID, sessionID, text string, callback llm.StreamCallback) (*Turn, error) {
	return e.run(ctx, userID, sessionID, text, callback)
}

func (e *Engine) run(ctx context.Context, userID, sessionID, text string, callback llm.StreamCallback) (*Turn, error) {
	if e.guard != nil && !e.guard.Allow(userID) {
		return nil, ErrRateLimited
	}

	model, temperature, maxTokens := e.resolveModel(userID)
	client := e.clients[e.providerFor(model)]
	if client == nil {
		return nil, ErrNotConfigured
	}

	// An empty sessionID addresses the user's global history; the turn
	// runs there rather than in a fresh session, so sessionless callers
	// keep conversational continuity.
	//
	// The user message is durable before the first provider call, so a
	// crashed or failed turn never loses what the user said.
	userMsg := &memory.Message{
		SessionID: sessionID,
		UserID:    userID,
		Role:      "user",
		Content:   text,
	}
	if err := e.memory.Append(userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	system := e.prompts.Build(ctx, userID)
	history, err := e.memory.History(userID, sessionID, e.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	for _, m := range history {
		messages = append(messages, llm.Message{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
		})
	}

	turn := &Turn{SessionID: sessionID, Model: model, UserMessage: userMsg}
	defs := e.registry.Definitions()

	e.logger.Info("turn started",
		"user_id", userID,
		"session_id", sessionID,
		"model", model,
		"history", len(history),
	)

	for round := 0; round < e.cfg.ToolRounds; round++ {
		turn.Rounds = round + 1

		resp, err := e.callModel(ctx, client, llm.ChatRequest{
			Model:       model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Messages:    messages,
			Tools:       defs,
		}, callback)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				e.logger.Warn("round deadline hit", "session_id", sessionID, "round", round)
				return e.finishFallback(userID, sessionID, model, turn, callback)
			}
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		turn.InputTokens += resp.InputTokens
		turn.OutputTokens += resp.OutputTokens

		calls := resp.Message.ToolCalls
		if len(calls) == 0 {
			return e.finishAnswer(userID, sessionID, model, resp, turn, callback)
		}

		// Persist the assistant's tool request before running anything,
		// mirroring the order the provider saw.
		err = e.memory.Append(&memory.Message{
			SessionID:  sessionID,
			UserID:     userID,
			Role:       "assistant",
			Content:    resp.Message.Content,
			ToolCalls:  calls,
			Model:      model,
			TokensUsed: resp.OutputTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("persist assistant message: %w", err)
		}
		messages = append(messages, resp.Message)

		results := e.dispatch(ctx, userID, calls, callback)
		turn.ToolCalls += len(calls)

		for i, call := range calls {
			toolMsg := llm.Message{
				Role:       "tool",
				Content:    results[i],
				ToolCallID: call.ID,
			}
			err = e.memory.Append(&memory.Message{
				SessionID:  sessionID,
				UserID:     userID,
				Role:       "tool",
				Content:    results[i],
				ToolCallID: call.ID,
			})
			if err != nil {
				return nil, fmt.Errorf("persist tool result: %w", err)
			}
			messages = append(messages, toolMsg)
		}
	}

	e.logger.Warn("tool round ceiling hit", "session_id", sessionID, "rounds", e.cfg.ToolRounds)
	return e.finishFallback(userID, sessionID, model, turn, callback)
}

// callModel makes one provider call under the round deadline.
func (e *Engine) callModel(ctx context.Context, client llm.Client, req llm.ChatRequest, callback llm.StreamCallback) (*llm.ChatResponse, error) {
	roundCtx, cancel := context.WithTimeout(ctx, e.cfg.RoundTimeout())
	defer cancel()

	if callback != nil {
		return client.ChatStream(roundCtx, req, func(ev llm.StreamEvent) {
			// Only raw tokens pass through; the engine emits its own
			// tool and done events with results attached.
			if ev.Kind == llm.KindToken {
				callback(ev)
			}
		})
	}
	return client.Chat(roundCtx, req)
}

// dispatch runs one round's tool calls concurrently and returns their
// results in request order.
func (e *Engine) dispatch(ctx context.Context, userID string, calls []llm.ToolCall, callback llm.StreamCallback) []string {
	// Tool handlers run under the same wall-clock budget as a model
	// call, so a hung handler cannot stall the turn indefinitely.
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RoundTimeout())
	defer cancel()

	if callback != nil {
		for i := range calls {
			callback(llm.StreamEvent{Kind: llm.KindToolCallStart, ToolCall: &calls[i]})
		}
	}

	results := make([]string, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			start := time.Now()
			results[i] = e.registry.Invoke(ctx, userID, call.Name, call.Arguments)
			e.logger.Debug("tool dispatched",
				"tool", call.Name,
				"duration", time.Since(start),
			)
		}(i, call)
	}
	wg.Wait()

	if callback != nil {
		for i, call := range calls {
			callback(llm.StreamEvent{
				Kind:       llm.KindToolCallDone,
				ToolName:   call.Name,
				ToolResult: results[i],
			})
		}
	}
	return results
}

func (e *Engine) finishAnswer(userID, sessionID, model string, resp *llm.ChatResponse, turn *Turn, callback llm.StreamCallback) (*Turn, error) {
	answer := &memory.Message{
		SessionID:  sessionID,
		UserID:     userID,
		Role:       "assistant",
		Content:    resp.Message.Content,
		Model:      model,
		TokensUsed: resp.OutputTokens,
	}
	if err := e.memory.Append(answer); err != nil {
		return nil, fmt.Errorf("persist answer: %w", err)
	}

	turn.Content = resp.Message.Content
	turn.AssistantMessage = answer
	e.logger.Info("turn completed",
		"session_id", sessionID,
		"rounds", turn.Rounds,
		"tool_calls", turn.ToolCalls,
		"input_tokens", turn.InputTokens,
		"output_tokens", turn.OutputTokens,
	)
	if callback != nil {
		callback(llm.StreamEvent{Kind: llm.KindDone, Response: resp})
	}
	return turn, nil
}

func (e *Engine) finishFallback(userID, sessionID, model string, turn *Turn, callback llm.StreamCallback) (*Turn, error) {
	answer := &memory.Message{
		SessionID: sessionID,
		UserID:    userID,
		Role:      "assistant",
		Content:   fallbackAnswer,
		Model:     model,
	}
	if err := e.memory.Append(answer); err != nil {
		return nil, fmt.Errorf("persist fallback: %w", err)
	}

	turn.Content = fallbackAnswer
	turn.AssistantMessage = answer
	if callback != nil {
		callback(llm.StreamEvent{Kind: llm.KindDone, Response: &llm.ChatResponse{
			Model:   model,
			Message: llm.Message{Role: "assistant", Content: fallbackAnswer},
			Done:    true,
		}})
	}
	return turn, nil
}

// resolveModel applies the user's preferences over the server defaults.
func (e *Engine) resolveModel(userID string) (model string, temperature float64, maxTokens int) {
	model = e.defaultModel
	maxTokens = e.cfg.MaxTokens

	if e.prefs == nil {
		return model, 0, maxTokens
	}
	p, err := e.prefs.Get(userID)
	if err != nil {
		e.logger.Warn("prefs unavailable", "user_id", userID, "error", err)
		return model, 0, maxTokens
	}
	if p.Model != "" {
		model = p.Model
	}
	if p.Temperature != nil {
		temperature = *p.Temperature
	}
	if p.MaxTokens > 0 && p.MaxTokens < maxTokens {
		maxTokens = p.MaxTokens
	}
	return model, temperature, maxTokens
}
