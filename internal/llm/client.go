package llm

import "context"

// Client is the interface that all completion providers implement.
// Clients are constructed once at startup and injected into the turn
// engine, which keeps provider wiring out of the request path and
// makes the engine testable with scripted doubles.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ChatStream sends a streaming chat request. If callback is non-nil,
	// tokens are streamed to it.
	ChatStream(ctx context.Context, req ChatRequest, callback StreamCallback) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
