package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/stewardhq/steward/internal/records"
)

func (r *Registry) registerTradingTools() {
	r.mustRegister(&Tool{
		Name:        "log_trade",
		Description: "Record an executed trade in the trading journal.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"symbol":   map[string]any{"type": "string", "description": "Ticker symbol (e.g., AAPL)"},
				"side":     map[string]any{"type": "string", "enum": []string{"buy", "sell"}},
				"quantity": map[string]any{"type": "number"},
				"price":    map[string]any{"type": "number", "description": "Fill price per unit"},
				"notes":    map[string]any{"type": "string", "description": "Thesis or context for the trade"},
				"executed_at": map[string]any{
					"type":        "string",
					"description": "Execution time, RFC 3339 (default now)",
				},
			},
			"required": []string{"symbol", "side", "quantity", "price"},
		},
		Handler: r.handleLogTrade,
	})

	r.mustRegister(&Tool{
		Name:        "list_trades",
		Description: "List recent trades, optionally filtered by symbol, newest first.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"symbol": map[string]any{"type": "string"},
				"limit":  map[string]any{"type": "integer", "description": "Max results (default 50)"},
			},
		},
		Handler: r.handleListTrades,
	})

	r.mustRegister(&Tool{
		Name:        "add_trading_note",
		Description: "Add a freeform journal note about the market, a strategy, or a lesson learned.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"content"},
		},
		Handler: r.handleAddTradingNote,
	})
}

func (r *Registry) handleLogTrade(ctx context.Context, userID string, args map[string]any) (any, error) {
	var in struct {
		Symbol     string  `json:"symbol"`
		Side       string  `json:"side"`
		Quantity   float64 `json:"quantity"`
		Price      float64 `json:"price"`
		Notes      string  `json:"notes"`
		ExecutedAt string  `json:"executed_at"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if in.Side != records.TradeSideBuy && in.Side != records.TradeSideSell {
		return nil, fmt.Errorf("side must be buy or sell")
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}

	var executedAt time.Time
	if in.ExecutedAt != "" {
		t, err := time.Parse(time.RFC3339, in.ExecutedAt)
		if err != nil {
			return nil, fmt.Errorf("executed_at must be RFC 3339: %v", err)
		}
		executedAt = t
	}

	return r.store.CreateTrade(&records.Trade{
		UserID:     userID,
		Symbol:     in.Symbol,
		Side:       in.Side,
		Quantity:   in.Quantity,
		Price:      in.Price,
		Notes:      in.Notes,
		ExecutedAt: executedAt,
	})
}

func (r *Registry) handleListTrades(ctx context.Context, userID string, args map[string]any) (any, error) {
	symbol, _ := args["symbol"].(string)
	trades, err := r.store.ListTrades(userID, symbol, intArg(args, "limit"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"trades": emptyIfNil(trades)}, nil
}

func (r *Registry) handleAddTradingNote(ctx context.Context, userID string, args map[string]any) (any, error) {
	content, _ := args["content"].(string)
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	return r.store.CreateTradingNote(userID, content)
}
