package tools

import (
	"context"
	"fmt"
)

func (r *Registry) registerShoppingTools() {
	r.mustRegister(&Tool{
		Name:        "add_shopping_item",
		Description: "Add an item to the shopping list.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":     map[string]any{"type": "string"},
				"quantity": map[string]any{"type": "string", "description": "Freeform quantity (e.g., '2L', 'a dozen')"},
			},
			"required": []string{"name"},
		},
		Handler: r.handleAddShoppingItem,
	})

	r.mustRegister(&Tool{
		Name:        "list_shopping_items",
		Description: "List the shopping list. Unchecked items come first.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"include_checked": map[string]any{
					"type":        "boolean",
					"description": "Include already-bought items (default false)",
				},
			},
		},
		Handler: r.handleListShoppingItems,
	})

	r.mustRegister(&Tool{
		Name:        "check_shopping_item",
		Description: "Mark a shopping item as bought, or un-mark it.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{"type": "string", "description": "Item id"},
				"checked": map[string]any{
					"type":        "boolean",
					"description": "true = bought (default true)",
				},
			},
			"required": []string{"id"},
		},
		Handler: r.handleCheckShoppingItem,
	})

	r.mustRegister(&Tool{
		Name:        "clear_checked_items",
		Description: "Remove all bought items from the shopping list.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: r.handleClearCheckedItems,
	})
}

func (r *Registry) handleAddShoppingItem(ctx context.Context, userID string, args map[string]any) (any, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	quantity, _ := args["quantity"].(string)
	return r.store.AddShoppingItem(userID, name, quantity)
}

func (r *Registry) handleListShoppingItems(ctx context.Context, userID string, args map[string]any) (any, error) {
	includeChecked, _ := args["include_checked"].(bool)
	items, err := r.store.ListShoppingItems(userID, includeChecked)
	if err != nil {
		return nil, err
	}
	return map[string]any{"items": emptyIfNil(items)}, nil
}

func (r *Registry) handleCheckShoppingItem(ctx context.Context, userID string, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	checked := true
	if v, ok := args["checked"].(bool); ok {
		checked = v
	}
	if err := r.store.CheckShoppingItem(userID, id, checked); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "checked": checked}, nil
}

func (r *Registry) handleClearCheckedItems(ctx context.Context, userID string, args map[string]any) (any, error) {
	n, err := r.store.ClearCheckedShoppingItems(userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"cleared": n}, nil
}
