package records

import (
	"database/sql"
	"fmt"
	"time"
)

// ShoppingItem is one entry on the shared shopping list.
type ShoppingItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Quantity  string    `json:"quantity,omitempty"`
	Checked   bool      `json:"checked"`
	CreatedAt time.Time `json:"created_at"`
}

// AddShoppingItem appends an item to the list.
func (s *Store) AddShoppingItem(userID, name, quantity string) (*ShoppingItem, error) {
	it := &ShoppingItem{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		Quantity:  quantity,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(`
		INSERT INTO shopping_items (id, user_id, name, quantity, checked, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, it.ID, it.UserID, it.Name, nullable(it.Quantity), fmtTime(it.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	return it, nil
}

// ListShoppingItems returns the list, unchecked items first, oldest first
// within each group. When includeChecked is false, checked items are
// omitted.
func (s *Store) ListShoppingItems(userID string, includeChecked bool) ([]*ShoppingItem, error) {
	query := `
		SELECT id, user_id, name, quantity, checked, created_at
		FROM shopping_items WHERE user_id = ?`
	if !includeChecked {
		query += ` AND checked = 0`
	}
	query += ` ORDER BY checked ASC, created_at ASC`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("query shopping items: %w", err)
	}
	defer rows.Close()

	var items []*ShoppingItem
	for rows.Next() {
		var it ShoppingItem
		var quantity sql.NullString
		var created string
		if err := rows.Scan(&it.ID, &it.UserID, &it.Name, &quantity, &it.Checked, &created); err != nil {
			return nil, err
		}
		it.Quantity = quantity.String
		it.CreatedAt = parseTime(created)
		items = append(items, &it)
	}
	return items, rows.Err()
}

// CheckShoppingItem marks an item as bought (or unmarks it).
func (s *Store) CheckShoppingItem(userID, id string, checked bool) error {
	res, err := s.db.Exec(`
		UPDATE shopping_items SET checked = ? WHERE user_id = ? AND id = ?
	`, checked, userID, id)
	if err != nil {
		return fmt.Errorf("update shopping item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("shopping item", id)
	}
	return nil
}

// ClearCheckedShoppingItems removes all checked items and reports how
// many were deleted.
func (s *Store) ClearCheckedShoppingItems(userID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM shopping_items WHERE user_id = ? AND checked = 1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear shopping items: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
