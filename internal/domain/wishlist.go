package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// WishlistItem is a saved product snapshot. A wishlist holds at most one
// item per ID.
type WishlistItem struct {
	ID           ProductID  `json:"id" validate:"required,gt=0"`
	Name         string     `json:"name" validate:"required"`
	Price        float64    `json:"price" validate:"gte=0"`
	Image        string     `json:"image,omitempty"`
	Description  string     `json:"description,omitempty"`
	CategoryID   CategoryID `json:"categoryId,omitempty"`
	CategoryName string     `json:"categoryName,omitempty"`
}

// CategoryID is kept as text. Older clients stored it as a JSON number, so
// both forms decode.
type CategoryID string

// UnmarshalJSON accepts a JSON string, number or null.
func (c *CategoryID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = CategoryID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("categoryId: %w", err)
	}
	*c = CategoryID(n.String())
	return nil
}

// CategoryIDFromInt formats a numeric backend category ID.
func CategoryIDFromInt(id int64) CategoryID {
	if id == 0 {
		return ""
	}
	return CategoryID(strconv.FormatInt(id, 10))
}

// Wishlist is the ordered set of saved items.
type Wishlist []WishlistItem

// IndexOf returns the position of the item with id, or -1.
func (w Wishlist) IndexOf(id ProductID) int {
	for i := range w {
		if w[i].ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is in the wishlist.
func (w Wishlist) Contains(id ProductID) bool {
	return w.IndexOf(id) >= 0
}

// Clone returns a copy that shares no backing array with w.
func (w Wishlist) Clone() Wishlist {
	out := make(Wishlist, len(w))
	copy(out, w)
	return out
}
