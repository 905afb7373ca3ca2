package domain

// ProductID identifies a product in the REST backend.
type ProductID int64

// UserID identifies a user in the REST backend.
type UserID int64

// CartItem is one line of the cart. A cart holds at most one item per ID.
type CartItem struct {
	ID       ProductID `json:"id" validate:"required,gt=0"`
	Name     string    `json:"name" validate:"required"`
	Price    float64   `json:"price" validate:"gte=0"`
	Quantity int       `json:"quantity" validate:"gte=1"`
	Image    string    `json:"image,omitempty"`
}

// LineTotal returns price times quantity.
func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Cart is the ordered list of cart lines; insertion order is display order.
type Cart []CartItem

// ItemCount returns the sum of quantities.
func (c Cart) ItemCount() int {
	var n int
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

// Subtotal returns the sum of price*quantity over all lines.
func (c Cart) Subtotal() float64 {
	var total float64
	for _, item := range c {
		total += item.LineTotal()
	}
	return total
}

// IndexOf returns the position of the line with id, or -1.
func (c Cart) IndexOf(id ProductID) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}
