package domain

// Product is the catalog record served by the REST backend. Records that
// fail validation are never handed to the stores.
type Product struct {
	ID              ProductID `json:"id" validate:"required,gt=0"`
	Name            string    `json:"name" validate:"required"`
	Description     string    `json:"description"`
	Price           float64   `json:"price" validate:"gte=0"`
	Amount          int       `json:"amount" validate:"gte=0"`
	Sold            int       `json:"sold" validate:"gte=0"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	CategoryID      int64     `json:"categoryId" validate:"required,gt=0"`
	CategoryName    string    `json:"categoryName,omitempty"`
	SubcategoryID   int64     `json:"subcategoryId,omitempty" validate:"gte=0"`
	SubcategoryName string    `json:"subcategoryName,omitempty"`
	SupplierID      *int64    `json:"supplierId,omitempty"`
	SupplierName    *string   `json:"supplierName,omitempty"`
}

// InStock reports whether any units remain.
func (p Product) InStock() bool {
	return p.Amount > 0
}

// CartItem snapshots the product as a cart line of qty units.
func (p Product) CartItem(qty int) CartItem {
	return CartItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: qty,
		Image:    p.ImageURL,
	}
}

// WishlistItem snapshots the product for the wishlist.
func (p Product) WishlistItem() WishlistItem {
	return WishlistItem{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		Image:        p.ImageURL,
		Description:  p.Description,
		CategoryID:   CategoryIDFromInt(p.CategoryID),
		CategoryName: p.CategoryName,
	}
}

// Category is a product category.
type Category struct {
	ID   int64  `json:"id" validate:"required,gt=0"`
	Name string `json:"name" validate:"required"`
}
