// Package cart implements the session shopping cart and its stock checks.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

// Line is one (product, size) entry in a cart. UnitPrice is the catalog price
// captured when the line was first added and is never refreshed.
type Line struct {
	ProductID string          `json:"productId"`
	Size      catalog.Size    `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
}

// Total returns UnitPrice × Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered collection of lines, unique per (product, size).
// The zero value is an empty cart.
type Cart struct {
	Lines []Line `json:"lines"`
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

func (c *Cart) index(productID string, size catalog.Size) int {
	for i, l := range c.Lines {
		if l.ProductID == productID && l.Size == size {
			return i
		}
	}
	return -1
}

// AddItem adds quantity units of product in size. An existing line for the
// same (product, size) is incremented and keeps its original price snapshot.
// A quantity below 1 adds a single unit.
func (c *Cart) AddItem(p *catalog.Product, size catalog.Size, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	if i := c.index(p.ID, size); i >= 0 {
		c.Lines[i].Quantity += quantity
		return
	}
	c.Lines = append(c.Lines, Line{
		ProductID: p.ID,
		Size:      size,
		Quantity:  quantity,
		UnitPrice: p.Price,
		Name:      p.Name,
		Image:     p.ImageURL,
	})
}

// UpdateQuantity sets the quantity of an existing line. Zero or negative
// quantities remove the line. Unknown lines are ignored.
func (c *Cart) UpdateQuantity(productID string, size catalog.Size, quantity int) {
	i := c.index(productID, size)
	if i < 0 {
		return
	}
	if quantity <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return
	}
	c.Lines[i].Quantity = quantity
}

// RemoveItem deletes the matching line if present.
func (c *Cart) RemoveItem(productID string, size catalog.Size) {
	c.UpdateQuantity(productID, size, 0)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = nil
}

// Quantity returns the quantity already in the cart for (product, size).
func (c *Cart) Quantity(productID string, size catalog.Size) int {
	if i := c.index(productID, size); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// TotalItems returns the sum of all line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice returns the sum of all line totals.
func (c *Cart) TotalPrice() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	if c.Lines == nil {
		return &Cart{}
	}
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	return &Cart{Lines: lines}
}
