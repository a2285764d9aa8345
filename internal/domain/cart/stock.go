package cart

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

// ErrOutOfStock matches every *OutOfStockError.
var ErrOutOfStock = errors.New("out of stock")

// OutOfStockError reports a rejected request for more units than remain.
type OutOfStockError struct {
	ProductID string
	Size      catalog.Size
	Requested int
	Available int
	InCart    int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("size %s of product %s is out of stock: requested %d, available %d, in cart %d",
		e.Size, e.ProductID, e.Requested, e.Available, e.InCart)
}

// Is makes errors.Is(err, ErrOutOfStock) hold.
func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// AvailableQuantity returns the on-hand stock of product in size. A missing
// stock row means zero.
func AvailableQuantity(p *catalog.Product, size catalog.Size) int {
	return p.AvailableQuantity(size)
}

// CanAdd reports whether requested more units fit in the stock that remains
// after what the cart already holds for the same line.
func CanAdd(p *catalog.Product, size catalog.Size, c *Cart, requested int) bool {
	return requested+c.Quantity(p.ID, size) <= AvailableQuantity(p, size)
}

// CheckAdd is CanAdd returning an *OutOfStockError on rejection.
func CheckAdd(p *catalog.Product, size catalog.Size, c *Cart, requested int) error {
	if CanAdd(p, size, c, requested) {
		return nil
	}
	return &OutOfStockError{
		ProductID: p.ID,
		Size:      size,
		Requested: requested,
		Available: AvailableQuantity(p, size),
		InCart:    c.Quantity(p.ID, size),
	}
}
