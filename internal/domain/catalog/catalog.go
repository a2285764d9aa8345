package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Size is a garment size. The set is fixed and ordered from smallest to largest.
type Size string

const (
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

// Sizes lists every size in display order.
var Sizes = []Size{SizeS, SizeM, SizeL, SizeXL, SizeXXL}

// ParseSize validates s against the fixed size set.
func ParseSize(s string) (Size, error) {
	for _, size := range Sizes {
		if string(size) == s {
			return size, nil
		}
	}
	return "", errors.Errorf("unknown size %q", s)
}

// Category groups products in the catalog.
type Category string

const (
	CategoryFormal         Category = "Formal"
	CategoryBusinessCasual Category = "Business Casual"
	CategoryCasual         Category = "Casual"
)

// Categories lists every category.
var Categories = []Category{CategoryFormal, CategoryBusinessCasual, CategoryCasual}

// ParseCategory validates s against the fixed category set.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", errors.Errorf("unknown category %q", s)
}

// SizeStock is the on-hand quantity of a product in one size.
type SizeStock struct {
	Size     Size
	Quantity int
}

// Product is a pant+shirt combo sold per unit.
type Product struct {
	ID            string
	Name          string
	Description   string
	PantDetails   string
	ShirtDetails  string
	Price         decimal.Decimal
	OriginalPrice decimal.NullDecimal
	Category      Category
	ImageURL      string
	Featured      bool
	Stock         []SizeStock
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AvailableQuantity returns the stock for size, or 0 when the product has no
// row for it.
func (p *Product) AvailableQuantity(size Size) int {
	for _, s := range p.Stock {
		if s.Size == size {
			return s.Quantity
		}
	}
	return 0
}

// Discounted reports whether the product shows a struck-through original price.
func (p *Product) Discounted() bool {
	return p.OriginalPrice.Valid && p.OriginalPrice.Decimal.GreaterThan(p.Price)
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	SetStock(ctx context.Context, productID string, stock []SizeStock) error
}
