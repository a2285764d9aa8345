package catalog

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedImage is returned for uploads whose extension is not an image type.
var ErrUnsupportedImage = errors.New("unsupported image type")

// InvalidProductError indicates a product field failed validation.
type InvalidProductError struct {
	Field  string
	Reason string
}

func (e *InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product %s: %s", e.Field, e.Reason)
}

// ImageStore uploads product images to public storage.
type ImageStore interface {
	// Upload stores the content under name and returns its public URL.
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// ProductInput carries the editable fields of a product.
type ProductInput struct {
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
}

// Mutation is the outcome of a catalog change. CatalogStale tells the caller
// that any cached catalog view must be reloaded.
type Mutation struct {
	Product      *Product
	CatalogStale bool
}

// Service implements product management for the admin console.
type Service struct {
	products Repository
	images   ImageStore
	now      func() time.Time
}

// NewService creates a catalog Service.
func NewService(products Repository, images ImageStore) *Service {
	return &Service{products: products, images: images, now: time.Now}
}

// Create validates and stores a new product. Stock rows are created for every
// size; sizes missing from the input start at zero.
func (s *Service) Create(ctx context.Context, in ProductInput) (*Mutation, error) {
	stock, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Product{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		PantDetails:   in.PantDetails,
		ShirtDetails:  in.ShirtDetails,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Category:      in.Category,
		ImageURL:      in.ImageURL,
		Featured:      in.Featured,
		Stock:         stock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return &Mutation{Product: p, CatalogStale: true}, nil
}

// Update replaces the editable fields and stock of an existing product.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) (*Mutation, error) {
	stock, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.PantDetails = in.PantDetails
	p.ShirtDetails = in.ShirtDetails
	p.Price = in.Price
	p.OriginalPrice = in.OriginalPrice
	p.Category = in.Category
	p.ImageURL = in.ImageURL
	p.Featured = in.Featured
	p.Stock = stock
	p.UpdatedAt = s.now().UTC()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	}
	if err := s.products.SetStock(ctx, id, stock); err != nil {
		return nil, errors.Wrapf(err, "set stock for product %s", id)
	}
	return &Mutation{Product: p, CatalogStale: true}, nil
}

// SetStock replaces the per-size stock of a product.
func (s *Service) SetStock(ctx context.Context, id string, stock []SizeStock) (*Mutation, error) {
	normalized, err := normalizeStock(stock)
	if err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.products.SetStock(ctx, id, normalized); err != nil {
		return nil, errors.Wrapf(err, "set stock for product %s", id)
	}
	p.Stock = normalized
	return &Mutation{Product: p, CatalogStale: true}, nil
}

// Delete removes a product and its stock rows. Orders keep their own copy of
// the product name so history is unaffected.
func (s *Service) Delete(ctx context.Context, id string) (*Mutation, error) {
	if err := s.products.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &Mutation{CatalogStale: true}, nil
}

// UploadImage stores an image under a generated unique name and returns its
// public URL.
func (s *Service) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	name, err := imageName(filename, s.now())
	if err != nil {
		return "", err
	}
	url, err := s.images.Upload(ctx, name, r)
	if err != nil {
		return "", errors.Wrap(err, "upload image")
	}
	return url, nil
}

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true,
}

// imageName builds "<unix-millis>-<random>.<ext>" from the uploaded filename.
func imageName(filename string, now time.Time) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !imageExtensions[ext] {
		return "", ErrUnsupportedImage
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%d-%s.%s", now.UnixMilli(), suffix, ext), nil
}

func validateInput(in ProductInput) ([]SizeStock, error) {
	if len(strings.TrimSpace(in.Name)) < 2 {
		return nil, &InvalidProductError{Field: "name", Reason: "must be at least 2 characters"}
	}
	if !in.Price.IsPositive() {
		return nil, &InvalidProductError{Field: "price", Reason: "must be greater than 0"}
	}
	if in.OriginalPrice.Valid && in.OriginalPrice.Decimal.IsNegative() {
		return nil, &InvalidProductError{Field: "originalPrice", Reason: "must not be negative"}
	}
	if _, err := ParseCategory(string(in.Category)); err != nil {
		return nil, &InvalidProductError{Field: "category", Reason: err.Error()}
	}
	return normalizeStock(in.Stock)
}

// normalizeStock returns one row per size in display order. Duplicate sizes
// and negative quantities are rejected.
func normalizeStock(stock []SizeStock) ([]SizeStock, error) {
	bySize := make(map[Size]int, len(Sizes))
	for _, s := range stock {
		if _, err := ParseSize(string(s.Size)); err != nil {
			return nil, &InvalidProductError{Field: "stock", Reason: err.Error()}
		}
		if _, dup := bySize[s.Size]; dup {
			return nil, &InvalidProductError{Field: "stock", Reason: fmt.Sprintf("duplicate size %s", s.Size)}
		}
		if s.Quantity < 0 {
			return nil, &InvalidProductError{Field: "stock", Reason: fmt.Sprintf("negative quantity for size %s", s.Size)}
		}
		bySize[s.Size] = s.Quantity
	}

	out := make([]SizeStock, len(Sizes))
	for i, size := range Sizes {
		out[i] = SizeStock{Size: size, Quantity: bySize[size]}
	}
	return out, nil
}
