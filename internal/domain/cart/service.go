package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

// ErrInvalidQuantity is returned when an add request asks for fewer than one unit.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// SessionStore persists carts for the lifetime of a browsing session.
type SessionStore interface {
	// Load returns the session's cart, or an empty cart when none is stored.
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// ProductReader looks up the current catalog entry for a product.
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// Service applies cart mutations to session-scoped carts. Every mutation is
// load, validate, mutate, save; a failed validation saves nothing.
type Service struct {
	sessions SessionStore
	products ProductReader
}

// NewService creates a cart Service.
func NewService(sessions SessionStore, products ProductReader) *Service {
	return &Service{sessions: sessions, products: products}
}

// Get returns the session's cart.
func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	c, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return c, nil
}

// Add puts quantity units of (productID, size) in the cart after checking
// stock.
func (s *Service) Add(ctx context.Context, sessionID, productID string, size catalog.Size, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := CheckAdd(p, size, c, quantity); err != nil {
		return nil, err
	}

	c.AddItem(p, size, quantity)
	return c, s.save(ctx, sessionID, c)
}

// Update sets the quantity of a line. Increases are stock-checked; zero or
// negative quantities remove the line.
func (s *Service) Update(ctx context.Context, sessionID, productID string, size catalog.Size, quantity int) (*Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	current := c.Quantity(productID, size)
	if current == 0 {
		return c, nil
	}
	if delta := quantity - current; delta > 0 {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if err := CheckAdd(p, size, c, delta); err != nil {
			return nil, err
		}
	}

	c.UpdateQuantity(productID, size, quantity)
	return c, s.save(ctx, sessionID, c)
}

// Remove deletes a line; removing an absent line is not an error.
func (s *Service) Remove(ctx context.Context, sessionID, productID string, size catalog.Size) (*Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.RemoveItem(productID, size)
	return c, s.save(ctx, sessionID, c)
}

// Clear drops the session's cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

func (s *Service) save(ctx context.Context, sessionID string, c *Cart) error {
	if err := s.sessions.Save(ctx, sessionID, c); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}
