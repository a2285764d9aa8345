package pos

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
)

// SessionStore persists terminal sessions.
type SessionStore interface {
	// Load returns the terminal's session, or nil when none is stored.
	Load(ctx context.Context, terminalID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// Catalog is the product source for the POS picker.
type Catalog interface {
	List(ctx context.Context) ([]catalog.Product, error)
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// StaleMarker is told when sales change product availability.
type StaleMarker interface {
	MarkStale(ctx context.Context)
}

// Availability is a catalog product with the units still sellable per size
// after what the terminal's cart already holds.
type Availability struct {
	Product   catalog.Product
	Available []catalog.SizeStock
}

const saveAttempts = 3

// Service runs POS sessions for many terminals. Each call loads the
// terminal's session, applies one transition and saves it. Rejected
// transitions are not saved.
type Service struct {
	sessions SessionStore
	catalog  Catalog
	orders   Placer
	stale    StaleMarker

	// unsaved holds completed sales whose session could not be stored,
	// keyed by terminal. They shadow the stored session until a save
	// succeeds so the sale cannot be confirmed twice.
	mu      sync.Mutex
	unsaved map[string]*Session
}

// NewService creates a POS Service. stale may be nil.
func NewService(sessions SessionStore, products Catalog, orders Placer, stale StaleMarker) *Service {
	return &Service{
		sessions: sessions,
		catalog:  products,
		orders:   orders,
		stale:    stale,
		unsaved:  make(map[string]*Session),
	}
}

// Session returns the terminal's current session.
func (s *Service) Session(ctx context.Context, terminalID string) (*Session, error) {
	if sess := s.pending(terminalID); sess != nil {
		return sess, nil
	}
	sess, err := s.sessions.Load(ctx, terminalID)
	if err != nil {
		return nil, errors.Wrap(err, "load pos session")
	}
	if sess == nil {
		sess = NewSession(terminalID)
	}
	return sess, nil
}

func (s *Service) apply(ctx context.Context, terminalID string, fn func(*Session) error) (*Session, error) {
	sess, err := s.Session(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess *Session) error {
	var err error
	for range saveAttempts {
		if err = s.sessions.Save(ctx, sess); err == nil {
			s.mu.Lock()
			delete(s.unsaved, sess.TerminalID)
			s.mu.Unlock()
			return nil
		}
	}
	return errors.Wrap(err, "save pos session")
}

// pending returns a copy of the terminal's unsaved completed sale, if any.
func (s *Service) pending(terminalID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.unsaved[terminalID]
	if !ok {
		return nil
	}
	cp := *sess
	cp.Cart = cart.New()
	return &cp
}

func (s *Service) remember(sess *Session) {
	cp := *sess
	cp.Cart = cart.New()
	s.mu.Lock()
	s.unsaved[sess.TerminalID] = &cp
	s.mu.Unlock()
}

// Search filters the catalog by name or category and reports per-size
// availability for the terminal.
func (s *Service) Search(ctx context.Context, terminalID, query string) ([]Availability, error) {
	sess, err := s.Session(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}

	found := catalog.Search(products, query)
	out := make([]Availability, len(found))
	for i, p := range found {
		avail := make([]catalog.SizeStock, len(catalog.Sizes))
		for j, size := range catalog.Sizes {
			n := cart.AvailableQuantity(&p, size) - sess.Cart.Quantity(p.ID, size)
			if n < 0 {
				n = 0
			}
			avail[j] = catalog.SizeStock{Size: size, Quantity: n}
		}
		out[i] = Availability{Product: p, Available: avail}
	}
	return out, nil
}

// SelectSize changes the terminal's selected size.
func (s *Service) SelectSize(ctx context.Context, terminalID string, size catalog.Size) (*Session, error) {
	return s.apply(ctx, terminalID, func(sess *Session) error {
		return sess.SelectSize(size)
	})
}

// Add puts one unit of the product in the selected size into the cart.
func (s *Service) Add(ctx context.Context, terminalID, productID string) (*Session, error) {
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, terminalID, func(sess *Session) error {
		return sess.Add(p)
	})
}

// SetQuantity sets a cart line's quantity.
func (s *Service) SetQuantity(ctx context.Context, terminalID, productID string, size catalog.Size, quantity int) (*Session, error) {
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, terminalID, func(sess *Session) error {
		return sess.SetQuantity(p, size, quantity)
	})
}

// Increment adds one unit to a cart line.
func (s *Service) Increment(ctx context.Context, terminalID, productID string, size catalog.Size) (*Session, error) {
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, terminalID, func(sess *Session) error {
		return sess.Increment(p, size)
	})
}

// Decrement removes one unit from a cart line.
func (s *Service) Decrement(ctx context.Context, terminalID, productID string, size catalog.Size) (*Session, error) {
	return s.apply(ctx, terminalID, func(sess *Session) error {
		return sess.Decrement(productID, size)
	})
}

// Remove drops a cart line.
func (s *Service) Remove(ctx context.Context, terminalID, productID string, size catalog.Size) (*Session, error) {
	return s.apply(ctx, terminalID, func(sess *Session) error {
		return sess.Remove(productID, size)
	})
}

// Checkout moves to customer review.
func (s *Service) Checkout(ctx context.Context, terminalID string) (*Session, error) {
	return s.apply(ctx, terminalID, (*Session).Checkout)
}

// SetCustomer records the optional customer contact.
func (s *Service) SetCustomer(ctx context.Context, terminalID string, c Customer) (*Session, error) {
	return s.apply(ctx, terminalID, func(sess *Session) error {
		return sess.SetCustomer(c)
	})
}

// ProceedToPayment moves to payment selection.
func (s *Service) ProceedToPayment(ctx context.Context, terminalID string) (*Session, error) {
	return s.apply(ctx, terminalID, (*Session).ProceedToPayment)
}

// SelectPayment records the payment method.
func (s *Service) SelectPayment(ctx context.Context, terminalID string, m order.PaymentMethod) (*Session, error) {
	return s.apply(ctx, terminalID, func(sess *Session) error {
		return sess.SelectPayment(m)
	})
}

// BackToCart returns to cart editing.
func (s *Service) BackToCart(ctx context.Context, terminalID string) (*Session, error) {
	return s.apply(ctx, terminalID, (*Session).BackToCart)
}

// Confirm places the sale and displays its receipt. A failed placement
// leaves the session in payment selection with the cart intact. Once the
// order is placed the sale is reported as completed even if the session
// cannot be stored.
func (s *Service) Confirm(ctx context.Context, terminalID string) (*Session, error) {
	lg := zctx.From(ctx).With(zap.String("terminal", terminalID))

	sess, err := s.Session(ctx, terminalID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Confirm(ctx, s.orders); err != nil {
		if errors.Is(err, cart.ErrOutOfStock) {
			s.markStale(ctx)
		}
		lg.Warn("POS sale failed", zap.Error(err))
		return nil, err
	}
	if _, err := sess.ShowReceipt(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		s.remember(sess)
		lg.Error("POS sale placed but session not stored",
			zap.String("order_number", sess.Receipt.OrderNumber),
			zap.Error(err),
		)
	}

	lg.Info("POS sale completed",
		zap.String("order_number", sess.Receipt.OrderNumber),
		zap.String("total", sess.Receipt.Total.String()),
	)
	s.markStale(ctx)
	return sess, nil
}

// NewSale resets the terminal for the next customer.
func (s *Service) NewSale(ctx context.Context, terminalID string) (*Session, error) {
	return s.apply(ctx, terminalID, (*Session).NewSale)
}

func (s *Service) markStale(ctx context.Context) {
	if s.stale != nil {
		s.stale.MarkStale(ctx)
	}
}
