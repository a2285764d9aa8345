// Package pos implements the in-store point-of-sale flow.
package pos

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
)

// State is a step of the point-of-sale flow.
type State string

const (
	StateBrowsing         State = "browsing"
	StateCartBuilding     State = "cart_building"
	StateCheckoutReview   State = "checkout_review"
	StatePaymentSelection State = "payment_selection"
	StateConfirmed        State = "confirmed"
	StateReceiptDisplayed State = "receipt_displayed"
)

// DefaultSize is the size selected when a sale starts.
const DefaultSize = catalog.SizeM

// ErrInvalidState matches every *StateError.
var ErrInvalidState = errors.New("operation not allowed in current state")

// StateError reports an operation attempted outside the states that allow it.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// Is makes errors.Is(err, ErrInvalidState) hold.
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// Customer is the optional contact captured for an in-store sale.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c Customer) orderCustomer() order.Customer {
	return order.Customer{Name: c.Name, Phone: c.Phone, Email: c.Email}
}

// Placer stores assembled orders.
type Placer interface {
	Place(ctx context.Context, req order.PlaceRequest) (*order.Result, error)
}

// Session is the state of one POS terminal. It is owned by a single operator
// and is not safe for concurrent use.
type Session struct {
	TerminalID    string              `json:"terminalId"`
	State         State               `json:"state"`
	SelectedSize  catalog.Size        `json:"selectedSize"`
	Cart          *cart.Cart          `json:"cart"`
	Customer      Customer            `json:"customer"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod,omitempty"`
	Receipt       *Receipt            `json:"receipt,omitempty"`
}

// NewSession starts a terminal in Browsing with an empty cart.
func NewSession(terminalID string) *Session {
	return &Session{
		TerminalID:   terminalID,
		State:        StateBrowsing,
		SelectedSize: DefaultSize,
		Cart:         cart.New(),
	}
}

func (s *Session) require(op string, states ...State) error {
	for _, st := range states {
		if s.State == st {
			return nil
		}
	}
	return &StateError{Op: op, State: s.State}
}

func (s *Session) building(op string) error {
	return s.require(op, StateBrowsing, StateCartBuilding)
}

// syncCartState moves between Browsing and CartBuilding as the cart fills and
// empties.
func (s *Session) syncCartState() {
	if s.Cart.IsEmpty() {
		s.State = StateBrowsing
		return
	}
	s.State = StateCartBuilding
}

// SelectSize changes the size used by Add.
func (s *Session) SelectSize(size catalog.Size) error {
	if err := s.building("select size"); err != nil {
		return err
	}
	if _, err := catalog.ParseSize(string(size)); err != nil {
		return err
	}
	s.SelectedSize = size
	return nil
}

// Add puts one unit of p in the selected size into the cart.
func (s *Session) Add(p *catalog.Product) error {
	if err := s.building("add"); err != nil {
		return err
	}
	if err := cart.CheckAdd(p, s.SelectedSize, s.Cart, 1); err != nil {
		return err
	}
	s.Cart.AddItem(p, s.SelectedSize, 1)
	s.syncCartState()
	return nil
}

// SetQuantity sets a line's quantity. Increases are checked against p's stock;
// zero or less removes the line.
func (s *Session) SetQuantity(p *catalog.Product, size catalog.Size, quantity int) error {
	if err := s.building("set quantity"); err != nil {
		return err
	}
	current := s.Cart.Quantity(p.ID, size)
	if delta := quantity - current; current > 0 && delta > 0 {
		if err := cart.CheckAdd(p, size, s.Cart, delta); err != nil {
			return err
		}
	}
	s.Cart.UpdateQuantity(p.ID, size, quantity)
	s.syncCartState()
	return nil
}

// Increment adds one unit to an existing line.
func (s *Session) Increment(p *catalog.Product, size catalog.Size) error {
	return s.SetQuantity(p, size, s.Cart.Quantity(p.ID, size)+1)
}

// Decrement removes one unit from a line, dropping it at zero.
func (s *Session) Decrement(productID string, size catalog.Size) error {
	if err := s.building("decrement"); err != nil {
		return err
	}
	s.Cart.UpdateQuantity(productID, size, s.Cart.Quantity(productID, size)-1)
	s.syncCartState()
	return nil
}

// Remove drops a line from the cart.
func (s *Session) Remove(productID string, size catalog.Size) error {
	if err := s.building("remove"); err != nil {
		return err
	}
	s.Cart.RemoveItem(productID, size)
	s.syncCartState()
	return nil
}

// Checkout moves to CheckoutReview. An empty cart cannot be checked out.
func (s *Session) Checkout() error {
	if err := s.building("checkout"); err != nil {
		return err
	}
	if s.Cart.IsEmpty() {
		return order.ErrEmptyCart
	}
	s.State = StateCheckoutReview
	return nil
}

// SetCustomer records the optional customer contact.
func (s *Session) SetCustomer(c Customer) error {
	if err := s.require("set customer", StateCheckoutReview); err != nil {
		return err
	}
	s.Customer = c
	return nil
}

// ProceedToPayment validates the customer contact and moves to
// PaymentSelection. Cash is preselected.
func (s *Session) ProceedToPayment() error {
	if err := s.require("proceed to payment", StateCheckoutReview); err != nil {
		return err
	}
	if _, err := order.ValidateCustomer(s.Customer.orderCustomer(), order.ChannelOffline); err != nil {
		return err
	}
	if s.PaymentMethod == "" {
		s.PaymentMethod = order.PaymentCash
	}
	s.State = StatePaymentSelection
	return nil
}

// SelectPayment records how the sale is paid.
func (s *Session) SelectPayment(m order.PaymentMethod) error {
	if err := s.require("select payment", StatePaymentSelection); err != nil {
		return err
	}
	pm, err := order.ParsePaymentMethod(string(m))
	if err != nil {
		return err
	}
	s.PaymentMethod = pm
	return nil
}

// BackToCart returns from review or payment to cart editing.
func (s *Session) BackToCart() error {
	if err := s.require("back to cart", StateCheckoutReview, StatePaymentSelection); err != nil {
		return err
	}
	s.syncCartState()
	return nil
}

// Confirm places the sale as an offline order. On success the session is
// Confirmed, holds a receipt and the cart is emptied. On failure nothing
// changes so the operator can retry with the same cart.
func (s *Session) Confirm(ctx context.Context, placer Placer) (*order.Result, error) {
	if err := s.require("confirm", StatePaymentSelection); err != nil {
		return nil, err
	}

	res, err := placer.Place(ctx, order.PlaceRequest{
		Cart:          s.Cart.Clone(),
		Customer:      s.Customer.orderCustomer(),
		Channel:       order.ChannelOffline,
		PaymentMethod: s.PaymentMethod,
	})
	if err != nil {
		return nil, err
	}

	s.Receipt = NewReceipt(res.Order)
	s.Cart.Clear()
	s.State = StateConfirmed
	return res, nil
}

// ShowReceipt moves a confirmed sale to ReceiptDisplayed.
func (s *Session) ShowReceipt() (*Receipt, error) {
	if err := s.require("show receipt", StateConfirmed, StateReceiptDisplayed); err != nil {
		return nil, err
	}
	s.State = StateReceiptDisplayed
	return s.Receipt, nil
}

// NewSale resets the terminal for the next customer.
func (s *Session) NewSale() error {
	if err := s.require("new sale", StateConfirmed, StateReceiptDisplayed); err != nil {
		return err
	}
	*s = *NewSession(s.TerminalID)
	return nil
}
