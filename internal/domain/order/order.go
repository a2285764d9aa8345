// Package order assembles orders from carts and manages their lifecycle.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

// Channel is the sales channel an order was placed through.
type Channel string

const (
	ChannelOnline  Channel = "online"
	ChannelOffline Channel = "offline"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus validates s against the known statuses.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Errorf("unknown order status %q", s)
}

// PaymentMethod is how an in-store sale was paid.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// ParsePaymentMethod validates s against the accepted payment methods.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCard:
		return PaymentMethod(s), nil
	default:
		return "", errors.Errorf("unknown payment method %q", s)
	}
}

// Address is a shipping address.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

// Customer is the contact information captured at checkout.
type Customer struct {
	Name    string
	Phone   string
	Email   string
	Address Address
	Notes   string
}

// Line is a frozen copy of a cart line at the time the order was placed.
type Line struct {
	ProductID string
	Name      string
	Size      catalog.Size
	Quantity  int
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	Image     string
}

// Order is a placed order. Orders are never deleted.
type Order struct {
	ID            string
	Number        string
	Lines         []Line
	Subtotal      decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	Channel       Channel
	Status        Status
	Customer      Customer
	Notes         string
	PaymentMethod PaymentMethod
	// ReservesStock records that stock was decremented when the order was
	// stored, so cancelling it must put the units back.
	ReservesStock bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TotalItems returns the number of units across all lines.
func (o *Order) TotalItems() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// Persisted holds the values assigned by storage when an order is created.
type Persisted struct {
	ID        string
	Number    string
	CreatedAt time.Time
}

// Attach copies the storage-assigned identity onto o unchanged.
func Attach(o *Order, p Persisted) {
	o.ID = p.ID
	o.Number = p.Number
	o.CreatedAt = p.CreatedAt
	o.UpdatedAt = p.CreatedAt
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Status  Status
	Channel Channel
	Limit   int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order header and lines atomically. When
	// o.ReservesStock is set, stock for every line is decremented in the same
	// transaction and a *cart.OutOfStockError is returned if any line no
	// longer fits.
	Create(ctx context.Context, o *Order) (Persisted, error)
	Get(ctx context.Context, id string) (*Order, error)
	// List returns orders newest first.
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	// UpdateStatus moves the order from one status to another, failing with
	// ErrStatusConflict if the stored status is no longer from. With restock
	// set the order's lines are returned to stock.
	UpdateStatus(ctx context.Context, id string, from, to Status, restock bool) error
}
