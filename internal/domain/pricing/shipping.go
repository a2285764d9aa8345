// Package pricing computes order charges that are not part of the cart total.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Policy names accepted by FromConfig.
const (
	PolicyFree      = "free"
	PolicyFlat      = "flat"
	PolicyFreeAbove = "free_above"
)

var zero = decimal.Zero

// ShippingPolicy returns the shipping charge for an order subtotal.
type ShippingPolicy interface {
	Shipping(subtotal decimal.Decimal) decimal.Decimal
}

// FreeShipping never charges for shipping.
type FreeShipping struct{}

// Shipping always returns zero.
func (FreeShipping) Shipping(decimal.Decimal) decimal.Decimal {
	return zero
}

// FlatRate charges the same fee on every order.
type FlatRate struct {
	Fee decimal.Decimal
}

// Shipping returns the fee, clamped at zero.
func (f FlatRate) Shipping(decimal.Decimal) decimal.Decimal {
	return floorAtZero(f.Fee).Round(2)
}

// FreeAbove charges Fee unless the subtotal reaches Threshold.
type FreeAbove struct {
	Threshold decimal.Decimal
	Fee       decimal.Decimal
}

// Shipping returns zero when subtotal >= Threshold and Fee otherwise.
func (f FreeAbove) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(f.Threshold) {
		return zero
	}
	return floorAtZero(f.Fee).Round(2)
}

// FromConfig builds the named policy. An empty name selects FreeShipping.
func FromConfig(name string, fee, threshold decimal.Decimal) (ShippingPolicy, error) {
	switch name {
	case "", PolicyFree:
		return FreeShipping{}, nil
	case PolicyFlat:
		return FlatRate{Fee: fee}, nil
	case PolicyFreeAbove:
		return FreeAbove{Threshold: threshold, Fee: fee}, nil
	default:
		return nil, errors.Errorf("unsupported shipping policy: %q", name)
	}
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
