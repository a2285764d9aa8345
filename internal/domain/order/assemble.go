package order

import (
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/pricing"
)

// AssembleOptions carries channel-specific order inputs.
type AssembleOptions struct {
	// PaymentMethod is required for offline orders and ignored online.
	PaymentMethod PaymentMethod
}

// Assembler turns a cart and checkout details into an unsaved Order.
type Assembler struct {
	shipping pricing.ShippingPolicy
}

// NewAssembler returns an Assembler charging shipping by policy. A nil policy
// means free shipping.
func NewAssembler(policy pricing.ShippingPolicy) *Assembler {
	if policy == nil {
		policy = pricing.FreeShipping{}
	}
	return &Assembler{shipping: policy}
}

// Assemble validates the checkout and freezes the cart into an order. The
// returned order has no ID, number or creation time; those come from storage
// via Attach.
func (a *Assembler) Assemble(c *cart.Cart, info Customer, ch Channel, opts AssembleOptions) (*Order, error) {
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	fields := make(map[string]string)
	customer, err := ValidateCustomer(info, ch)
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		fields = verr.Fields
	}

	o := &Order{
		Channel:  ch,
		Customer: customer,
		Notes:    customer.Notes,
		Status:   initialStatus(ch),
	}

	if ch == ChannelOffline {
		if _, err := ParsePaymentMethod(string(opts.PaymentMethod)); err != nil {
			fields["paymentMethod"] = "must be cash or card"
		}
		o.PaymentMethod = opts.PaymentMethod
		if o.Notes == "" {
			o.Notes = "Payment: " + strings.ToUpper(string(opts.PaymentMethod))
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	o.Lines = make([]Line, len(c.Lines))
	for i, l := range c.Lines {
		o.Lines[i] = Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Total:     l.Total(),
			Image:     l.Image,
		}
	}
	o.Subtotal = c.TotalPrice()
	o.Shipping = a.shipping.Shipping(o.Subtotal)
	o.Total = o.Subtotal.Add(o.Shipping)
	return o, nil
}

func initialStatus(ch Channel) Status {
	if ch == ChannelOffline {
		return StatusDelivered
	}
	return StatusPending
}
