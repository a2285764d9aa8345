package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
	"github.com/xenking/combo-store/internal/domain/pos"
	"github.com/xenking/combo-store/internal/domain/staff"
)

// Amounts are written as JSON numbers with two decimals.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeStock(e *jx.Encoder, stock []catalog.SizeStock) {
	e.ArrStart()
	for _, s := range stock {
		e.ObjStart()
		e.FieldStart("size")
		e.Str(string(s.Size))
		e.FieldStart("quantity")
		e.Int(s.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func (h *Handler) encodeProduct(e *jx.Encoder, p *catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("pantDetails")
	e.Str(p.PantDetails)
	e.FieldStart("shirtDetails")
	e.Str(p.ShirtDetails)
	e.FieldStart("price")
	encodeMoney(e, p.Price)
	e.FieldStart("originalPrice")
	if p.OriginalPrice.Valid {
		encodeMoney(e, p.OriginalPrice.Decimal)
	} else {
		e.Null()
	}
	e.FieldStart("discounted")
	e.Bool(p.Discounted())
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("imageUrl")
	e.Str(h.imageURL(p.ImageURL))
	e.FieldStart("featured")
	e.Bool(p.Featured)
	e.FieldStart("stock")
	encodeStock(e, p.Stock)
	e.ObjEnd()
}

func (h *Handler) encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range c.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("size")
		e.Str(string(l.Size))
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(e, l.UnitPrice)
		e.FieldStart("total")
		encodeMoney(e, l.Total())
		e.FieldStart("image")
		e.Str(h.imageURL(l.Image))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalItems")
	e.Int(c.TotalItems())
	e.FieldStart("totalPrice")
	encodeMoney(e, c.TotalPrice())
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a order.Address) {
	e.ObjStart()
	e.FieldStart("street")
	e.Str(a.Street)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("state")
	e.Str(a.State)
	e.FieldStart("postalCode")
	e.Str(a.PostalCode)
	e.ObjEnd()
}

func (h *Handler) encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("orderNumber")
	e.Str(o.Number)
	e.FieldStart("channel")
	e.Str(string(o.Channel))
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(l.ProductID)
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("size")
		e.Str(string(l.Size))
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(e, l.UnitPrice)
		e.FieldStart("total")
		encodeMoney(e, l.Total)
		e.FieldStart("image")
		e.Str(h.imageURL(l.Image))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalItems")
	e.Int(o.TotalItems())
	e.FieldStart("subtotal")
	encodeMoney(e, o.Subtotal)
	e.FieldStart("shipping")
	encodeMoney(e, o.Shipping)
	e.FieldStart("total")
	encodeMoney(e, o.Total)
	e.FieldStart("customer")
	e.ObjStart()
	e.FieldStart("name")
	e.Str(o.Customer.Name)
	e.FieldStart("phone")
	e.Str(o.Customer.Phone)
	e.FieldStart("email")
	e.Str(o.Customer.Email)
	if o.Channel == order.ChannelOnline {
		e.FieldStart("address")
		encodeAddress(e, o.Customer.Address)
	}
	e.ObjEnd()
	e.FieldStart("notes")
	e.Str(o.Notes)
	if o.PaymentMethod != "" {
		e.FieldStart("paymentMethod")
		e.Str(string(o.PaymentMethod))
	}
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, o.UpdatedAt)
	e.ObjEnd()
}

func encodeReceipt(e *jx.Encoder, r *pos.Receipt) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(r.OrderID)
	e.FieldStart("orderNumber")
	e.Str(r.OrderNumber)
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range r.Lines {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(l.Name)
		e.FieldStart("size")
		e.Str(string(l.Size))
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		encodeMoney(e, l.UnitPrice)
		e.FieldStart("total")
		encodeMoney(e, l.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	encodeMoney(e, r.Total)
	e.FieldStart("paymentMethod")
	e.Str(string(r.PaymentMethod))
	e.FieldStart("customerName")
	e.Str(r.CustomerName)
	e.FieldStart("customerPhone")
	e.Str(r.CustomerPhone)
	e.FieldStart("issuedAt")
	encodeTime(e, r.IssuedAt)
	e.ObjEnd()
}

func (h *Handler) encodeSession(e *jx.Encoder, s *pos.Session) {
	e.ObjStart()
	e.FieldStart("terminalId")
	e.Str(s.TerminalID)
	e.FieldStart("state")
	e.Str(string(s.State))
	e.FieldStart("selectedSize")
	e.Str(string(s.SelectedSize))
	e.FieldStart("cart")
	h.encodeCart(e, s.Cart)
	e.FieldStart("customer")
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Customer.Name)
	e.FieldStart("phone")
	e.Str(s.Customer.Phone)
	e.FieldStart("email")
	e.Str(s.Customer.Email)
	e.ObjEnd()
	e.FieldStart("paymentMethod")
	if s.PaymentMethod != "" {
		e.Str(string(s.PaymentMethod))
	} else {
		e.Null()
	}
	e.FieldStart("receipt")
	if s.Receipt != nil {
		encodeReceipt(e, s.Receipt)
	} else {
		e.Null()
	}
	e.ObjEnd()
}

func encodeMember(e *jx.Encoder, m *staff.Member) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(m.ID)
	e.FieldStart("name")
	e.Str(m.Name)
	e.FieldStart("email")
	e.Str(m.Email)
	e.FieldStart("role")
	e.Str(string(m.Role))
	e.FieldStart("active")
	e.Bool(m.Active)
	e.FieldStart("createdAt")
	encodeTime(e, m.CreatedAt)
	e.ObjEnd()
}
