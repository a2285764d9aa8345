package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/order"
)

const (
	defaultOrderLimit = 100
	maxOrderLimit     = 500
)

func decodeCheckout(w http.ResponseWriter, r *http.Request) (order.Customer, error) {
	var c order.Customer
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "email":
			c.Email, err = d.Str()
		case "phone":
			c.Phone, err = d.Str()
		case "address":
			c.Address.Street, err = d.Str()
		case "city":
			c.Address.City, err = d.Str()
		case "state":
			c.Address.State, err = d.Str()
		case "pincode":
			c.Address.PostalCode, err = d.Str()
		case "notes":
			c.Notes, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func (h *Handler) writeOrder(w http.ResponseWriter, status int, o *order.Order) {
	var e jx.Encoder
	h.encodeOrder(&e, o)
	writeJSON(w, status, &e)
}

// checkout places an online order from the session cart and empties the
// cart on success.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(w, r)

	customer, err := decodeCheckout(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.carts.Get(ctx, sid)
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.orders.Place(ctx, order.PlaceRequest{
		Cart:     c,
		Customer: customer,
		Channel:  order.ChannelOnline,
	})
	if err != nil {
		h.markStale(ctx, errors.Is(err, cart.ErrOutOfStock))
		fail(w, r, err)
		return
	}
	h.markStale(ctx, res.CatalogStale)

	if err := h.carts.Clear(ctx, sid); err != nil {
		zctx.From(ctx).Warn("Clear cart after checkout failed",
			zap.String("order_number", res.Order.Number),
			zap.Error(err),
		)
	}
	h.writeOrder(w, http.StatusCreated, res.Order)
}

func parseListFilter(r *http.Request) (order.ListFilter, error) {
	q := r.URL.Query()
	filter := order.ListFilter{Limit: defaultOrderLimit}

	if s := q.Get("status"); s != "" {
		st, err := order.ParseStatus(s)
		if err != nil {
			return filter, badRequest("%v", err)
		}
		filter.Status = st
	}
	if s := q.Get("channel"); s != "" {
		switch ch := order.Channel(s); ch {
		case order.ChannelOnline, order.ChannelOffline:
			filter.Channel = ch
		default:
			return filter, badRequest("unknown channel %q", s)
		}
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxOrderLimit {
			return filter, badRequest("limit must be between 1 and %d", maxOrderLimit)
		}
		filter.Limit = n
	}
	return filter, nil
}

// listOrders returns orders newest first with their lines.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		h.encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeOrder(w, http.StatusOK, o)
}

// updateOrderStatus applies {"status": ...} to an order.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var to order.Status
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		if to, err = order.ParseStatus(s); err != nil {
			return badRequest("%v", err)
		}
		return nil
	}); err != nil {
		fail(w, r, err)
		return
	}
	if to == "" {
		fail(w, r, badRequest("status is required"))
		return
	}

	res, err := h.orders.UpdateStatus(r.Context(), mux.Vars(r)["id"], to)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.markStale(r.Context(), res.CatalogStale)
	h.writeOrder(w, http.StatusOK, res.Order)
}
