package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
)

// SessionHeader identifies an anonymous shopper's cart.
const SessionHeader = "X-Session-ID"

// sessionID returns the caller's session id, issuing a new one when the
// header is missing or malformed. The id is always echoed back.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := r.Header.Get(SessionHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}
	w.Header().Set(SessionHeader, id)
	return id
}

func (h *Handler) writeCart(w http.ResponseWriter, status int, c *cart.Cart) {
	var e jx.Encoder
	h.encodeCart(&e, c)
	writeJSON(w, status, &e)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), sessionID(w, r))
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), sessionID(w, r)); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cartItemRequest struct {
	productID string
	size      catalog.Size
	quantity  int
	hasQty    bool
}

func decodeCartItem(w http.ResponseWriter, r *http.Request) (cartItemRequest, error) {
	var req cartItemRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.productID, err = d.Str()
		case "size":
			req.size, err = decodeSize(d)
		case "quantity":
			req.quantity, err = decodeInt(d, "quantity")
			req.hasQty = true
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, err
	}
	if req.productID == "" {
		return req, badRequest("productId is required")
	}
	if req.size == "" {
		return req, badRequest("size is required")
	}
	return req, nil
}

// addCartItem adds {productId, size, quantity} to the cart. Quantity
// defaults to 1.
func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	req, err := decodeCartItem(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !req.hasQty {
		req.quantity = 1
	}
	c, err := h.carts.Add(r.Context(), sid, req.productID, req.size, req.quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

// updateCartItem sets the quantity of a line; zero removes it.
func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	req, err := decodeCartItem(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !req.hasQty {
		fail(w, r, badRequest("quantity is required"))
		return
	}
	c, err := h.carts.Update(r.Context(), sid, req.productID, req.size, req.quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	vars := mux.Vars(r)
	size, err := parseSize(vars["size"])
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.carts.Remove(r.Context(), sid, vars["productId"], size)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, c)
}
