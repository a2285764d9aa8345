package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
	"github.com/xenking/combo-store/internal/domain/pos"
)

func terminalID(r *http.Request) string {
	return mux.Vars(r)["terminal"]
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, sess *pos.Session, err error) {
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeSession(&e, sess)
	writeJSON(w, http.StatusOK, &e)
}

// lineVars reads {productId} and {size} from the path.
func lineVars(r *http.Request) (string, catalog.Size, error) {
	vars := mux.Vars(r)
	size, err := parseSize(vars["size"])
	return vars["productId"], size, err
}

func (h *Handler) posSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.pos.Session(r.Context(), terminalID(r))
	h.writeSession(w, r, sess, err)
}

// posSearch lists products matching ?q= with what is still sellable per size.
func (h *Handler) posSearch(w http.ResponseWriter, r *http.Request) {
	found, err := h.pos.Search(r.Context(), terminalID(r), r.URL.Query().Get("q"))
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range found {
		e.ObjStart()
		e.FieldStart("product")
		h.encodeProduct(&e, &found[i].Product)
		e.FieldStart("available")
		encodeStock(&e, found[i].Available)
		e.ObjEnd()
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) posSelectSize(w http.ResponseWriter, r *http.Request) {
	var size catalog.Size
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "size" {
			return d.Skip()
		}
		var err error
		size, err = decodeSize(d)
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	if size == "" {
		fail(w, r, badRequest("size is required"))
		return
	}
	sess, err := h.pos.SelectSize(r.Context(), terminalID(r), size)
	h.writeSession(w, r, sess, err)
}

// posAdd adds one unit of {productId} in the selected size.
func (h *Handler) posAdd(w http.ResponseWriter, r *http.Request) {
	var productID string
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "productId" {
			return d.Skip()
		}
		var err error
		productID, err = d.Str()
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	if productID == "" {
		fail(w, r, badRequest("productId is required"))
		return
	}
	sess, err := h.pos.Add(r.Context(), terminalID(r), productID)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posSetQuantity(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCartItem(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !req.hasQty {
		fail(w, r, badRequest("quantity is required"))
		return
	}
	sess, err := h.pos.SetQuantity(r.Context(), terminalID(r), req.productID, req.size, req.quantity)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posIncrement(w http.ResponseWriter, r *http.Request) {
	productID, size, err := lineVars(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	sess, err := h.pos.Increment(r.Context(), terminalID(r), productID, size)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posDecrement(w http.ResponseWriter, r *http.Request) {
	productID, size, err := lineVars(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	sess, err := h.pos.Decrement(r.Context(), terminalID(r), productID, size)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posRemove(w http.ResponseWriter, r *http.Request) {
	productID, size, err := lineVars(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	sess, err := h.pos.Remove(r.Context(), terminalID(r), productID, size)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posCheckout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.pos.Checkout(r.Context(), terminalID(r))
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posSetCustomer(w http.ResponseWriter, r *http.Request) {
	var c pos.Customer
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "phone":
			c.Phone, err = d.Str()
		case "email":
			c.Email, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	sess, err := h.pos.SetCustomer(r.Context(), terminalID(r), c)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posProceedToPayment(w http.ResponseWriter, r *http.Request) {
	sess, err := h.pos.ProceedToPayment(r.Context(), terminalID(r))
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posSelectPayment(w http.ResponseWriter, r *http.Request) {
	var method order.PaymentMethod
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "method" {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		if method, err = order.ParsePaymentMethod(s); err != nil {
			return badRequest("%v", err)
		}
		return nil
	}); err != nil {
		fail(w, r, err)
		return
	}
	if method == "" {
		fail(w, r, badRequest("method is required"))
		return
	}
	sess, err := h.pos.SelectPayment(r.Context(), terminalID(r), method)
	h.writeSession(w, r, sess, err)
}

func (h *Handler) posBackToCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.pos.BackToCart(r.Context(), terminalID(r))
	h.writeSession(w, r, sess, err)
}

// posConfirm places the sale. On failure the session keeps its cart and
// payment selection so the operator can retry.
func (h *Handler) posConfirm(w http.ResponseWriter, r *http.Request) {
	sess, err := h.pos.Confirm(r.Context(), terminalID(r))
	h.writeSession(w, r, sess, err)
}

// posReceipt prints the current receipt as a fixed-width text slip.
func (h *Handler) posReceipt(w http.ResponseWriter, r *http.Request) {
	sess, err := h.pos.Session(r.Context(), terminalID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	if sess.Receipt == nil {
		fail(w, r, &pos.StateError{Op: "print receipt", State: sess.State})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = sess.Receipt.Render(w, h.cfg.Letterhead)
}

func (h *Handler) posNewSale(w http.ResponseWriter, r *http.Request) {
	sess, err := h.pos.NewSale(r.Context(), terminalID(r))
	h.writeSession(w, r, sess, err)
}
