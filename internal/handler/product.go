package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/combo-store/internal/domain/catalog"
)

// listProducts returns the catalog, optionally narrowed by ?q=.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		products = catalog.Search(products, q)
	}

	var e jx.Encoder
	e.ArrStart()
	for i := range products {
		h.encodeProduct(&e, &products[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, r, err)
		return
	}
	var e jx.Encoder
	h.encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

func decodeProductInput(w http.ResponseWriter, r *http.Request) (catalog.ProductInput, error) {
	var in catalog.ProductInput
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = d.Str()
		case "description":
			in.Description, err = d.Str()
		case "pantDetails":
			in.PantDetails, err = d.Str()
		case "shirtDetails":
			in.ShirtDetails, err = d.Str()
		case "price":
			in.Price, err = decodeDecimal(d, "price")
		case "originalPrice":
			in.OriginalPrice, err = decodeNullDecimal(d, "originalPrice")
		case "category":
			var s string
			s, err = d.Str()
			in.Category = catalog.Category(s)
		case "imageUrl":
			in.ImageURL, err = d.Str()
		case "featured":
			in.Featured, err = d.Bool()
		case "stock":
			in.Stock, err = decodeStock(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return in, err
}

func (h *Handler) writeMutation(w http.ResponseWriter, r *http.Request, status int, m *catalog.Mutation) {
	h.markStale(r.Context(), m.CatalogStale)
	if m.Product == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var e jx.Encoder
	h.encodeProduct(&e, m.Product)
	writeJSON(w, status, &e)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProductInput(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	m, err := h.products.Create(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusCreated, m)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProductInput(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	m, err := h.products.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	m, err := h.products.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusNoContent, m)
}

// setStock replaces the per-size stock from {"stock": ...}.
func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	var stock []catalog.SizeStock
	if err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "stock" {
			return d.Skip()
		}
		var err error
		stock, err = decodeStock(d)
		return err
	}); err != nil {
		fail(w, r, err)
		return
	}
	m, err := h.products.SetStock(r.Context(), mux.Vars(r)["id"], stock)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.writeMutation(w, r, http.StatusOK, m)
}

// uploadImage accepts a multipart "file" field and returns {"url": ...}.
func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	f, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, r, err)
			return
		}
		fail(w, r, badRequest("multipart field \"file\" is required"))
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.products.UploadImage(r.Context(), header.Filename, f)
	if err != nil {
		fail(w, r, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("url")
	e.Str(url)
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}
