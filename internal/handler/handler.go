// Package handler exposes the storefront, admin console and POS over HTTP.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
	"github.com/xenking/combo-store/internal/domain/pos"
	"github.com/xenking/combo-store/internal/domain/staff"
)

// Catalog serves product reads, usually from a cache.
type Catalog interface {
	List(ctx context.Context) ([]catalog.Product, error)
	GetByID(ctx context.Context, id string) (*catalog.Product, error)
}

// StaleMarker is told whenever a response reports that product availability
// changed.
type StaleMarker interface {
	MarkStale(ctx context.Context)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to image paths starting with "/".
	ImageBaseURL string
	// MaxUploadBytes bounds product image uploads.
	MaxUploadBytes int64
	Letterhead     pos.Letterhead
}

// Services are the domain services the Handler delegates to.
type Services struct {
	Catalog  Catalog
	Stale    StaleMarker
	Products *catalog.Service
	Carts    *cart.Service
	Orders   *order.Service
	Staff    *staff.Service
	POS      *pos.Service
}

// Handler translates HTTP requests into domain calls.
type Handler struct {
	cfg Config

	catalog  Catalog
	stale    StaleMarker
	products *catalog.Service
	carts    *cart.Service
	orders   *order.Service
	staff    *staff.Service
	pos      *pos.Service
}

// New constructs a Handler.
func New(cfg Config, svc Services) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	return &Handler{
		cfg:      cfg,
		catalog:  svc.Catalog,
		stale:    svc.Stale,
		products: svc.Products,
		carts:    svc.Carts,
		orders:   svc.Orders,
		staff:    svc.Staff,
		pos:      svc.POS,
	}
}

// Router registers every API route under /api.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	api.HandleFunc("/cart", h.clearCart).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", h.addCartItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items", h.updateCartItem).Methods(http.MethodPut)
	api.HandleFunc("/cart/items/{productId}/{size}", h.removeCartItem).Methods(http.MethodDelete)
	api.HandleFunc("/checkout", h.checkout).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.authenticate, requireRole(staff.RoleStaff))
	admin.HandleFunc("/orders", h.listOrders).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	admin.HandleFunc("/orders/{id}/status", h.updateOrderStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/products", h.createProduct).Methods(http.MethodPost)
	admin.HandleFunc("/products/{id}", h.updateProduct).Methods(http.MethodPut)
	admin.HandleFunc("/products/{id}", h.deleteProduct).Methods(http.MethodDelete)
	admin.HandleFunc("/products/{id}/stock", h.setStock).Methods(http.MethodPut)
	admin.HandleFunc("/images", h.uploadImage).Methods(http.MethodPost)

	members := admin.PathPrefix("/staff").Subrouter()
	members.Use(requireRole(staff.RoleAdmin))
	members.HandleFunc("", h.listStaff).Methods(http.MethodGet)
	members.HandleFunc("", h.createStaff).Methods(http.MethodPost)
	members.HandleFunc("/{id}/role", h.updateStaffRole).Methods(http.MethodPatch)
	members.HandleFunc("/{id}", h.deactivateStaff).Methods(http.MethodDelete)

	till := api.PathPrefix("/pos/terminals/{terminal}").Subrouter()
	till.Use(h.authenticate, requireRole(staff.RoleStaff))
	till.HandleFunc("", h.posSession).Methods(http.MethodGet)
	till.HandleFunc("/products", h.posSearch).Methods(http.MethodGet)
	till.HandleFunc("/size", h.posSelectSize).Methods(http.MethodPut)
	till.HandleFunc("/items", h.posAdd).Methods(http.MethodPost)
	till.HandleFunc("/items", h.posSetQuantity).Methods(http.MethodPut)
	till.HandleFunc("/items/{productId}/{size}/increment", h.posIncrement).Methods(http.MethodPost)
	till.HandleFunc("/items/{productId}/{size}/decrement", h.posDecrement).Methods(http.MethodPost)
	till.HandleFunc("/items/{productId}/{size}", h.posRemove).Methods(http.MethodDelete)
	till.HandleFunc("/checkout", h.posCheckout).Methods(http.MethodPost)
	till.HandleFunc("/customer", h.posSetCustomer).Methods(http.MethodPut)
	till.HandleFunc("/payment", h.posProceedToPayment).Methods(http.MethodPost)
	till.HandleFunc("/payment", h.posSelectPayment).Methods(http.MethodPut)
	till.HandleFunc("/back", h.posBackToCart).Methods(http.MethodPost)
	till.HandleFunc("/confirm", h.posConfirm).Methods(http.MethodPost)
	till.HandleFunc("/receipt", h.posReceipt).Methods(http.MethodGet)
	till.HandleFunc("/new-sale", h.posNewSale).Methods(http.MethodPost)

	return r
}

func (h *Handler) markStale(ctx context.Context, stale bool) {
	if stale && h.stale != nil {
		h.stale.MarkStale(ctx)
	}
}

func (h *Handler) imageURL(path string) string {
	if h.cfg.ImageBaseURL == "" || !strings.HasPrefix(path, "/") {
		return path
	}
	return strings.TrimRight(h.cfg.ImageBaseURL, "/") + path
}
