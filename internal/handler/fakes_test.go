package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
	"github.com/xenking/combo-store/internal/domain/pos"
	"github.com/xenking/combo-store/internal/domain/staff"
)

func cloneProduct(p *catalog.Product) *catalog.Product {
	c := *p
	c.Stock = slices.Clone(p.Stock)
	return &c
}

type memProducts struct {
	mu   sync.Mutex
	byID map[string]*catalog.Product
	ids  []string
}

func newMemProducts(products ...*catalog.Product) *memProducts {
	m := &memProducts{byID: make(map[string]*catalog.Product)}
	for _, p := range products {
		m.byID[p.ID] = cloneProduct(p)
		m.ids = append(m.ids, p.ID)
	}
	return m
}

func (m *memProducts) List(context.Context) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]catalog.Product, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, *cloneProduct(m.byID[id]))
	}
	return out, nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (m *memProducts) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, err := m.GetByID(ctx, id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) Create(_ context.Context, p *catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = cloneProduct(p)
	m.ids = append(m.ids, p.ID)
	return nil
}

func (m *memProducts) Update(_ context.Context, p *catalog.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return catalog.ErrNotFound
	}
	m.byID[p.ID] = cloneProduct(p)
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(m.byID, id)
	m.ids = slices.DeleteFunc(m.ids, func(s string) bool { return s == id })
	return nil
}

func (m *memProducts) SetStock(_ context.Context, id string, stock []catalog.SizeStock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Stock = slices.Clone(stock)
	return nil
}

// adjust adds delta units to (id, size).
func (m *memProducts) adjust(id string, size catalog.Size, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID[id]
	for i := range p.Stock {
		if p.Stock[i].Size == size {
			p.Stock[i].Quantity += delta
			return
		}
	}
	p.Stock = append(p.Stock, catalog.SizeStock{Size: size, Quantity: delta})
}

func (m *memProducts) available(id string, size catalog.Size) int {
	p, err := m.GetByID(context.Background(), id)
	if err != nil {
		return 0
	}
	return p.AvailableQuantity(size)
}

type memCache struct {
	mu            sync.Mutex
	products      []catalog.Product
	ok            bool
	invalidations int
}

func (c *memCache) Get(context.Context) ([]catalog.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products, c.ok, nil
}

func (c *memCache) Set(_ context.Context, products []catalog.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products, c.ok = products, true
	return nil
}

func (c *memCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products, c.ok = nil, false
	c.invalidations++
	return nil
}

type memImages struct {
	uploaded map[string]string
}

func (m *memImages) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.uploaded[name] = string(data)
	return "/images/" + name, nil
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*cart.Cart
}

func (m *memCarts) Load(_ context.Context, sessionID string) (*cart.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[sessionID]; ok {
		return c.Clone(), nil
	}
	return cart.New(), nil
}

func (m *memCarts) Save(_ context.Context, sessionID string, c *cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = c.Clone()
	return nil
}

func (m *memCarts) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

type memOrders struct {
	mu        sync.Mutex
	products  *memProducts
	orders    []*order.Order
	createErr error
}

func (m *memOrders) Create(_ context.Context, o *order.Order) (order.Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return order.Persisted{}, m.createErr
	}
	if o.ReservesStock {
		for _, l := range o.Lines {
			if have := m.products.available(l.ProductID, l.Size); have < l.Quantity {
				return order.Persisted{}, &cart.OutOfStockError{
					ProductID: l.ProductID, Size: l.Size, Requested: l.Quantity, Available: have,
				}
			}
		}
		for _, l := range o.Lines {
			m.products.adjust(l.ProductID, l.Size, -l.Quantity)
		}
	}

	n := len(m.orders) + 1
	p := order.Persisted{
		ID:        fmt.Sprintf("order-%d", n),
		Number:    fmt.Sprintf("ORD-20240501-%06d", n),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, n, 0, time.UTC),
	}
	stored := *o
	order.Attach(&stored, p)
	m.orders = append(m.orders, &stored)
	return p, nil
}

func (m *memOrders) Get(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			c := *o
			return &c, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *memOrders) List(_ context.Context, filter order.ListFilter) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		o := m.orders[i]
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && o.Channel != filter.Channel {
			continue
		}
		out = append(out, *o)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id string, from, to order.Status, restock bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID != id {
			continue
		}
		if o.Status != from {
			return order.ErrStatusConflict
		}
		o.Status = to
		if restock {
			for _, l := range o.Lines {
				m.products.adjust(l.ProductID, l.Size, l.Quantity)
			}
		}
		return nil
	}
	return order.ErrNotFound
}

type memStaff struct {
	mu      sync.Mutex
	members []*staff.Member
}

func (m *memStaff) Create(_ context.Context, mem *staff.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members {
		if existing.Email == mem.Email {
			return staff.ErrDuplicateEmail
		}
	}
	c := *mem
	m.members = append(m.members, &c)
	return nil
}

func (m *memStaff) List(context.Context) ([]staff.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]staff.Member, len(m.members))
	for i, mem := range m.members {
		out[i] = *mem
	}
	return out, nil
}

func (m *memStaff) FindByHash(_ context.Context, hash string) (*staff.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.members {
		if mem.KeyHash == hash && mem.Active {
			c := *mem
			return &c, nil
		}
	}
	return nil, staff.ErrNotFound
}

func (m *memStaff) find(id string) (*staff.Member, error) {
	for _, mem := range m.members {
		if mem.ID == id {
			return mem, nil
		}
	}
	return nil, staff.ErrNotFound
}

func (m *memStaff) UpdateRole(_ context.Context, id string, role staff.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, err := m.find(id)
	if err != nil {
		return err
	}
	mem.Role = role
	return nil
}

func (m *memStaff) Deactivate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, err := m.find(id)
	if err != nil {
		return err
	}
	mem.Active = false
	return nil
}

type memTerminals struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func (m *memTerminals) Load(_ context.Context, terminalID string) (*pos.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[terminalID]
	if !ok {
		return nil, nil
	}
	var s pos.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}
	return &s, nil
}

func (m *memTerminals) Save(_ context.Context, s *pos.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TerminalID] = data
	return nil
}
