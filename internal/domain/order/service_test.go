package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	lastOrder *Order
	createErr error
	persisted Persisted

	byID      map[string]*Order
	updateErr error
	updates   []statusUpdate
}

type statusUpdate struct {
	id       string
	from, to Status
	restock  bool
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) (Persisted, error) {
	m.lastOrder = o
	if m.createErr != nil {
		return Persisted{}, m.createErr
	}
	return m.persisted, nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) List(_ context.Context, _ ListFilter) ([]Order, error) {
	out := make([]Order, 0, len(m.byID))
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to Status, restock bool) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, statusUpdate{id: id, from: from, to: to, restock: restock})
	return nil
}

func newService(t *testing.T, repo *mockOrderRepo, reserve bool) *Service {
	t.Helper()
	svc, err := NewService(repo, NewAssembler(nil), Config{ReserveStock: reserve})
	require.NoError(t, err)
	return svc
}

// --- Tests ---

func TestPlace_Success(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockOrderRepo{persisted: Persisted{ID: "o-1", Number: "ORD-20240501-000001", CreatedAt: created}}
	svc := newService(t, repo, true)

	res, err := svc.Place(context.Background(), PlaceRequest{
		Cart:     newCart(t),
		Customer: validOnlineCustomer(),
		Channel:  ChannelOnline,
	})
	require.NoError(t, err)

	assert.True(t, res.CatalogStale)
	assert.Equal(t, "o-1", res.Order.ID)
	assert.Equal(t, "ORD-20240501-000001", res.Order.Number)
	assert.Equal(t, created, res.Order.CreatedAt)
	require.NotNil(t, repo.lastOrder)
	assert.True(t, repo.lastOrder.ReservesStock)
}

func TestPlace_DoesNotClearCart(t *testing.T) {
	c := newCart(t)
	svc := newService(t, &mockOrderRepo{}, false)

	_, err := svc.Place(context.Background(), PlaceRequest{Cart: c, Customer: validOnlineCustomer(), Channel: ChannelOnline})
	require.NoError(t, err)
	assert.Equal(t, 3, c.TotalItems())
}

func TestPlace_EmptyCart(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newService(t, repo, false)

	_, err := svc.Place(context.Background(), PlaceRequest{Cart: cart.New(), Channel: ChannelOnline})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, repo.lastOrder)
}

func TestPlace_ValidationNeverPersists(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := newService(t, repo, false)

	_, err := svc.Place(context.Background(), PlaceRequest{Cart: newCart(t), Channel: ChannelOnline})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, repo.lastOrder)
}

func TestPlace_OutOfStockPassesThrough(t *testing.T) {
	repo := &mockOrderRepo{createErr: &cart.OutOfStockError{ProductID: "A", Size: catalog.SizeM, Requested: 2}}
	svc := newService(t, repo, true)

	_, err := svc.Place(context.Background(), PlaceRequest{Cart: newCart(t), Customer: validOnlineCustomer(), Channel: ChannelOnline})
	require.ErrorIs(t, err, cart.ErrOutOfStock)

	var pe *PersistenceError
	assert.False(t, errors.As(err, &pe))
}

func TestPlace_PersistenceFailure(t *testing.T) {
	cause := errors.New("connection reset")
	svc := newService(t, &mockOrderRepo{createErr: cause}, false)

	_, err := svc.Place(context.Background(), PlaceRequest{Cart: newCart(t), Customer: validOnlineCustomer(), Channel: ChannelOnline})

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create order", pe.Op)
	assert.False(t, pe.Partial)
	require.ErrorIs(t, err, cause)
}

func TestPlace_PartialPersistenceKept(t *testing.T) {
	repo := &mockOrderRepo{createErr: &PersistenceError{Op: "commit order", Err: errors.New("eof"), Partial: true}}
	svc := newService(t, repo, false)

	_, err := svc.Place(context.Background(), PlaceRequest{Cart: newCart(t), Customer: validOnlineCustomer(), Channel: ChannelOnline})

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.True(t, pe.Partial)
	assert.Equal(t, "commit order", pe.Op)
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		from, to Status
		reserves bool
		wantErr  error
		restock  bool
	}{
		{name: "confirm", from: StatusPending, to: StatusConfirmed},
		{name: "ship", from: StatusConfirmed, to: StatusShipped},
		{name: "deliver", from: StatusShipped, to: StatusDelivered},
		{name: "cancel reserved", from: StatusConfirmed, to: StatusCancelled, reserves: true, restock: true},
		{name: "cancel unreserved", from: StatusPending, to: StatusCancelled},
		{name: "skip ahead", from: StatusPending, to: StatusDelivered, wantErr: ErrInvalidTransition},
		{name: "reopen cancelled", from: StatusCancelled, to: StatusPending, wantErr: ErrInvalidTransition},
		{name: "cancel shipped", from: StatusShipped, to: StatusCancelled, wantErr: ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOrderRepo{byID: map[string]*Order{
				"o-1": {ID: "o-1", Status: tt.from, ReservesStock: tt.reserves},
			}}
			svc := newService(t, repo, true)

			res, err := svc.UpdateStatus(context.Background(), "o-1", tt.to)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, repo.updates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, res.Order.Status)
			assert.Equal(t, tt.restock, res.CatalogStale)
			require.Len(t, repo.updates, 1)
			assert.Equal(t, statusUpdate{id: "o-1", from: tt.from, to: tt.to, restock: tt.restock}, repo.updates[0])
		})
	}
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{"o-1": {ID: "o-1", Status: StatusDelivered}}}
	svc := newService(t, repo, false)

	res, err := svc.UpdateStatus(context.Background(), "o-1", StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, res.Order.Status)
	assert.Empty(t, repo.updates)
}

func TestUpdateStatus_Errors(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{}}
	svc := newService(t, repo, false)

	_, err := svc.UpdateStatus(context.Background(), "missing", StatusConfirmed)
	require.ErrorIs(t, err, ErrNotFound)

	repo.byID["o-1"] = &Order{ID: "o-1", Status: StatusPending}
	repo.updateErr = ErrStatusConflict
	_, err = svc.UpdateStatus(context.Background(), "o-1", StatusConfirmed)
	require.ErrorIs(t, err, ErrStatusConflict)

	repo.updateErr = errors.New("timeout")
	_, err = svc.UpdateStatus(context.Background(), "o-1", StatusConfirmed)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{From: StatusDelivered, To: StatusPending}
	assert.Equal(t, "cannot move order from delivered to pending", err.Error())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
