//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/combo-store/internal/domain/cart"
	"github.com/xenking/combo-store/internal/domain/catalog"
	"github.com/xenking/combo-store/internal/domain/order"
	"github.com/xenking/combo-store/internal/domain/staff"
)

var testPool *pgxpool.Pool

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-\d{6}$`)

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "store",
				"POSTGRES_PASSWORD": "store",
				"POSTGRES_DB":       "store",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = c.Terminate(context.Background()) }()

	host, err := c.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "host: %v\n", err)
		return 1
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mapped port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://store:store@%s:%s/store?sslmode=disable", host, port.Port())
	testPool, err = NewPool(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pool: %v\n", err)
		return 1
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		return 1
	}
	// Applying twice must be a no-op.
	if err := RunMigrations(ctx, testPool); err != nil {
		fmt.Fprintf(os.Stderr, "migrations rerun: %v\n", err)
		return 1
	}

	return m.Run()
}

func createProduct(t *testing.T, id string, stock ...catalog.SizeStock) *catalog.Product {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &catalog.Product{
		ID:            id,
		Name:          "Combo " + id,
		Price:         decimal.RequireFromString("1500.00"),
		OriginalPrice: decimal.NewNullDecimal(decimal.RequireFromString("1999.00")),
		Category:      catalog.CategoryFormal,
		Stock:         stock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, NewProductRepository(testPool).Create(context.Background(), p))
	return p
}

func placeOrder(t *testing.T, p *catalog.Product, size catalog.Size, qty int, reserve bool) (*order.Order, order.Persisted, error) {
	t.Helper()
	c := cart.New()
	c.AddItem(p, size, qty)
	o, err := order.NewAssembler(nil).Assemble(c, order.Customer{}, order.ChannelOffline, order.AssembleOptions{
		PaymentMethod: order.PaymentCash,
	})
	require.NoError(t, err)
	o.ReservesStock = reserve

	persisted, err := NewOrderRepository(testPool).Create(context.Background(), o)
	return o, persisted, err
}

func TestProductRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	p := createProduct(t, "crud-1", catalog.SizeStock{Size: catalog.SizeL, Quantity: 2}, catalog.SizeStock{Size: catalog.SizeS, Quantity: 1})

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.Price.Equal(got.Price))
	assert.True(t, got.OriginalPrice.Valid)
	assert.Equal(t, []catalog.SizeStock{{Size: catalog.SizeS, Quantity: 1}, {Size: catalog.SizeL, Quantity: 2}}, got.Stock)

	got.Name = "Renamed"
	got.OriginalPrice = decimal.NullDecimal{}
	require.NoError(t, repo.Update(ctx, got))
	require.NoError(t, repo.SetStock(ctx, p.ID, []catalog.SizeStock{{Size: catalog.SizeL, Quantity: 7}}))

	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.OriginalPrice.Valid)
	assert.Equal(t, 7, got.AvailableQuantity(catalog.SizeL))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	byIDs, err := repo.GetByIDs(ctx, []string{p.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)
	assert.Len(t, byIDs[0].Stock, 2)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, p.ID), catalog.ErrNotFound)
	require.ErrorIs(t, repo.SetStock(ctx, p.ID, []catalog.SizeStock{{Size: catalog.SizeL, Quantity: 1}}), catalog.ErrNotFound)
}

func TestProductRepository_ImportStock(t *testing.T) {
	ctx := context.Background()
	repo := NewProductRepository(testPool)
	p := createProduct(t, "import-1")

	applied, err := repo.ImportStock(ctx, []StockCount{
		{ProductID: p.ID, Size: catalog.SizeM, Quantity: 9},
		{ProductID: "ghost", Size: catalog.SizeM, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.AvailableQuantity(catalog.SizeM))
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	p := createProduct(t, "order-1", catalog.SizeStock{Size: catalog.SizeM, Quantity: 5})

	o, persisted, err := placeOrder(t, p, catalog.SizeM, 2, false)
	require.NoError(t, err)
	assert.Regexp(t, orderNumberPattern, persisted.Number)
	assert.NotEmpty(t, persisted.ID)

	got, err := NewOrderRepository(testPool).Get(ctx, persisted.ID)
	require.NoError(t, err)
	assert.Equal(t, persisted.Number, got.Number)
	assert.Equal(t, order.StatusDelivered, got.Status)
	assert.Equal(t, order.WalkInCustomer, got.Customer.Name)
	assert.Equal(t, order.PaymentCash, got.PaymentMethod)
	assert.True(t, o.Total.Equal(got.Total))
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(3000).Equal(got.Lines[0].Total))

	stock, err := NewProductRepository(testPool).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stock.AvailableQuantity(catalog.SizeM))

	_, err = NewOrderRepository(testPool).Get(ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestOrderRepository_ReserveStock(t *testing.T) {
	ctx := context.Background()
	p := createProduct(t, "reserve-1", catalog.SizeStock{Size: catalog.SizeM, Quantity: 3})

	_, _, err := placeOrder(t, p, catalog.SizeM, 2, true)
	require.NoError(t, err)

	_, _, err = placeOrder(t, p, catalog.SizeM, 2, true)
	var oos *cart.OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, 1, oos.Available)

	got, err := NewProductRepository(testPool).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableQuantity(catalog.SizeM))
}

func TestOrderRepository_ConcurrentReservationsDoNotOversell(t *testing.T) {
	ctx := context.Background()
	p := createProduct(t, "race-1", catalog.SizeStock{Size: catalog.SizeL, Quantity: 5})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := placeOrder(t, p, catalog.SizeL, 1, true); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	got, err := NewProductRepository(testPool).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableQuantity(catalog.SizeL))
}

func TestOrderRepository_UpdateStatusRestocks(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	p := createProduct(t, "cancel-1", catalog.SizeStock{Size: catalog.SizeXL, Quantity: 4})

	c := cart.New()
	c.AddItem(p, catalog.SizeXL, 3)
	o, err := order.NewAssembler(nil).Assemble(c, order.Customer{
		Name:  "Asha Rao",
		Phone: "9876543210",
		Email: "asha@example.com",
		Address: order.Address{
			Street: "12 MG Road, Indiranagar", City: "Bengaluru", State: "Karnataka", PostalCode: "560038",
		},
	}, order.ChannelOnline, order.AssembleOptions{})
	require.NoError(t, err)
	o.ReservesStock = true

	persisted, err := repo.Create(ctx, o)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, persisted.ID, order.StatusPending, order.StatusCancelled, true))
	require.ErrorIs(t, repo.UpdateStatus(ctx, persisted.ID, order.StatusPending, order.StatusConfirmed, false), order.ErrStatusConflict)
	require.ErrorIs(t, repo.UpdateStatus(ctx, "missing", order.StatusPending, order.StatusConfirmed, false), order.ErrNotFound)

	got, err := NewProductRepository(testPool).GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.AvailableQuantity(catalog.SizeXL))

	list, err := repo.List(ctx, order.ListFilter{Status: order.StatusCancelled, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, persisted.ID, list[0].ID)
	assert.Equal(t, "Bengaluru", list[0].Customer.Address.City)
}

func TestStaffRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStaffRepository(testPool)
	svc := staff.NewService(repo, []byte("pepper"))

	m, key, err := svc.Create(ctx, "Priya", "priya@shop.in", staff.RoleAdmin)
	require.NoError(t, err)

	_, _, err = svc.Create(ctx, "Priya Again", "priya@shop.in", staff.RoleStaff)
	require.ErrorIs(t, err, staff.ErrDuplicateEmail)

	got, err := svc.Authenticate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	require.NoError(t, repo.UpdateRole(ctx, m.ID, staff.RoleStaff))
	require.NoError(t, repo.Deactivate(ctx, m.ID))
	_, err = svc.Authenticate(ctx, key)
	require.ErrorIs(t, err, staff.ErrUnauthorized)

	require.ErrorIs(t, repo.Deactivate(ctx, "missing"), staff.ErrNotFound)
}
