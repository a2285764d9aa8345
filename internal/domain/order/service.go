package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/combo-store/internal/domain/cart"
)

const instrumentationName = "github.com/xenking/combo-store/internal/domain/order"

// Config tunes order placement.
type Config struct {
	// ReserveStock decrements stock inside the order transaction.
	ReserveStock   bool
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// PlaceRequest holds the input for placing an order.
type PlaceRequest struct {
	Cart          *cart.Cart
	Customer      Customer
	Channel       Channel
	PaymentMethod PaymentMethod
}

// Result is the outcome of an order operation. CatalogStale tells the caller
// that product availability may have changed and cached catalog views must be
// reloaded.
type Result struct {
	Order        *Order
	CatalogStale bool
}

// Service encapsulates order placement and lifecycle management.
type Service struct {
	orders       Repository
	assembler    *Assembler
	reserveStock bool

	tracer trace.Tracer
	placed metric.Int64Counter
}

// NewService creates an order Service.
func NewService(orders Repository, assembler *Assembler, cfg Config) (*Service, error) {
	mp := cfg.MeterProvider
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}

	placed, err := mp.Meter(instrumentationName).Int64Counter("store.orders.placed",
		metric.WithDescription("Number of orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}

	return &Service{
		orders:       orders,
		assembler:    assembler,
		reserveStock: cfg.ReserveStock,
		tracer:       tp.Tracer(instrumentationName),
		placed:       placed,
	}, nil
}

// Place assembles an order from the cart and stores it. The cart itself is
// not modified; clearing it after success is up to the caller.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Place",
		trace.WithAttributes(attribute.String("order.channel", string(req.Channel))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	o, err := s.assembler.Assemble(req.Cart, req.Customer, req.Channel, AssembleOptions{
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		return nil, err
	}
	o.ReservesStock = s.reserveStock

	persisted, err := s.orders.Create(ctx, o)
	if err != nil {
		var (
			oos *cart.OutOfStockError
			pe  *PersistenceError
		)
		if errors.As(err, &oos) || errors.As(err, &pe) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "create order", Err: err}
	}
	Attach(o, persisted)

	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.String("order.number", o.Number),
	)
	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", string(o.Channel))))

	return &Result{Order: o, CatalogStale: true}, nil
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// List returns orders newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle. Setting the current status
// again is a no-op. Cancelling an order that reserved stock restores it.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus",
		trace.WithAttributes(attribute.String("order.id", id), attribute.String("order.status", string(to))),
	)
	defer span.End()

	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == to {
		return &Result{Order: o}, nil
	}
	if !CanTransition(o.Status, to) {
		return nil, &TransitionError{From: o.Status, To: to}
	}

	restock := to == StatusCancelled && o.ReservesStock
	if err := s.orders.UpdateStatus(ctx, id, o.Status, to, restock); err != nil {
		if errors.Is(err, ErrStatusConflict) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "update order status", Err: err}
	}
	o.Status = to
	return &Result{Order: o, CatalogStale: restock}, nil
}
