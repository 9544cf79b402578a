package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
	"github.com/campuseats/ordering/internal/order"
	"github.com/campuseats/ordering/internal/restaurant"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event any) error {
	p.events = append(p.events, event)
	return nil
}

type fixture struct {
	engine    *Engine
	publisher *recordingPublisher
	bistro    *restaurant.Restaurant
	customer  *account.Customer
	agent     *account.DeliveryAgent
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	restaurants := restaurant.NewDirectory(logger)
	bistro, err := restaurants.RegisterWithHours("Campus Bistro", "1 University Walk", 8*time.Hour, 20*time.Hour, capacity)
	if err != nil {
		t.Fatalf("RegisterWithHours: %v", err)
	}
	bistro.Schedule().WithClock(func() time.Time { return testNow })
	for _, m := range []struct {
		name      string
		price     float64
		afterWork bool
	}{
		{"pasta", 8.5, false},
		{"salad", 3.5, false},
		{"wings", 6, true},
	} {
		menu, err := domain.NewMenu(m.name, m.price, m.afterWork)
		if err != nil {
			t.Fatalf("NewMenu: %v", err)
		}
		if err := bistro.AddMenu(menu); err != nil {
			t.Fatalf("AddMenu: %v", err)
		}
	}

	accounts := account.NewRegistry()
	customer, err := accounts.RegisterCustomer("Ada", "Lovelace", domain.TierStudent)
	if err != nil {
		t.Fatalf("RegisterCustomer: %v", err)
	}
	agent, err := accounts.RegisterAgent("Grace", "Hopper")
	if err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}

	store := order.NewStore(nil).WithClock(func() time.Time { return testNow })
	publisher := &recordingPublisher{}
	eng, err := New(store, restaurants, accounts, nil, nil, publisher, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	eng.WithClock(func() time.Time { return testNow })

	return &fixture{engine: eng, publisher: publisher, bistro: bistro, customer: customer, agent: agent}
}

func (f *fixture) deadline() time.Time { return testNow.Add(3*time.Hour + 5*time.Minute) }

func TestPlaceSingleOrder(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	o, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "pasta", Quantity: 1},
		{RestaurantID: f.bistro.ID(), MenuName: "salad", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("PlaceSingleOrder: %v", err)
	}
	if got := o.Status(); got != domain.StatusWaitingRestaurantAcceptance {
		t.Fatalf("Status() = %q, want %q", got, domain.StatusWaitingRestaurantAcceptance)
	}
	if got := len(o.Items()); got != 2 {
		t.Fatalf("Items() length = %d, want 2", got)
	}
	if got := len(f.customer.Orders()); got != 1 {
		t.Fatalf("customer history length = %d, want 1", got)
	}
	if got := len(f.bistro.PendingItems()); got != 2 {
		t.Fatalf("pending kitchen items = %d, want 2", got)
	}
	if got := len(f.publisher.events); got != 1 {
		t.Fatalf("published events = %d, want 1", got)
	}
	event, ok := f.publisher.events[0].(domain.OrderPlacedEvent)
	if !ok {
		t.Fatalf("event type = %T, want OrderPlacedEvent", f.publisher.events[0])
	}
	if event.OrderID != o.ID() || event.Total != 12 || event.EventID == "" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestPlaceSingleOrderRejectsOverCapacity(t *testing.T) {
	f := newFixture(t, 1) // three candidate slots of one place each
	ctx := context.Background()

	_, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "pasta", Quantity: 4},
	})
	if !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("err = %v, want ErrNoCapacity", err)
	}
	if got := len(f.customer.Orders()); got != 0 {
		t.Fatalf("rejected order entered customer history, length %d", got)
	}
	if got := len(f.publisher.events); got != 0 {
		t.Fatalf("rejected order published %d events", got)
	}
}

func TestPlaceSingleOrderUnknownBits(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	if _, err := f.engine.PlaceSingleOrder(ctx, 999, f.deadline(), "Dorm 4", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown customer: err = %v, want ErrNotFound", err)
	}
	if _, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "sushi", Quantity: 1},
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown menu: err = %v, want ErrNotFound", err)
	}
	if _, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", nil); !errors.Is(err, order.ErrInvalidArgument) {
		t.Fatalf("no items: err = %v, want ErrInvalidArgument", err)
	}
}

func TestDeliveryLifecycle(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	o, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "pasta", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("PlaceSingleOrder: %v", err)
	}

	if _, err := f.engine.PrepareNearestSlot(ctx, f.bistro.ID(), func(time.Duration) {}); err != nil {
		t.Fatalf("PrepareNearestSlot: %v", err)
	}
	ready := f.engine.OrdersReadyToDeliver()
	if len(ready) != 1 || ready[0].ID() != o.ID() {
		t.Fatalf("OrdersReadyToDeliver() = %v, want just the placed order", ready)
	}

	if err := f.engine.StartDelivery(ctx, o.ID(), f.agent.ID()); err != nil {
		t.Fatalf("StartDelivery: %v", err)
	}
	if got := o.Status(); got != domain.StatusInDelivery {
		t.Fatalf("Status() = %q, want %q", got, domain.StatusInDelivery)
	}
	if err := f.engine.CompleteOrder(ctx, o.ID()); err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}
	if got := o.Status(); got != domain.StatusFinished {
		t.Fatalf("Status() = %q, want %q", got, domain.StatusFinished)
	}
	if len(f.engine.OrdersReadyToDeliver()) != 0 {
		t.Fatal("finished order still listed as ready to deliver")
	}
}

func TestCancelOrderRefundsAndFreesCapacity(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	o, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "pasta", Quantity: 3},
	})
	if err != nil {
		t.Fatalf("PlaceSingleOrder: %v", err)
	}

	// the kitchen is full now
	if _, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "salad", Quantity: 1},
	}); !errors.Is(err, ErrNoCapacity) {
		t.Fatalf("err = %v, want ErrNoCapacity while slots are full", err)
	}

	if err := f.engine.CancelOrder(ctx, o.ID()); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if got := o.Status(); got != domain.StatusCanceled {
		t.Fatalf("Status() = %q, want %q", got, domain.StatusCanceled)
	}
	event, ok := f.publisher.events[len(f.publisher.events)-1].(domain.OrderCanceledEvent)
	if !ok {
		t.Fatalf("last event type = %T, want OrderCanceledEvent", f.publisher.events[len(f.publisher.events)-1])
	}
	if event.OrderID != o.ID() || event.Refunded != 25.5 {
		t.Fatalf("unexpected cancel event %+v", event)
	}

	// capacity is usable again
	if _, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "salad", Quantity: 1},
	}); err != nil {
		t.Fatalf("PlaceSingleOrder after cancel: %v", err)
	}
}

func TestAfterWorkPlacement(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	o, err := f.engine.PlaceAfterWorkOrder(ctx, f.customer.ID(), f.deadline(), f.bistro.ID(), 12, "Rooftop bar")
	if err != nil {
		t.Fatalf("PlaceAfterWorkOrder: %v", err)
	}
	if got := o.Kind(); got != order.KindAfterWork {
		t.Fatalf("Kind() = %q, want %q", got, order.KindAfterWork)
	}
	if got := o.Status(); got != domain.StatusInPreparation {
		t.Fatalf("Status() = %q, want %q", got, domain.StatusInPreparation)
	}
	if got := o.DeliveryAddress(); got != "Rooftop bar" {
		t.Fatalf("DeliveryAddress() = %q, want the venue", got)
	}

	// cooking the slot closes the whole batch
	if _, err := f.engine.PrepareNearestSlot(ctx, f.bistro.ID(), func(time.Duration) {}); err != nil {
		t.Fatalf("PrepareNearestSlot: %v", err)
	}
	if got := o.Status(); got != domain.StatusFinished {
		t.Fatalf("Status() after preparation = %q, want %q", got, domain.StatusFinished)
	}
}

func TestGroupJoinThroughEngine(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	a, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 4", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "pasta", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("PlaceSingleOrder: %v", err)
	}
	b, err := f.engine.PlaceSingleOrder(ctx, f.customer.ID(), f.deadline(), "Dorm 5", []ItemLine{
		{RestaurantID: f.bistro.ID(), MenuName: "salad", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("PlaceSingleOrder: %v", err)
	}

	if _, err := f.engine.PrepareNearestSlot(ctx, f.bistro.ID(), func(time.Duration) {}); err != nil {
		t.Fatalf("PrepareNearestSlot: %v", err)
	}

	group, err := f.engine.JoinOrders(ctx, a.ID(), b.ID())
	if err != nil {
		t.Fatalf("JoinOrders: %v", err)
	}
	if group.Kind() != order.KindGroup {
		t.Fatalf("Kind() = %q, want %q", group.Kind(), order.KindGroup)
	}
	if got := b.DeliveryAddress(); got != "Dorm 4" {
		t.Fatalf("joined order address = %q, want the parent's", got)
	}

	orders, err := f.engine.OrdersOfCustomer(f.customer.ID())
	if err != nil {
		t.Fatalf("OrdersOfCustomer: %v", err)
	}
	if len(orders) != 3 { // two singles plus the synthesized group
		t.Fatalf("OrdersOfCustomer() length = %d, want 3", len(orders))
	}
}
