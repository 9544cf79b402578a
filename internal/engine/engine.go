// Package engine drives the order workflows end to end: placement
// across one or more kitchens, group composition, cancellation with
// refund, delivery transitions and the queries the front door exposes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
	"github.com/campuseats/ordering/internal/notify"
	"github.com/campuseats/ordering/internal/order"
	"github.com/campuseats/ordering/internal/payment"
	"github.com/campuseats/ordering/internal/restaurant"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrNoCapacity = errors.New("not enough preparation capacity before the deadline")
)

// EventPublisher is the outbound event hook. The Kafka producer
// satisfies it; a nil publisher disables events entirely.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// ItemLine is one requested menu line of an incoming order.
type ItemLine struct {
	RestaurantID int64
	MenuName     string
	Quantity     int
}

// Engine wires the order store, the restaurant directory, accounts,
// payment, notifications and the optional event producer into the
// platform's workflows.
type Engine struct {
	store       *order.Store
	restaurants *restaurant.Directory
	accounts    *account.Registry
	payments    *payment.Processor
	notifier    *notify.Notifier
	producer    EventPublisher
	metrics     *metrics
	logger      *slog.Logger
	now         func() time.Time
}

func New(store *order.Store, restaurants *restaurant.Directory, accounts *account.Registry, payments *payment.Processor, notifier *notify.Notifier, producer EventPublisher, logger *slog.Logger) (*Engine, error) {
	if store == nil || restaurants == nil || accounts == nil {
		return nil, fmt.Errorf("engine: store, restaurants and accounts are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if payments == nil {
		payments = payment.NewProcessor(logger)
	}
	if notifier == nil {
		notifier = notify.NewNotifier(logger)
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:       store,
		restaurants: restaurants,
		accounts:    accounts,
		payments:    payments,
		notifier:    notifier,
		producer:    producer,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// WithClock overrides the engine clock used for event timestamps.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) Store() *order.Store { return e.store }

func (e *Engine) Restaurants() *restaurant.Directory { return e.restaurants }

func (e *Engine) Accounts() *account.Registry { return e.accounts }

// resolveItems turns requested lines into order items, one item per
// unit so every unit occupies its own slot place.
func (e *Engine) resolveItems(lines []ItemLine) ([]*domain.OrderItem, error) {
	var items []*domain.OrderItem
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		r, ok := e.restaurants.Get(line.RestaurantID)
		if !ok {
			return nil, fmt.Errorf("%w: restaurant %d", ErrNotFound, line.RestaurantID)
		}
		menu, ok := r.MenuByName(line.MenuName)
		if !ok {
			return nil, fmt.Errorf("%w: menu %q at restaurant %d", ErrNotFound, line.MenuName, line.RestaurantID)
		}
		for i := 0; i < line.Quantity; i++ {
			item, err := domain.NewOrderItem(menu, r.ID())
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func groupByRestaurant(items []*domain.OrderItem) map[int64][]*domain.OrderItem {
	grouped := make(map[int64][]*domain.OrderItem)
	for _, item := range items {
		grouped[item.RestaurantID()] = append(grouped[item.RestaurantID()], item)
	}
	return grouped
}

// checkCapacity asks every involved kitchen whether the items fit
// before the deadline, without reserving anything.
func (e *Engine) checkCapacity(items []*domain.OrderItem, deadline time.Time) error {
	for restaurantID, batch := range groupByRestaurant(items) {
		r, ok := e.restaurants.Get(restaurantID)
		if !ok {
			return fmt.Errorf("%w: restaurant %d", ErrNotFound, restaurantID)
		}
		ok, err := r.CanHandle(batch, deadline)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: restaurant %d", ErrNoCapacity, restaurantID)
		}
	}
	return nil
}

// commitCapacity reserves slot places for the items at their kitchens.
// Each kitchen revalidates inside its own critical section, so the
// earlier check can still lose the race and come back false here.
func (e *Engine) commitCapacity(items []*domain.OrderItem, deadline time.Time) error {
	for restaurantID, batch := range groupByRestaurant(items) {
		r, ok := e.restaurants.Get(restaurantID)
		if !ok {
			return fmt.Errorf("%w: restaurant %d", ErrNotFound, restaurantID)
		}
		ok, err := r.AcceptItems(batch, deadline)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: restaurant %d", ErrNoCapacity, restaurantID)
		}
		e.metrics.itemsScheduled.Add(context.Background(), int64(len(batch)))
	}
	return nil
}

// PlaceSingleOrder runs the full placement workflow: resolve the menu
// lines, check capacity at every kitchen, charge the customer, move the
// order to waiting for restaurant acceptance and commit the slot
// reservations. A reservation lost between check and commit rolls the
// order back with a refund.
func (e *Engine) PlaceSingleOrder(ctx context.Context, customerID int64, deliveryDate time.Time, address string, lines []ItemLine) (order.Order, error) {
	customer, ok := e.accounts.Customer(customerID)
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, customerID)
	}
	items, err := e.resolveItems(lines)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one item", order.ErrInvalidArgument)
	}

	builder, err := e.store.NewBuilder(deliveryDate, customer)
	if err != nil {
		return nil, err
	}
	o, err := builder.SetDeliveryAddress(address).AddItems(items).Build()
	if err != nil {
		return nil, err
	}

	if err := e.checkCapacity(items, deliveryDate); err != nil {
		return nil, err
	}

	total := o.TotalPrice()
	if total > 0 {
		if err := e.payments.Pay(customer.ID(), total); err != nil {
			return nil, err
		}
	}
	if err := o.SetWaitingRestaurantAcceptance(); err != nil {
		return nil, err
	}
	if err := e.commitCapacity(items, deliveryDate); err != nil {
		if total > 0 {
			if refundErr := e.payments.Refund(customer.ID(), total); refundErr != nil {
				e.logger.Error("refund after failed reservation", "error", refundErr, "order_id", o.ID())
			}
		}
		if cancelErr := o.Cancel(); cancelErr != nil {
			e.logger.Error("rollback after failed reservation", "error", cancelErr, "order_id", o.ID())
		}
		return nil, err
	}

	e.finishPlacement(ctx, o, total)
	return o, nil
}

// CreateGroupOrder opens an empty group other orders can join.
func (e *Engine) CreateGroupOrder(ctx context.Context, customerID int64, deliveryDate time.Time, address string) (*order.Group, error) {
	customer, ok := e.accounts.Customer(customerID)
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, customerID)
	}
	builder, err := e.store.NewBuilder(deliveryDate, customer)
	if err != nil {
		return nil, err
	}
	o, err := builder.SetDeliveryAddress(address).Build()
	if err != nil {
		return nil, err
	}
	group, ok := o.(*order.Group)
	if !ok {
		return nil, fmt.Errorf("%w: a group order takes an address and no items", order.ErrInvalidArgument)
	}
	e.finishPlacement(ctx, group, 0)
	return group, nil
}

// PlaceBuffetOrder places an event buffet at one restaurant. The
// delivery and payment flags select the buffet flavor; a paid buffet
// accrues loyalty credit at construction.
func (e *Engine) PlaceBuffetOrder(ctx context.Context, customerID int64, deliveryDate time.Time, address string, restaurantID int64, lines []ItemLine, needsDelivery, needsPayment bool) (*order.Buffet, error) {
	customer, ok := e.accounts.Customer(customerID)
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, customerID)
	}
	items, err := e.resolveItems(lines)
	if err != nil {
		return nil, err
	}
	if err := e.checkCapacity(items, deliveryDate); err != nil {
		return nil, err
	}

	o, err := e.store.NewBuffet(customer, deliveryDate, address, items, restaurantID, needsDelivery, needsPayment)
	if err != nil {
		return nil, err
	}

	var total float64
	if o.NeedsPayment() {
		total = o.TotalPrice()
		if total > 0 {
			if err := e.payments.Pay(customer.ID(), total); err != nil {
				return nil, err
			}
		}
	}
	if err := e.commitCapacity(items, deliveryDate); err != nil {
		if total > 0 {
			if refundErr := e.payments.Refund(customer.ID(), total); refundErr != nil {
				e.logger.Error("refund after failed reservation", "error", refundErr, "order_id", o.ID())
			}
		}
		return nil, err
	}

	e.finishPlacement(ctx, o, total)
	return o, nil
}

// PlaceAfterWorkOrder books an after-work event: the order expands to
// every eligible menu line of the restaurant and occupies a slot as one
// batch.
func (e *Engine) PlaceAfterWorkOrder(ctx context.Context, customerID int64, deliveryDate time.Time, restaurantID int64, participants int, venue string) (order.Order, error) {
	customer, ok := e.accounts.Customer(customerID)
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, customerID)
	}
	r, ok := e.restaurants.Get(restaurantID)
	if !ok {
		return nil, fmt.Errorf("%w: restaurant %d", ErrNotFound, restaurantID)
	}
	builder, err := e.store.NewBuilder(deliveryDate, customer)
	if err != nil {
		return nil, err
	}
	o, err := builder.SetRestaurant(r).SetParticipantCount(participants).Build()
	if err != nil {
		return nil, err
	}
	aw, ok := o.(*order.AfterWork)
	if !ok {
		return nil, fmt.Errorf("%w: an after-work order takes a restaurant and participants", order.ErrInvalidArgument)
	}
	if venue != "" {
		aw.SetVenue(venue)
	}
	if !r.AcceptBatch(aw, deliveryDate) {
		return nil, fmt.Errorf("%w: restaurant %d", ErrNoCapacity, restaurantID)
	}
	e.finishPlacement(ctx, aw, 0)
	return aw, nil
}

// finishPlacement is the shared tail of every placement: history,
// notifications, event, metrics.
func (e *Engine) finishPlacement(ctx context.Context, o order.Order, total float64) {
	customer := o.Customer()
	if err := customer.AddOrder(o); err != nil {
		e.logger.Error("failed to record order in history", "error", err, "order_id", o.ID())
	}

	e.notifier.Notify(notify.AudienceCustomer, customer.ID(),
		fmt.Sprintf("order %d placed for delivery at %s", o.ID(), o.DeliveryDate().Format(time.RFC3339)))
	for restaurantID := range groupByRestaurant(o.Items()) {
		e.notifier.Notify(notify.AudienceRestaurant, restaurantID,
			fmt.Sprintf("new items to prepare for order %d", o.ID()))
	}

	e.publish(ctx, o.ID(), domain.OrderPlacedEvent{
		EventID:    uuid.NewString(),
		OrderID:    o.ID(),
		OrderKind:  string(o.Kind()),
		CustomerID: customer.ID(),
		ItemCount:  len(o.Items()),
		Total:      total,
		Deadline:   o.DeliveryDate(),
		Timestamp:  e.now().UTC(),
	})
	e.metrics.ordersPlaced.Add(ctx, 1,
		metric.WithAttributes(attribute.String("order.kind", string(o.Kind()))))
	e.logger.Info("order placed",
		"order_id", o.ID(), "kind", string(o.Kind()), "customer_id", customer.ID(), "total", total)
}

// AddToGroupOrder attaches an existing order under a group.
func (e *Engine) AddToGroupOrder(ctx context.Context, groupID, orderID int64) error {
	g := e.store.Get(groupID)
	if g == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, groupID)
	}
	child := e.store.Get(orderID)
	if child == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if err := g.AddSubOrder(child); err != nil {
		return err
	}
	e.notifier.Notify(notify.AudienceCustomer, g.GlobalOwner().ID(),
		fmt.Sprintf("order %d joined group order %d", orderID, groupID))
	return nil
}

// JoinOrders merges two orders for one delivery run, promoting the
// parent to a group when needed. Returns the order owning both.
func (e *Engine) JoinOrders(ctx context.Context, parentID, joiningID int64) (order.Order, error) {
	parent := e.store.Get(parentID)
	if parent == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, parentID)
	}
	joining := e.store.Get(joiningID)
	if joining == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, joiningID)
	}
	group, err := e.store.Join(parent, joining)
	if err != nil {
		return nil, err
	}
	e.notifier.Notify(notify.AudienceCustomer, joining.Customer().ID(),
		fmt.Sprintf("order %d will be delivered together with order %d", joiningID, group.ID()))
	return group, nil
}

// CancelOrder cancels an order where its lifecycle still allows it,
// frees the slot places its items held and refunds what was paid.
func (e *Engine) CancelOrder(ctx context.Context, orderID int64) error {
	o := e.store.Get(orderID)
	if o == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}

	refund := 0.0
	if o.NeedsPayment() {
		refund = e.store.Discounts().PriceAfterDiscount(o)
	}
	if err := o.Cancel(); err != nil {
		return err
	}

	for restaurantID, batch := range groupByRestaurant(o.Items()) {
		r, ok := e.restaurants.Get(restaurantID)
		if !ok {
			continue
		}
		for _, item := range batch {
			r.CancelItem(item)
		}
	}

	refunded := 0.0
	if refund > 0 {
		if err := e.payments.Refund(o.Customer().ID(), refund); err != nil {
			e.logger.Error("refund failed", "error", err, "order_id", orderID)
		} else {
			refunded = refund
		}
	}

	e.notifier.Notify(notify.AudienceCustomer, o.Customer().ID(),
		fmt.Sprintf("order %d canceled", orderID))
	e.publish(ctx, orderID, domain.OrderCanceledEvent{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		Refunded:  refunded,
		Timestamp: e.now().UTC(),
	})
	e.metrics.ordersCanceled.Add(ctx, 1)
	e.logger.Info("order canceled", "order_id", orderID, "refunded", refunded)
	return nil
}

// StartDelivery hands the order to a delivery agent and moves it to
// in-delivery.
func (e *Engine) StartDelivery(ctx context.Context, orderID, agentID int64) error {
	o := e.store.Get(orderID)
	if o == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	agent, ok := e.accounts.Agent(agentID)
	if !ok {
		return fmt.Errorf("%w: delivery agent %d", ErrNotFound, agentID)
	}
	o.AssignDeliveryAgent(agent)
	if err := o.SetInDelivery(); err != nil {
		return err
	}
	e.notifier.Notify(notify.AudienceCustomer, o.Customer().ID(),
		fmt.Sprintf("order %d is on its way", orderID))
	return nil
}

// CompleteOrder finishes the order and settles loyalty credit for the
// customer.
func (e *Engine) CompleteOrder(ctx context.Context, orderID int64) error {
	o := e.store.Get(orderID)
	if o == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	if err := o.SetFinished(); err != nil {
		return err
	}
	granted, err := o.AddCustomerCredit(order.CreditMinItems, order.CreditRate)
	if err != nil {
		e.logger.Error("credit settlement failed", "error", err, "order_id", orderID)
	} else if granted {
		e.metrics.creditGrants.Add(ctx, 1)
	}
	e.notifier.Notify(notify.AudienceCustomer, o.GlobalOwner().ID(),
		fmt.Sprintf("order %d delivered, enjoy", orderID))
	return nil
}

// UpdateDeliveryDate moves the delivery deadline where the order's
// lifecycle still allows edits.
func (e *Engine) UpdateDeliveryDate(ctx context.Context, orderID int64, newDate time.Time) error {
	o := e.store.Get(orderID)
	if o == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return o.UpdateDeliveryDate(newDate)
}

// UpdateDeliveryAddress rewrites the drop-off point where the order's
// lifecycle still allows edits.
func (e *Engine) UpdateDeliveryAddress(ctx context.Context, orderID int64, newAddress string) error {
	o := e.store.Get(orderID)
	if o == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return o.UpdateDeliveryAddress(newAddress)
}

// UpdateItems replaces the item list of a single order still waiting
// for payment or acceptance.
func (e *Engine) UpdateItems(ctx context.Context, orderID int64, lines []ItemLine) error {
	o := e.store.Get(orderID)
	if o == nil {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	single, ok := o.(*order.Single)
	if !ok {
		return fmt.Errorf("%w: only plain orders support item replacement", order.ErrModificationNotAllowed)
	}
	items, err := e.resolveItems(lines)
	if err != nil {
		return err
	}
	return single.UpdateItems(items)
}

// PrepareNearestSlot makes a kitchen cook its earliest pending slot and
// tells delivery agents when meals became ready. Returns the number of
// items prepared.
func (e *Engine) PrepareNearestSlot(ctx context.Context, restaurantID int64, wait restaurant.Waiter) (int, error) {
	r, ok := e.restaurants.Get(restaurantID)
	if !ok {
		return 0, fmt.Errorf("%w: restaurant %d", ErrNotFound, restaurantID)
	}
	if wait == nil {
		wait = time.Sleep
	}
	prepared := r.PrepareNearestSlot(wait)
	if prepared > 0 {
		e.notifier.Notify(notify.AudienceDeliveryAgents, 0,
			fmt.Sprintf("%d meals ready for pickup at %s", prepared, r.Name()))
	}
	return prepared, nil
}

// Order looks an order up by id.
func (e *Engine) Order(orderID int64) (order.Order, error) {
	o := e.store.Get(orderID)
	if o == nil {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return o, nil
}

// OrdersReadyToDeliver lists top-level deliverable orders waiting for a
// delivery agent.
func (e *Engine) OrdersReadyToDeliver() []order.Order {
	var ready []order.Order
	for _, o := range e.store.All() {
		if o.PartOfGroup() || !o.NeedsDelivery() {
			continue
		}
		if o.Status() == domain.StatusWaitingDeliverAcceptance {
			ready = append(ready, o)
		}
	}
	return ready
}

// OrdersOfCustomer lists every order a customer placed.
func (e *Engine) OrdersOfCustomer(customerID int64) ([]order.Order, error) {
	customer, ok := e.accounts.Customer(customerID)
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", ErrNotFound, customerID)
	}
	return e.store.ByCustomer(customer), nil
}

func (e *Engine) publish(ctx context.Context, orderID int64, event any) {
	if e.producer == nil {
		return
	}
	if err := e.producer.Publish(ctx, fmt.Sprintf("%d", orderID), event); err != nil {
		e.logger.Error("failed to publish order event", "error", err, "order_id", orderID)
	}
}
