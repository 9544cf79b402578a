// Package order models the order entity hierarchy: four variants over a
// shared base record, status aggregation, the staged builder and the
// store that owns identity and group membership.
package order

import (
	"time"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
)

type Kind string

const (
	KindSingle    Kind = "single"
	KindGroup     Kind = "group"
	KindBuffet    Kind = "buffet"
	KindAfterWork Kind = "after_work"
)

// Order is the sealed sum of the four variants. Only this package can
// implement it; callers discriminate on Kind when they need to.
type Order interface {
	ID() int64
	Kind() Kind
	Customer() *account.Customer
	DeliveryDate() time.Time
	DeliveryAddress() string
	Items() []*domain.OrderItem
	Status() domain.OrderStatus

	// TotalPrice computes the discounted total and consumes the
	// customer's stored credit as a side effect. Use
	// NonReducedTotalPrice for side-effect-free math.
	TotalPrice() float64
	NonReducedTotalPrice() float64

	SetWaitingRestaurantAcceptance() error
	SetInDelivery() error
	SetFinished() error
	Cancel() error
	UpdateDeliveryDate(newDate time.Time) error
	UpdateDeliveryAddress(newAddress string) error
	AddCustomerCredit(minItems int, rate float64) (bool, error)

	AssignDeliveryAgent(agent *account.DeliveryAgent)
	DeliveryAgent() *account.DeliveryAgent

	AllowsSubOrders() bool
	AddSubOrder(child Order) error
	CanBeSubOrder() bool
	NeedsPayment() bool
	NeedsDelivery() bool
	PartOfGroup() bool
	StatusAllowsUpdate() bool
	GlobalOwner() *account.Customer

	base() *orderBase
}

// orderBase carries the fields common to every variant. The parent group
// is held as an id resolved through the store, never as an owning
// reference back up the tree.
type orderBase struct {
	id       int64
	kind     Kind
	customer *account.Customer

	deliveryDate    time.Time
	deliveryAddress string
	canceled        bool
	agent           *account.DeliveryAgent
	parentID        int64

	store *Store
	self  Order
}

func (b *orderBase) ID() int64 { return b.id }

func (b *orderBase) Kind() Kind { return b.kind }

func (b *orderBase) Customer() *account.Customer { return b.customer }

func (b *orderBase) base() *orderBase { return b }

func (b *orderBase) parent() Order {
	if b.parentID == 0 {
		return nil
	}
	return b.store.Get(b.parentID)
}

// DeliveryDate is the parent group's date while the order is joined to
// one; the order's own date otherwise.
func (b *orderBase) DeliveryDate() time.Time {
	if p := b.parent(); p != nil {
		return p.DeliveryDate()
	}
	return b.deliveryDate
}

func (b *orderBase) DeliveryAddress() string {
	if p := b.parent(); p != nil {
		return p.DeliveryAddress()
	}
	return b.deliveryAddress
}

func (b *orderBase) AssignDeliveryAgent(agent *account.DeliveryAgent) { b.agent = agent }

func (b *orderBase) DeliveryAgent() *account.DeliveryAgent { return b.agent }

func (b *orderBase) PartOfGroup() bool { return b.parentID != 0 }

func (b *orderBase) AllowsSubOrders() bool { return false }

func (b *orderBase) AddSubOrder(Order) error { return ErrOperationNotAllowed }

func (b *orderBase) CanBeSubOrder() bool { return true }

func (b *orderBase) NeedsPayment() bool { return true }

func (b *orderBase) NeedsDelivery() bool { return true }

func (b *orderBase) StatusAllowsUpdate() bool {
	status := b.self.Status()
	return (status == domain.StatusWaitingRestaurantAcceptance || status == domain.StatusWaitingPayment) &&
		!b.PartOfGroup()
}

func (b *orderBase) GlobalOwner() *account.Customer {
	if p := b.parent(); p != nil {
		return p.GlobalOwner()
	}
	return b.customer
}

func (b *orderBase) NonReducedTotalPrice() float64 {
	if !b.self.NeedsPayment() {
		return 0
	}
	var total float64
	for _, item := range b.self.Items() {
		total += item.Price(b.customer.Tier())
	}
	return total
}

// pricedTotal is the shared TotalPrice path: discount the tier total, then
// consume the customer's credit against it.
func (b *orderBase) pricedTotal() float64 {
	if !b.self.NeedsPayment() {
		return 0
	}
	return b.customer.ConsumeCredit(b.store.discounts.PriceAfterDiscount(b.self))
}

// aggregate reduces constituent statuses positionally: the first terminal
// status encountered wins outright, regardless of any severity ordering.
// A list holding both finished and canceled constituents therefore yields
// whichever comes first. Remaining in-progress statuses fold with
// waiting_restaurant_acceptance dominating in_preparation dominating
// waiting_deliver_acceptance.
func (b *orderBase) aggregate(statuses []domain.OrderStatus) domain.OrderStatus {
	var res domain.OrderStatus
	for _, status := range statuses {
		if status.Terminal() {
			return status
		}
		switch {
		case res == "":
			res = status
		case status == domain.StatusWaitingRestaurantAcceptance || res == domain.StatusWaitingRestaurantAcceptance:
			res = domain.StatusWaitingRestaurantAcceptance
		case status == domain.StatusInPreparation || res == domain.StatusInPreparation:
			res = domain.StatusInPreparation
		default:
			res = domain.StatusWaitingDeliverAcceptance
		}
	}
	if res == "" {
		if b.canceled {
			return domain.StatusCanceled
		}
		return domain.StatusWaitingPayment
	}
	return res
}

// markCanceled flips every given item to canceled and sets the flag.
func (b *orderBase) markCanceled(items []*domain.OrderItem) {
	for _, item := range items {
		item.SetStatus(domain.StatusCanceled)
	}
	b.canceled = true
}

func itemStatuses(items []*domain.OrderItem) []domain.OrderStatus {
	statuses := make([]domain.OrderStatus, len(items))
	for i, item := range items {
		statuses[i] = item.Status()
	}
	return statuses
}
