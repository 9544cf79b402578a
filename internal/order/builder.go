package order

import (
	"fmt"
	"time"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
)

// Restaurant is what the builder needs to know about a restaurant: its
// identity and which menu lines are eligible for after-work events.
type Restaurant interface {
	ID() int64
	AfterWorkMenus() []*domain.Menu
}

// Builder is a staged validator and factory. It accumulates optional
// inputs and selects the order variant at Build time:
//
//  1. address present, no items      -> Group
//  2. address present, items present -> Single
//  3. no address, items, restaurant, staff flag -> Buffet
//  4. no address, restaurant, participants > 0  -> AfterWork
//
// Anything else fails validation.
type Builder struct {
	store        *Store
	deliveryDate time.Time
	customer     *account.Customer
	restaurant   Restaurant
	staff        bool
	address      string
	items        map[*domain.OrderItem]int
	participants int
}

// NewBuilder starts an order for a customer with a strictly future
// delivery date.
func (s *Store) NewBuilder(deliveryDate time.Time, customer *account.Customer) (*Builder, error) {
	if customer == nil {
		return nil, fmt.Errorf("%w: an order needs a customer", ErrInvalidArgument)
	}
	if deliveryDate.IsZero() || !deliveryDate.After(s.now()) {
		return nil, fmt.Errorf("%w: an order needs a delivery date in the future", ErrInvalidArgument)
	}
	return &Builder{store: s, deliveryDate: deliveryDate, customer: customer}, nil
}

// AddItem merges the item into the builder with the given quantity.
// Nil items and non-positive quantities are ignored.
func (b *Builder) AddItem(item *domain.OrderItem, quantity int) *Builder {
	if item == nil || quantity <= 0 {
		return b
	}
	if b.items == nil {
		b.items = make(map[*domain.OrderItem]int)
	}
	b.items[item] += quantity
	return b
}

func (b *Builder) AddItems(items []*domain.OrderItem) *Builder {
	for _, item := range items {
		b.AddItem(item, 1)
	}
	return b
}

func (b *Builder) SetRestaurant(restaurant Restaurant) *Builder {
	b.restaurant = restaurant
	return b
}

// SetStaff marks the order as arranged by a staff member, which routes the
// build toward a buffet.
func (b *Builder) SetStaff(staff bool) *Builder {
	b.staff = staff
	return b
}

func (b *Builder) SetDeliveryAddress(address string) *Builder {
	b.address = address
	return b
}

func (b *Builder) SetParticipantCount(n int) *Builder {
	if n <= 0 {
		n = 0
	}
	b.participants = n
	return b
}

func (b *Builder) Build() (Order, error) {
	if b.address != "" {
		if len(b.items) == 0 {
			return b.store.NewGroup(b.customer, b.deliveryDate, b.address)
		}
		return b.store.newSingle(b.customer, b.deliveryDate, b.address, b.itemList())
	}
	if b.restaurant != nil {
		if len(b.items) > 0 && b.staff {
			return b.store.NewBuffet(b.customer, b.deliveryDate, "", b.itemList(), b.restaurant.ID(), false, false)
		}
		if b.participants > 0 {
			return b.store.newAfterWork(b.customer, b.deliveryDate, b.restaurant, b.participants)
		}
	}
	return nil, fmt.Errorf("%w: not enough data to build an order", ErrOperationNotAllowed)
}

func (b *Builder) itemList() []*domain.OrderItem {
	var items []*domain.OrderItem
	for item, quantity := range b.items {
		for i := 0; i < quantity; i++ {
			items = append(items, item)
		}
	}
	return items
}
