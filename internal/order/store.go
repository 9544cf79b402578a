package order

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/discount"
	"github.com/campuseats/ordering/internal/domain"
)

// Credit accrual defaults applied to paid buffet orders at construction.
const (
	CreditMinItems = 10
	CreditRate     = 0.1
)

// Store owns order identity and the registry that group back-references
// resolve through. Ids come from a single monotonic counter shared by
// every creation path.
type Store struct {
	mu        sync.RWMutex
	lastID    atomic.Int64
	orders    map[int64]Order
	discounts *discount.Service
	now       func() time.Time
}

func NewStore(discounts *discount.Service) *Store {
	if discounts == nil {
		discounts = discount.NewService(nil)
	}
	return &Store{
		orders:    make(map[int64]Order),
		discounts: discounts,
		now:       time.Now,
	}
}

// WithClock replaces the store clock used for delivery-date validation.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Discounts() *discount.Service { return s.discounts }

// register allocates the next id and publishes the order.
func (s *Store) register(o Order) {
	b := o.base()
	b.id = s.lastID.Add(1)
	b.store = s
	b.self = o
	s.mu.Lock()
	s.orders[b.id] = o
	s.mu.Unlock()
}

func (s *Store) Get(id int64) Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders[id]
}

// All returns every known order in id order.
func (s *Store) All() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (s *Store) ByCustomer(customer *account.Customer) []Order {
	var out []Order
	for _, o := range s.All() {
		if o.Customer() == customer {
			out = append(out, o)
		}
	}
	return out
}

func (s *Store) newBase(kind Kind, customer *account.Customer, deliveryDate time.Time, address string) (orderBase, error) {
	if customer == nil || deliveryDate.IsZero() {
		return orderBase{}, fmt.Errorf("%w: an order needs a customer and a delivery date", ErrInvalidArgument)
	}
	return orderBase{
		kind:            kind,
		customer:        customer,
		deliveryDate:    deliveryDate,
		deliveryAddress: address,
	}, nil
}

func (s *Store) newSingle(customer *account.Customer, deliveryDate time.Time, address string, items []*domain.OrderItem) (*Single, error) {
	base, err := s.newBase(KindSingle, customer, deliveryDate, address)
	if err != nil {
		return nil, err
	}
	o := &Single{orderBase: base, items: items}
	s.register(o)
	return o, nil
}

func (s *Store) NewGroup(customer *account.Customer, deliveryDate time.Time, address string) (*Group, error) {
	base, err := s.newBase(KindGroup, customer, deliveryDate, address)
	if err != nil {
		return nil, err
	}
	o := &Group{orderBase: base}
	s.register(o)
	return o, nil
}

// NewBuffet builds a buffet order over items from a single restaurant.
// Non-delivered buffets go straight to waiting for restaurant acceptance;
// paid ones accrue loyalty credit immediately.
func (s *Store) NewBuffet(customer *account.Customer, deliveryDate time.Time, address string, items []*domain.OrderItem, restaurantID int64, needsDelivery, needsPayment bool) (*Buffet, error) {
	base, err := s.newBase(KindBuffet, customer, deliveryDate, address)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 || restaurantID <= 0 {
		return nil, fmt.Errorf("%w: a buffet order needs items and a restaurant", ErrInvalidArgument)
	}
	for _, item := range items {
		if item.RestaurantID() != restaurantID {
			return nil, fmt.Errorf("%w: buffet items must all come from the same restaurant", ErrInvalidArgument)
		}
	}
	if needsDelivery {
		if !deliveryDate.After(s.now()) || address == "" {
			return nil, fmt.Errorf("%w: a delivered buffet needs a future date and an address", ErrInvalidArgument)
		}
	} else {
		base.deliveryAddress = ""
	}

	o := &Buffet{
		orderBase:     base,
		items:         items,
		restaurantID:  restaurantID,
		needsDelivery: needsDelivery,
		needsPayment:  needsPayment,
	}
	s.register(o)

	if !needsDelivery {
		if err := o.SetWaitingRestaurantAcceptance(); err != nil {
			return nil, err
		}
	}
	if needsPayment {
		if _, err := o.AddCustomerCredit(CreditMinItems, CreditRate); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newAfterWork expands the order to every after-work-eligible menu line of
// the restaurant, each already in preparation; explicitly added items are
// deliberately ignored.
func (s *Store) newAfterWork(customer *account.Customer, deliveryDate time.Time, restaurant Restaurant, participants int) (*AfterWork, error) {
	base, err := s.newBase(KindAfterWork, customer, deliveryDate, "")
	if err != nil {
		return nil, err
	}
	var items []*domain.OrderItem
	for _, menu := range restaurant.AfterWorkMenus() {
		item, err := domain.NewOrderItem(menu, restaurant.ID())
		if err != nil {
			return nil, err
		}
		item.SetStatus(domain.StatusInPreparation)
		items = append(items, item)
	}
	o := &AfterWork{
		orderBase:    base,
		items:        items,
		restaurantID: restaurant.ID(),
		participants: participants,
	}
	s.register(o)
	return o, nil
}

// SetVenue records where the after-work event takes place. The regular
// address update path is closed for this variant.
func (o *AfterWork) SetVenue(address string) { o.deliveryAddress = address }

// Join attaches joining under parent, synthesizing a group when the
// parent cannot hold sub-orders itself: the parent becomes the group's
// first child and the group inherits its delivery agent. Returns the
// order that now owns both.
func (s *Store) Join(parent, joining Order) (Order, error) {
	if parent == nil || joining == nil {
		return nil, fmt.Errorf("%w: both orders are required to join", ErrInvalidArgument)
	}
	switch parent.Status() {
	case domain.StatusInDelivery, domain.StatusFinished, domain.StatusCanceled:
		return nil, fmt.Errorf("%w: the parent order can no longer be extended", ErrOperationNotAllowed)
	}
	if st := joining.Status(); st != domain.StatusWaitingDeliverAcceptance && st != domain.StatusWaitingRestaurantAcceptance {
		return nil, fmt.Errorf("%w: the joining order does not have the right status", ErrOperationNotAllowed)
	}

	jb := joining.base()
	jb.deliveryDate = parent.DeliveryDate()
	jb.deliveryAddress = parent.DeliveryAddress()

	group := parent
	if !parent.AllowsSubOrders() && parent.CanBeSubOrder() {
		g, err := s.NewGroup(parent.Customer(), parent.DeliveryDate(), parent.DeliveryAddress())
		if err != nil {
			return nil, err
		}
		if err := g.AddSubOrder(parent); err != nil {
			return nil, err
		}
		group = g
	}

	group.AssignDeliveryAgent(parent.DeliveryAgent())
	if err := group.AddSubOrder(joining); err != nil {
		return nil, err
	}
	return group, nil
}
