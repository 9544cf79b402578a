// Package discount computes tier-based pricing, cumulative-order discount
// eligibility and loyalty credit accrual.
package discount

import (
	"errors"
	"fmt"
	"time"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
)

const (
	// CumulativeFactor is applied to every item price while a
	// cumulative-order discount is active.
	CumulativeFactor = 0.95
	// QualifyingOrders is how many completed orders at one restaurant
	// unlock the cumulative discount.
	QualifyingOrders = 10
	// WindowDays bounds both the qualifying-order lookback and the
	// validity of a granted discount.
	WindowDays = 15
)

var ErrInvalidRate = errors.New("invalid discount parameters")

// PricedOrder is the slice of an order that pricing needs.
type PricedOrder interface {
	Customer() *account.Customer
	Items() []*domain.OrderItem
	NonReducedTotalPrice() float64
}

// Service evaluates discounts against an explicit record store, so discount
// state lives and dies with the service instance.
type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(store *Store) *Service {
	if store == nil {
		store = NewStore()
	}
	return &Service{store: store, now: time.Now}
}

// WithClock replaces the service clock. Tests use it to move time forward.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PriceAfterDiscount sums the order's item prices at the customer's tier,
// applying the cumulative-order factor for every restaurant the customer
// currently holds a discount at.
func (s *Service) PriceAfterDiscount(order PricedOrder) float64 {
	customer := order.Customer()

	byRestaurant := make(map[int64][]*domain.OrderItem)
	for _, item := range order.Items() {
		byRestaurant[item.RestaurantID()] = append(byRestaurant[item.RestaurantID()], item)
	}

	var price float64
	for restaurantID, items := range byRestaurant {
		discounted := s.UnderCumulativeDiscount(customer, restaurantID)
		for _, item := range items {
			p := item.Price(customer.Tier())
			if discounted {
				p *= CumulativeFactor
			}
			price += p
		}
	}
	return price
}

// UnderCumulativeDiscount reports whether the customer holds an active
// cumulative-order discount at the restaurant, granting a fresh one when
// the order history qualifies. Expired records are removed on the way.
func (s *Service) UnderCumulativeDiscount(customer *account.Customer, restaurantID int64) bool {
	now := s.now()

	if expiry, ok := s.store.lookup(customer.ID(), restaurantID); ok {
		if expiry.After(now) {
			return true
		}
		s.store.remove(customer.ID(), restaurantID)
	}

	oldest := now.AddDate(0, 0, -WindowDays)
	qualifying := 0
	for _, order := range customer.PreviousOrders() {
		if !order.DeliveryDate().After(oldest) {
			continue
		}
		for _, item := range order.Items() {
			if item.RestaurantID() == restaurantID {
				qualifying++
				break
			}
		}
	}

	if qualifying >= QualifyingOrders {
		s.store.put(customer.ID(), restaurantID, now.AddDate(0, 0, WindowDays))
		return true
	}
	return false
}

// ComputeCustomerCredit accrues loyalty credit when the batch carries at
// least minItems items: each order's customer is credited with that order's
// non-reduced total times the rate. Reports whether the threshold was met.
func (s *Service) ComputeCustomerCredit(orders []PricedOrder, minItems int, rate float64) (bool, error) {
	if minItems < 0 {
		return false, fmt.Errorf("%w: minimum number of items must be positive", ErrInvalidRate)
	}
	if rate < 0 || rate > 1 {
		return false, fmt.Errorf("%w: rate must be between 0 and 1", ErrInvalidRate)
	}

	total := 0
	for _, order := range orders {
		total += len(order.Items())
	}
	if total < minItems {
		return false, nil
	}

	for _, order := range orders {
		if err := order.Customer().AddCredit(order.NonReducedTotalPrice() * rate); err != nil {
			return false, err
		}
	}
	return true, nil
}
