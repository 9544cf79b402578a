package account

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/campuseats/ordering/internal/domain"
)

var ErrInvalidAccount = errors.New("invalid account")

// PlacedOrder is the slice of an order that account bookkeeping needs:
// enough to scan a customer's history for discount eligibility.
type PlacedOrder interface {
	ID() int64
	Status() domain.OrderStatus
	DeliveryDate() time.Time
	Items() []*domain.OrderItem
}

// Customer is an ordering customer: a pricing tier, a credit balance
// consumed against future orders, and the history of orders they placed.
type Customer struct {
	id        int64
	firstName string
	lastName  string
	tier      domain.Tier

	mu     sync.Mutex
	credit float64
	orders []PlacedOrder
}

func NewCustomer(id int64, firstName, lastName string, tier domain.Tier) (*Customer, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalidAccount)
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidAccount)
	}
	if !tier.Valid() {
		tier = domain.TierExternal
	}
	return &Customer{id: id, firstName: firstName, lastName: lastName, tier: tier}, nil
}

func (c *Customer) ID() int64 { return c.id }

func (c *Customer) FullName() string { return c.firstName + " " + c.lastName }

func (c *Customer) Tier() domain.Tier { return c.tier }

func (c *Customer) SetTier(tier domain.Tier) {
	if tier.Valid() {
		c.tier = tier
	}
}

func (c *Customer) Credit() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credit
}

func (c *Customer) SetCredit(credit float64) error {
	if credit < 0 {
		return fmt.Errorf("%w: credit must be positive", ErrInvalidAccount)
	}
	c.mu.Lock()
	c.credit = credit
	c.mu.Unlock()
	return nil
}

func (c *Customer) AddCredit(credit float64) error {
	if credit < 0 {
		return fmt.Errorf("%w: credit must be positive", ErrInvalidAccount)
	}
	c.mu.Lock()
	c.credit += credit
	c.mu.Unlock()
	return nil
}

// ConsumeCredit deducts as much of the stored credit as the total allows
// and returns the remainder the customer still has to pay.
func (c *Customer) ConsumeCredit(total float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total >= c.credit {
		remainder := total - c.credit
		c.credit = 0
		return remainder
	}
	c.credit -= total
	return 0
}

func (c *Customer) AddOrder(order PlacedOrder) error {
	if order == nil {
		return fmt.Errorf("%w: order cannot be nil", ErrInvalidAccount)
	}
	c.mu.Lock()
	c.orders = append(c.orders, order)
	c.mu.Unlock()
	return nil
}

func (c *Customer) Orders() []PlacedOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PlacedOrder, len(c.orders))
	copy(out, c.orders)
	return out
}

// PreviousOrders returns the customer's completed orders, the population
// that cumulative-discount eligibility is scanned over.
func (c *Customer) PreviousOrders() []PlacedOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	var done []PlacedOrder
	for _, o := range c.orders {
		if o.Status() == domain.StatusFinished {
			done = append(done, o)
		}
	}
	return done
}

// DeliveryAgent delivers orders. Assignment to an order is what makes the
// in-delivery transition legal.
type DeliveryAgent struct {
	id        int64
	firstName string
	lastName  string
}

func NewDeliveryAgent(id int64, firstName, lastName string) (*DeliveryAgent, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalidAccount)
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrInvalidAccount)
	}
	return &DeliveryAgent{id: id, firstName: firstName, lastName: lastName}, nil
}

func (d *DeliveryAgent) ID() int64 { return d.id }

func (d *DeliveryAgent) FullName() string { return d.firstName + " " + d.lastName }
