package account

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/campuseats/ordering/internal/domain"
)

// Registry is the in-process directory of customers and delivery
// agents. Ids come from atomic counters, one per population.
type Registry struct {
	mu             sync.RWMutex
	lastCustomerID atomic.Int64
	lastAgentID    atomic.Int64
	customers      map[int64]*Customer
	agents         map[int64]*DeliveryAgent
}

func NewRegistry() *Registry {
	return &Registry{
		customers: make(map[int64]*Customer),
		agents:    make(map[int64]*DeliveryAgent),
	}
}

func (r *Registry) RegisterCustomer(firstName, lastName string, tier domain.Tier) (*Customer, error) {
	customer, err := NewCustomer(r.lastCustomerID.Add(1), firstName, lastName, tier)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.customers[customer.ID()] = customer
	r.mu.Unlock()
	return customer, nil
}

func (r *Registry) RegisterAgent(firstName, lastName string) (*DeliveryAgent, error) {
	agent, err := NewDeliveryAgent(r.lastAgentID.Add(1), firstName, lastName)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.agents[agent.ID()] = agent
	r.mu.Unlock()
	return agent, nil
}

func (r *Registry) Customer(id int64) (*Customer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	return c, ok
}

func (r *Registry) Agent(id int64) (*DeliveryAgent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Customers returns every customer ordered by id.
func (r *Registry) Customers() []*Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	customers := make([]*Customer, 0, len(r.customers))
	for _, c := range r.customers {
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID() < customers[j].ID() })
	return customers
}
