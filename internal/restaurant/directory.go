package restaurant

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campuseats/ordering/internal/schedule"
)

// Directory is the in-process registry of restaurants. Ids are handed
// out by an atomic counter so concurrent registrations never collide.
type Directory struct {
	mu     sync.RWMutex
	lastID atomic.Int64
	byID   map[int64]*Restaurant
	logger *slog.Logger
}

func NewDirectory(logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		byID:   make(map[int64]*Restaurant),
		logger: logger,
	}
}

// Register creates a restaurant with the default operating hours and
// slot capacity and adds it to the directory.
func (d *Directory) Register(name, address string) (*Restaurant, error) {
	return d.RegisterWithHours(name, address, 8*time.Hour, 20*time.Hour, schedule.DefaultCapacity)
}

// RegisterWithHours creates a restaurant with explicit operating hours
// and slot capacity.
func (d *Directory) RegisterWithHours(name, address string, opening, closing time.Duration, capacity int) (*Restaurant, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidRestaurant)
	}
	r := &Restaurant{
		id:       d.lastID.Add(1),
		name:     name,
		address:  address,
		calendar: schedule.NewManager(opening, closing, capacity),
		logger:   d.logger,
	}
	d.mu.Lock()
	d.byID[r.id] = r
	d.mu.Unlock()
	return r, nil
}

func (d *Directory) Get(id int64) (*Restaurant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.byID[id]
	return r, ok
}

func (d *Directory) ByName(name string) (*Restaurant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.byID {
		if r.name == name {
			return r, true
		}
	}
	return nil, false
}

// All returns every restaurant ordered by id.
func (d *Directory) All() []*Restaurant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	restaurants := make([]*Restaurant, 0, len(d.byID))
	for _, r := range d.byID {
		restaurants = append(restaurants, r)
	}
	sort.Slice(restaurants, func(i, j int) bool { return restaurants[i].id < restaurants[j].id })
	return restaurants
}
