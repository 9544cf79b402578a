// Package restaurant holds the kitchen side of the platform: menus,
// the preparation calendar, and the act of cooking the nearest slot.
package restaurant

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campuseats/ordering/internal/domain"
	"github.com/campuseats/ordering/internal/schedule"
)

var ErrInvalidRestaurant = errors.New("invalid restaurant")

// Waiter models the preparation delay of one slot. Production wiring
// passes time.Sleep; tests pass a clock advance so nothing blocks.
type Waiter func(time.Duration)

// Restaurant is one kitchen: its menu catalog, its slot calendar and
// the items currently moving through it.
type Restaurant struct {
	id      int64
	name    string
	address string

	mu      sync.Mutex
	menus   []*domain.Menu
	pending []*domain.OrderItem
	served  []*domain.OrderItem

	calendar *schedule.Manager
	logger   *slog.Logger
}

func (r *Restaurant) ID() int64 { return r.id }

func (r *Restaurant) Name() string { return r.name }

func (r *Restaurant) Address() string { return r.address }

// Schedule exposes the slot calendar, for hour and capacity tuning.
func (r *Restaurant) Schedule() *schedule.Manager { return r.calendar }

func (r *Restaurant) AddMenu(menu *domain.Menu) error {
	if menu == nil {
		return fmt.Errorf("%w: menu is required", ErrInvalidRestaurant)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.menus {
		if existing.Name() == menu.Name() {
			return fmt.Errorf("%w: menu %q already exists", ErrInvalidRestaurant, menu.Name())
		}
	}
	r.menus = append(r.menus, menu)
	return nil
}

func (r *Restaurant) RemoveMenu(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, menu := range r.menus {
		if menu.Name() == name {
			r.menus = append(r.menus[:i], r.menus[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Restaurant) MenuByName(name string) (*domain.Menu, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, menu := range r.menus {
		if menu.Name() == name {
			return menu, true
		}
	}
	return nil, false
}

func (r *Restaurant) Menus() []*domain.Menu {
	r.mu.Lock()
	defer r.mu.Unlock()
	menus := make([]*domain.Menu, len(r.menus))
	copy(menus, r.menus)
	return menus
}

// AfterWorkMenus returns the subset of the catalog eligible for
// after-work events.
func (r *Restaurant) AfterWorkMenus() []*domain.Menu {
	r.mu.Lock()
	defer r.mu.Unlock()
	var eligible []*domain.Menu
	for _, menu := range r.menus {
		if menu.AfterWork() {
			eligible = append(eligible, menu)
		}
	}
	return eligible
}

// CanHandle reports whether the kitchen still has room to cook the
// items before the deadline, without reserving anything.
func (r *Restaurant) CanHandle(items []*domain.OrderItem, deadline time.Time) (bool, error) {
	return r.calendar.CanPrepareBeforeDeadline(items, deadline)
}

// AcceptItems commits the items into the calendar and tracks them as
// pending kitchen work. The capacity check and the reservation happen
// in one critical section inside the calendar.
func (r *Restaurant) AcceptItems(items []*domain.OrderItem, deadline time.Time) (bool, error) {
	ok, err := r.calendar.CommitPreparation(items, deadline)
	if err != nil || !ok {
		return false, err
	}
	r.mu.Lock()
	r.pending = append(r.pending, items...)
	r.mu.Unlock()
	return true, nil
}

// AcceptBatch attaches an after-work batch to the calendar.
func (r *Restaurant) AcceptBatch(batch schedule.Batch, deadline time.Time) bool {
	return r.calendar.AddBatch(batch, deadline)
}

// CancelItem pulls a canceled item out of its slot and out of the
// pending list, releasing its place.
func (r *Restaurant) CancelItem(item *domain.OrderItem) bool {
	removed := r.calendar.RemoveItem(item)
	r.mu.Lock()
	for i, pending := range r.pending {
		if pending == item {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	return removed
}

// PendingItems returns the items accepted but not yet served.
func (r *Restaurant) PendingItems() []*domain.OrderItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*domain.OrderItem, len(r.pending))
	copy(items, r.pending)
	return items
}

// ServedItems returns the items already through the kitchen.
func (r *Restaurant) ServedItems() []*domain.OrderItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*domain.OrderItem, len(r.served))
	copy(items, r.served)
	return items
}

// PrepareNearestSlot cooks the earliest slot that still has work: every
// waiting item moves to in-preparation, the waiter absorbs the slot
// duration, then deliverable items become ready for pickup and
// non-deliverable ones finish on the spot. After-work batches in the
// slot are finished as a unit. Returns the number of items prepared.
func (r *Restaurant) PrepareNearestSlot(wait Waiter) int {
	slot := r.calendar.NearestSlotWithWork()
	if slot == nil {
		return 0
	}

	var cooking []*domain.OrderItem
	for _, item := range slot.Items() {
		switch item.Status() {
		case domain.StatusWaitingRestaurantAcceptance, domain.StatusInPreparation:
			item.SetStatus(domain.StatusInPreparation)
			cooking = append(cooking, item)
		}
	}
	batches := slot.Batches()

	if len(cooking) > 0 || len(batches) > 0 {
		wait(schedule.SlotDuration)
	}

	for _, item := range cooking {
		if item.Deliverable() {
			item.SetStatus(domain.StatusWaitingDeliverAcceptance)
		} else {
			item.SetStatus(domain.StatusFinished)
		}
	}
	for _, batch := range batches {
		if batch.Status() != domain.StatusInPreparation {
			continue
		}
		if err := batch.SetFinished(); err != nil {
			r.logger.Warn("failed to finish batch", slog.String("restaurant", r.name), slog.Any("error", err))
		}
	}

	r.mu.Lock()
	for _, item := range cooking {
		for i, pending := range r.pending {
			if pending == item {
				r.pending = append(r.pending[:i], r.pending[i+1:]...)
				break
			}
		}
		r.served = append(r.served, item)
	}
	r.mu.Unlock()

	r.logger.Info("slot prepared",
		slog.String("restaurant", r.name),
		slog.Time("slot_start", slot.Start()),
		slog.Int("items", len(cooking)),
		slog.Int("batches", len(batches)),
	)
	return len(cooking)
}
