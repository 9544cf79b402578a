// Package schedule partitions a restaurant's operating hours into
// fixed-duration, capacity-bounded preparation slots and assigns order
// items to them against delivery deadlines.
package schedule

import (
	"time"

	"github.com/campuseats/ordering/internal/domain"
)

// SlotDuration is the fixed length of every preparation slot.
const SlotDuration = 10 * time.Minute

// Batch is an after-work preparation batch occupying a slot as one unit.
type Batch interface {
	Status() domain.OrderStatus
	SetFinished() error
}

// TimeSlot is one preparation window. It holds at most capacity items,
// plus the after-work batches running alongside them.
type TimeSlot struct {
	start    time.Time
	capacity int
	items    []*domain.OrderItem
	batches  []Batch
}

func newTimeSlot(start time.Time, capacity int) *TimeSlot {
	return &TimeSlot{start: start, capacity: capacity}
}

func (t *TimeSlot) Start() time.Time { return t.start }

func (t *TimeSlot) End() time.Time { return t.start.Add(SlotDuration) }

func (t *TimeSlot) Capacity() int { return t.capacity }

func (t *TimeSlot) Items() []*domain.OrderItem { return t.items }

func (t *TimeSlot) Batches() []Batch { return t.batches }

func (t *TimeSlot) AvailablePlaces() int { return t.capacity - len(t.items) }

// AddItem admits an item unless the slot is already at capacity. A
// rejected insert leaves the slot untouched.
func (t *TimeSlot) AddItem(item *domain.OrderItem) bool {
	if item == nil || len(t.items) >= t.capacity {
		return false
	}
	t.items = append(t.items, item)
	return true
}

// AddBatch admits an after-work batch. Batches do not count against the
// item capacity.
func (t *TimeSlot) AddBatch(batch Batch) bool {
	if batch == nil {
		return false
	}
	t.batches = append(t.batches, batch)
	return true
}

func (t *TimeSlot) removeItem(item *domain.OrderItem) bool {
	for i, candidate := range t.items {
		if candidate == item {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return true
		}
	}
	return false
}

// OnGoing reports whether the slot covers the given instant.
func (t *TimeSlot) OnGoing(now time.Time) bool {
	return now.After(t.start) && now.Before(t.End())
}
