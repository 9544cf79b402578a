package schedule

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/campuseats/ordering/internal/domain"
)

// MaxSlotsToCheck bounds the backward walk from a deadline: only this
// many candidate slots ending at or before the deadline are considered.
const MaxSlotsToCheck = 3

// DefaultCapacity is the number of items a single slot admits when the
// restaurant does not configure its own.
const DefaultCapacity = 5

// ErrUnpreparable reports that a preparation request is structurally
// invalid, as opposed to merely exceeding the available capacity.
var ErrUnpreparable = errors.New("order cannot be prepared")

// Manager owns the slot calendar of one restaurant. Slots are created
// lazily, keyed by their start instant, and all admission decisions for
// the restaurant are serialized through one mutex so that a capacity
// check and the commit relying on it cannot be split by a concurrent
// caller.
type Manager struct {
	mu       sync.Mutex
	opening  time.Duration
	closing  time.Duration
	capacity int
	slots    map[int64]*TimeSlot
	now      func() time.Time
}

// NewManager builds a manager with opening and closing expressed as
// offsets from midnight. A closing earlier than the opening means the
// restaurant stays open past midnight.
func NewManager(opening, closing time.Duration, capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		opening:  opening,
		closing:  closing,
		capacity: capacity,
		slots:    make(map[int64]*TimeSlot),
		now:      time.Now,
	}
}

// NewDefaultManager builds a manager with the standard 08:00 to 20:00
// operating hours.
func NewDefaultManager(capacity int) *Manager {
	return NewManager(8*time.Hour, 20*time.Hour, capacity)
}

// WithClock overrides the time source. Tests use it to pin slot math.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Opening() time.Duration { return m.opening }

func (m *Manager) Closing() time.Duration { return m.closing }

func (m *Manager) Capacity() int { return m.capacity }

// SetHours replaces the operating hours. Offsets must fall within one day.
func (m *Manager) SetHours(opening, closing time.Duration) error {
	if opening < 0 || opening >= 24*time.Hour || closing < 0 || closing >= 24*time.Hour {
		return fmt.Errorf("%w: hours must be offsets within a day", ErrUnpreparable)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opening = opening
	m.closing = closing
	return nil
}

// SetCapacity changes the item capacity applied to slots created from
// now on. Existing slots keep the capacity they were created with.
func (m *Manager) SetCapacity(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrUnpreparable)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacity = capacity
	return nil
}

func timeOfDay(t time.Time) time.Duration {
	hour, minute, second := t.Clock()
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
}

// WithinHours reports whether the restaurant is open at the given
// instant. The boundaries themselves count as closed. When closing
// precedes opening the window wraps past midnight, so 23:00 is open for
// a 20:00 to 02:00 restaurant while 10:00 is not.
func (m *Manager) WithinHours(t time.Time) bool {
	tod := timeOfDay(t)
	if m.opening < m.closing {
		return tod > m.opening && tod < m.closing
	}
	if m.opening == m.closing {
		return false
	}
	return tod > m.opening || tod < m.closing
}

// slotBoundary maps a deadline to the latest slot boundary usable for
// it: deadlines outside operating hours are clamped to that day's
// closing, then rounded down to a slot multiple.
func (m *Manager) slotBoundary(deadline time.Time) time.Time {
	boundary := deadline
	if !m.WithinHours(boundary) {
		year, month, day := boundary.Date()
		boundary = time.Date(year, month, day, 0, 0, 0, 0, boundary.Location()).Add(m.closing)
	}
	boundary = boundary.Truncate(time.Minute)
	offset := time.Duration(boundary.Minute()) * time.Minute % SlotDuration
	return boundary.Add(-offset)
}

// slotsFor collects the candidate slots able to finish before deadline,
// walking backward one slot at a time and stopping at the first step
// that lands outside operating hours. Missing slots are created on the
// way. Caller holds m.mu.
func (m *Manager) slotsFor(deadline time.Time) []*TimeSlot {
	var available []*TimeSlot
	step := m.slotBoundary(deadline)
	for i := 0; i < MaxSlotsToCheck; i++ {
		step = step.Add(-SlotDuration)
		if !m.WithinHours(step) {
			break
		}
		key := step.Unix()
		slot, ok := m.slots[key]
		if !ok {
			slot = newTimeSlot(step, m.capacity)
			m.slots[key] = slot
		}
		if slot.AvailablePlaces() > 0 {
			available = append(available, slot)
		}
	}
	return available
}

// canPrepare is the shared admission check. Structural problems return
// an error; a plain capacity shortfall returns false with no error.
// Caller holds m.mu.
func (m *Manager) canPrepare(items []*domain.OrderItem, deadline time.Time) (bool, error) {
	if deadline.IsZero() || deadline.Before(m.now()) {
		return false, fmt.Errorf("%w: delivery deadline missing or already passed", ErrUnpreparable)
	}
	if !m.WithinHours(deadline.Add(-SlotDuration)) {
		return false, fmt.Errorf("%w: restaurant closed at preparation time", ErrUnpreparable)
	}
	if len(items) == 0 {
		return false, fmt.Errorf("%w: nothing to prepare", ErrUnpreparable)
	}
	places := 0
	for _, slot := range m.slotsFor(deadline) {
		places += slot.AvailablePlaces()
	}
	return places >= len(items), nil
}

// CanPrepareBeforeDeadline reports whether the items fit into the slots
// able to finish before the deadline. It does not reserve anything.
func (m *Manager) CanPrepareBeforeDeadline(items []*domain.OrderItem, deadline time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canPrepare(items, deadline)
}

// CommitPreparation re-runs the admission check and, still under the
// same lock, fills the candidate slots latest-first with the items.
func (m *Manager) CommitPreparation(items []*domain.OrderItem, deadline time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok, err := m.canPrepare(items, deadline)
	if err != nil || !ok {
		return false, err
	}
	pending := items
	for _, slot := range m.slotsFor(deadline) {
		for len(pending) > 0 && slot.AddItem(pending[0]) {
			pending = pending[1:]
		}
		if len(pending) == 0 {
			break
		}
	}
	return true, nil
}

// AddBatch attaches an after-work batch to the latest slot able to
// finish before the deadline.
func (m *Manager) AddBatch(batch Batch, deadline time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	slots := m.slotsFor(deadline)
	if len(slots) == 0 {
		return false
	}
	return slots[0].AddBatch(batch)
}

// RemoveItem drops a canceled item from whichever slots hold it,
// releasing its place.
func (m *Manager) RemoveItem(item *domain.OrderItem) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := false
	for _, slot := range m.slots {
		if slot.removeItem(item) {
			removed = true
		}
	}
	return removed
}

func (m *Manager) sortedSlots() []*TimeSlot {
	keys := make([]int64, 0, len(m.slots))
	for key := range m.slots {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	slots := make([]*TimeSlot, 0, len(keys))
	for _, key := range keys {
		slots = append(slots, m.slots[key])
	}
	return slots
}

// Slots returns every known slot in chronological order.
func (m *Manager) Slots() []*TimeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedSlots()
}

func slotHasWork(slot *TimeSlot) bool {
	for _, item := range slot.Items() {
		switch item.Status() {
		case domain.StatusInPreparation, domain.StatusWaitingRestaurantAcceptance:
			return true
		}
	}
	for _, batch := range slot.Batches() {
		if batch.Status() == domain.StatusInPreparation {
			return true
		}
	}
	return false
}

// NearestSlotWithWork returns the earliest slot still holding items or
// batches waiting on the kitchen, or nil when everything is done.
func (m *Manager) NearestSlotWithWork() *TimeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range m.sortedSlots() {
		if slotHasWork(slot) {
			return slot
		}
	}
	return nil
}
