package order

import (
	"fmt"
	"time"

	"github.com/campuseats/ordering/internal/discount"
	"github.com/campuseats/ordering/internal/domain"
)

// AfterWork is an on-site event order at one restaurant: never paid, never
// delivered, and prepared as one atomic batch rather than item by item.
type AfterWork struct {
	orderBase
	items        []*domain.OrderItem
	restaurantID int64
	participants int
}

func (o *AfterWork) Items() []*domain.OrderItem { return o.items }

func (o *AfterWork) RestaurantID() int64 { return o.restaurantID }

func (o *AfterWork) ParticipantCount() int { return o.participants }

func (o *AfterWork) SetParticipantCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: participant count must be positive", ErrInvalidArgument)
	}
	status := o.Status()
	if status == domain.StatusFinished || status == domain.StatusCanceled {
		return fmt.Errorf("%w: the after-work order is already closed", ErrModificationNotAllowed)
	}
	o.participants = n
	return nil
}

func (o *AfterWork) NeedsPayment() bool { return false }

func (o *AfterWork) NeedsDelivery() bool { return false }

func (o *AfterWork) Status() domain.OrderStatus {
	return o.aggregate(itemStatuses(o.items))
}

func (o *AfterWork) TotalPrice() float64 { return o.pricedTotal() }

func (o *AfterWork) SetWaitingRestaurantAcceptance() error {
	return fmt.Errorf("%w: an after-work order cannot wait for restaurant acceptance", ErrOperationNotAllowed)
}

func (o *AfterWork) SetInDelivery() error {
	return fmt.Errorf("%w: an after-work order cannot be delivered", ErrOperationNotAllowed)
}

// SetFinished closes the whole batch at once.
func (o *AfterWork) SetFinished() error {
	switch o.Status() {
	case domain.StatusFinished:
		return fmt.Errorf("%w: the after-work order is already finished", ErrOperationNotAllowed)
	case domain.StatusCanceled:
		return fmt.Errorf("%w: the after-work order is already canceled", ErrOperationNotAllowed)
	}
	for _, item := range o.items {
		item.SetStatus(domain.StatusFinished)
	}
	return nil
}

func (o *AfterWork) Cancel() error {
	if !o.StatusAllowsUpdate() {
		return fmt.Errorf("%w: the after-work order can no longer be canceled", ErrModificationNotAllowed)
	}
	o.markCanceled(o.items)
	return nil
}

func (o *AfterWork) UpdateDeliveryDate(newDate time.Time) error {
	if newDate.IsZero() {
		return fmt.Errorf("%w: delivery date cannot be zero", ErrInvalidArgument)
	}
	status := o.Status()
	if status == domain.StatusFinished || status == domain.StatusCanceled {
		return fmt.Errorf("%w: the after-work order is already closed", ErrModificationNotAllowed)
	}
	o.deliveryDate = newDate
	return nil
}

func (o *AfterWork) UpdateDeliveryAddress(string) error {
	return fmt.Errorf("%w: the address of an after-work order cannot change", ErrModificationNotAllowed)
}

func (o *AfterWork) AddCustomerCredit(minItems int, rate float64) (bool, error) {
	return o.store.discounts.ComputeCustomerCredit([]discount.PricedOrder{o}, minItems, rate)
}
