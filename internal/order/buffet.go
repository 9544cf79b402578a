package order

import (
	"fmt"
	"time"

	"github.com/campuseats/ordering/internal/discount"
	"github.com/campuseats/ordering/internal/domain"
)

// Buffet is a staff-arranged order of items from exactly one restaurant.
// Whether it is delivered and whether it is paid are fixed at construction
// and decide which transitions are legal.
type Buffet struct {
	orderBase
	items         []*domain.OrderItem
	restaurantID  int64
	needsDelivery bool
	needsPayment  bool
}

func (o *Buffet) Items() []*domain.OrderItem { return o.items }

func (o *Buffet) RestaurantID() int64 { return o.restaurantID }

func (o *Buffet) NeedsDelivery() bool { return o.needsDelivery }

func (o *Buffet) NeedsPayment() bool { return o.needsPayment }

func (o *Buffet) Status() domain.OrderStatus {
	return o.aggregate(itemStatuses(o.items))
}

func (o *Buffet) TotalPrice() float64 { return o.pricedTotal() }

// SetWaitingRestaurantAcceptance is unconditional for buffets; it runs
// automatically at construction for non-delivered ones.
func (o *Buffet) SetWaitingRestaurantAcceptance() error {
	for _, item := range o.items {
		item.SetStatus(domain.StatusWaitingRestaurantAcceptance)
	}
	return nil
}

func (o *Buffet) SetInDelivery() error {
	if !o.needsDelivery {
		return fmt.Errorf("%w: the buffet order does not need to be delivered", ErrOperationNotAllowed)
	}
	if o.Status() != domain.StatusInPreparation {
		return fmt.Errorf("%w: the buffet order is not in preparation", ErrOperationNotAllowed)
	}
	for _, item := range o.items {
		item.SetStatus(domain.StatusInDelivery)
	}
	return nil
}

func (o *Buffet) SetFinished() error {
	if o.needsDelivery && o.Status() != domain.StatusInDelivery {
		return fmt.Errorf("%w: the buffet order is not in delivery", ErrOperationNotAllowed)
	}
	if !o.needsDelivery && o.Status() != domain.StatusInPreparation {
		return fmt.Errorf("%w: the buffet order is not in preparation", ErrOperationNotAllowed)
	}
	for _, item := range o.items {
		item.SetStatus(domain.StatusFinished)
	}
	return nil
}

func (o *Buffet) Cancel() error {
	status := o.Status()
	if status != domain.StatusWaitingRestaurantAcceptance && status != domain.StatusWaitingPayment {
		return fmt.Errorf("%w: the buffet order can no longer be canceled", ErrModificationNotAllowed)
	}
	o.markCanceled(o.items)
	return nil
}

func (o *Buffet) UpdateDeliveryDate(newDate time.Time) error {
	if !o.needsDelivery {
		return fmt.Errorf("%w: the buffet order does not need to be delivered", ErrModificationNotAllowed)
	}
	if newDate.IsZero() || !newDate.After(o.store.now()) {
		return fmt.Errorf("%w: delivery date cannot be zero or in the past", ErrInvalidArgument)
	}
	if o.Status() != domain.StatusWaitingRestaurantAcceptance {
		return fmt.Errorf("%w: the delivery date can no longer change", ErrModificationNotAllowed)
	}
	o.deliveryDate = newDate
	return nil
}

func (o *Buffet) UpdateDeliveryAddress(newAddress string) error {
	if !o.needsDelivery {
		return fmt.Errorf("%w: the buffet order does not need to be delivered", ErrModificationNotAllowed)
	}
	if newAddress == "" {
		return fmt.Errorf("%w: delivery address cannot be empty", ErrInvalidArgument)
	}
	status := o.Status()
	if status != domain.StatusWaitingRestaurantAcceptance && status != domain.StatusWaitingPayment {
		return fmt.Errorf("%w: the delivery address can no longer change", ErrModificationNotAllowed)
	}
	o.deliveryAddress = newAddress
	return nil
}

func (o *Buffet) AddCustomerCredit(minItems int, rate float64) (bool, error) {
	return o.store.discounts.ComputeCustomerCredit([]discount.PricedOrder{o}, minItems, rate)
}
