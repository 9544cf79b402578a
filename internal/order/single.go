package order

import (
	"fmt"
	"time"

	"github.com/campuseats/ordering/internal/discount"
	"github.com/campuseats/ordering/internal/domain"
)

// Single is an ordinary customer order: a mutable list of items delivered
// to one address.
type Single struct {
	orderBase
	items []*domain.OrderItem
}

func (o *Single) Items() []*domain.OrderItem { return o.items }

func (o *Single) Status() domain.OrderStatus {
	return o.aggregate(itemStatuses(o.items))
}

func (o *Single) AddItem(item *domain.OrderItem) error {
	if item == nil || item.Menu() == nil || item.RestaurantID() <= 0 {
		return fmt.Errorf("%w: order item cannot be nil or incomplete", ErrInvalidArgument)
	}
	o.items = append(o.items, item)
	return nil
}

func (o *Single) TotalPrice() float64 { return o.pricedTotal() }

func (o *Single) SetWaitingRestaurantAcceptance() error {
	if o.Status() != domain.StatusWaitingPayment || len(o.items) == 0 {
		return fmt.Errorf("%w: the order has not been placed yet", ErrOperationNotAllowed)
	}
	for _, item := range o.items {
		item.SetStatus(domain.StatusWaitingRestaurantAcceptance)
	}
	return nil
}

func (o *Single) SetInDelivery() error {
	if o.agent == nil {
		return fmt.Errorf("%w: a delivery agent is required to put an order in delivery", ErrOperationNotAllowed)
	}
	if o.Status() != domain.StatusWaitingDeliverAcceptance {
		return fmt.Errorf("%w: the order is not ready for delivery", ErrOperationNotAllowed)
	}
	if len(o.items) == 0 {
		return fmt.Errorf("%w: the order is empty", ErrOperationNotAllowed)
	}
	for _, item := range o.items {
		item.SetStatus(domain.StatusInDelivery)
	}
	return nil
}

func (o *Single) SetFinished() error {
	if o.Status() != domain.StatusInDelivery {
		return fmt.Errorf("%w: the order has not been delivered", ErrOperationNotAllowed)
	}
	if len(o.items) == 0 {
		return fmt.Errorf("%w: the order is empty", ErrOperationNotAllowed)
	}
	for _, item := range o.items {
		item.SetStatus(domain.StatusFinished)
	}
	return nil
}

func (o *Single) Cancel() error {
	if !o.StatusAllowsUpdate() {
		return fmt.Errorf("%w: the order can no longer be canceled", ErrModificationNotAllowed)
	}
	o.markCanceled(o.items)
	return nil
}

func (o *Single) UpdateDeliveryDate(newDate time.Time) error {
	if newDate.IsZero() {
		return fmt.Errorf("%w: delivery date cannot be zero", ErrInvalidArgument)
	}
	if !o.StatusAllowsUpdate() {
		return fmt.Errorf("%w: the delivery date can no longer change", ErrModificationNotAllowed)
	}
	o.deliveryDate = newDate
	return nil
}

func (o *Single) UpdateDeliveryAddress(newAddress string) error {
	if newAddress == "" {
		return fmt.Errorf("%w: delivery address cannot be empty", ErrInvalidArgument)
	}
	if !o.StatusAllowsUpdate() {
		return fmt.Errorf("%w: the delivery address can no longer change", ErrModificationNotAllowed)
	}
	o.deliveryAddress = newAddress
	return nil
}

// UpdateItems replaces the item list while the order is still updatable.
func (o *Single) UpdateItems(newItems []*domain.OrderItem) error {
	if newItems == nil {
		return fmt.Errorf("%w: items cannot be nil", ErrInvalidArgument)
	}
	if !o.StatusAllowsUpdate() {
		return fmt.Errorf("%w: the items can no longer change", ErrModificationNotAllowed)
	}
	o.items = newItems
	return nil
}

func (o *Single) AddCustomerCredit(minItems int, rate float64) (bool, error) {
	return o.store.discounts.ComputeCustomerCredit([]discount.PricedOrder{o}, minItems, rate)
}
