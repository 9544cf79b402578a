package order

import (
	"fmt"
	"time"

	"github.com/campuseats/ordering/internal/discount"
	"github.com/campuseats/ordering/internal/domain"
)

// Group is a composite order. It owns no items of its own: its items,
// price and status all derive from its children.
type Group struct {
	orderBase
	children []Order
}

func (o *Group) AllowsSubOrders() bool { return true }

func (o *Group) NeedsPayment() bool { return false }

// AddSubOrder admits a child order: it must not be parented yet and must
// either still be updatable or be waiting for delivery acceptance (late
// joins during delivery assembly). The child's delivery date and address
// are overwritten with the group's.
func (o *Group) AddSubOrder(child Order) error {
	if child == nil {
		return fmt.Errorf("%w: cannot add a nil order to a group order", ErrInvalidArgument)
	}
	if child.PartOfGroup() {
		return fmt.Errorf("%w: the order is already part of a group order", ErrOperationNotAllowed)
	}
	if !child.StatusAllowsUpdate() && child.Status() != domain.StatusWaitingDeliverAcceptance {
		return fmt.Errorf("%w: the order can no longer join a group order", ErrOperationNotAllowed)
	}
	cb := child.base()
	cb.deliveryDate = o.DeliveryDate()
	cb.deliveryAddress = o.DeliveryAddress()
	cb.parentID = o.id
	o.children = append(o.children, child)
	return nil
}

func (o *Group) SubOrders() []Order { return o.children }

func (o *Group) Items() []*domain.OrderItem {
	var items []*domain.OrderItem
	for _, child := range o.children {
		items = append(items, child.Items()...)
	}
	return items
}

func (o *Group) Status() domain.OrderStatus {
	statuses := make([]domain.OrderStatus, len(o.children))
	for i, child := range o.children {
		statuses[i] = child.Status()
	}
	return o.aggregate(statuses)
}

// TotalPrice sums the children's credit-consuming totals. The group itself
// is never paid directly.
func (o *Group) TotalPrice() float64 {
	var total float64
	for _, child := range o.children {
		total += child.TotalPrice()
	}
	return total
}

func (o *Group) SetWaitingRestaurantAcceptance() error {
	if o.Status() != domain.StatusWaitingPayment {
		return fmt.Errorf("%w: the group order is not waiting for payment", ErrOperationNotAllowed)
	}
	if len(o.children) == 0 {
		return fmt.Errorf("%w: the group order is empty", ErrOperationNotAllowed)
	}
	for _, child := range o.children {
		if err := child.SetWaitingRestaurantAcceptance(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Group) SetInDelivery() error {
	if o.agent == nil {
		return fmt.Errorf("%w: a delivery agent is required to put an order in delivery", ErrOperationNotAllowed)
	}
	if o.Status() != domain.StatusWaitingDeliverAcceptance {
		return fmt.Errorf("%w: the group order is not ready for delivery", ErrOperationNotAllowed)
	}
	if len(o.children) == 0 {
		return fmt.Errorf("%w: the group order is empty", ErrOperationNotAllowed)
	}
	for _, child := range o.children {
		if child.DeliveryAgent() == nil {
			child.AssignDeliveryAgent(o.agent)
		}
		if err := child.SetInDelivery(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Group) SetFinished() error {
	if o.Status() != domain.StatusInDelivery {
		return fmt.Errorf("%w: the group order has not been delivered", ErrOperationNotAllowed)
	}
	if len(o.children) == 0 {
		return fmt.Errorf("%w: the group order is empty", ErrOperationNotAllowed)
	}
	for _, child := range o.children {
		if err := child.SetFinished(); err != nil {
			return err
		}
	}
	return nil
}

func (o *Group) Cancel() error {
	if !o.StatusAllowsUpdate() {
		return fmt.Errorf("%w: the group order can no longer be canceled", ErrModificationNotAllowed)
	}
	for _, child := range o.children {
		child.base().markCanceled(child.Items())
	}
	o.canceled = true
	return nil
}

func (o *Group) UpdateDeliveryDate(newDate time.Time) error {
	if newDate.IsZero() {
		return fmt.Errorf("%w: delivery date cannot be zero", ErrInvalidArgument)
	}
	if !o.StatusAllowsUpdate() {
		return fmt.Errorf("%w: the delivery date can no longer change", ErrModificationNotAllowed)
	}
	o.deliveryDate = newDate
	for _, child := range o.children {
		child.base().deliveryDate = newDate
	}
	return nil
}

func (o *Group) UpdateDeliveryAddress(newAddress string) error {
	if newAddress == "" {
		return fmt.Errorf("%w: delivery address cannot be empty", ErrInvalidArgument)
	}
	if !o.StatusAllowsUpdate() {
		return fmt.Errorf("%w: the delivery address can no longer change", ErrModificationNotAllowed)
	}
	o.deliveryAddress = newAddress
	for _, child := range o.children {
		child.base().deliveryAddress = newAddress
	}
	return nil
}

// AddCustomerCredit accrues credit over the group's single sub-orders that
// actually carry items.
func (o *Group) AddCustomerCredit(minItems int, rate float64) (bool, error) {
	var singles []discount.PricedOrder
	for _, child := range o.children {
		if child.Kind() == KindSingle && len(child.Items()) > 0 {
			singles = append(singles, child)
		}
	}
	return o.store.discounts.ComputeCustomerCredit(singles, minItems, rate)
}
