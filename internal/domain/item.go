package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidItem = errors.New("invalid order item")

// OrderItem is a single menu line of an order, bound to one menu entry and
// one restaurant. Both bindings are immutable after creation; only the
// status and the deliverable flag change over the item's life.
type OrderItem struct {
	menu         *Menu
	restaurantID int64
	status       OrderStatus
	deliverable  bool
}

func NewOrderItem(menu *Menu, restaurantID int64) (*OrderItem, error) {
	if menu == nil {
		return nil, fmt.Errorf("%w: menu is required", ErrInvalidItem)
	}
	if restaurantID <= 0 {
		return nil, fmt.Errorf("%w: restaurant is required", ErrInvalidItem)
	}
	return &OrderItem{
		menu:         menu,
		restaurantID: restaurantID,
		status:       StatusWaitingPayment,
		deliverable:  true,
	}, nil
}

func (i *OrderItem) Menu() *Menu { return i.menu }

func (i *OrderItem) RestaurantID() int64 { return i.restaurantID }

func (i *OrderItem) Status() OrderStatus { return i.status }

func (i *OrderItem) SetStatus(status OrderStatus) { i.status = status }

func (i *OrderItem) Deliverable() bool { return i.deliverable }

func (i *OrderItem) SetDeliverable(deliverable bool) { i.deliverable = deliverable }

// Price resolves the item price for the given customer tier.
func (i *OrderItem) Price(tier Tier) float64 { return i.menu.Price(tier) }
