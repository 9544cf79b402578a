package domain

type OrderStatus string

const (
	StatusWaitingPayment              OrderStatus = "waiting_payment"
	StatusWaitingRestaurantAcceptance OrderStatus = "waiting_restaurant_acceptance"
	StatusInPreparation               OrderStatus = "in_preparation"
	StatusWaitingDeliverAcceptance    OrderStatus = "waiting_deliver_acceptance"
	StatusInDelivery                  OrderStatus = "in_delivery"
	StatusFinished                    OrderStatus = "finished"
	StatusCanceled                    OrderStatus = "canceled"
)

// Terminal reports whether the status short-circuits aggregation: once a
// constituent reaches one of these, the aggregate adopts it as-is.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusWaitingPayment, StatusInDelivery, StatusFinished, StatusCanceled:
		return true
	}
	return false
}
