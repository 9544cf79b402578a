package domain

import "time"

type OrderPlacedEvent struct {
	EventID    string    `json:"event_id"`
	OrderID    int64     `json:"order_id"`
	OrderKind  string    `json:"order_kind"`
	CustomerID int64     `json:"customer_id"`
	ItemCount  int       `json:"item_count"`
	Total      float64   `json:"total"`
	Deadline   time.Time `json:"deadline"`
	Timestamp  time.Time `json:"timestamp"`
}

type OrderCanceledEvent struct {
	EventID   string    `json:"event_id"`
	OrderID   int64     `json:"order_id"`
	Refunded  float64   `json:"refunded"`
	Timestamp time.Time `json:"timestamp"`
}
