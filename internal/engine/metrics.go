package engine

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	ordersPlaced   metric.Int64Counter
	ordersCanceled metric.Int64Counter
	itemsScheduled metric.Int64Counter
	creditGrants   metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter("ordering/engine")

	ordersPlaced, err := meter.Int64Counter("orders_placed_total",
		metric.WithDescription("Orders accepted by the engine, by order kind"))
	if err != nil {
		return nil, err
	}
	ordersCanceled, err := meter.Int64Counter("orders_canceled_total",
		metric.WithDescription("Orders canceled after placement"))
	if err != nil {
		return nil, err
	}
	itemsScheduled, err := meter.Int64Counter("items_scheduled_total",
		metric.WithDescription("Order items admitted into preparation slots"))
	if err != nil {
		return nil, err
	}
	creditGrants, err := meter.Int64Counter("credit_grants_total",
		metric.WithDescription("Loyalty credit grants issued to customers"))
	if err != nil {
		return nil, err
	}

	return &metrics{
		ordersPlaced:   ordersPlaced,
		ordersCanceled: ordersCanceled,
		itemsScheduled: itemsScheduled,
		creditGrants:   creditGrants,
	}, nil
}
