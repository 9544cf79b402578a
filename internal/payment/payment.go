// Package payment simulates the campus payment backend. Charges and
// refunds always succeed for positive amounts; there is no external
// call behind it.
package payment

import (
	"errors"
	"fmt"
	"log/slog"
)

var ErrInvalidAmount = errors.New("invalid payment amount")

type Processor struct {
	logger *slog.Logger
}

func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// Pay charges the customer. The amount must be strictly positive;
// callers skip the charge entirely when credit covers the order.
func (p *Processor) Pay(customerID int64, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %.2f", ErrInvalidAmount, amount)
	}
	p.logger.Info("payment accepted",
		slog.Int64("customer_id", customerID),
		slog.Float64("amount", amount),
	)
	return nil
}

// Refund returns money to the customer after a cancellation.
func (p *Processor) Refund(customerID int64, amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %.2f", ErrInvalidAmount, amount)
	}
	p.logger.Info("refund issued",
		slog.Int64("customer_id", customerID),
		slog.Float64("amount", amount),
	)
	return nil
}
