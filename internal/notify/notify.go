// Package notify delivers fire-and-forget notifications to the people
// around an order. Delivery is a structured log line; nothing waits on
// it and nothing fails because of it.
package notify

import "log/slog"

type Audience string

const (
	AudienceCustomer       Audience = "customer"
	AudienceRestaurant     Audience = "restaurant"
	AudienceDeliveryAgents Audience = "delivery_agents"
)

type Notifier struct {
	logger *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Notify sends a message to one audience. A zero recipient id means the
// whole audience, used for delivery agent broadcasts.
func (n *Notifier) Notify(audience Audience, recipientID int64, message string) {
	n.logger.Info("notification",
		slog.String("audience", string(audience)),
		slog.Int64("recipient_id", recipientID),
		slog.String("message", message),
	)
}
