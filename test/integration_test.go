//go:build integration

package test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
	"github.com/campuseats/ordering/internal/engine"
	"github.com/campuseats/ordering/internal/messaging"
	"github.com/campuseats/ordering/internal/order"
	"github.com/campuseats/ordering/internal/restaurant"
	"github.com/campuseats/ordering/internal/web"
)

const eventsTopic = "order.events"

func TestOrderEventFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	producer := messaging.NewProducer(brokers, eventsTopic)
	defer func() { _ = producer.Close() }()

	logger := slog.Default()
	restaurants := restaurant.NewDirectory(logger)
	bistro, err := restaurants.Register("Campus Bistro", "1 University Walk")
	if err != nil {
		t.Fatalf("failed to register restaurant: %v", err)
	}
	pasta, err := domain.NewMenu("pasta", 8.5, false)
	if err != nil {
		t.Fatalf("failed to create menu: %v", err)
	}
	if err := bistro.AddMenu(pasta); err != nil {
		t.Fatalf("failed to add menu: %v", err)
	}

	accounts := account.NewRegistry()
	customer, err := accounts.RegisterCustomer("Ada", "Lovelace", domain.TierStudent)
	if err != nil {
		t.Fatalf("failed to register customer: %v", err)
	}

	eng, err := engine.New(order.NewStore(nil), restaurants, accounts, nil, nil, producer, logger)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	handler := web.NewHandler(eng, func(time.Duration) {}, logger)
	mux := handler.Routes()

	deadline := time.Now().Add(2 * time.Hour)
	for !insideDefaultHours(deadline) {
		deadline = deadline.Add(time.Hour)
	}

	body := `{"customer_id": ` + jsonInt(customer.ID()) + `,
		"delivery_date": "` + deadline.Format(time.RFC3339) + `",
		"address": "Dorm 4",
		"items": [{"restaurant_id": ` + jsonInt(bistro.ID()) + `, "menu": "pasta", "quantity": 2}]}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var placed struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&placed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if placed.ID == 0 {
		t.Fatal("expected order id to be set")
	}

	consumer := messaging.NewConsumer(brokers, eventsTopic, "test-group",
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	received := make(chan domain.OrderPlacedEvent, 1)
	consumeCtx, stopConsume := context.WithCancel(ctx)
	defer stopConsume()
	go func() {
		_ = consumer.Consume(consumeCtx, func(_ context.Context, payload []byte) error {
			var event domain.OrderPlacedEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return err
			}
			select {
			case received <- event:
			default:
			}
			return nil
		})
	}()

	select {
	case event := <-received:
		if event.OrderID != placed.ID {
			t.Fatalf("expected event for order %d, got %d", placed.ID, event.OrderID)
		}
		if event.OrderKind != string(order.KindSingle) {
			t.Fatalf("expected single order event, got %q", event.OrderKind)
		}
		if event.ItemCount != 2 {
			t.Fatalf("expected 2 items in event, got %d", event.ItemCount)
		}
	case <-time.After(90 * time.Second):
		t.Fatal("timed out waiting for order placed event")
	}
}

func insideDefaultHours(t time.Time) bool {
	h := t.Hour()
	return h > 8 && h < 19
}

func jsonInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
