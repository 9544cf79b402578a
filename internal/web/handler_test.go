package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
	"github.com/campuseats/ordering/internal/engine"
	"github.com/campuseats/ordering/internal/order"
	"github.com/campuseats/ordering/internal/restaurant"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestMux(t *testing.T) (*http.ServeMux, *restaurant.Restaurant, *account.Customer) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	restaurants := restaurant.NewDirectory(logger)
	bistro, err := restaurants.Register("Campus Bistro", "1 University Walk")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	bistro.Schedule().WithClock(func() time.Time { return testNow })
	menu, err := domain.NewMenu("pasta", 8.5, false)
	if err != nil {
		t.Fatalf("NewMenu: %v", err)
	}
	if err := bistro.AddMenu(menu); err != nil {
		t.Fatalf("AddMenu: %v", err)
	}

	accounts := account.NewRegistry()
	customer, err := accounts.RegisterCustomer("Ada", "Lovelace", domain.TierStudent)
	if err != nil {
		t.Fatalf("RegisterCustomer: %v", err)
	}

	store := order.NewStore(nil).WithClock(func() time.Time { return testNow })
	eng, err := engine.New(store, restaurants, accounts, nil, nil, nil, logger)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	eng.WithClock(func() time.Time { return testNow })

	handler := NewHandler(eng, func(time.Duration) {}, logger)
	return handler.Routes(), bistro, customer
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func placeOrderBody(customerID, restaurantID int64, quantity int) string {
	return `{"customer_id": ` + strconv.FormatInt(customerID, 10) + `,
		"delivery_date": "` + testNow.Add(3*time.Hour).Format(time.RFC3339) + `",
		"address": "Dorm 4",
		"items": [{"restaurant_id": ` + strconv.FormatInt(restaurantID, 10) + `, "menu": "pasta", "quantity": ` + strconv.Itoa(quantity) + `}]}`
}

func TestHandlePlaceSingle(t *testing.T) {
	mux, bistro, customer := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/orders", placeOrderBody(customer.ID(), bistro.ID(), 2))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var view struct {
		ID        int64   `json:"id"`
		Kind      string  `json:"kind"`
		Status    string  `json:"status"`
		ItemCount int     `json:"item_count"`
		Total     float64 `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID == 0 || view.Kind != "single" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Status != string(domain.StatusWaitingRestaurantAcceptance) {
		t.Fatalf("status = %q, want %q", view.Status, domain.StatusWaitingRestaurantAcceptance)
	}
	if view.ItemCount != 2 || view.Total != 17 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestHandlePlaceSingleValidation(t *testing.T) {
	mux, bistro, customer := newTestMux(t)

	t.Run("malformed body", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/orders", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/orders", `{"customer_id": 1}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("unknown customer", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/orders", placeOrderBody(999, bistro.ID(), 1))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusNotFound, rec.Body.String())
		}
	})

	t.Run("past delivery date", func(t *testing.T) {
		body := `{"customer_id": ` + strconv.FormatInt(customer.ID(), 10) + `,
			"delivery_date": "` + testNow.Add(-time.Hour).Format(time.RFC3339) + `",
			"address": "Dorm 4",
			"items": [{"restaurant_id": ` + strconv.FormatInt(bistro.ID(), 10) + `, "menu": "pasta", "quantity": 1}]}`
		rec := doJSON(t, mux, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})
}

func TestHandleCancel(t *testing.T) {
	mux, bistro, customer := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/orders", placeOrderBody(customer.ID(), bistro.ID(), 1))
	if rec.Code != http.StatusCreated {
		t.Fatalf("place status = %d: %s", rec.Code, rec.Body.String())
	}
	var view struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	path := "/orders/" + strconv.FormatInt(view.ID, 10)

	if rec := doJSON(t, mux, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("cancel status = %d, want %d: %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}
	// a canceled order cannot be canceled again
	if rec := doJSON(t, mux, http.MethodDelete, path, ""); rec.Code != http.StatusConflict {
		t.Fatalf("second cancel status = %d, want %d", rec.Code, http.StatusConflict)
	}

	if rec := doJSON(t, mux, http.MethodGet, path, ""); rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := doJSON(t, mux, http.MethodDelete, "/orders/999", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("cancel missing order status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandlePrepareAndReadyFeed(t *testing.T) {
	mux, bistro, customer := newTestMux(t)

	if rec := doJSON(t, mux, http.MethodPost, "/orders", placeOrderBody(customer.ID(), bistro.ID(), 2)); rec.Code != http.StatusCreated {
		t.Fatalf("place status = %d: %s", rec.Code, rec.Body.String())
	}

	rec := doJSON(t, mux, http.MethodPost, "/restaurants/"+strconv.FormatInt(bistro.ID(), 10)+"/prepare", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("prepare status = %d: %s", rec.Code, rec.Body.String())
	}
	var prepared struct {
		Prepared int `json:"prepared"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&prepared); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if prepared.Prepared != 2 {
		t.Fatalf("prepared = %d, want 2", prepared.Prepared)
	}

	rec = doJSON(t, mux, http.MethodGet, "/orders?ready=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready feed status = %d: %s", rec.Code, rec.Body.String())
	}
	var ready []struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&ready); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ready) != 1 || ready[0].Status != string(domain.StatusWaitingDeliverAcceptance) {
		t.Fatalf("ready feed = %+v, want one order waiting for deliver acceptance", ready)
	}
}

func TestHandleRegisterCustomer(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/customers", `{"first_name": "Alan", "last_name": "Turing", "tier": "staff"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var view struct {
		ID   int64  `json:"id"`
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID == 0 || view.Tier != "staff" {
		t.Fatalf("unexpected view %+v", view)
	}

	if rec := doJSON(t, mux, http.MethodPost, "/customers", `{"first_name": "Alan"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing last name status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
