package discount

import (
	"errors"
	"testing"
	"time"

	"github.com/campuseats/ordering/internal/account"
	"github.com/campuseats/ordering/internal/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeOrder struct {
	customer *account.Customer
	items    []*domain.OrderItem
	status   domain.OrderStatus
	date     time.Time
	id       int64
}

func (f *fakeOrder) ID() int64 { return f.id }

func (f *fakeOrder) Customer() *account.Customer { return f.customer }

func (f *fakeOrder) Items() []*domain.OrderItem { return f.items }

func (f *fakeOrder) Status() domain.OrderStatus { return f.status }

func (f *fakeOrder) DeliveryDate() time.Time { return f.date }

func (f *fakeOrder) NonReducedTotalPrice() float64 {
	var total float64
	for _, item := range f.items {
		total += item.Price(f.customer.Tier())
	}
	return total
}

func newTestCustomer(t *testing.T) *account.Customer {
	t.Helper()
	c, err := account.NewCustomer(1, "Ada", "Lovelace", domain.TierStudent)
	if err != nil {
		t.Fatalf("NewCustomer: %v", err)
	}
	return c
}

func itemsAt(t *testing.T, restaurantID int64, prices ...float64) []*domain.OrderItem {
	t.Helper()
	items := make([]*domain.OrderItem, len(prices))
	for i, price := range prices {
		menu, err := domain.NewMenu("menu", price, false)
		if err != nil {
			t.Fatalf("NewMenu: %v", err)
		}
		item, err := domain.NewOrderItem(menu, restaurantID)
		if err != nil {
			t.Fatalf("NewOrderItem: %v", err)
		}
		items[i] = item
	}
	return items
}

// seedHistory records n finished orders at the restaurant, delivered
// daysAgo days before the test clock.
func seedHistory(t *testing.T, customer *account.Customer, restaurantID int64, n, daysAgo int) {
	t.Helper()
	for i := 0; i < n; i++ {
		o := &fakeOrder{
			id:       int64(i + 1),
			customer: customer,
			items:    itemsAt(t, restaurantID, 5),
			status:   domain.StatusFinished,
			date:     testNow.AddDate(0, 0, -daysAgo),
		}
		if err := customer.AddOrder(o); err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
	}
}

func TestCumulativeDiscountThreshold(t *testing.T) {
	t.Run("nine completed orders do not qualify", func(t *testing.T) {
		s := NewService(nil).WithClock(func() time.Time { return testNow })
		customer := newTestCustomer(t)
		seedHistory(t, customer, 1, QualifyingOrders-1, 2)
		if s.UnderCumulativeDiscount(customer, 1) {
			t.Fatal("discount granted below the qualifying order count")
		}
	})

	t.Run("ten completed orders qualify", func(t *testing.T) {
		s := NewService(nil).WithClock(func() time.Time { return testNow })
		customer := newTestCustomer(t)
		seedHistory(t, customer, 1, QualifyingOrders, 2)
		if !s.UnderCumulativeDiscount(customer, 1) {
			t.Fatal("discount not granted at the qualifying order count")
		}
	})

	t.Run("orders outside the window do not count", func(t *testing.T) {
		s := NewService(nil).WithClock(func() time.Time { return testNow })
		customer := newTestCustomer(t)
		seedHistory(t, customer, 1, QualifyingOrders, WindowDays+1)
		if s.UnderCumulativeDiscount(customer, 1) {
			t.Fatal("discount granted from orders outside the lookback window")
		}
	})

	t.Run("other restaurants do not count", func(t *testing.T) {
		s := NewService(nil).WithClock(func() time.Time { return testNow })
		customer := newTestCustomer(t)
		seedHistory(t, customer, 2, QualifyingOrders, 2)
		if s.UnderCumulativeDiscount(customer, 1) {
			t.Fatal("discount granted from another restaurant's history")
		}
	})
}

func TestCumulativeDiscountExpiry(t *testing.T) {
	store := NewStore()
	s := NewService(store).WithClock(func() time.Time { return testNow })
	customer := newTestCustomer(t)
	seedHistory(t, customer, 1, QualifyingOrders, 2)

	if !s.UnderCumulativeDiscount(customer, 1) {
		t.Fatal("discount not granted")
	}

	// expire the record and drain the qualifying history out of the window
	store.Expire(customer.ID(), 1, testNow.Add(-time.Minute))
	later := testNow.AddDate(0, 0, WindowDays+1)
	s.WithClock(func() time.Time { return later })
	if s.UnderCumulativeDiscount(customer, 1) {
		t.Fatal("expired discount still applied")
	}
}

func TestPriceAfterDiscount(t *testing.T) {
	s := NewService(nil).WithClock(func() time.Time { return testNow })
	customer := newTestCustomer(t)
	seedHistory(t, customer, 1, QualifyingOrders, 2)

	order := &fakeOrder{
		customer: customer,
		items:    append(itemsAt(t, 1, 10), itemsAt(t, 2, 10)...),
	}

	// restaurant 1 is discounted, restaurant 2 is not
	want := 10*CumulativeFactor + 10
	if got := s.PriceAfterDiscount(order); got != want {
		t.Fatalf("PriceAfterDiscount() = %v, want %v", got, want)
	}
}

func TestComputeCustomerCredit(t *testing.T) {
	s := NewService(nil).WithClock(func() time.Time { return testNow })
	customer := newTestCustomer(t)

	small := &fakeOrder{customer: customer, items: itemsAt(t, 1, 5, 5)}
	granted, err := s.ComputeCustomerCredit([]PricedOrder{small}, 3, 0.1)
	if err != nil {
		t.Fatalf("ComputeCustomerCredit: %v", err)
	}
	if granted || customer.Credit() != 0 {
		t.Fatalf("credit granted below the item threshold, balance %v", customer.Credit())
	}

	big := &fakeOrder{customer: customer, items: itemsAt(t, 1, 5, 5, 5)}
	granted, err = s.ComputeCustomerCredit([]PricedOrder{big}, 3, 0.1)
	if err != nil {
		t.Fatalf("ComputeCustomerCredit: %v", err)
	}
	if !granted {
		t.Fatal("credit not granted at the item threshold")
	}
	if got := customer.Credit(); got != 1.5 {
		t.Fatalf("Credit() = %v, want 1.5", got)
	}

	if _, err := s.ComputeCustomerCredit([]PricedOrder{big}, 3, 1.5); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("rate above 1: err = %v, want ErrInvalidRate", err)
	}
	if _, err := s.ComputeCustomerCredit([]PricedOrder{big}, -1, 0.1); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("negative threshold: err = %v, want ErrInvalidRate", err)
	}
}
