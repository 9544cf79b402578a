package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidMenu = errors.New("invalid menu")

// Menu is one line of a restaurant's menu. GlobalPrice is the fallback
// price; a tier-specific price applies only when it is strictly positive.
type Menu struct {
	name        string
	globalPrice float64
	afterWork   bool
	tierPrices  map[Tier]float64
}

func NewMenu(name string, price float64, afterWork bool) (*Menu, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidMenu)
	}
	if price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidMenu)
	}
	return &Menu{
		name:        name,
		globalPrice: price,
		afterWork:   afterWork,
		tierPrices:  make(map[Tier]float64),
	}, nil
}

func (m *Menu) Name() string { return m.name }

func (m *Menu) GlobalPrice() float64 { return m.globalPrice }

func (m *Menu) AfterWork() bool { return m.afterWork }

func (m *Menu) SetAfterWork(afterWork bool) { m.afterWork = afterWork }

func (m *Menu) SetGlobalPrice(price float64) error {
	if price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidMenu)
	}
	m.globalPrice = price
	return nil
}

// SetTierPrice sets the price charged to the given customer tier. A zero
// price clears the override and falls back to the global price.
func (m *Menu) SetTierPrice(tier Tier, price float64) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidMenu, tier)
	}
	if price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidMenu)
	}
	m.tierPrices[tier] = price
	return nil
}

// Price resolves the price for a customer tier, falling back to the global
// price when no positive tier price is set.
func (m *Menu) Price(tier Tier) float64 {
	if p, ok := m.tierPrices[tier]; ok && p > 0 {
		return p
	}
	return m.globalPrice
}

func (m *Menu) Rename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidMenu)
	}
	m.name = name
	return nil
}
