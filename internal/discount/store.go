package discount

import (
	"sync"
	"time"
)

// Store holds active cumulative-order discount records: one expiry per
// (customer, restaurant) pair. It is safe for concurrent evaluation of
// different customers against the same restaurant.
type Store struct {
	mu      sync.Mutex
	records map[int64]map[int64]time.Time
}

func NewStore() *Store {
	return &Store{records: make(map[int64]map[int64]time.Time)}
}

func (s *Store) lookup(customerID, restaurantID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRestaurant, ok := s.records[customerID]
	if !ok {
		return time.Time{}, false
	}
	expiry, ok := byRestaurant[restaurantID]
	return expiry, ok
}

func (s *Store) put(customerID, restaurantID int64, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRestaurant, ok := s.records[customerID]
	if !ok {
		byRestaurant = make(map[int64]time.Time)
		s.records[customerID] = byRestaurant
	}
	byRestaurant[restaurantID] = expiry
}

func (s *Store) remove(customerID, restaurantID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byRestaurant, ok := s.records[customerID]; ok {
		delete(byRestaurant, restaurantID)
	}
}

// Expire force-expires a record. Used by tests and admin tooling.
func (s *Store) Expire(customerID, restaurantID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byRestaurant, ok := s.records[customerID]; ok {
		if _, exists := byRestaurant[restaurantID]; exists {
			byRestaurant[restaurantID] = at
		}
	}
}
