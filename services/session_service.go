package services

import (
	"sync"
	"time"

	"venue-booking/internal/status"
	"venue-booking/models"
)

// SessionService tracks the single open order a user builds a cart
// against. All state is local; the backend's order row is the source of
// truth for the cart contents, which is why ReplaceCart swaps the whole
// snapshot instead of patching lines.
type SessionService struct {
	staleAfter time.Duration

	// now is swappable for tests.
	now func() time.Time

	mu        sync.RWMutex
	orderID   string
	eventID   string
	venue     models.Venue
	cart      []models.CartItem
	startedAt time.Time
}

func NewSessionService(staleAfter time.Duration) *SessionService {
	return &SessionService{
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Begin starts tracking a freshly created order. Any previous session
// state is discarded.
func (s *SessionService) Begin(orderID, eventID string, venue models.Venue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orderID = orderID
	s.eventID = eventID
	s.venue = venue
	s.cart = nil
	s.startedAt = s.now()
}

// Clear drops the tracked order.
func (s *SessionService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orderID = ""
	s.eventID = ""
	s.venue = models.Venue{}
	s.cart = nil
	s.startedAt = time.Time{}
}

// OrderID returns the open order id, or "" when no order is open.
func (s *SessionService) OrderID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderID
}

// EventID returns the event the open order belongs to.
func (s *SessionService) EventID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventID
}

// Venue returns the venue the open order belongs to.
func (s *SessionService) Venue() models.Venue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.venue
}

// Cart returns a copy of the current cart snapshot.
func (s *SessionService) Cart() []models.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart := make([]models.CartItem, len(s.cart))
	copy(cart, s.cart)
	return cart
}

// ReplaceCart swaps in the server's cart snapshot wholesale.
func (s *SessionService) ReplaceCart(cart []models.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart
}

// IsStale reports whether the open order has outlived the client-side
// staleness window. The check is strict: an order aged exactly the
// window is still fresh. No open order is never stale.
func (s *SessionService) IsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.orderID == "" {
		return false
	}
	return s.now().Sub(s.startedAt) > s.staleAfter
}

// StaleAt returns the instant the open order turns stale.
func (s *SessionService) StaleAt() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.orderID == "" {
		return time.Time{}, status.ErrNoOpenOrder
	}
	return s.startedAt.Add(s.staleAfter), nil
}
