package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-booking/internal/services/backend"
	"venue-booking/internal/status"
	"venue-booking/models"
	"venue-booking/services"
)

// stubBackend satisfies the checkout, catalog and state-fetch
// interfaces with canned replies.
type stubBackend struct {
	cart      []models.CartItem
	updateErr error
	event     *models.Event
	listings  []models.Listing
	state     int

	// staleDeclared receives the ids of orders declared stale, so
	// tests can wait on the fire-and-forget call.
	staleDeclared chan string
}

func (s *stubBackend) CreateOrder(ctx context.Context, eventID, venueID string) (string, error) {
	return "order-1", nil
}

func (s *stubBackend) UpdateOrder(ctx context.Context, orderID, listingID string, quantity int) ([]models.CartItem, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.cart, nil
}

func (s *stubBackend) CalculateOrderCost(ctx context.Context, orderID string) (*models.Cost, error) {
	return &models.Cost{Total: 5670}, nil
}

func (s *stubBackend) PreparePayment(ctx context.Context, orderID, bearer string) (*backend.PaymentCredentials, error) {
	return &backend.PaymentCredentials{PaymentIntentClientSecret: "pi_secret"}, nil
}

func (s *stubBackend) DeclareStale(ctx context.Context, orderID string) error {
	if s.staleDeclared != nil {
		s.staleDeclared <- orderID
	}
	return nil
}

func (s *stubBackend) RefundOrder(ctx context.Context, orderID, bearer string) error { return nil }

func (s *stubBackend) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	return s.event, nil
}

func (s *stubBackend) ListLocations(ctx context.Context) ([]models.Location, error) { return nil, nil }

func (s *stubBackend) ListVenues(ctx context.Context, locationID string) ([]models.Venue, error) {
	return nil, nil
}

func (s *stubBackend) ListEvents(ctx context.Context, venueIDs []string) ([]models.Event, error) {
	return nil, nil
}

func (s *stubBackend) ListListings(ctx context.Context, eventID string) ([]models.Listing, error) {
	return s.listings, nil
}

func (s *stubBackend) ListCustomListings(ctx context.Context, bearer, eventID string) ([]models.Listing, error) {
	return nil, nil
}

func (s *stubBackend) ListFinalizedOrders(ctx context.Context, bearer string) ([]models.Order, error) {
	return nil, nil
}

func (s *stubBackend) GetOrder(ctx context.Context, bearer, orderID string) (*models.Order, error) {
	return nil, nil
}

func (s *stubBackend) SearchVenues(ctx context.Context, term string) ([]models.Venue, error) {
	return nil, nil
}

func (s *stubBackend) SearchEvents(ctx context.Context, term string) ([]models.Event, error) {
	return nil, nil
}

func (s *stubBackend) GetOrderState(ctx context.Context, orderID string) (int, error) {
	return s.state, nil
}

type stubAuth struct{}

func (stubAuth) Bearer(ctx context.Context) (string, error) { return "token-1", nil }

func newPurchaseFixture(b *stubBackend) (*PurchaseHandler, *services.SessionService) {
	return newPurchaseFixtureWindow(b, 20*time.Hour)
}

func newPurchaseFixtureWindow(b *stubBackend, staleAfter time.Duration) (*PurchaseHandler, *services.SessionService) {
	db, _ := redismock.NewClientMock()
	session := services.NewSessionService(staleAfter)
	catalog := services.NewCatalogService(b, stubAuth{}, db, 30*time.Second)
	checkout := services.NewCheckoutService(b, session, services.NewCostService(), stubAuth{}, catalog)
	confirm := services.NewConfirmService(b, services.ConfirmConfig{
		InitialDelay:  time.Millisecond,
		BackoffFactor: 1.5,
		MaxDelay:      2 * time.Millisecond,
	})
	return NewPurchaseHandler(checkout, confirm, catalog, session), session
}

func doJSON(t *testing.T, handler echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func TestPurchaseHandler_AddToCart(t *testing.T) {
	b := &stubBackend{
		event: &models.Event{ID: "event-1", Venue: models.Venue{ID: "venue-1", SalesTax: 0.08}},
		cart:  []models.CartItem{{Listing: models.Listing{ID: "listing-1", Price: 2500}, Quantity: 2}},
	}
	h, session := newPurchaseFixture(b)

	rec := doJSON(t, h.AddToCart, http.MethodPost, "/cart/items",
		`{"event_id":"event-1","listing_id":"listing-1","quantity":2}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"order_id":"order-1"`)
	assert.Equal(t, "order-1", session.OrderID())
}

func TestPurchaseHandler_AddToCart_QuantityTooHighReturnsListings(t *testing.T) {
	b := &stubBackend{
		event:     &models.Event{ID: "event-1", Venue: models.Venue{ID: "venue-1"}},
		updateErr: status.ErrQuantityTooHigh,
		listings:  []models.Listing{{ID: "listing-1", CurrInventory: 1}},
	}
	h, _ := newPurchaseFixture(b)

	rec := doJSON(t, h.AddToCart, http.MethodPost, "/cart/items",
		`{"event_id":"event-1","listing_id":"listing-1","quantity":9}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"quantity_too_high"`)
	assert.Contains(t, rec.Body.String(), `"listings"`)
}

func TestPurchaseHandler_AddToCart_InvalidQuantity(t *testing.T) {
	h, _ := newPurchaseFixture(&stubBackend{})

	rec := doJSON(t, h.AddToCart, http.MethodPost, "/cart/items",
		`{"event_id":"event-1","listing_id":"listing-1","quantity":0}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchaseHandler_GetCart_NoOpenOrder(t *testing.T) {
	h, _ := newPurchaseFixture(&stubBackend{})

	rec := doJSON(t, h.GetCart, http.MethodGet, "/cart", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_open_order")
}

func TestPurchaseHandler_GetCart_WithPreview(t *testing.T) {
	h, session := newPurchaseFixture(&stubBackend{})
	session.Begin("order-1", "event-1", models.Venue{SalesTax: 0.08})
	session.ReplaceCart([]models.CartItem{
		{Listing: models.Listing{ID: "listing-1", Price: 2500}, Quantity: 2},
	})

	rec := doJSON(t, h.GetCart, http.MethodGet, "/cart", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":5670`)
}

func TestPurchaseHandler_GetCart_StaleOrderReleased(t *testing.T) {
	b := &stubBackend{staleDeclared: make(chan string, 1)}
	h, session := newPurchaseFixtureWindow(b, time.Nanosecond)
	session.Begin("order-old", "event-1", models.Venue{})
	time.Sleep(time.Millisecond)

	rec := doJSON(t, h.GetCart, http.MethodGet, "/cart", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "order_stale")
	assert.Empty(t, session.OrderID(), "stale order must be dropped from the session")

	select {
	case old := <-b.staleDeclared:
		assert.Equal(t, "order-old", old)
	case <-time.After(time.Second):
		t.Fatal("expected the stale order to be declared stale")
	}
}

func TestPurchaseHandler_ConfirmOrder(t *testing.T) {
	b := &stubBackend{state: models.OrderStateFinalized}
	h, session := newPurchaseFixture(b)
	session.Begin("order-1", "event-1", models.Venue{})

	rec := doJSON(t, h.ConfirmOrder, http.MethodPost, "/checkout/confirm",
		`{"order_id":"order-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"finalized"`)
	assert.Empty(t, session.OrderID(), "session cleared after finalization")
}

func TestPurchaseHandler_ConfirmOrder_OtherOrderKeepsSession(t *testing.T) {
	b := &stubBackend{state: models.OrderStateFinalized}
	h, session := newPurchaseFixture(b)
	session.Begin("order-2", "event-2", models.Venue{})

	rec := doJSON(t, h.ConfirmOrder, http.MethodPost, "/checkout/confirm",
		`{"order_id":"order-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "order-2", session.OrderID(), "a late confirmation must not wipe the newer cart")
}

func TestPurchaseHandler_GetCost(t *testing.T) {
	h, session := newPurchaseFixture(&stubBackend{})
	session.Begin("order-1", "event-1", models.Venue{})

	rec := doJSON(t, h.GetCost, http.MethodGet, "/cart/cost", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":5670`)
}

func TestPurchaseHandler_AbandonCart(t *testing.T) {
	h, session := newPurchaseFixture(&stubBackend{})
	session.Begin("order-1", "event-1", models.Venue{})

	rec := doJSON(t, h.AbandonCart, http.MethodDelete, "/cart", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, session.OrderID())
}
