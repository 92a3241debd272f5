package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-booking/internal/status"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&ClientConfig{
		FunctionsBaseURL: srv.URL + "/functions",
		DataBaseURL:      srv.URL + "/rest",
		AuthBaseURL:      srv.URL + "/auth",
		APIKey:           "anon-key",
		CheckoutTimeout:  2 * time.Second,
		DataTimeout:      2 * time.Second,
	})
}

func TestClient_CreateOrder_PlainTextBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/functions/create-order", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte("order-123\n"))
	})

	orderID, err := c.CreateOrder(context.Background(), "event-1", "venue-1")
	require.NoError(t, err)
	assert.Equal(t, "order-123", orderID)
}

func TestClient_CreateOrder_EmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.CreateOrder(context.Background(), "event-1", "venue-1")
	assert.Error(t, err)
}

func TestClient_UpdateOrder_QuantityTooHigh(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Quantity too high"))
	})

	_, err := c.UpdateOrder(context.Background(), "order-1", "listing-1", 4)
	assert.ErrorIs(t, err, status.ErrQuantityTooHigh)
}

func TestClient_UpdateOrder_ReturnsCartSnapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"listing":{"id":"listing-1","price":2500},"quantity":2}]`))
	})

	cart, err := c.UpdateOrder(context.Background(), "order-1", "listing-1", 2)
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, "listing-1", cart[0].Listing.ID)
	assert.Equal(t, 2, cart[0].Quantity)
}

func TestClient_CalculateOrderCost_WindowExpired(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Purchase time limit expired"))
	})

	_, err := c.CalculateOrderCost(context.Background(), "order-1")
	assert.ErrorIs(t, err, status.ErrPurchaseWindowExpired)
}

func TestClient_RefundOrder_WindowExpired(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Refund period expired"))
	})

	err := c.RefundOrder(context.Background(), "order-1", "token-1")
	assert.ErrorIs(t, err, status.ErrRefundWindowExpired)
}

func TestClient_CreateSession_WrongCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Wrong code"))
	})

	_, err := c.CreateSession(context.Background(), "+15550001111", "12345")
	assert.ErrorIs(t, err, status.ErrWrongCode)
}

func TestClient_CreateSession_Grant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"password":"pw","needsPopulation":true}`))
	})

	grant, err := c.CreateSession(context.Background(), "+15550001111", "12345")
	require.NoError(t, err)
	assert.Equal(t, "pw", grant.Password)
	assert.True(t, grant.NeedsPopulation)
}

func TestClient_SignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600}`))
	})

	tokens, err := c.SignInWithPassword(context.Background(), "+15550001111@dummy.null", "pw")
	require.NoError(t, err)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, "rt", tokens.RefreshToken)
}

func TestClient_GetOrderState(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/orders", r.URL.Path)
		assert.Equal(t, "eq.order-1", r.URL.Query().Get("id"))
		assert.Equal(t, "state", r.URL.Query().Get("select"))
		w.Write([]byte(`[{"state":2}]`))
	})

	state, err := c.GetOrderState(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state)
}

func TestClient_GetOrderState_NoRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.GetOrderState(context.Background(), "order-1")
	assert.Error(t, err)
}

func TestClient_GetProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":"user-1","firstName":"Ada","streamChatToken":"chat-token"}]`))
	})

	profile, err := c.GetProfile(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.ID)
	assert.Equal(t, "chat-token", profile.ChatToken)
}

func TestClient_CreateSupportChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"channelID":"support-venue-1-user-1"}`))
	})

	channelID, err := c.CreateSupportChat(context.Background(), "token-1", "venue-1", "event-1", "order-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "support-venue-1-user-1", channelID)
}
