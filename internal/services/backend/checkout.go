package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"venue-booking/internal/status"
	"venue-booking/models"
)

// PaymentCredentials is the payment-sheet handoff returned by
// prepare-order-payment, relayed verbatim to the payment provider's
// hosted UI.
type PaymentCredentials struct {
	PaymentIntentClientSecret string `json:"paymentIntentClientSecret"`
	EphemeralKey              string `json:"ephemeralKey"`
	Customer                  string `json:"customer"`
}

// CreateOrder opens a new order for the event/venue pair. The response
// body is the plain-text order id.
func (c *Client) CreateOrder(ctx context.Context, eventID, venueID string) (string, error) {
	code, body, err := c.callFunction(ctx, "create-order", map[string]string{
		"event": eventID,
		"venue": venueID,
	}, "")
	if err != nil {
		return "", fmt.Errorf("CreateOrder: %v", err)
	}
	if code != http.StatusOK {
		return "", fmt.Errorf("CreateOrder: status %d: %s", code, body)
	}

	orderID := strings.TrimSpace(string(body))
	if orderID == "" {
		return "", fmt.Errorf("CreateOrder: empty order id")
	}
	return orderID, nil
}

// UpdateOrder upserts a listing line on the order and returns the new
// cart snapshot. A 400 with body "Quantity too high" means the client's
// inventory snapshot diverged from the backend's.
func (c *Client) UpdateOrder(ctx context.Context, orderID, listingID string, quantity int) ([]models.CartItem, error) {
	code, body, err := c.callFunction(ctx, "update-order", map[string]any{
		"order":    orderID,
		"listing":  listingID,
		"quantity": quantity,
	}, "")
	if err != nil {
		return nil, fmt.Errorf("UpdateOrder: %v", err)
	}
	if code == http.StatusBadRequest && strings.TrimSpace(string(body)) == "Quantity too high" {
		return nil, status.ErrQuantityTooHigh
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("UpdateOrder: status %d: %s", code, body)
	}

	var cart []models.CartItem
	if err := json.Unmarshal(body, &cart); err != nil {
		return nil, fmt.Errorf("UpdateOrder: json.Unmarshal: %v", err)
	}
	return cart, nil
}

// CalculateOrderCost returns the backend's authoritative cost breakdown
// for the order.
func (c *Client) CalculateOrderCost(ctx context.Context, orderID string) (*models.Cost, error) {
	code, body, err := c.callFunction(ctx, "calculate-order-cost", map[string]string{
		"orderID": orderID,
	}, "")
	if err != nil {
		return nil, fmt.Errorf("CalculateOrderCost: %v", err)
	}
	if code == http.StatusBadRequest && strings.TrimSpace(string(body)) == "Purchase time limit expired" {
		return nil, status.ErrPurchaseWindowExpired
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("CalculateOrderCost: status %d: %s", code, body)
	}

	var cost models.Cost
	if err := json.Unmarshal(body, &cost); err != nil {
		return nil, fmt.Errorf("CalculateOrderCost: json.Unmarshal: %v", err)
	}
	return &cost, nil
}

// PreparePayment attaches the authenticated user to the order and
// returns the hosted payment-sheet credentials.
func (c *Client) PreparePayment(ctx context.Context, orderID, bearer string) (*PaymentCredentials, error) {
	code, body, err := c.callFunction(ctx, "prepare-order-payment", map[string]string{
		"orderID": orderID,
	}, bearer)
	if err != nil {
		return nil, fmt.Errorf("PreparePayment: %v", err)
	}
	if code != http.StatusOK {
		return nil, fmt.Errorf("PreparePayment: status %d: %s", code, body)
	}

	var creds PaymentCredentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("PreparePayment: json.Unmarshal: %v", err)
	}
	return &creds, nil
}

// DeclareStale marks the order abandoned. Callers treat this as
// best-effort cleanup; the backend's periodic stale-order release is the
// authoritative fallback.
func (c *Client) DeclareStale(ctx context.Context, orderID string) error {
	code, body, err := c.callFunction(ctx, "declare-stale", map[string]string{
		"orderID": orderID,
	}, "")
	if err != nil {
		return fmt.Errorf("DeclareStale: %v", err)
	}
	if code != http.StatusOK {
		return fmt.Errorf("DeclareStale: status %d: %s", code, body)
	}
	return nil
}

// RefundOrder refunds the order's subtotal and sales tax. A 400 with
// body "Refund period expired" is a distinct terminal error.
func (c *Client) RefundOrder(ctx context.Context, orderID, bearer string) error {
	code, body, err := c.callFunction(ctx, "refund-order", map[string]string{
		"orderID": orderID,
	}, bearer)
	if err != nil {
		return fmt.Errorf("RefundOrder: %v", err)
	}
	if code == http.StatusBadRequest && strings.TrimSpace(string(body)) == "Refund period expired" {
		return status.ErrRefundWindowExpired
	}
	if code != http.StatusOK {
		return fmt.Errorf("RefundOrder: status %d: %s", code, body)
	}
	return nil
}

// CreateSupportChat resolves (creating if needed) the hosted chat
// channel between the user and the venue.
func (c *Client) CreateSupportChat(ctx context.Context, bearer, venueID, eventID, orderID, userID string) (string, error) {
	code, body, err := c.callFunction(ctx, "create-support-chat", map[string]string{
		"venueID": venueID,
		"eventID": eventID,
		"orderID": orderID,
		"userID":  userID,
	}, bearer)
	if err != nil {
		return "", fmt.Errorf("CreateSupportChat: %v", err)
	}
	if code != http.StatusOK {
		return "", fmt.Errorf("CreateSupportChat: status %d: %s", code, body)
	}

	var reply struct {
		ChannelID string `json:"channelID"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("CreateSupportChat: json.Unmarshal: %v", err)
	}
	return reply.ChannelID, nil
}
