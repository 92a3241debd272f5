package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"venue-booking/internal/status"
	"venue-booking/services"
)

type PurchaseHandler struct {
	checkout *services.CheckoutService
	confirm  *services.ConfirmService
	catalog  *services.CatalogService
	session  *services.SessionService
}

func NewPurchaseHandler(checkout *services.CheckoutService, confirm *services.ConfirmService, catalog *services.CatalogService, session *services.SessionService) *PurchaseHandler {
	return &PurchaseHandler{
		checkout: checkout,
		confirm:  confirm,
		catalog:  catalog,
		session:  session,
	}
}

// AddToCart puts a listing into the cart, opening an order when needed.
// On an inventory rejection the response carries the event's refreshed
// listings so the caller can resynchronize its quantity pickers.
func (h *PurchaseHandler) AddToCart(c echo.Context) error {
	var req struct {
		EventID   string `json:"event_id"`
		ListingID string `json:"listing_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}
	if req.EventID == "" || req.ListingID == "" || req.Quantity <= 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	ctx := c.Request().Context()

	event, err := h.catalog.Event(ctx, req.EventID)
	if err != nil {
		return respondError(c, err)
	}

	cart, err := h.checkout.AddToCart(ctx, event, req.ListingID, req.Quantity)
	if errors.Is(err, status.ErrQuantityTooHigh) {
		listings, refreshErr := h.catalog.Listings(ctx, req.EventID)
		if refreshErr != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusConflict, map[string]any{
			"error":    "quantity_too_high",
			"listings": listings,
		})
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"order_id": h.session.OrderID(),
		"items":    cart,
	})
}

// GetCart returns the open order, its cart snapshot and a locally
// computed cost preview.
func (h *PurchaseHandler) GetCart(c echo.Context) error {
	orderID := h.session.OrderID()
	if orderID == "" {
		return respondError(c, status.ErrNoOpenOrder)
	}
	if h.session.IsStale() {
		// The backend is about to release this order anyway. Declare it
		// stale and drop the session so the 409 leaves the caller on a
		// clean slate.
		if err := h.checkout.AbandonOrder(); err != nil && !errors.Is(err, status.ErrNoOpenOrder) {
			return respondError(c, err)
		}
		return respondError(c, status.ErrOrderStale)
	}

	preview, err := h.checkout.PreviewCost()
	if err != nil {
		return respondError(c, err)
	}

	staleAt, err := h.session.StaleAt()
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"order_id": orderID,
		"event_id": h.session.EventID(),
		"items":    h.session.Cart(),
		"preview":  preview,
		"stale_at": staleAt,
	})
}

// EmptyCart removes every line, keeping the order open.
func (h *PurchaseHandler) EmptyCart(c echo.Context) error {
	if err := h.checkout.EmptyCart(c.Request().Context()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"order_id": h.session.OrderID(),
		"items":    []any{},
	})
}

// AbandonCart drops the open order entirely.
func (h *PurchaseHandler) AbandonCart(c echo.Context) error {
	if err := h.checkout.AbandonOrder(); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetCost returns the backend's authoritative cost breakdown.
func (h *PurchaseHandler) GetCost(c echo.Context) error {
	cost, err := h.checkout.Cost(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cost)
}

// PreparePayment returns the hosted payment-sheet credentials for the
// open order.
func (h *PurchaseHandler) PreparePayment(c echo.Context) error {
	creds, err := h.checkout.PreparePayment(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, creds)
}

// ConfirmOrder blocks until the paid order finalizes, then clears the
// session. The request context bounds the wait, on top of any
// configured max wait.
func (h *PurchaseHandler) ConfirmOrder(c echo.Context) error {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := c.Bind(&req); err != nil || req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	if err := h.confirm.WaitForFinalized(c.Request().Context(), req.OrderID); err != nil {
		return respondError(c, err)
	}
	h.checkout.OrderFinalized(req.OrderID)

	return c.JSON(http.StatusOK, map[string]string{
		"order_id": req.OrderID,
		"status":   "finalized",
	})
}
