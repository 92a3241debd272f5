package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"venue-booking/services"
)

type BookingHandler struct {
	catalog  *services.CatalogService
	checkout *services.CheckoutService
	cost     *services.CostService
}

func NewBookingHandler(catalog *services.CatalogService, checkout *services.CheckoutService, cost *services.CostService) *BookingHandler {
	return &BookingHandler{
		catalog:  catalog,
		checkout: checkout,
		cost:     cost,
	}
}

// ListBookings returns the user's confirmed orders split into upcoming
// and past. refund_occurred tells the caller a refund landed since the
// last fetch; the flag is consumed by this read.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	ctx := c.Request().Context()

	bookings, err := h.catalog.Bookings(ctx)
	if err != nil {
		return respondError(c, err)
	}

	refundOccurred, err := h.catalog.ConsumeRefundFlag(ctx)
	if err != nil {
		refundOccurred = false
	}

	return c.JSON(http.StatusOK, map[string]any{
		"upcoming":        bookings.Upcoming,
		"past":            bookings.Past,
		"refund_occurred": refundOccurred,
	})
}

// GetBooking returns one booking with its cost breakdown.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	orderID := c.QueryParam("order_id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	order, err := h.catalog.Order(c.Request().Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"order": order,
		"cost":  h.cost.ComputeForOrder(order),
	})
}

// RefundBooking refunds a confirmed order.
func (h *BookingHandler) RefundBooking(c echo.Context) error {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := c.Bind(&req); err != nil || req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	if err := h.checkout.Refund(c.Request().Context(), req.OrderID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "refunded",
	})
}
