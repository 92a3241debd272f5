package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"venue-booking/internal/status"
)

// respondError maps service errors onto HTTP statuses with a stable
// machine-readable code.
func respondError(c echo.Context, err error) error {
	code, slug := http.StatusInternalServerError, "internal_error"

	switch {
	case errors.Is(err, status.ErrQuantityTooHigh):
		code, slug = http.StatusConflict, "quantity_too_high"
	case errors.Is(err, status.ErrPurchaseWindowExpired):
		code, slug = http.StatusGone, "purchase_window_expired"
	case errors.Is(err, status.ErrRefundWindowExpired):
		code, slug = http.StatusGone, "refund_window_expired"
	case errors.Is(err, status.ErrWrongCode):
		code, slug = http.StatusBadRequest, "wrong_code"
	case errors.Is(err, status.ErrCodeTooShort):
		code, slug = http.StatusBadRequest, "code_too_short"
	case errors.Is(err, status.ErrNotSignedIn):
		code, slug = http.StatusUnauthorized, "not_signed_in"
	case errors.Is(err, status.ErrNoOpenOrder):
		code, slug = http.StatusNotFound, "no_open_order"
	case errors.Is(err, status.ErrOrderStale):
		code, slug = http.StatusConflict, "order_stale"
	case errors.Is(err, status.ErrConfirmTimeout):
		code, slug = http.StatusGatewayTimeout, "confirmation_timeout"
	}

	return c.JSON(code, map[string]string{
		"error": slug,
	})
}
