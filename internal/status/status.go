package status

import "errors"

var (
	// Recognized 400 bodies from the checkout endpoints.
	ErrQuantityTooHigh       = errors.New("checkout: quantity too high")
	ErrPurchaseWindowExpired = errors.New("checkout: purchase time limit expired")
	ErrRefundWindowExpired   = errors.New("checkout: refund period expired")

	// Auth failures.
	ErrWrongCode    = errors.New("auth: wrong code")
	ErrCodeTooShort = errors.New("auth: code too short")
	ErrNotSignedIn  = errors.New("auth: not signed in")

	// Session failures.
	ErrNoOpenOrder = errors.New("session: no open order")
	ErrOrderStale  = errors.New("session: order is stale")

	// Confirmation polling gave up (only when a max wait is configured).
	ErrConfirmTimeout = errors.New("confirm: order finalization wait timed out")
)
