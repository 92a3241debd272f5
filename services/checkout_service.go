package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"venue-booking/internal/status"
	"venue-booking/models"
	"venue-booking/monitoring"

	"venue-booking/internal/services/backend"
)

// removeAllQuantity is sent as the quantity delta when a cart line is
// dropped. The backend clamps the result at zero, so any value at least
// as negative as the largest allowed quantity empties the line.
const removeAllQuantity = -9999

// CheckoutBackend is the slice of the backend client the checkout flow
// needs. Narrowed to an interface so tests can stub the backend.
type CheckoutBackend interface {
	CreateOrder(ctx context.Context, eventID, venueID string) (string, error)
	UpdateOrder(ctx context.Context, orderID, listingID string, quantity int) ([]models.CartItem, error)
	CalculateOrderCost(ctx context.Context, orderID string) (*models.Cost, error)
	PreparePayment(ctx context.Context, orderID, bearer string) (*backend.PaymentCredentials, error)
	DeclareStale(ctx context.Context, orderID string) error
	RefundOrder(ctx context.Context, orderID, bearer string) error
}

// BearerSource yields a fresh access token for authenticated calls.
type BearerSource interface {
	Bearer(ctx context.Context) (string, error)
}

// RefundFlagger is notified when a refund lands so booking views know
// to refetch.
type RefundFlagger interface {
	MarkRefundOccurred(ctx context.Context) error
}

// CheckoutService drives the cart and order lifecycle. Cart mutations
// are serialized under a mutex so two rapid taps cannot interleave a
// create-order with an update against the order being replaced.
type CheckoutService struct {
	backend CheckoutBackend
	session *SessionService
	cost    *CostService
	auth    BearerSource
	refunds RefundFlagger

	// staleTimeout bounds the fire-and-forget declare-stale call.
	staleTimeout time.Duration

	mu sync.Mutex
}

func NewCheckoutService(b CheckoutBackend, session *SessionService, cost *CostService, auth BearerSource, refunds RefundFlagger) *CheckoutService {
	return &CheckoutService{
		backend:      b,
		session:      session,
		cost:         cost,
		auth:         auth,
		refunds:      refunds,
		staleTimeout: 10 * time.Second,
	}
}

// AddToCart puts quantity of a listing into the cart, opening a new
// order first when there is no usable one: no order at all, an order
// for a different event, or an order past the staleness window. The
// replaced order is declared stale in the background; the backend's
// periodic release is the fallback if that call is lost.
//
// On success the session's cart is replaced with the server snapshot.
// status.ErrQuantityTooHigh means the listing's inventory moved under
// us; the cart is left untouched and callers should refresh listings.
func (cs *CheckoutService) AddToCart(ctx context.Context, event *models.Event, listingID string, quantity int) ([]models.CartItem, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.session.OrderID() == "" || cs.session.EventID() != event.ID || cs.session.IsStale() {
		if old := cs.session.OrderID(); old != "" {
			cs.declareStaleAsync(old)
			monitoring.TrackOpenSession(-1)
		}
		cs.session.Clear()

		orderID, err := cs.backend.CreateOrder(ctx, event.ID, event.Venue.ID)
		if err != nil {
			monitoring.TrackCheckoutOperation("create_order", "error")
			return nil, err
		}
		monitoring.TrackCheckoutOperation("create_order", "ok")
		monitoring.TrackOpenSession(1)
		cs.session.Begin(orderID, event.ID, event.Venue)
	}

	cart, err := cs.backend.UpdateOrder(ctx, cs.session.OrderID(), listingID, quantity)
	if err != nil {
		monitoring.TrackCheckoutOperation("add_to_cart", "error")
		return nil, err
	}
	monitoring.TrackCheckoutOperation("add_to_cart", "ok")

	cs.session.ReplaceCart(cart)
	return cart, nil
}

// EmptyCart removes every line from the open order, one update per
// line, keeping the order itself open. Used when the user backs out of
// the cart but may come back to the same event.
func (cs *CheckoutService) EmptyCart(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	orderID := cs.session.OrderID()
	if orderID == "" {
		return status.ErrNoOpenOrder
	}

	for _, line := range cs.session.Cart() {
		cart, err := cs.backend.UpdateOrder(ctx, orderID, line.Listing.ID, removeAllQuantity)
		if err != nil {
			monitoring.TrackCheckoutOperation("empty_cart", "error")
			return err
		}
		cs.session.ReplaceCart(cart)
	}

	monitoring.TrackCheckoutOperation("empty_cart", "ok")
	return nil
}

// Cost returns the backend's authoritative breakdown for the open
// order. status.ErrPurchaseWindowExpired is terminal: the order can no
// longer be paid for.
func (cs *CheckoutService) Cost(ctx context.Context) (*models.Cost, error) {
	orderID := cs.session.OrderID()
	if orderID == "" {
		return nil, status.ErrNoOpenOrder
	}
	return cs.backend.CalculateOrderCost(ctx, orderID)
}

// PreviewCost computes the breakdown locally from the session's cart
// snapshot, for display before the backend is consulted.
func (cs *CheckoutService) PreviewCost() (*models.Cost, error) {
	if cs.session.OrderID() == "" {
		return nil, status.ErrNoOpenOrder
	}
	venue := cs.session.Venue()
	cost := cs.cost.Compute(cs.session.Cart(), &venue)
	return &cost, nil
}

// PreparePayment attaches the signed-in user to the open order and
// returns the hosted payment-sheet credentials. The session token is
// refreshed first so the bearer cannot expire mid-checkout.
func (cs *CheckoutService) PreparePayment(ctx context.Context) (*backend.PaymentCredentials, error) {
	orderID := cs.session.OrderID()
	if orderID == "" {
		return nil, status.ErrNoOpenOrder
	}

	bearer, err := cs.auth.Bearer(ctx)
	if err != nil {
		return nil, err
	}

	creds, err := cs.backend.PreparePayment(ctx, orderID, bearer)
	if err != nil {
		monitoring.TrackCheckoutOperation("prepare_payment", "error")
		return nil, err
	}
	monitoring.TrackCheckoutOperation("prepare_payment", "ok")
	return creds, nil
}

// Refund refunds a finalized order. On success the refund flag is
// raised so booking views refetch. The two recognized failures are
// status.ErrRefundWindowExpired and generic backend errors.
func (cs *CheckoutService) Refund(ctx context.Context, orderID string) error {
	bearer, err := cs.auth.Bearer(ctx)
	if err != nil {
		return err
	}

	if err := cs.backend.RefundOrder(ctx, orderID, bearer); err != nil {
		monitoring.TrackCheckoutOperation("refund", "error")
		return err
	}
	monitoring.TrackCheckoutOperation("refund", "ok")

	if err := cs.refunds.MarkRefundOccurred(ctx); err != nil {
		slog.Warn("refund flag not recorded", "order_id", orderID, "error", err)
	}
	return nil
}

// AbandonOrder drops the open order: best-effort declare-stale in the
// background, session cleared immediately.
func (cs *CheckoutService) AbandonOrder() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	orderID := cs.session.OrderID()
	if orderID == "" {
		return status.ErrNoOpenOrder
	}

	cs.declareStaleAsync(orderID)
	cs.session.Clear()
	monitoring.TrackOpenSession(-1)
	return nil
}

// OrderFinalized clears the session once the confirmation poller sees
// the order reach its final state. A late confirmation of some earlier
// order must not wipe a cart opened since, so only the session's own
// order id is honored.
func (cs *CheckoutService) OrderFinalized(orderID string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if orderID == "" || cs.session.OrderID() != orderID {
		return
	}
	cs.session.Clear()
	monitoring.TrackOpenSession(-1)
}

// declareStaleAsync fires declare-stale without waiting for the result.
// The call carries its own timeout so it cannot outlive the caller's
// request by much; failures are only logged.
func (cs *CheckoutService) declareStaleAsync(orderID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cs.staleTimeout)
		defer cancel()

		if err := cs.backend.DeclareStale(ctx, orderID); err != nil {
			slog.Warn("declare-stale failed, backend release will reclaim", "order_id", orderID, "error", err)
			monitoring.TrackCheckoutOperation("declare_stale", "error")
			return
		}
		monitoring.TrackCheckoutOperation("declare_stale", "ok")
	}()
}
