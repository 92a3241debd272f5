package models

// Order states as stored by the backend. The client only ever checks for
// OrderStateFinalized; every other value is treated as "still pending".
const (
	OrderStatePending    = 0
	OrderStateProcessing = 1
	OrderStateFinalized  = 2
)

// Order is a backend-tracked purchase-in-progress (or completed booking)
// holding one or more listing lines for a single event and venue.
type Order struct {
	ID            string         `json:"id"`
	Event         EventMinimal   `json:"event"`
	Venue         Venue          `json:"venue"`
	OrderListings []OrderListing `json:"order_listings"`
	State         int            `json:"state"`
	MaxToCheckIn  int            `json:"maxToCheckIn"`
	CurrCheckedIn int            `json:"currCheckedIn"`
	CheckedIn     bool           `json:"checkedIn"`
}

type OrderListing struct {
	ID       string  `json:"id"`
	Listing  Listing `json:"listing"`
	Quantity int     `json:"quantity"`
}

// CartItem is the client-visible projection of an order line. The cart is
// replaced wholesale with the server's snapshot after every successful
// mutation, never patched incrementally.
type CartItem struct {
	Listing  Listing `json:"listing"`
	Quantity int     `json:"quantity"`
}

func (o *Order) Finalized() bool {
	return o.State == OrderStateFinalized
}

// Lines converts the order's listing lines into cart items so that cost
// computation uses a single shape for live carts and stored bookings.
func (o *Order) Lines() []CartItem {
	lines := make([]CartItem, 0, len(o.OrderListings))
	for _, ol := range o.OrderListings {
		lines = append(lines, CartItem{Listing: ol.Listing, Quantity: ol.Quantity})
	}
	return lines
}
