package models

import (
	"time"
)

// Listing types as stored by the backend.
const (
	ListingTypeTable  = 0
	ListingTypeTicket = 1
)

// Listing is a purchasable inventory item tied to an event. Inventory and
// time-limit fields are authoritative only on the backend; a held Listing
// is a snapshot and must be refreshed after any mutation that could
// change them.
type Listing struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	MaxInventory      int       `json:"maxInventory"`
	CurrInventory     int       `json:"currInventory"`
	Price             int64     `json:"price"` // integer cents
	Description       string    `json:"description"`
	MinPerOrder       int       `json:"minPerOrder"`
	MaxPerOrder       int       `json:"maxPerOrder"` // 0 means no limit
	PurchasePolicy    string    `json:"purchasePolicy"`
	Event             string    `json:"event"`
	CollectInPerson   bool      `json:"collectInPerson"`
	HeldInventory     int       `json:"heldInventory"`
	SoldInventory     int       `json:"soldInventory"`
	Type              int       `json:"type"` // table=0, ticket=1
	Custom            bool      `json:"custom"`
	CustomForUser     string    `json:"customForUser"`
	CustomExpiry      time.Time `json:"customExpiry"`
	PeoplePerListing  int       `json:"peoplePerListing"`
	RefundTimeLimit   time.Time `json:"refundTimeLimit"`
	PurchaseTimeLimit time.Time `json:"purchaseTimeLimit"`
}

func (l *Listing) SoldOut() bool {
	return l.CurrInventory == 0
}

func (l *Listing) PurchaseExpired(now time.Time) bool {
	return !l.PurchaseTimeLimit.After(now)
}

// MaxQuantity is the largest quantity a single order may request: the
// remaining inventory, further capped by maxPerOrder when set.
func (l *Listing) MaxQuantity() int {
	max := l.CurrInventory
	if l.MaxPerOrder > 0 && l.MaxPerOrder < max {
		max = l.MaxPerOrder
	}
	return max
}

// ValidQuantity reports whether q is inside the listing's per-order bounds.
func (l *Listing) ValidQuantity(q int) bool {
	return q >= l.MinPerOrder && q <= l.MaxQuantity()
}
