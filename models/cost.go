package models

// Cost is a derived cost breakdown for an order, all fields integer
// cents. The client-side computation is a preview; the backend computes
// the authoritative figure when the order is finalized for payment.
type Cost struct {
	Subtotal       int64 `json:"subtotal"`
	BookingDeposit int64 `json:"bookingDeposit"`
	SalesTax       int64 `json:"salesTax"`
	Total          int64 `json:"total"`
	PayableAtVenue int64 `json:"payableAtVenue"`
	DueNow         int64 `json:"dueNow"`
}
