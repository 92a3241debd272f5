package services

import (
	"github.com/shopspring/decimal"

	"venue-booking/models"
)

// bookingDepositRate is the flat deposit charged on every listing line.
const bookingDepositRate = "0.05"

// CostService derives cost breakdowns for carts and stored bookings.
// Figures are previews; the backend computes the authoritative amount
// when an order is finalized for payment.
type CostService struct {
	depositRate decimal.Decimal
}

func NewCostService() *CostService {
	return &CostService{
		depositRate: decimal.RequireFromString(bookingDepositRate),
	}
}

// Compute derives the full breakdown for a set of listing lines sold at
// a venue. All amounts are integer cents, rounded half away from zero
// per line so the per-line figures always add up to the totals shown.
//
// Lines whose listing collects in person route their subtotal to
// payableAtVenue; the deposit and tax on every line are due now.
func (s *CostService) Compute(lines []models.CartItem, venue *models.Venue) models.Cost {
	taxRate := decimal.NewFromFloat(venue.SalesTax)

	var cost models.Cost
	for _, line := range lines {
		sub := decimal.NewFromInt(line.Listing.Price).
			Mul(decimal.NewFromInt(int64(line.Quantity))).
			Round(0)
		dep := sub.Mul(s.depositRate).Round(0)
		tax := sub.Add(dep).Mul(taxRate).Round(0)

		cost.Subtotal += sub.IntPart()
		cost.BookingDeposit += dep.IntPart()
		cost.SalesTax += tax.IntPart()

		if line.Listing.CollectInPerson {
			cost.PayableAtVenue += sub.IntPart()
		} else {
			cost.DueNow += sub.IntPart()
		}
		cost.DueNow += dep.IntPart() + tax.IntPart()
	}

	cost.Total = cost.Subtotal + cost.BookingDeposit + cost.SalesTax
	return cost
}

// ComputeForOrder derives the breakdown for a stored booking, reusing
// the venue embedded on the order.
func (s *CostService) ComputeForOrder(order *models.Order) models.Cost {
	return s.Compute(order.Lines(), &order.Venue)
}
