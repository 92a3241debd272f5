package models

import (
	"time"
)

type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type Venue struct {
	ID           string   `json:"id"`
	Banner       string   `json:"banner"`
	Avatar       string   `json:"avatar"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Address      string   `json:"address"`
	Cost         int      `json:"cost"`
	Location     Location `json:"location"`
	Description  string   `json:"description"`
	Neighborhood string   `json:"neighborhood"`
	SupportEmail string   `json:"supportEmail"`
	SalesTax     float64  `json:"salesTax"` // fraction, e.g. 0.08
}

type Event struct {
	ID           string    `json:"id"`
	Flyer        string    `json:"flyer"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Performer    string    `json:"performer"`
	AllowOffers  bool      `json:"allowOffers"`
	Venue        Venue     `json:"venue"`
	Listings     []Listing `json:"listings"`
	LinkedRepeat string    `json:"linkedRepeat"`
}

// EventMinimal is the event projection embedded in orders, without the
// venue join or the listings.
type EventMinimal struct {
	ID           string    `json:"id"`
	Flyer        string    `json:"flyer"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Performer    string    `json:"performer"`
	AllowOffers  bool      `json:"allowOffers"`
	LinkedRepeat string    `json:"linkedRepeat"`
}

// SoldOut reports whether every listing of the event has zero inventory.
func (e *Event) SoldOut() bool {
	for _, l := range e.Listings {
		if l.CurrInventory != 0 {
			return false
		}
	}
	return len(e.Listings) > 0
}

// AllExpired reports whether every listing's purchase window has closed.
func (e *Event) AllExpired(now time.Time) bool {
	for _, l := range e.Listings {
		if l.PurchaseTimeLimit.After(now) {
			return false
		}
	}
	return len(e.Listings) > 0
}
