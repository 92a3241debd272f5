package backend

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"venue-booking/models"
)

const (
	venueSelect = "id,banner,avatar,name,type,address,cost,description,neighborhood,supportEmail,salesTax,location(id,name,timezone)"

	listingSelect = "id,name,description,type,price,maxInventory,currInventory,minPerOrder,maxPerOrder," +
		"purchasePolicy,event,collectInPerson,heldInventory,soldInventory,custom,customForUser,customExpiry," +
		"peoplePerListing,refundTimeLimit,purchaseTimeLimit"

	eventSelect = "id,flyer,name,description,start,end,performer,allowOffers,linkedRepeat," +
		"venue(" + venueSelect + ")," +
		"listings(" + listingSelect + ")"

	orderSelect = "id,state,maxToCheckIn,currCheckedIn,checkedIn," +
		"event(id,name,start,end,flyer)," +
		"venue(" + venueSelect + ")," +
		"order_listings(id,quantity,listing(" + listingSelect + "))"
)

// GetEvent reads one event with its venue and listings embedded.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	q := url.Values{}
	q.Set("id", "eq."+eventID)
	q.Set("select", eventSelect)
	ev, err := getSingleRow[models.Event](ctx, c, "events", q, "")
	if err != nil {
		return nil, fmt.Errorf("GetEvent: %v", err)
	}
	return ev, nil
}

// ListLocations reads every bookable location.
func (c *Client) ListLocations(ctx context.Context) ([]models.Location, error) {
	q := url.Values{}
	q.Set("select", "id,name,timezone")
	q.Set("order", "name.asc")
	var locations []models.Location
	if err := c.getRows(ctx, "locations", q, "", &locations); err != nil {
		return nil, fmt.Errorf("ListLocations: %v", err)
	}
	return locations, nil
}

// ListVenues reads the venues of a location.
func (c *Client) ListVenues(ctx context.Context, locationID string) ([]models.Venue, error) {
	q := url.Values{}
	q.Set("location", "eq."+locationID)
	q.Set("select", venueSelect)
	q.Set("order", "name.asc")
	var venues []models.Venue
	if err := c.getRows(ctx, "venues", q, "", &venues); err != nil {
		return nil, fmt.Errorf("ListVenues: %v", err)
	}
	return venues, nil
}

// ListEvents reads the events of a set of venues, soonest first.
func (c *Client) ListEvents(ctx context.Context, venueIDs []string) ([]models.Event, error) {
	if len(venueIDs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("venue", fmt.Sprintf("in.(%s)", strings.Join(venueIDs, ",")))
	q.Set("select", eventSelect)
	q.Set("order", "start.asc")
	var events []models.Event
	if err := c.getRows(ctx, "events", q, "", &events); err != nil {
		return nil, fmt.Errorf("ListEvents: %v", err)
	}
	return events, nil
}

// ListListings reads the regular listings of an event.
func (c *Client) ListListings(ctx context.Context, eventID string) ([]models.Listing, error) {
	q := url.Values{}
	q.Set("event", "eq."+eventID)
	q.Set("custom", "eq.false")
	q.Set("select", listingSelect)
	q.Set("order", "price.asc")
	var listings []models.Listing
	if err := c.getRows(ctx, "listings", q, "", &listings); err != nil {
		return nil, fmt.Errorf("ListListings: %v", err)
	}
	return listings, nil
}

// ListCustomListings reads the listings written for a specific guest,
// offered outside the public menu.
func (c *Client) ListCustomListings(ctx context.Context, bearer, eventID string) ([]models.Listing, error) {
	q := url.Values{}
	q.Set("event", "eq."+eventID)
	q.Set("custom", "eq.true")
	q.Set("select", listingSelect)
	var listings []models.Listing
	if err := c.getRows(ctx, "listings", q, bearer, &listings); err != nil {
		return nil, fmt.Errorf("ListCustomListings: %v", err)
	}
	return listings, nil
}

// ListFinalizedOrders reads the signed-in user's confirmed orders.
// Row-level security scopes the read to the bearer's own rows.
func (c *Client) ListFinalizedOrders(ctx context.Context, bearer string) ([]models.Order, error) {
	q := url.Values{}
	q.Set("state", fmt.Sprintf("eq.%d", models.OrderStateFinalized))
	q.Set("select", orderSelect)
	var orders []models.Order
	if err := c.getRows(ctx, "orders", q, bearer, &orders); err != nil {
		return nil, fmt.Errorf("ListFinalizedOrders: %v", err)
	}
	return orders, nil
}

// GetOrder reads one order with its lines embedded.
func (c *Client) GetOrder(ctx context.Context, bearer, orderID string) (*models.Order, error) {
	q := url.Values{}
	q.Set("id", "eq."+orderID)
	q.Set("select", orderSelect)
	order, err := getSingleRow[models.Order](ctx, c, "orders", q, bearer)
	if err != nil {
		return nil, fmt.Errorf("GetOrder: %v", err)
	}
	return order, nil
}

// GetOrderState reads only the state column of an order. The
// confirmation poller calls this on every tick, so the read stays as
// narrow as the data API allows.
func (c *Client) GetOrderState(ctx context.Context, orderID string) (int, error) {
	q := url.Values{}
	q.Set("id", "eq."+orderID)
	q.Set("select", "state")
	row, err := getSingleRow[struct {
		State int `json:"state"`
	}](ctx, c, "orders", q, "")
	if err != nil {
		return 0, fmt.Errorf("GetOrderState: %v", err)
	}
	return row.State, nil
}

// GetProfile reads the signed-in user's profile row.
func (c *Client) GetProfile(ctx context.Context, bearer string) (*models.UserInfo, error) {
	q := url.Values{}
	q.Set("select", "id,firstName,lastName,phoneNumber,email,dateOfBirth,streamChatToken")
	profile, err := getSingleRow[models.UserInfo](ctx, c, "users", q, bearer)
	if err != nil {
		return nil, fmt.Errorf("GetProfile: %v", err)
	}
	return profile, nil
}

// SearchVenues runs a full-text search over venue names.
func (c *Client) SearchVenues(ctx context.Context, term string) ([]models.Venue, error) {
	q := url.Values{}
	q.Set("name", "wfts."+term)
	q.Set("select", venueSelect)
	var venues []models.Venue
	if err := c.getRows(ctx, "venues", q, "", &venues); err != nil {
		return nil, fmt.Errorf("SearchVenues: %v", err)
	}
	return venues, nil
}

// SearchEvents runs a full-text search over event names.
func (c *Client) SearchEvents(ctx context.Context, term string) ([]models.Event, error) {
	q := url.Values{}
	q.Set("name", "wfts."+term)
	q.Set("select", eventSelect)
	q.Set("order", "start.asc")
	var events []models.Event
	if err := c.getRows(ctx, "events", q, "", &events); err != nil {
		return nil, fmt.Errorf("SearchEvents: %v", err)
	}
	return events, nil
}
