package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"venue-booking/models"
	"venue-booking/monitoring"
)

// bookingEndPadding keeps a booking in the upcoming list for a short
// while after the event ends, so guests still checking in can find it.
const bookingEndPadding = time.Hour

// refundFlagKey is raised when a refund lands so booking views know
// their cached data is gone stale.
const refundFlagKey = "bookings:refund_triggered"

// CatalogBackend is the slice of the backend client the catalog reads.
type CatalogBackend interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
	ListVenues(ctx context.Context, locationID string) ([]models.Venue, error)
	ListEvents(ctx context.Context, venueIDs []string) ([]models.Event, error)
	ListListings(ctx context.Context, eventID string) ([]models.Listing, error)
	ListCustomListings(ctx context.Context, bearer, eventID string) ([]models.Listing, error)
	ListFinalizedOrders(ctx context.Context, bearer string) ([]models.Order, error)
	GetOrder(ctx context.Context, bearer, orderID string) (*models.Order, error)
	SearchVenues(ctx context.Context, term string) ([]models.Venue, error)
	SearchEvents(ctx context.Context, term string) ([]models.Event, error)
}

// SearchResults holds one debounced search pass over both collections.
type SearchResults struct {
	Venues []models.Venue `json:"venues"`
	Events []models.Event `json:"events"`
}

// Bookings is the user's confirmed orders split around now.
type Bookings struct {
	Upcoming []models.Order `json:"upcoming"`
	Past     []models.Order `json:"past"`
}

// CatalogService serves browse data (locations, venues, events,
// listings) through a short-TTL Redis cache, and the user's bookings
// uncached. Cached rows are snapshots; anything feeding a purchase
// decision is refreshed explicitly.
type CatalogService struct {
	backend CatalogBackend
	auth    BearerSource
	redis   *redis.Client
	ttl     time.Duration

	now func() time.Time
}

func NewCatalogService(b CatalogBackend, auth BearerSource, redisClient *redis.Client, ttl time.Duration) *CatalogService {
	return &CatalogService{
		backend: b,
		auth:    auth,
		redis:   redisClient,
		ttl:     ttl,
		now:     time.Now,
	}
}

// cached reads key from Redis into out, falling back to load and
// writing the result through. Cache failures degrade to a direct load.
func cached[T any](ctx context.Context, s *CatalogService, collection, key string, load func() (T, error)) (T, error) {
	raw, err := s.redis.Get(ctx, key).Result()
	if err == nil {
		var out T
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			monitoring.TrackCatalogCache(collection, "hit")
			return out, nil
		}
	}
	monitoring.TrackCatalogCache(collection, "miss")

	out, err := load()
	if err != nil {
		return out, err
	}

	if buf, err := json.Marshal(out); err == nil {
		// Cache write failures are not worth failing the read over.
		_ = s.redis.Set(ctx, key, buf, s.ttl).Err()
	}
	return out, nil
}

// Locations lists the bookable locations.
func (s *CatalogService) Locations(ctx context.Context) ([]models.Location, error) {
	return cached(ctx, s, "locations", "catalog:locations", func() ([]models.Location, error) {
		return s.backend.ListLocations(ctx)
	})
}

// Venues lists a location's venues.
func (s *CatalogService) Venues(ctx context.Context, locationID string) ([]models.Venue, error) {
	key := fmt.Sprintf("catalog:venues:%s", locationID)
	return cached(ctx, s, "venues", key, func() ([]models.Venue, error) {
		return s.backend.ListVenues(ctx, locationID)
	})
}

// Events lists the upcoming events across a location's venues.
func (s *CatalogService) Events(ctx context.Context, locationID string) ([]models.Event, error) {
	key := fmt.Sprintf("catalog:events:%s", locationID)
	return cached(ctx, s, "events", key, func() ([]models.Event, error) {
		venues, err := s.backend.ListVenues(ctx, locationID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(venues))
		for _, v := range venues {
			ids = append(ids, v.ID)
		}
		return s.backend.ListEvents(ctx, ids)
	})
}

// Event reads one event with venue and listings, uncached: its listing
// snapshots feed quantity pickers.
func (s *CatalogService) Event(ctx context.Context, eventID string) (*models.Event, error) {
	return s.backend.GetEvent(ctx, eventID)
}

// Listings reads an event's current public listings, bypassing the
// cache. Called after a quantity rejection to resynchronize inventory.
func (s *CatalogService) Listings(ctx context.Context, eventID string) ([]models.Listing, error) {
	return s.backend.ListListings(ctx, eventID)
}

// CustomListings reads the listings written specifically for the
// signed-in user.
func (s *CatalogService) CustomListings(ctx context.Context, eventID string) ([]models.Listing, error) {
	bearer, err := s.auth.Bearer(ctx)
	if err != nil {
		return nil, err
	}
	return s.backend.ListCustomListings(ctx, bearer, eventID)
}

// Bookings reads the user's confirmed orders and splits them around
// now, padding each event's end so a booking stays upcoming through
// late check-ins.
func (s *CatalogService) Bookings(ctx context.Context) (*Bookings, error) {
	bearer, err := s.auth.Bearer(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.backend.ListFinalizedOrders(ctx, bearer)
	if err != nil {
		return nil, err
	}

	now := s.now()
	b := &Bookings{Upcoming: []models.Order{}, Past: []models.Order{}}
	for _, o := range orders {
		if o.Event.End.Add(bookingEndPadding).After(now) {
			b.Upcoming = append(b.Upcoming, o)
		} else {
			b.Past = append(b.Past, o)
		}
	}
	return b, nil
}

// Order reads one booking.
func (s *CatalogService) Order(ctx context.Context, orderID string) (*models.Order, error) {
	bearer, err := s.auth.Bearer(ctx)
	if err != nil {
		return nil, err
	}
	return s.backend.GetOrder(ctx, bearer, orderID)
}

// Search runs the venue and event searches concurrently and returns
// both result sets. A failure on either side fails the search.
func (s *CatalogService) Search(ctx context.Context, term string) (*SearchResults, error) {
	var (
		wg       sync.WaitGroup
		venues   []models.Venue
		events   []models.Event
		venueErr error
		eventErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		venues, venueErr = s.backend.SearchVenues(ctx, term)
	}()
	go func() {
		defer wg.Done()
		events, eventErr = s.backend.SearchEvents(ctx, term)
	}()
	wg.Wait()

	if venueErr != nil {
		return nil, fmt.Errorf("Search: venues: %v", venueErr)
	}
	if eventErr != nil {
		return nil, fmt.Errorf("Search: events: %v", eventErr)
	}
	return &SearchResults{Venues: venues, Events: events}, nil
}

// MarkRefundOccurred raises the refund flag.
func (s *CatalogService) MarkRefundOccurred(ctx context.Context) error {
	return s.redis.Set(ctx, refundFlagKey, "1", 24*time.Hour).Err()
}

// ConsumeRefundFlag reports and clears the refund flag in one step, so
// exactly one booking refetch is triggered per refund.
func (s *CatalogService) ConsumeRefundFlag(ctx context.Context) (bool, error) {
	_, err := s.redis.GetDel(ctx, refundFlagKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
