package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"venue-booking/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

func (h *CatalogHandler) ListLocations(c echo.Context) error {
	locations, err := h.catalog.Locations(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, locations)
}

func (h *CatalogHandler) ListVenues(c echo.Context) error {
	venues, err := h.catalog.Venues(c.Request().Context(), c.QueryParam("location_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, venues)
}

func (h *CatalogHandler) ListEvents(c echo.Context) error {
	events, err := h.catalog.Events(c.Request().Context(), c.QueryParam("location_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

func (h *CatalogHandler) GetEvent(c echo.Context) error {
	event, err := h.catalog.Event(c.Request().Context(), c.QueryParam("event_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// ListListings always reads through to the backend so inventory counts
// are current.
func (h *CatalogHandler) ListListings(c echo.Context) error {
	listings, err := h.catalog.Listings(c.Request().Context(), c.QueryParam("event_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, listings)
}

func (h *CatalogHandler) ListCustomListings(c echo.Context) error {
	listings, err := h.catalog.CustomListings(c.Request().Context(), c.QueryParam("event_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, listings)
}

// Search queries venues and events in one pass.
func (h *CatalogHandler) Search(c echo.Context) error {
	term := c.QueryParam("q")
	if term == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	results, err := h.catalog.Search(c.Request().Context(), term)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, results)
}
