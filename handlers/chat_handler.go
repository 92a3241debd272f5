package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"venue-booking/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// OpenSupportChat resolves and subscribes to the support channel for a
// venue.
func (h *ChatHandler) OpenSupportChat(c echo.Context) error {
	var req struct {
		VenueID string `json:"venue_id"`
		EventID string `json:"event_id"`
		OrderID string `json:"order_id"`
	}
	if err := c.Bind(&req); err != nil || req.VenueID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	channel, err := h.chat.OpenSupportChannel(c.Request().Context(), req.VenueID, req.EventID, req.OrderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"channel": channel})
}

// SendMessage publishes a message on an open support channel.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req struct {
		Channel string `json:"channel"`
		Text    string `json:"text"`
	}
	if err := c.Bind(&req); err != nil || req.Channel == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_request"})
	}

	if err := h.chat.SendMessage(c.Request().Context(), req.Channel, req.Text); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}
