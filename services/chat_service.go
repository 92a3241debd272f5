package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go"

	"venue-booking/models"
)

// ChatServiceBackend resolves the support channel between a user and a
// venue.
type ChatServiceBackend interface {
	CreateSupportChat(ctx context.Context, bearer, venueID, eventID, orderID, userID string) (string, error)
}

// ProfileSource yields the signed-in user's profile and bearer.
type ProfileSource interface {
	BearerSource
	Profile(ctx context.Context) (*models.UserInfo, error)
}

// ChatMessage is one message on a support channel.
type ChatMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
	SentAt int64  `json:"sent_at"`
}

// ChatService connects users to venue support over the realtime
// messaging provider. One channel exists per venue/user pair; the
// backend resolves (or creates) it and this service subscribes and
// publishes on it.
type ChatService struct {
	pubnub      *pubnub.PubNub
	backend     ChatServiceBackend
	auth        ProfileSource
	channelType string
}

func NewChatService(pn *pubnub.PubNub, b ChatServiceBackend, auth ProfileSource, channelType string) *ChatService {
	return &ChatService{
		pubnub:      pn,
		backend:     b,
		auth:        auth,
		channelType: channelType,
	}
}

// OpenSupportChannel resolves the support channel for a venue (and the
// event/order the question is about) and subscribes to it. Returns the
// provider channel name to publish and listen on.
func (s *ChatService) OpenSupportChannel(ctx context.Context, venueID, eventID, orderID string) (string, error) {
	bearer, err := s.auth.Bearer(ctx)
	if err != nil {
		return "", err
	}
	profile, err := s.auth.Profile(ctx)
	if err != nil {
		return "", err
	}

	channelID, err := s.backend.CreateSupportChat(ctx, bearer, venueID, eventID, orderID, profile.ID)
	if err != nil {
		return "", err
	}

	channel := s.channelName(channelID)
	s.pubnub.Subscribe().
		Channels([]string{channel}).
		Execute()

	return channel, nil
}

// SendMessage publishes a text message on an open support channel.
func (s *ChatService) SendMessage(ctx context.Context, channel, text string) error {
	profile, err := s.auth.Profile(ctx)
	if err != nil {
		return err
	}

	_, _, err = s.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":    "text",
			"text":    text,
			"sender":  profile.ID,
			"sent_at": time.Now().Unix(),
		}).
		Execute()
	if err != nil {
		return fmt.Errorf("SendMessage: %v", err)
	}
	return nil
}

// Listen forwards incoming messages to handler until the context is
// canceled. Malformed messages are logged and skipped.
func (s *ChatService) Listen(ctx context.Context, handler func(channel string, msg ChatMessage)) {
	listener := pubnub.NewListener()
	s.pubnub.AddListener(listener)
	defer s.pubnub.RemoveListener(listener)

	for {
		select {
		case <-ctx.Done():
			return
		case message := <-listener.Message:
			msg, err := decodeChatMessage(message)
			if err != nil {
				slog.Warn("dropping malformed chat message", "channel", message.Channel, "error", err)
				continue
			}
			handler(message.Channel, msg)
		}
	}
}

// Disconnect unsubscribes from every channel.
func (s *ChatService) Disconnect() {
	s.pubnub.UnsubscribeAll()
}

func (s *ChatService) channelName(channelID string) string {
	return fmt.Sprintf("%s.%s", s.channelType, channelID)
}

func decodeChatMessage(message *pubnub.PNMessage) (ChatMessage, error) {
	data, ok := message.Message.(map[string]interface{})
	if !ok {
		return ChatMessage{}, fmt.Errorf("decodeChatMessage: unexpected payload %T", message.Message)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("decodeChatMessage: %v", err)
	}

	var msg ChatMessage
	if err := json.Unmarshal(jsonData, &msg); err != nil {
		return ChatMessage{}, fmt.Errorf("decodeChatMessage: %v", err)
	}
	return msg, nil
}
