package services

import (
	"context"
	"log/slog"
	"time"

	"venue-booking/internal/status"
	"venue-booking/models"
	"venue-booking/monitoring"
)

// OrderStateFetcher reads the current state of an order.
type OrderStateFetcher interface {
	GetOrderState(ctx context.Context, orderID string) (int, error)
}

// ConfirmConfig tunes the finalization poll.
type ConfirmConfig struct {
	// InitialDelay is the wait before the first state check.
	InitialDelay time.Duration

	// BackoffFactor multiplies the delay after every check.
	BackoffFactor float64

	// MaxDelay caps the per-check delay.
	MaxDelay time.Duration

	// MaxWait bounds the whole poll. Zero means wait indefinitely,
	// which matches how long a payment webhook can realistically lag.
	MaxWait time.Duration
}

// ConfirmService polls an order after payment until the backend's
// webhook flips it to its final state. Fetch errors are logged and
// polling continues; a transient read failure must not strand a paid
// order as unconfirmed.
type ConfirmService struct {
	fetcher OrderStateFetcher
	cfg     ConfirmConfig
}

func NewConfirmService(fetcher OrderStateFetcher, cfg ConfirmConfig) *ConfirmService {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 1.5
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 32 * time.Second
	}
	return &ConfirmService{fetcher: fetcher, cfg: cfg}
}

// WaitForFinalized blocks until the order is finalized, the context is
// canceled, or the configured max wait elapses.
func (s *ConfirmService) WaitForFinalized(ctx context.Context, orderID string) error {
	start := time.Now()
	delay := s.cfg.InitialDelay

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		state, err := s.fetcher.GetOrderState(ctx, orderID)
		if err != nil {
			slog.Warn("order state check failed, retrying", "order_id", orderID, "error", err)
		} else if state == models.OrderStateFinalized {
			monitoring.TrackConfirmationWait(time.Since(start))
			return nil
		}

		if s.cfg.MaxWait > 0 && time.Since(start) >= s.cfg.MaxWait {
			return status.ErrConfirmTimeout
		}

		delay = s.nextDelay(delay)
		timer.Reset(delay)
	}
}

// nextDelay grows the delay geometrically up to the cap.
func (s *ConfirmService) nextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * s.cfg.BackoffFactor)
	if next > s.cfg.MaxDelay {
		next = s.cfg.MaxDelay
	}
	return next
}
