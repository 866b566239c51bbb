package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const providerStripe = "stripe"

// EventClaimer records processed provider event ids.
type EventClaimer interface {
	ClaimWebhookEvent(ctx context.Context, provider, eventID string, ttl time.Duration) (bool, error)
	ReleaseWebhookEvent(ctx context.Context, provider, eventID string) error
}

type IdempotencyGuard struct {
	store EventClaimer
	ttl   time.Duration
}

func NewIdempotencyGuard(store EventClaimer, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("event claimer is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark claims the event id and reports whether it was already processed.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	claimed, err := g.store.ClaimWebhookEvent(ctx, providerStripe, eventID, g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim webhook event: %w", err)
	}
	return !claimed, nil
}

// Delete releases the claim after a failed attempt so the retry is processed.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.ReleaseWebhookEvent(ctx, providerStripe, eventID)
}
