package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBodyBytes = 64 << 10

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type stripeWebhook struct {
	svc    StripeWebhookService
	client stripeClient
	guard  stripeWebhookGuard
	logg   *logger.Logger
}

// StripeWebhook verifies the Stripe-Signature header, then hands each event
// to svc at most once. A failed event releases its claim so Stripe's retry
// is processed again.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	h := &stripeWebhook{svc: svc, client: client, guard: guard, logg: logg}
	return h.serve
}

func (h *stripeWebhook) serve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.svc == nil || h.client == nil || h.guard == nil {
		responses.WriteError(ctx, h.logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhook not configured"))
		return
	}

	event, err := h.verify(r)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, err)
		return
	}
	if h.logg != nil {
		ctx = h.logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})
	}

	duplicate, err := h.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		responses.WriteError(ctx, h.logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if !duplicate {
		if err := h.svc.HandleEvent(ctx, &event); err != nil {
			if relErr := h.guard.Delete(ctx, event.ID); relErr != nil && h.logg != nil {
				h.logg.Error(ctx, "stripe.webhook.release_failed", relErr)
			}
			responses.WriteError(ctx, h.logg, w, err)
			return
		}
		if h.logg != nil {
			h.logg.Info(ctx, "stripe.webhook.processed")
		}
	}
	responses.WriteSuccess(w, map[string]bool{"received": true})
}

func (h *stripeWebhook) verify(r *http.Request) (stripe.Event, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes+1))
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body")
	}
	if len(payload) > maxWebhookBodyBytes {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload too large")
	}
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return stripe.Event{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.client.SigningSecret(),
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify signature")
	}
	return event, nil
}
