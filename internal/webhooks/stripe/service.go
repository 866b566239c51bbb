package stripewebhook

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/marketplace-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	stripegateway "github.com/angelmondragon/marketplace-backend/pkg/stripe"
)

type sessionFulfiller interface {
	FulfillSession(ctx context.Context, session *stripegateway.Session) (*checkout.FulfillResult, error)
}

type ServiceParams struct {
	Fulfiller sessionFulfiller
	Logger    *logger.Logger
	Metrics   *metrics.CheckoutMetrics
}

type Service struct {
	fulfiller sessionFulfiller
	logg      *logger.Logger
	metrics   *metrics.CheckoutMetrics
}

// unfulfillable are outcomes a redelivery of the same event cannot change.
var unfulfillable = []pkgerrors.Code{pkgerrors.CodeEmptyCart, pkgerrors.CodeInsufficientStock}

func NewService(params ServiceParams) (*Service, error) {
	if params.Fulfiller == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session fulfiller required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{fulfiller: params.Fulfiller, logg: params.Logger, metrics: params.Metrics}, nil
}

// HandleEvent fulfills completed checkout sessions. A completed session whose
// payment is still pending is skipped; its async success event fulfills it.
// A paid session that can never become an order (empty cart, stock gone) is
// acknowledged and counted so the processor stops redelivering it.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		session, err := stripegateway.SessionFromEvent(event)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
		}
		ctx = s.logg.WithFields(ctx, map[string]any{
			"stripe_event_id":   event.ID,
			"stripe_session_id": session.ID,
		})
		res, err := s.fulfiller.FulfillSession(ctx, session)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodePaymentIncomplete) {
				s.logg.Info(ctx, "stripe.webhook.payment_pending")
				return nil
			}
			for _, code := range unfulfillable {
				if pkgerrors.IsCode(err, code) {
					s.metrics.IncUnfulfillable(string(code))
					s.logg.Warn(s.logg.WithField(ctx, "reason", string(code)), "stripe.webhook.session_unfulfillable")
					return nil
				}
			}
			return err
		}
		s.logg.Info(s.logg.WithOrderID(ctx, res.OrderID.String()), "stripe.webhook.session_fulfilled")
		return nil
	default:
		return nil
	}
}
