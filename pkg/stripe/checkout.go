package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// Metadata keys attached to every checkout session.
const (
	MetadataCartUserID        = "cart_user_id"
	MetadataShippingAddressID = "shipping_address_id"
	MetadataBillingAddressID  = "billing_address_id"
)

// LineItem is one priced row of a hosted checkout page.
type LineItem struct {
	Name            string
	UnitAmountCents int64
	Quantity        int64
}

// SessionRequest describes the hosted checkout session to create.
type SessionRequest struct {
	CustomerID string
	LineItems  []LineItem
	Metadata   map[string]string
}

// Session is the subset of a checkout session the platform reads back.
type Session struct {
	ID               string
	URL              string
	CustomerID       string
	PaymentStatus    string
	AmountTotalCents int64
	Metadata         map[string]string
}

// Paid reports whether the processor marked the session as paid.
func (s *Session) Paid() bool {
	return s != nil && s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// GatewayConfig carries the session settings shared by every request.
type GatewayConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// sessionAPI is the slice of the Stripe client the gateway calls.
type sessionAPI interface {
	CreateSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	RetrieveSession(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error)
	CreateCustomer(ctx context.Context, params *stripe.CustomerCreateParams) (*stripe.Customer, error)
}

type clientAPI struct {
	sc *stripe.Client
}

func (a clientAPI) CreateSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	return a.sc.V1CheckoutSessions.Create(ctx, params)
}

func (a clientAPI) RetrieveSession(ctx context.Context, id string, params *stripe.CheckoutSessionRetrieveParams) (*stripe.CheckoutSession, error) {
	return a.sc.V1CheckoutSessions.Retrieve(ctx, id, params)
}

func (a clientAPI) CreateCustomer(ctx context.Context, params *stripe.CustomerCreateParams) (*stripe.Customer, error) {
	return a.sc.V1Customers.Create(ctx, params)
}

// CheckoutGateway creates and reads hosted checkout sessions.
type CheckoutGateway struct {
	api sessionAPI
	cfg GatewayConfig
}

// NewCheckoutGateway builds a gateway on top of an initialized Client.
func NewCheckoutGateway(client *Client, cfg GatewayConfig) (*CheckoutGateway, error) {
	if client.API() == nil {
		return nil, errors.New("stripe client is required")
	}
	return newCheckoutGateway(clientAPI{sc: client.API()}, cfg)
}

func newCheckoutGateway(api sessionAPI, cfg GatewayConfig) (*CheckoutGateway, error) {
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	if cfg.SuccessURL == "" || cfg.CancelURL == "" {
		return nil, errors.New("success and cancel urls are required")
	}
	return &CheckoutGateway{api: api, cfg: cfg}, nil
}

// CreateCustomer registers a processor-side customer and returns its id.
func (g *CheckoutGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerCreateParams{Email: stripe.String(email)}
	if name != "" {
		params.Name = stripe.String(name)
	}
	cust, err := g.api.CreateCustomer(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return cust.ID, nil
}

// CreateSession opens a card payment session for the provided line items.
func (g *CheckoutGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if len(req.LineItems) == 0 {
		return nil, errors.New("at least one line item is required")
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(g.cfg.SuccessURL),
		CancelURL:          stripe.String(g.cfg.CancelURL),
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			SetupFutureUsage: stripe.String(string(stripe.PaymentIntentSetupFutureUsageOnSession)),
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(g.cfg.Currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmountCents),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	created, err := g.api.CreateSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return toSession(created), nil
}

// RetrieveSession reads the current state of a checkout session.
func (g *CheckoutGateway) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is required")
	}
	found, err := g.api.RetrieveSession(ctx, sessionID, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return toSession(found), nil
}

// SessionFromEvent decodes the checkout session embedded in a webhook event.
func SessionFromEvent(event *stripe.Event) (*Session, error) {
	if event == nil || event.Data == nil {
		return nil, errors.New("event payload missing")
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return toSession(&cs), nil
}

func toSession(cs *stripe.CheckoutSession) *Session {
	if cs == nil {
		return nil
	}
	out := &Session{
		ID:               cs.ID,
		URL:              cs.URL,
		PaymentStatus:    string(cs.PaymentStatus),
		AmountTotalCents: cs.AmountTotal,
		Metadata:         cs.Metadata,
	}
	if cs.Customer != nil {
		out.CustomerID = cs.Customer.ID
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out
}

// IsNotFound reports whether the processor rejected a lookup for an unknown object.
func IsNotFound(err error) bool {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.HTTPStatusCode == 404 || serr.Code == stripe.ErrorCodeResourceMissing
}
