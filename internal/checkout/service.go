package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/checkout/reservation"
	"github.com/angelmondragon/marketplace-backend/internal/pricing"
	product "github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/stripe"
)

// PaymentGateway is the hosted checkout surface of the payment processor.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateSession(ctx context.Context, req stripe.SessionRequest) (*stripe.Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.Session, error)
}

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) (bool, error)
}

type committer interface {
	Commit(ctx context.Context, input CommitInput) (*CommitResult, error)
	FindBySession(ctx context.Context, sessionID string) (*models.Order, error)
}

// CreateSessionInput carries the buyer and the address selections that ride
// on the session as metadata.
type CreateSessionInput struct {
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
	BillingAddressID  uuid.UUID
}

// SessionResult is returned to the buyer to start the hosted payment page.
type SessionResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url,omitempty"`
}

// FulfillResult is the order produced by a paid session.
type FulfillResult struct {
	OrderID   uuid.UUID `json:"orderId"`
	Duplicate bool      `json:"-"`
}

// Service orchestrates payment sessions and their fulfillment.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error)
	Fulfill(ctx context.Context, userID uuid.UUID, sessionID string) (*FulfillResult, error)
	FulfillSession(ctx context.Context, session *stripe.Session) (*FulfillResult, error)
}

type service struct {
	cart     cart.CartRepository
	products product.Repository
	users    userStore
	gateway  PaymentGateway
	engine   committer
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(cartRepo cart.CartRepository, products product.Repository, users userStore, gateway PaymentGateway, engine committer, logg *logger.Logger) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user store required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if engine == nil {
		return nil, fmt.Errorf("fulfillment engine required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cart:     cartRepo,
		products: products,
		users:    users,
		gateway:  gateway,
		engine:   engine,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// CreateSession prices the cart at current effective prices and opens a
// hosted payment session. The stock check here is advisory; commit repeats it
// under lock.
func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ShippingAddressID == uuid.Nil || input.BillingAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping and billing address ids are required")
	}

	lines, err := s.cart.List(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(lines) == 0 {
		return nil, emptyCartError()
	}

	var shortages []reservation.Shortage
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
		if line.Quantity > line.StockQuantity {
			shortages = append(shortages, reservation.Shortage{
				ProductID: line.ProductID,
				Name:      line.Name,
				Available: line.StockQuantity,
				Requested: line.Quantity,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, reservation.InsufficientStock(shortages)
	}

	rows, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	now := s.now()
	items := make([]stripe.LineItem, 0, len(lines))
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, reservation.InsufficientStock([]reservation.Shortage{{ProductID: line.ProductID, Requested: line.Quantity}})
		}
		items = append(items, stripe.LineItem{
			Name:            p.Name,
			UnitAmountCents: pricing.ToCents(pricing.EffectiveUnitPrice(p, now)),
			Quantity:        int64(line.Quantity),
		})
	}

	customerID, err := s.customerFor(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, stripe.SessionRequest{
		CustomerID: customerID,
		LineItems:  items,
		Metadata: map[string]string{
			stripe.MetadataCartUserID:        input.UserID.String(),
			stripe.MetadataShippingAddressID: input.ShippingAddressID.String(),
			stripe.MetadataBillingAddressID:  input.BillingAddressID.String(),
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id":           input.UserID.String(),
		"stripe_session_id": session.ID,
		"line_count":        len(items),
	})
	s.logg.Info(logCtx, "checkout.session_created")
	return &SessionResult{SessionID: session.ID, URL: session.URL}, nil
}

// customerFor reuses the stored processor customer or registers a new one.
func (s *service) customerFor(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment customer")
	}
	stored, err := s.users.SetStripeCustomerID(ctx, userID, customerID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment customer")
	}
	if stored {
		return customerID, nil
	}
	// Another request stored a customer first; use that one.
	user, err = s.users.FindByID(ctx, userID)
	if err != nil || user.StripeCustomerID == nil {
		return customerID, nil
	}
	return *user.StripeCustomerID, nil
}

// Fulfill handles the success redirect. The caller must be the user the
// session was created for.
func (s *service) Fulfill(ctx context.Context, userID uuid.UUID, sessionID string) (*FulfillResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	existing, err := s.engine.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return ownedResult(existing.UserID, userID, existing.ID, true)
	}

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if stripe.IsNotFound(err) {
			return nil, sessionNotFoundError()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve checkout session")
	}
	if !session.Paid() {
		return nil, paymentIncompleteError()
	}
	input, err := commitInputFromSession(session)
	if err != nil {
		return nil, err
	}
	if input.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "session belongs to another user")
	}

	res, err := s.engine.Commit(ctx, input)
	if err != nil {
		return nil, err
	}
	return ownedResult(res.Order.UserID, userID, res.OrderID, res.Duplicate)
}

// FulfillSession handles a processor-pushed completion; the session metadata
// identifies the buyer.
func (s *service) FulfillSession(ctx context.Context, session *stripe.Session) (*FulfillResult, error) {
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if !session.Paid() {
		return nil, paymentIncompleteError()
	}
	input, err := commitInputFromSession(session)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Commit(ctx, input)
	if err != nil {
		return nil, err
	}
	return &FulfillResult{OrderID: res.OrderID, Duplicate: res.Duplicate}, nil
}

func ownedResult(owner, caller, orderID uuid.UUID, duplicate bool) (*FulfillResult, error) {
	if owner != caller {
		return nil, sessionNotFoundError()
	}
	return &FulfillResult{OrderID: orderID, Duplicate: duplicate}, nil
}

func commitInputFromSession(session *stripe.Session) (CommitInput, error) {
	parse := func(key string) (uuid.UUID, error) {
		raw := strings.TrimSpace(session.Metadata[key])
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("session metadata %s is missing or invalid", key))
		}
		return id, nil
	}
	userID, err := parse(stripe.MetadataCartUserID)
	if err != nil {
		return CommitInput{}, err
	}
	shippingID, err := parse(stripe.MetadataShippingAddressID)
	if err != nil {
		return CommitInput{}, err
	}
	billingID, err := parse(stripe.MetadataBillingAddressID)
	if err != nil {
		return CommitInput{}, err
	}
	total := pricing.FromCents(session.AmountTotalCents)
	return CommitInput{
		UserID:            userID,
		ShippingAddressID: shippingID,
		BillingAddressID:  billingID,
		SessionID:         session.ID,
		ExternalTotal:     &total,
	}, nil
}
