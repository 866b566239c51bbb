package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/checkout/reservation"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/pricing"
	product "github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

const sessionIDConstraint = "stripe_session_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockRequest) ([]reservation.StockResult, error)
}

type reservationEngine struct {
	products product.Repository
}

func (e reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, requests []reservation.StockRequest) ([]reservation.StockResult, error) {
	return reservation.ReserveStock(ctx, e.products.WithTx(tx), requests)
}

// CommitInput identifies the paid session being turned into an order.
// ExternalTotal is the processor-reported amount; it is compared, never trusted.
type CommitInput struct {
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
	BillingAddressID  uuid.UUID
	SessionID         string
	ExternalTotal     *decimal.Decimal
}

// CommitResult is returned for both fresh and duplicate commits.
type CommitResult struct {
	OrderID   uuid.UUID
	Total     decimal.Decimal
	Duplicate bool
	Order     *models.Order
}

// Engine converts a cart into an order atomically, at most once per session.
type Engine struct {
	tx          txRunner
	cart        cart.CartRepository
	orders      orders.Repository
	reservation reservationRunner
	outbox      outbox.Emitter
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewEngine wires the fulfillment engine. A nil reservation runner locks and
// decrements through the product repository; metrics may be nil.
func NewEngine(
	tx txRunner,
	cartRepo cart.CartRepository,
	ordersRepo orders.Repository,
	products product.Repository,
	runner reservationRunner,
	emitter outbox.Emitter,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (*Engine, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if runner == nil {
		if products == nil {
			return nil, fmt.Errorf("product repository required")
		}
		runner = reservationEngine{products: products}
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{
		tx:          tx,
		cart:        cartRepo,
		orders:      ordersRepo,
		reservation: runner,
		outbox:      emitter,
		metrics:     m,
		logg:        logg,
		now:         time.Now,
	}, nil
}

// Commit validates stock, prices every line from the live product row, writes
// the order and its items, decrements stock and clears the cart in a single
// transaction. A session that already produced an order returns that order
// with Duplicate set and no side effects.
func (e *Engine) Commit(ctx context.Context, input CommitInput) (*CommitResult, error) {
	if err := validateCommit(input); err != nil {
		return nil, err
	}
	ctx = e.logg.WithFields(ctx, map[string]any{
		"user_id":           input.UserID.String(),
		"stripe_session_id": input.SessionID,
	})

	if existing, err := e.existing(ctx, input.SessionID); err != nil {
		return nil, err
	} else if existing != nil {
		return e.duplicate(ctx, existing), nil
	}

	started := time.Now()
	var order *models.Order
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := e.cart.WithTx(tx)
		ordersRepo := e.orders.WithTx(tx)

		// Cart rows are locked before products so two sessions paid from the
		// same cart serialize here and the later one finds it empty.
		items, err := cartRepo.LockItems(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(items) == 0 {
			return emptyCartError()
		}

		requests := make([]reservation.StockRequest, len(items))
		for i, item := range items {
			requests[i] = reservation.StockRequest{ProductID: item.ProductID, Qty: item.Quantity}
		}
		reserved, err := e.reservation.Reserve(ctx, tx, requests)
		if err != nil {
			return err
		}

		order = buildOrder(input, reserved, e.now())
		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := cartRepo.Clear(ctx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		return e.emitOrderCreated(ctx, tx, order)
	})
	e.metrics.ObserveCommit(time.Since(started))

	if err != nil {
		// A concurrent commit for the same session wins either the unique
		// index or the cart; both cases resolve to the order it created.
		if db.IsUniqueViolation(err, sessionIDConstraint) || pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
			if existing, lookupErr := e.existing(ctx, input.SessionID); lookupErr == nil && existing != nil {
				return e.duplicate(ctx, existing), nil
			}
		}
		e.metrics.IncFulfillment(outcomeFor(err))
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit order")
		}
		if outcomeFor(err) == metrics.OutcomeFailed {
			e.logg.Error(ctx, "checkout.commit_failed", err)
		} else {
			e.logg.Warn(e.logg.WithField(ctx, "reason", pkgerrors.As(err).Code()), "checkout.commit_rejected")
		}
		return nil, err
	}

	e.metrics.IncFulfillment(metrics.OutcomeCreated)
	ctx = e.logg.WithOrderID(ctx, order.ID.String())
	if input.ExternalTotal != nil && !input.ExternalTotal.Equal(order.TotalAmount) {
		e.metrics.IncTotalMismatch()
		e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
			"computed_total": order.TotalAmount.StringFixed(2),
			"external_total": input.ExternalTotal.StringFixed(2),
		}), "checkout.total_mismatch")
	}
	e.logg.Info(e.logg.WithField(ctx, "total", order.TotalAmount.StringFixed(2)), "checkout.fulfilled")

	return &CommitResult{OrderID: order.ID, Total: order.TotalAmount, Order: order}, nil
}

// FindBySession returns the order created for a session, or nil.
func (e *Engine) FindBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	return e.existing(ctx, sessionID)
}

func (e *Engine) existing(ctx context.Context, sessionID string) (*models.Order, error) {
	order, err := e.orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by session")
	}
	return order, nil
}

func (e *Engine) duplicate(ctx context.Context, order *models.Order) *CommitResult {
	e.metrics.IncFulfillment(metrics.OutcomeDuplicate)
	e.logg.Info(e.logg.WithOrderID(ctx, order.ID.String()), "checkout.duplicate")
	return &CommitResult{OrderID: order.ID, Total: order.TotalAmount, Duplicate: true, Order: order}
}

func (e *Engine) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	items := make([]payloads.OrderCreatedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, payloads.OrderCreatedItem{
			OrderItemID:     item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
		})
	}
	err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: enums.UserRoleClient},
		Data: payloads.OrderCreatedEvent{
			OrderID:         order.ID,
			UserID:          order.UserID,
			StripeSessionID: order.StripeSessionID,
			TotalAmount:     order.TotalAmount.StringFixed(2),
			Items:           items,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
	}
	return nil
}

func buildOrder(input CommitInput, reserved []reservation.StockResult, now time.Time) *models.Order {
	order := &models.Order{
		ID:                uuid.New(),
		UserID:            input.UserID,
		ShippingAddressID: input.ShippingAddressID,
		BillingAddressID:  input.BillingAddressID,
		StripeSessionID:   input.SessionID,
		Items:             make([]models.OrderItem, 0, len(reserved)),
	}
	total := decimal.Zero
	for _, line := range reserved {
		unit := pricing.EffectiveUnitPrice(line.Product, now)
		total = total.Add(pricing.LineTotal(unit, line.Qty))
		order.Items = append(order.Items, models.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       line.ProductID,
			Quantity:        line.Qty,
			PriceAtPurchase: unit,
			Status:          enums.OrderItemStatusPending,
		})
	}
	order.TotalAmount = total
	return order
}

func validateCommit(input CommitInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if strings.TrimSpace(input.SessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if input.ShippingAddressID == uuid.Nil || input.BillingAddressID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping and billing address ids are required")
	}
	return nil
}
