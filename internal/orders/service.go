package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Actor is the authenticated caller acting on an order.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// TransitionInput captures a requested item status change.
type TransitionInput struct {
	OrderItemID uuid.UUID
	Actor       Actor
	Status      string
}

// Service exposes order reads and the item status machine.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListProviderItems(ctx context.Context, actor Actor) ([]ProviderItemDTO, error)
}

type service struct {
	repo     Repository
	products product.Repository
	tx       txRunner
	outbox   outbox.Emitter
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService wires the order service. metrics may be nil.
func NewService(repo Repository, products product.Repository, tx txRunner, emitter outbox.Emitter, m *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, products: products, tx: tx, outbox: emitter, metrics: m, logg: logg}, nil
}

// Transition changes one item's status. Admins may set any status; providers
// may only move items of their own products forward. An item owned by another
// provider is reported exactly like a missing item.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	if input.OrderItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
	}
	target, err := enums.ParseOrderItemStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be one of Pending, Processing, Shipped, Delivered, Cancelled")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	role := input.Actor.Role
	if role != enums.UserRoleAdmin && role != enums.UserRoleProvider {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only providers and admins may update order items")
	}

	var result *TransitionResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItemForUpdate(ctx, input.OrderItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if role == enums.UserRoleProvider && (item.Product == nil || item.Product.ProviderID != input.Actor.UserID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}

		from := item.Status
		result = &TransitionResult{OrderItemID: item.ID, From: from, To: target}
		if from == target {
			return nil
		}
		if role == enums.UserRoleProvider && !CanProviderTransition(from, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move item from %s to %s", from, target)).
				WithDetails(map[string]any{"from": from, "to": target})
		}

		if err := repo.UpdateItemStatus(ctx, item.ID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item status")
		}

		restocked, err := s.adjustStock(ctx, tx, item.ProductID, item.Quantity, from, target)
		if err != nil {
			return err
		}
		result.Changed = true
		result.Restocked = restocked > 0

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderItemStatusChanged,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: role},
			Data: payloads.OrderItemStatusChangedEvent{
				OrderItemID: item.ID,
				OrderID:     item.OrderID,
				ProductID:   item.ProductID,
				From:        from,
				To:          target,
				Restocked:   restocked,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.metrics.IncTransition(target.String())
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_item_id": result.OrderItemID.String(),
			"from":          result.From.String(),
			"to":            result.To.String(),
			"actor_role":    role.String(),
		})
		s.logg.Info(logCtx, "order.item_status_changed")
	}
	return result, nil
}

// adjustStock returns units to stock when an item is cancelled, and takes them
// back when an admin revives a cancelled item.
func (s *service) adjustStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, from, to enums.OrderItemStatus) (int, error) {
	products := s.products.WithTx(tx)
	switch {
	case to == enums.OrderItemStatusCancelled:
		if err := products.Restock(ctx, productID, qty); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, nil
			}
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
		}
		return qty, nil
	case from == enums.OrderItemStatusCancelled:
		ok, err := products.DecrementStock(ctx, productID, qty)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reclaim stock")
		}
		if !ok {
			return 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock to reinstate cancelled item").
				WithDetails(map[string]any{"productId": productID, "requested": qty})
		}
	}
	return 0, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

// Get returns the order when the actor owns it or is an admin.
func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if actor.Role != enums.UserRoleAdmin && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) ListProviderItems(ctx context.Context, actor Actor) ([]ProviderItemDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.UserRoleProvider {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "provider role required")
	}
	rows, err := s.repo.ListProviderItems(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list provider items")
	}
	out := make([]ProviderItemDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, providerItemDTO(row))
	}
	return out, nil
}
