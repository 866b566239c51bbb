package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/pricing"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// MaxLineQuantity bounds a single cart line, including quantities summed by
// repeated adds.
const MaxLineQuantity = 1000

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the buyer-facing cart operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	Add(ctx context.Context, userID, productID uuid.UUID, qty int) (*View, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*View, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error)
}

// View is the cart as rendered to the buyer. Prices are current list prices;
// discounts resolve only at checkout.
type View struct {
	Items     []LineView  `json:"items"`
	ItemCount int         `json:"itemCount"`
	Subtotal  types.Money `json:"subtotal"`
}

// LineView is one rendered cart line.
type LineView struct {
	ProductID     uuid.UUID   `json:"productId"`
	Name          string      `json:"name"`
	Quantity      int         `json:"quantity"`
	UnitPrice     types.Money `json:"unitPrice"`
	LineTotal     types.Money `json:"lineTotal"`
	StockQuantity int         `json:"stockQuantity"`
	InStock       bool        `json:"inStock"`
}

type service struct {
	repo     CartRepository
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	lines, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return BuildView(lines), nil
}

// Add does not consult stock; carts may go stale and are re-validated at checkout.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID, qty int) (*View, error) {
	if err := validateLine(userID, productID); err != nil {
		return nil, err
	}
	if qty < 1 || qty > MaxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", MaxLineQuantity))
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	added, err := s.repo.Add(ctx, userID, productID, qty, MaxLineQuantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	if !added {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart line quantity must not exceed %d", MaxLineQuantity))
	}
	return s.Get(ctx, userID)
}

func (s *service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (*View, error) {
	if err := validateLine(userID, productID); err != nil {
		return nil, err
	}
	if qty > MaxLineQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must not exceed %d", MaxLineQuantity))
	}
	found, err := s.repo.SetQuantity(ctx, userID, productID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, userID)
}

func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if err := validateLine(userID, productID); err != nil {
		return nil, err
	}
	found, err := s.repo.Remove(ctx, userID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, userID)
}

// BuildView totals the lines at list price.
func BuildView(lines []Line) *View {
	view := &View{Items: make([]LineView, 0, len(lines))}
	subtotal := decimal.Zero
	for _, line := range lines {
		total := pricing.LineTotal(line.UnitPrice, line.Quantity)
		subtotal = subtotal.Add(total)
		view.ItemCount += line.Quantity
		view.Items = append(view.Items, LineView{
			ProductID:     line.ProductID,
			Name:          line.Name,
			Quantity:      line.Quantity,
			UnitPrice:     types.NewMoney(line.UnitPrice),
			LineTotal:     types.NewMoney(total),
			StockQuantity: line.StockQuantity,
			InStock:       line.Quantity <= line.StockQuantity,
		})
	}
	view.Subtotal = types.NewMoney(subtotal)
	return view
}

func validateLine(userID, productID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return nil
}
