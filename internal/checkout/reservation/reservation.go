// Package reservation validates and decrements stock for a set of products
// inside the caller's transaction.
package reservation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// StockStore is the transaction-bound product surface reservation needs.
type StockStore interface {
	LockForUpdate(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

// StockRequest asks for qty units of a product.
type StockRequest struct {
	ProductID uuid.UUID
	Qty       int
}

// StockResult carries the product row as locked, before its decrement.
type StockResult struct {
	ProductID uuid.UUID
	Qty       int
	Product   models.Product
}

// Shortage describes one product that cannot cover the requested quantity.
type Shortage struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

// ReserveStock locks every requested product, verifies the summed quantity per
// product fits the current stock, then decrements. Nothing is decremented
// unless every request fits; the caller must roll back on error since an
// earlier decrement may already have applied when a later guard trips.
func ReserveStock(ctx context.Context, store StockStore, requests []StockRequest) ([]StockResult, error) {
	if len(requests) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation requires at least one item")
	}

	wanted := make(map[uuid.UUID]int, len(requests))
	ids := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		if req.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if _, ok := wanted[req.ProductID]; !ok {
			ids = append(ids, req.ProductID)
		}
		wanted[req.ProductID] += req.Qty
	}

	locked, err := store.LockForUpdate(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock products")
	}
	byID := make(map[uuid.UUID]models.Product, len(locked))
	for _, p := range locked {
		byID[p.ID] = p
	}

	var shortages []Shortage
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			shortages = append(shortages, Shortage{ProductID: id, Requested: wanted[id]})
			continue
		}
		if wanted[id] > p.StockQuantity {
			shortages = append(shortages, Shortage{ProductID: id, Name: p.Name, Available: p.StockQuantity, Requested: wanted[id]})
		}
	}
	if len(shortages) > 0 {
		return nil, InsufficientStock(shortages)
	}

	for _, id := range ids {
		ok, err := store.DecrementStock(ctx, id, wanted[id])
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			p := byID[id]
			return nil, InsufficientStock([]Shortage{{ProductID: id, Name: p.Name, Available: p.StockQuantity, Requested: wanted[id]}})
		}
	}

	results := make([]StockResult, 0, len(requests))
	for _, req := range requests {
		results = append(results, StockResult{ProductID: req.ProductID, Qty: req.Qty, Product: byID[req.ProductID]})
	}
	return results, nil
}

// InsufficientStock builds the typed error naming every short product.
func InsufficientStock(shortages []Shortage) error {
	names := make([]string, 0, len(shortages))
	for _, s := range shortages {
		if s.Name == "" {
			names = append(names, "unavailable product")
			continue
		}
		names = append(names, s.Name)
	}
	msg := fmt.Sprintf("insufficient stock for %s", strings.Join(names, ", "))
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, msg).WithDetails(map[string]any{"items": shortages})
}

// Shortages extracts the shortage list from an insufficient stock error.
func Shortages(err error) []Shortage {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		return nil
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return nil
	}
	items, _ := details["items"].([]Shortage)
	return items
}
