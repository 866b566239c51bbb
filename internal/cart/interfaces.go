package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service
// and by checkout when it consumes a cart.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	List(ctx context.Context, userID uuid.UUID) ([]Line, error)
	Items(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	LockItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Add(ctx context.Context, userID, productID uuid.UUID, qty, limit int) (bool, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (bool, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}
