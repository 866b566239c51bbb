package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
)

// Line is a cart row joined with the live product it references.
type Line struct {
	ProductID     uuid.UUID       `gorm:"column:product_id"`
	Name          string          `gorm:"column:name"`
	Quantity      int             `gorm:"column:quantity"`
	UnitPrice     decimal.Decimal `gorm:"column:price"`
	StockQuantity int             `gorm:"column:stock_quantity"`
}

// Repository exposes persistence operations for cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// List returns the user's lines joined with the current list price and stock.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]Line, error) {
	var lines []Line
	err := r.db.WithContext(ctx).
		Table("cart_items AS ci").
		Select("ci.product_id, p.name, ci.quantity, p.price, p.stock_quantity").
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("ci.user_id = ?", userID).
		Order("ci.created_at ASC, ci.product_id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Items returns the raw cart rows without product data.
func (r *Repository) Items(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("product_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// LockItems returns the raw cart rows holding row locks until the transaction
// ends. A concurrent checkout of the same cart waits and then sees what the
// first one left behind.
func (r *Repository) LockItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Order("product_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Add inserts the line or sums the quantity into the existing one. It reports
// false, leaving the row untouched, when the sum would exceed limit.
func (r *Repository) Add(ctx context.Context, userID, productID uuid.UUID, qty, limit int) (bool, error) {
	item := models.CartItem{UserID: userID, ProductID: productID, Quantity: qty}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("cart_items.quantity + excluded.quantity"),
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "cart_items.quantity + excluded.quantity <= ?", Vars: []any{limit}},
			}},
		}).
		Create(&item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetQuantity overwrites the line's quantity; qty <= 0 removes the line. It
// reports whether a line existed.
func (r *Repository) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return r.Remove(ctx, userID, productID)
	}
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Remove deletes a single line and reports whether it existed.
func (r *Repository) Remove(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Clear deletes every line owned by the user.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}
