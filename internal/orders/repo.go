package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order together with its items.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where("stripe_session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Preload("Items.Product").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListProviderItems returns every order item whose product the provider owns.
func (r *repository) ListProviderItems(ctx context.Context, providerID uuid.UUID) ([]ProviderItem, error) {
	var rows []ProviderItem
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select(`oi.id AS order_item_id,
			oi.order_id,
			oi.product_id,
			p.name AS product_name,
			oi.quantity,
			oi.price_at_purchase,
			oi.status,
			o.created_at AS ordered_at`).
		Joins("JOIN products p ON p.id = oi.product_id").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("p.provider_id = ?", providerID).
		Order("o.created_at DESC, oi.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindItemForUpdate locks the item row and loads its product for ownership checks.
func (r *repository) FindItemForUpdate(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", item.ProductID).First(&product).Error; err != nil {
		return nil, err
	}
	item.Product = &product
	return &item, nil
}

func (r *repository) UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status enums.OrderItemStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.created_at ASC, order_items.id ASC")
}
