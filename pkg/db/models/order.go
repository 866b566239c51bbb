package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// Order is created exactly once per paid checkout session.
type Order struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	ShippingAddressID uuid.UUID       `gorm:"column:shipping_address_id;type:uuid;not null"`
	BillingAddressID  uuid.UUID       `gorm:"column:billing_address_id;type:uuid;not null"`
	TotalAmount       decimal.Decimal `gorm:"column:total_amount;type:numeric(10,2);not null"`
	StripeSessionID   string          `gorm:"column:stripe_session_id;not null;uniqueIndex:orders_stripe_session_id_key"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderItem snapshots the price charged for one product within an order.
type OrderItem struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	PriceAtPurchase decimal.Decimal       `gorm:"column:price_at_purchase;type:numeric(10,2);not null"`
	Status          enums.OrderItemStatus `gorm:"column:status;type:order_item_status;not null;default:'Pending'"`
	Product         *Product              `gorm:"foreignKey:ProductID"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
