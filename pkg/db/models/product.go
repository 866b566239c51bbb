package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the provider-owned listing; only the columns touched by cart,
// pricing and fulfillment are modeled.
type Product struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProviderID        uuid.UUID        `gorm:"column:provider_id;type:uuid;not null;index"`
	Name              string           `gorm:"column:name;not null"`
	Price             decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	DiscountPrice     *decimal.Decimal `gorm:"column:discount_price;type:numeric(10,2)"`
	DiscountStartDate *time.Time       `gorm:"column:discount_start_date"`
	DiscountEndDate   *time.Time       `gorm:"column:discount_end_date"`
	StockQuantity     int              `gorm:"column:stock_quantity;not null;default:0;check:stock_quantity >= 0"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
