package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// User represents the identity rows checkout reads from.
type User struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email            string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name             string         `gorm:"column:name;not null;default:''"`
	Role             enums.UserRole `gorm:"column:role;type:text;not null;default:'client'"`
	StripeCustomerID *string        `gorm:"column:stripe_customer_id"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
