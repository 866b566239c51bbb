package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// ProviderItem is an order item row as seen by the provider owning its product.
type ProviderItem struct {
	OrderItemID     uuid.UUID             `gorm:"column:order_item_id"`
	OrderID         uuid.UUID             `gorm:"column:order_id"`
	ProductID       uuid.UUID             `gorm:"column:product_id"`
	ProductName     string                `gorm:"column:product_name"`
	Quantity        int                   `gorm:"column:quantity"`
	PriceAtPurchase decimal.Decimal       `gorm:"column:price_at_purchase"`
	Status          enums.OrderItemStatus `gorm:"column:status"`
	OrderedAt       time.Time             `gorm:"column:ordered_at"`
}

// OrderDTO is the buyer-facing projection of an order.
type OrderDTO struct {
	ID                uuid.UUID      `json:"id"`
	TotalAmount       types.Money    `json:"totalAmount"`
	ShippingAddressID uuid.UUID      `json:"shippingAddressId"`
	BillingAddressID  uuid.UUID      `json:"billingAddressId"`
	OverallStatus     string         `json:"overallStatus"`
	CreatedAt         time.Time      `json:"createdAt"`
	Items             []OrderItemDTO `json:"items"`
}

// OrderItemDTO is one line in OrderDTO.
type OrderItemDTO struct {
	ID              uuid.UUID             `json:"id"`
	ProductID       uuid.UUID             `json:"productId"`
	ProductName     string                `json:"productName,omitempty"`
	Quantity        int                   `json:"quantity"`
	PriceAtPurchase types.Money           `json:"priceAtPurchase"`
	Status          enums.OrderItemStatus `json:"status"`
}

// ProviderItemDTO is the JSON form of ProviderItem.
type ProviderItemDTO struct {
	OrderItemID     uuid.UUID             `json:"orderItemId"`
	OrderID         uuid.UUID             `json:"orderId"`
	ProductID       uuid.UUID             `json:"productId"`
	ProductName     string                `json:"productName"`
	Quantity        int                   `json:"quantity"`
	PriceAtPurchase types.Money           `json:"priceAtPurchase"`
	Status          enums.OrderItemStatus `json:"status"`
	OrderedAt       time.Time             `json:"orderedAt"`
}

// TransitionResult reports the outcome of an item status change.
type TransitionResult struct {
	OrderItemID uuid.UUID             `json:"orderItemId"`
	From        enums.OrderItemStatus `json:"from"`
	To          enums.OrderItemStatus `json:"to"`
	Changed     bool                  `json:"changed"`
	Restocked   bool                  `json:"restocked"`
}

// FromModel builds the buyer DTO and derives its overall status.
func FromModel(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                order.ID,
		TotalAmount:       types.NewMoney(order.TotalAmount),
		ShippingAddressID: order.ShippingAddressID,
		BillingAddressID:  order.BillingAddressID,
		CreatedAt:         order.CreatedAt,
		Items:             make([]OrderItemDTO, 0, len(order.Items)),
	}
	statuses := make([]enums.OrderItemStatus, 0, len(order.Items))
	for _, item := range order.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     name,
			Quantity:        item.Quantity,
			PriceAtPurchase: types.NewMoney(item.PriceAtPurchase),
			Status:          item.Status,
		})
		statuses = append(statuses, item.Status)
	}
	dto.OverallStatus = OverallStatus(statuses)
	return dto
}

func providerItemDTO(item ProviderItem) ProviderItemDTO {
	return ProviderItemDTO{
		OrderItemID:     item.OrderItemID,
		OrderID:         item.OrderID,
		ProductID:       item.ProductID,
		ProductName:     item.ProductName,
		Quantity:        item.Quantity,
		PriceAtPurchase: types.NewMoney(item.PriceAtPurchase),
		Status:          item.Status,
		OrderedAt:       item.OrderedAt,
	}
}
