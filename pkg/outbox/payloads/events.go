package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per committed checkout session.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID          `json:"order_id"`
	UserID          uuid.UUID          `json:"user_id"`
	StripeSessionID string             `json:"stripe_session_id"`
	TotalAmount     string             `json:"total_amount"`
	Items           []OrderCreatedItem `json:"items"`
}

// OrderCreatedItem mirrors one committed order line.
type OrderCreatedItem struct {
	OrderItemID     uuid.UUID `json:"order_item_id"`
	ProductID       uuid.UUID `json:"product_id"`
	Quantity        int       `json:"quantity"`
	PriceAtPurchase string    `json:"price_at_purchase"`
}

// OrderItemStatusChangedEvent is emitted whenever a line item changes status.
type OrderItemStatusChangedEvent struct {
	OrderItemID uuid.UUID             `json:"order_item_id"`
	OrderID     uuid.UUID             `json:"order_id"`
	ProductID   uuid.UUID             `json:"product_id"`
	From        enums.OrderItemStatus `json:"from"`
	To          enums.OrderItemStatus `json:"to"`
	Restocked   int                   `json:"restocked,omitempty"`
}
