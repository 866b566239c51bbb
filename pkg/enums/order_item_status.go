package enums

import "fmt"

// OrderItemStatus tracks the fulfillment state of a single order line.
type OrderItemStatus string

const (
	OrderItemStatusPending    OrderItemStatus = "Pending"
	OrderItemStatusProcessing OrderItemStatus = "Processing"
	OrderItemStatusShipped    OrderItemStatus = "Shipped"
	OrderItemStatusDelivered  OrderItemStatus = "Delivered"
	OrderItemStatusCancelled  OrderItemStatus = "Cancelled"
)

// OverallStatusPartiallyShipped is only ever derived for display; it is never stored.
const OverallStatusPartiallyShipped = "Partially Shipped"

var validOrderItemStatuses = []OrderItemStatus{
	OrderItemStatusPending,
	OrderItemStatusProcessing,
	OrderItemStatusShipped,
	OrderItemStatusDelivered,
	OrderItemStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderItemStatus.
func (s OrderItemStatus) IsValid() bool {
	for _, candidate := range validOrderItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
func (s OrderItemStatus) IsTerminal() bool {
	return s == OrderItemStatusDelivered || s == OrderItemStatusCancelled
}

// ParseOrderItemStatus converts raw input into an OrderItemStatus.
func ParseOrderItemStatus(value string) (OrderItemStatus, error) {
	for _, candidate := range validOrderItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item status %q", value)
}
