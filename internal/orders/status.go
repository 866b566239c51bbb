package orders

import "github.com/angelmondragon/marketplace-backend/pkg/enums"

const overallStatusUnknown = "Unknown"

var providerTransitions = map[enums.OrderItemStatus][]enums.OrderItemStatus{
	enums.OrderItemStatusPending: {
		enums.OrderItemStatusProcessing,
		enums.OrderItemStatusShipped,
		enums.OrderItemStatusDelivered,
		enums.OrderItemStatusCancelled,
	},
	enums.OrderItemStatusProcessing: {
		enums.OrderItemStatusShipped,
		enums.OrderItemStatusDelivered,
		enums.OrderItemStatusCancelled,
	},
	enums.OrderItemStatusShipped: {
		enums.OrderItemStatusDelivered,
	},
}

// CanProviderTransition reports whether a provider may move an item from one
// status to the next. Providers only move forward; admins bypass this check.
func CanProviderTransition(from, to enums.OrderItemStatus) bool {
	for _, next := range providerTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OverallStatus derives the display status of a multi-item order.
func OverallStatus(statuses []enums.OrderItemStatus) string {
	if len(statuses) == 0 {
		return overallStatusUnknown
	}
	shipped := 0
	for _, s := range statuses {
		if s == enums.OrderItemStatusPending {
			return s.String()
		}
	}
	for _, s := range statuses {
		if s == enums.OrderItemStatusProcessing {
			return s.String()
		}
		if s == enums.OrderItemStatusShipped {
			shipped++
		}
	}
	if shipped == len(statuses) {
		return enums.OrderItemStatusShipped.String()
	}
	if shipped > 0 {
		return enums.OverallStatusPartiallyShipped
	}
	return statuses[0].String()
}
