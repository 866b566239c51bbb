package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateOrderItem OutboxAggregateType = "order_item"
)

// OutboxEventType is stored in outbox_events.event_type and sent as the
// event_type message attribute.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventOrderItemStatusChanged OutboxEventType = "order_item_status_changed"
)

var (
	aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateOrderItem}
	eventTypes     = []OutboxEventType{EventOrderCreated, EventOrderItemStatusChanged}
)

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

// ParseOutboxEventType accepts only the exact stored spelling.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
