package pubsub

import (
	"context"
	"errors"

	pubsub "cloud.google.com/go/pubsub/v2"
)

// Message is the transport-neutral shape handed to a TopicPublisher.
type Message struct {
	Data        []byte
	Attributes  map[string]string
	OrderingKey string
}

// TopicPublisher publishes one message and blocks until the server acks it.
type TopicPublisher interface {
	Publish(ctx context.Context, msg Message) (string, error)
}

// TopicAdapter turns a pubsub.Publisher into a TopicPublisher.
type TopicAdapter struct {
	publisher *pubsub.Publisher
}

// NewTopicAdapter wraps the publisher; it returns an error for a nil handle.
func NewTopicAdapter(publisher *pubsub.Publisher) (*TopicAdapter, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher is required")
	}
	return &TopicAdapter{publisher: publisher}, nil
}

// Publish sends the message and waits for the server id.
func (a *TopicAdapter) Publish(ctx context.Context, msg Message) (string, error) {
	result := a.publisher.Publish(ctx, &pubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: msg.OrderingKey,
	})
	return result.Get(ctx)
}

// Stop flushes pending messages.
func (a *TopicAdapter) Stop() {
	if a != nil && a.publisher != nil {
		a.publisher.Stop()
	}
}
