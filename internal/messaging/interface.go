package messaging

import "context"

// PublisherInterface is implemented by every event backend and by the test mock.
// Callers publish after their database work commits and treat errors as log-only.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

var (
	_ PublisherInterface = (*RabbitPublisher)(nil)
	_ PublisherInterface = (*KafkaPublisher)(nil)
	_ PublisherInterface = NopPublisher{}
)
