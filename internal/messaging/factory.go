package messaging

import (
	"fmt"

	"github.com/doctorsaathi/consult-service/internal/config"
)

// New returns the publisher for the configured backend.
func New(cfg config.MessagingConfig) (PublisherInterface, error) {
	switch cfg.Backend {
	case "", "rabbitmq":
		return NewRabbitPublisher(cfg.RabbitMQURL)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers)
	case "none":
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
	}
}
