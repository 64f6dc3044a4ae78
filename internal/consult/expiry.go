package consult

import (
	"context"
	"fmt"
	"time"

	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/doctorsaathi/consult-service/internal/messaging"
	"github.com/rs/zerolog/log"
)

// RetentionPeriod defines how long completed consults are kept (2 days)
const RetentionPeriod = 48 * time.Hour

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = 10 * time.Minute

// ExpiryRepository is the part of the repository the sweep needs.
type ExpiryRepository interface {
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpiryMetrics records purged records.
type ExpiryMetrics interface {
	RecordExpired(ctx context.Context, n int64)
}

// ExpiryService permanently deletes completed consults past the retention period
type ExpiryService struct {
	repo      ExpiryRepository
	publisher messaging.PublisherInterface
	metrics   ExpiryMetrics
	now       func() time.Time
}

// NewExpiryService creates a new expiry service
func NewExpiryService(repo ExpiryRepository, publisher messaging.PublisherInterface, metrics ExpiryMetrics) *ExpiryService {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &ExpiryService{repo: repo, publisher: publisher, metrics: metrics, now: time.Now}
}

func (s *ExpiryService) cutoff() time.Time {
	return s.now().Add(-RetentionPeriod)
}

// Sweep deletes every completed consult whose completion is older than RetentionPeriod.
func (s *ExpiryService) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.cutoff()
	logger := logging.FromContext(ctx)
	logger.Debug().Time("cutoff", cutoff).Msg("Starting cleanup of completed consults")

	n, err := s.repo.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expiry sweep: %w", err)
	}
	if n == 0 {
		logger.Debug().Msg("No expired consults found for cleanup")
		return 0, nil
	}

	logger.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("Purged expired consults")
	if s.metrics != nil {
		s.metrics.RecordExpired(ctx, n)
	}

	event := messaging.ConsultsExpiredEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventConsultExpired),
		Data:      messaging.ConsultsExpiredData{Purged: n, Cutoff: cutoff.UTC()},
	}
	if err := s.publisher.Publish(ctx, messaging.EventConsultExpired, event); err != nil {
		logger.Warn().Err(err).Msg("Warning: failed to publish consult.expired event")
	}
	return n, nil
}

// CountExpired returns the number of consults the next sweep would remove.
func (s *ExpiryService) CountExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.CountCompletedBefore(ctx, s.cutoff())
	if err != nil {
		return 0, fmt.Errorf("count expired: %w", err)
	}
	return n, nil
}

// Sweeper runs the expiry sweep on a fixed interval until its context ends.
type Sweeper struct {
	service  *ExpiryService
	interval time.Duration
}

func NewSweeper(service *ExpiryService, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{service: service, interval: interval}
}

// Run sweeps once immediately and then on every tick. A failed sweep is
// logged and the next tick tries again.
func (w *Sweeper) Run(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("✓ Expiry sweeper started")
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Expiry sweeper stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Sweeper) tick(ctx context.Context) {
	if _, err := w.service.Sweep(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("expiry sweep failed")
	}
}
