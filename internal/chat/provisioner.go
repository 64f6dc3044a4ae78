package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultTimeout = 5 * time.Second
	// TokenTTL is the lifetime of client tokens handed to the frontend.
	TokenTTL = 24 * time.Hour
)

var tracer = otel.Tracer("github.com/doctorsaathi/consult-service/chat")

// Provisioner ensures a channel exists for a doctor and patient pair.
type Provisioner struct {
	client        Client
	cache         ChannelCache
	metrics       MetricsRecorder
	timeout       time.Duration
	retryInterval time.Duration
}

func NewProvisioner(client Client, cache ChannelCache, timeout time.Duration, metrics MetricsRecorder) *Provisioner {
	if cache == nil {
		cache = NopChannelCache{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Provisioner{
		client:        client,
		cache:         cache,
		metrics:       metrics,
		timeout:       timeout,
		retryInterval: 200 * time.Millisecond,
	}
}

// EnsureChannel returns the channel for (doctorID, patientID), creating it and
// registering both participants if needed. Repeat calls return the same channel.
func (p *Provisioner) EnsureChannel(ctx context.Context, doctorID, patientID string) (*Channel, error) {
	doctorUser := DoctorUserID(doctorID)
	patientUser := PatientUserID(patientID)
	channelID := ChannelID(doctorUser, patientUser)

	ctx, span := tracer.Start(ctx, "chat.EnsureChannel")
	defer span.End()
	span.SetAttributes(attribute.String("chat.channel_id", channelID))

	logger := logging.FromContext(ctx)

	if ch, ok, err := p.cache.Get(ctx, channelID); err != nil {
		logger.Warn().Err(err).Str("channel_id", channelID).Msg("channel cache lookup failed, asking provider")
	} else if ok {
		span.SetAttributes(attribute.Bool("chat.cache_hit", true))
		return ch, nil
	}

	var ch *Channel
	op := func() error {
		var err error
		ch, err = p.provision(ctx, channelID, doctorUser, patientUser)
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), 1), ctx)
	notify := func(err error, wait time.Duration) {
		logger.Warn().Err(err).Dur("retry_in", wait).Str("channel_id", channelID).Msg("chat provisioning failed, retrying")
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provisioning failed")
		if p.metrics != nil {
			p.metrics.RecordProvisioningFailure(ctx)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvisioningUnavailable, err)
	}

	if err := p.cache.Put(ctx, ch); err != nil {
		logger.Warn().Err(err).Str("channel_id", channelID).Msg("failed to remember provisioned channel")
	}
	return ch, nil
}

func (p *Provisioner) provision(ctx context.Context, channelID, doctorUser, patientUser string) (*Channel, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.UpsertUsers(callCtx,
		User{ID: doctorUser, Role: "user"},
		User{ID: patientUser, Role: "user"},
	); err != nil {
		return nil, fmt.Errorf("upsert users: %w", err)
	}

	callCtx, cancel = context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ch, err := p.client.GetOrCreateChannel(callCtx, ChannelType, channelID, doctorUser, []string{doctorUser, patientUser})
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}
	return ch, nil
}

// Token registers userID with the provider and returns a client token for it.
func (p *Provisioner) Token(ctx context.Context, userID, name string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.UpsertUsers(callCtx, User{ID: userID, Name: name, Role: "user"}); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvisioningUnavailable, err)
	}
	return p.client.CreateToken(userID, time.Now().Add(TokenTTL))
}

func (p *Provisioner) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInterval
	b.MaxElapsedTime = 4 * p.timeout
	return b
}
