// Package chat provisions two-party consult channels with the external chat provider.
package chat

import (
	"context"
	"errors"
	"time"
)

// ErrProvisioningUnavailable means the provider could not be reached in time.
// Callers may retry the whole operation.
var ErrProvisioningUnavailable = errors.New("chat provisioning unavailable")

// Channel references a provider channel. It is not persisted locally.
type Channel struct {
	Type    string   `json:"type"`
	ID      string   `json:"id"`
	CID     string   `json:"cid"`
	Members []string `json:"members"`
}

// User is a participant registered with the provider.
type User struct {
	ID   string
	Name string
	Role string
}

// Client is the narrow provider API the provisioner needs.
type Client interface {
	UpsertUsers(ctx context.Context, users ...User) error
	GetOrCreateChannel(ctx context.Context, channelType, channelID, createdBy string, members []string) (*Channel, error)
	CreateToken(userID string, expire time.Time) (string, error)
}

// ChannelCache remembers channels that were already provisioned.
type ChannelCache interface {
	Get(ctx context.Context, channelID string) (*Channel, bool, error)
	Put(ctx context.Context, ch *Channel) error
}

// MetricsRecorder records provisioning failures.
type MetricsRecorder interface {
	RecordProvisioningFailure(ctx context.Context)
}
