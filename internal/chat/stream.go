package chat

import (
	"context"
	"time"

	stream "github.com/GetStream/stream-chat-go/v6"
)

// StreamClient adapts the Stream Chat SDK to Client.
type StreamClient struct {
	client *stream.Client
}

var _ Client = (*StreamClient)(nil)

func NewStreamClient(apiKey, apiSecret string) (*StreamClient, error) {
	c, err := stream.NewClient(apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &StreamClient{client: c}, nil
}

func (s *StreamClient) UpsertUsers(ctx context.Context, users ...User) error {
	su := make([]*stream.User, 0, len(users))
	for _, u := range users {
		su = append(su, &stream.User{ID: u.ID, Name: u.Name, Role: u.Role})
	}
	_, err := s.client.UpsertUsers(ctx, su...)
	return err
}

// GetOrCreateChannel relies on the provider treating create of an existing
// channel id as a read.
func (s *StreamClient) GetOrCreateChannel(ctx context.Context, channelType, channelID, createdBy string, members []string) (*Channel, error) {
	resp, err := s.client.CreateChannel(ctx, channelType, channelID, createdBy, &stream.ChannelRequest{
		Members: members,
	})
	if err != nil {
		return nil, err
	}
	ch := &Channel{Type: channelType, ID: channelID, CID: channelType + ":" + channelID, Members: members}
	if resp.Channel != nil && resp.Channel.CID != "" {
		ch.CID = resp.Channel.CID
	}
	return ch, nil
}

func (s *StreamClient) CreateToken(userID string, expire time.Time) (string, error) {
	return s.client.CreateToken(userID, expire)
}
