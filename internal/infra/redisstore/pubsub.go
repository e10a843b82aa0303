package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/netcrawl/netcrawl/internal/domain"
)

// channelSize bounds the client-side buffer between the redis reader and the
// single consumer.
const channelSize = 1024

var errSubscriptionClosed = errors.New("subscription closed")

// Subscribe subscribes to channel and waits for redis to confirm before
// returning, so no token published after Subscribe returns is missed.
func (s *Store) Subscribe(ctx context.Context, channel string) (domain.Subscription, error) {
	ps := s.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, unavailable("subscribe "+channel, err)
	}
	return &subscription{ps: ps, ch: ps.Channel(redis.WithChannelSize(channelSize))}, nil
}

// Publish sends token on channel.
func (s *Store) Publish(ctx context.Context, channel string, token int64) error {
	if err := s.client.Publish(ctx, channel, token).Err(); err != nil {
		return unavailable("publish "+channel, err)
	}
	return nil
}

type subscription struct {
	ps *redis.PubSub
	ch <-chan *redis.Message
}

func (s *subscription) Next(ctx context.Context) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case msg, ok := <-s.ch:
		if !ok {
			return 0, unavailable("receive", errSubscriptionClosed)
		}
		token, err := strconv.ParseInt(strings.TrimSpace(msg.Payload), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q on %s", domain.ErrBadToken, msg.Payload, msg.Channel)
		}
		return token, nil
	}
}

func (s *subscription) Close() error {
	return s.ps.Close()
}
