package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/veritrace/veritrace-backend/pkg/redis"
)

// RedisSink publishes event envelopes to a redis channel for the external
// indexing service to consume.
type RedisSink struct {
	publisher redis.Publisher
	channel   string
}

// NewRedisSink wires a sink onto the given channel.
func NewRedisSink(publisher redis.Publisher, channel string) (*RedisSink, error) {
	if publisher == nil {
		return nil, errors.New("redis publisher required")
	}
	if channel == "" {
		return nil, errors.New("redis channel required")
	}
	return &RedisSink{publisher: publisher, channel: channel}, nil
}

func (s *RedisSink) Emit(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event envelope: %w", err)
	}
	if err := s.publisher.Publish(ctx, s.channel, payload); err != nil {
		return fmt.Errorf("publishing event %s: %w", event.EventID, err)
	}
	return nil
}
