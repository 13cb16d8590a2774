package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/veritrace/veritrace-backend/pkg/config"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// PubSubSink publishes event envelopes to a GCP Pub/Sub topic.
type PubSubSink struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewPubSubSink creates a Pub/Sub v2 client and verifies the topic exists.
func NewPubSubSink(ctx context.Context, gcp config.GCPConfig, topic string) (*PubSubSink, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("pubsub topic is required")
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	fullName := topicResourceName(gcp.ProjectID, topic)
	_, err = psClient.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
	if err != nil {
		_ = psClient.Close()
		// v2 uses gRPC errors; NotFound means the topic doesn't exist.
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("topic %q does not exist", topic)
		}
		return nil, fmt.Errorf("checking topic %q: %w", topic, err)
	}

	return &PubSubSink{
		client:    psClient,
		publisher: psClient.Publisher(fullName),
	}, nil
}

func (s *PubSubSink) Emit(ctx context.Context, event Event) error {
	if s == nil || s.publisher == nil {
		return errors.New("pubsub sink not initialized")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event envelope: %w", err)
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type":    event.Type.String(),
			"eventId": event.EventID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing event %s: %w", event.EventID, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *PubSubSink) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func topicResourceName(projectID, topic string) string {
	if strings.HasPrefix(topic, "projects/") {
		return topic
	}
	return fmt.Sprintf("projects/%s/topics/%s", projectID, topic)
}
