package pubsub

import (
	"context"

	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// NewPubSub creates a Google Pub/Sub client for the configured project.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return client, nil
}

type EventPublisher struct {
	client *pubsub.Client
}

// NewEventPublisher publishes connection lifecycle events to Pub/Sub topics so
// downstream consumers (scheduler, analytics) can react to account changes.
func NewEventPublisher(client *pubsub.Client) repository.IEventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) Publish(ctx context.Context, topicName string, payload []byte) error {
	topic := p.client.Topic(topicName)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", topicName).Info("Topic doesn't exist - creating it")
		if _, err := p.client.CreateTopic(ctx, topicName); err != nil {
			return err
		}
		topic = p.client.Topic(topicName)
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("serverID", serverID).WithField("topic", topicName).Debug("Event published")
	return nil
}
