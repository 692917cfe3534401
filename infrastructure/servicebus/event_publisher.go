package servicebus

import (
	"context"
	"fmt"
	"os"

	"social-hub/domain/repository"
	"social-hub/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus creates an Azure Service Bus client. A connection string from
// SERVICEBUS_CONNECTION_STRING takes precedence; otherwise the namespace host
// is required and the connection string must be provided some other way.
func NewServiceBus(namespace string) (*azservicebus.Client, error) {
	if connStr := os.Getenv("SERVICEBUS_CONNECTION_STRING"); connStr != "" {
		return azservicebus.NewClientFromConnectionString(connStr, nil)
	}
	if namespace == "" {
		return nil, fmt.Errorf("service bus namespace not configured")
	}
	return nil, fmt.Errorf("service bus requires SERVICEBUS_CONNECTION_STRING")
}

type EventPublisher struct {
	client *azservicebus.Client
	queue  string
}

// NewEventPublisher publishes connection lifecycle events to a Service Bus
// queue. The queue name doubles as the topic argument of Publish when set.
func NewEventPublisher(client *azservicebus.Client, queue string) repository.IEventPublisher {
	if queue == "" {
		queue = "connection-events"
	}
	return &EventPublisher{client: client, queue: queue}
}

func (p *EventPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	queue := p.queue
	if topic != "" {
		queue = topic
	}
	sender, err := p.client.NewSender(queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if cerr := sender.Close(ctx); cerr != nil {
			logger.GetLogger().WithField("error", cerr).Error("Error while closing sender.")
		}
	}()

	return sender.SendMessage(ctx, &azservicebus.Message{Body: payload}, nil)
}
