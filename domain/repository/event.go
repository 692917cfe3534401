package repository

import (
	"context"
)

// IEventPublisher fans connection lifecycle events out to the rest of the
// platform (scheduler, analytics). Publishing is fire-and-forget from the
// connection usecase's point of view; failures are logged, never surfaced.
type IEventPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}
