package task

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// receiver abstracts pubsub.Subscription.Receive for testing.
type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Worker consumes durable task payloads and executes them through a handler
// built from the worker's own service context. A failed task is nacked and
// redelivered, preserving at-least-once semantics.
type Worker struct {
	sub     receiver
	handler Handler
	logger  *zap.Logger
}

// NewWorker constructs a worker over an existing subscription handle.
func NewWorker(sub receiver, handler Handler, logger *zap.Logger) *Worker {
	return &Worker{sub: sub, handler: handler, logger: logger}
}

// NewPubSubWorker creates its own client and subscription handle, then
// wraps them in a Worker. Callers own closing the returned client.
func NewPubSubWorker(
	ctx context.Context, projectID, subscriptionID string, handler Handler, logger *zap.Logger,
) (*Worker, *pubsub.Client, error) {
	if projectID == "" || subscriptionID == "" {
		return nil, nil, fmt.Errorf("tasks.pubsub.project_id and tasks.pubsub.subscription are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	sub := client.Subscription(subscriptionID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after subscription check failure", zap.Error(closeErr))
		}
		return nil, nil, fmt.Errorf("check pubsub subscription %q: %w", subscriptionID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after subscription check failure", zap.Error(closeErr))
		}
		return nil, nil, fmt.Errorf("pubsub subscription %q does not exist in project %q",
			subscriptionID, projectID)
	}
	return NewWorker(sub, handler, logger), client, nil
}

// Run blocks consuming the subscription until the context finishes.
func (w *Worker) Run(ctx context.Context) error {
	err := w.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		var t Task
		if err := json.Unmarshal(msg.Data, &t); err != nil {
			// Malformed payloads can never succeed; drop them instead of
			// redelivering forever.
			w.logger.Error("drop malformed task payload", zap.Error(err))
			msg.Ack()
			return
		}
		if err := w.handler(ctx, t); err != nil {
			w.logger.Error("task failed, requeueing",
				zap.String("task_id", t.ID),
				zap.String("kind", string(t.Kind)),
				zap.Error(err))
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("receive tasks: %w", err)
	}
	return nil
}
