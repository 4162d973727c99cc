package task

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PubSub persists scheduled tasks to a Google Cloud Pub/Sub topic. Tasks are
// executed later by an independent worker process consuming the paired
// subscription; a unit stays queued until the worker acknowledges it
// (at-least-once). Authentication uses Application Default Credentials.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSub creates a client and verifies the topic exists, failing fast on
// misconfiguration.
func NewPubSub(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSub, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("tasks.pubsub.project_id and tasks.pubsub.topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}
	return &PubSub{client: client, topic: topic, logger: logger}, nil
}

// Bind is a no-op on the scheduling side: the handler lives in the worker
// process that consumes the subscription.
func (e *PubSub) Bind(Handler) {}

// Schedule marshals the task and publishes it, blocking until the server
// acknowledges so the returned id refers to a durably queued unit.
func (e *PubSub) Schedule(ctx context.Context, t Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	result := e.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"kind": string(t.Kind)},
	})
	serverID, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish task %s: %w", t.ID, err)
	}
	e.logger.Debug("task queued",
		zap.String("task_id", t.ID),
		zap.String("kind", string(t.Kind)),
		zap.String("message_id", serverID))
	return t.ID, nil
}

// Close stops the topic's publisher and closes the client.
func (e *PubSub) Close() error {
	e.topic.Stop()
	if err := e.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
