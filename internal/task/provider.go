package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/magpie-engine/magpie/internal/config"
)

// ImmediateProvider is the builtin task-execution provider for synchronous
// profiles.
type ImmediateProvider struct {
	logger *zap.Logger
}

// NewImmediateProvider constructs the inline execution provider.
func NewImmediateProvider(logger *zap.Logger) *ImmediateProvider {
	return &ImmediateProvider{logger: logger}
}

// ProviderID identifies this provider for singleton selection.
func (*ImmediateProvider) ProviderID() string { return "immediate" }

// CreateExecutor builds an inline executor.
func (p *ImmediateProvider) CreateExecutor(_ context.Context, _ *config.Config) (Executor, error) {
	return NewImmediate(p.logger.Named("tasks")), nil
}

// PubSubProvider is the builtin durable task-execution provider.
type PubSubProvider struct {
	logger *zap.Logger
}

// NewPubSubProvider constructs the Pub/Sub execution provider.
func NewPubSubProvider(logger *zap.Logger) *PubSubProvider {
	return &PubSubProvider{logger: logger}
}

// ProviderID identifies this provider for singleton selection.
func (*PubSubProvider) ProviderID() string { return "pubsub" }

// CreateExecutor builds a durable executor from the tasks.pubsub
// configuration section.
func (p *PubSubProvider) CreateExecutor(ctx context.Context, cfg *config.Config) (Executor, error) {
	return NewPubSub(ctx,
		cfg.GetString("tasks.pubsub.project_id", ""),
		cfg.GetString("tasks.pubsub.topic", ""),
		p.logger.Named("tasks"),
	)
}
