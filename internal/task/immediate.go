package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Immediate runs every scheduled task inline before Schedule returns.
// Deterministic, used by the test and development profiles. Work is lost if
// the process dies mid-task (at-most-once).
type Immediate struct {
	mu      sync.RWMutex
	handler Handler
	logger  *zap.Logger
}

// NewImmediate constructs an inline executor. A handler must be bound before
// the first Schedule call.
func NewImmediate(logger *zap.Logger) *Immediate {
	return &Immediate{logger: logger}
}

// Bind attaches the handler scheduled tasks run through.
func (e *Immediate) Bind(h Handler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

// Schedule assigns the task an id and runs it inline. The handler's error is
// returned to the scheduler, since there is no queue to absorb it.
func (e *Immediate) Schedule(ctx context.Context, t Task) (string, error) {
	e.mu.RLock()
	h := e.handler
	e.mu.RUnlock()
	if h == nil {
		return "", fmt.Errorf("no handler bound to immediate executor")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	e.logger.Debug("running task inline",
		zap.String("task_id", t.ID), zap.String("kind", string(t.Kind)))
	if err := h(ctx, t); err != nil {
		return t.ID, fmt.Errorf("run task %s inline: %w", t.ID, err)
	}
	return t.ID, nil
}

// Close is a no-op for the inline executor.
func (e *Immediate) Close() error { return nil }
