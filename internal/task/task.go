// Package task defines the task-execution abstraction bridging the
// synchronous and durable-queue execution models. A scheduled unit either
// runs inline before Schedule returns (immediate model, at-most-once) or is
// persisted to a queue and executed later by an independent worker with its
// own service context (durable model, at-least-once). The serialized payload
// is the only medium connecting scheduler and worker.
package task

import (
	"context"

	"github.com/magpie-engine/magpie/internal/metadata"
)

// Kind discriminates the pipeline stage a task belongs to.
type Kind string

// Task kinds scheduled by the content pipeline.
const (
	KindFetch   Kind = "fetch"
	KindExtract Kind = "extract"
)

// Task is the self-contained unit of scheduled work. It must marshal
// cleanly: durable executors persist it and workers reconstruct it with no
// other shared state.
type Task struct {
	ID       string            `json:"id"`
	Kind     Kind              `json:"kind"`
	URL      string            `json:"url"`
	Content  []byte            `json:"content,omitempty"`
	Metadata metadata.Metadata `json:"metadata"`
}

// Handler executes one task.
type Handler func(ctx context.Context, t Task) error

// Executor schedules tasks for execution. Bind attaches the handler tasks
// run through; for durable executors the binding only matters on the worker
// side, scheduling alone never invokes it.
type Executor interface {
	Schedule(ctx context.Context, t Task) (string, error)
	Bind(h Handler)
	Close() error
}
