package shardqueue

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrQueueFull reports back-pressure: the shard queue stayed full for the
	// whole EnqueueTimeout.
	ErrQueueFull = errors.New("shard queue full")

	// ErrExecutorClosed reports that Stop was called; no further work is accepted.
	ErrExecutorClosed = errors.New("shard executor closed")

	// ErrNilJob is returned when a nil JobFunc is run.
	ErrNilJob = errors.New("nil job func")
)

// Job is a unit of background work, typically one fetch against the API.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a closure to a Job.
type JobFunc func(ctx context.Context) error

// Run implements Job for JobFunc.
func (f JobFunc) Run(ctx context.Context) error {
	if f == nil {
		return ErrNilJob
	}
	return f(ctx)
}

// QueueFullError carries diagnostics while satisfying errors.Is(_, ErrQueueFull).
type QueueFullError struct {
	Shard    int
	Length   int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("shard queue %d full (len=%d cap=%d)", e.Shard, e.Length, e.Capacity)
}

func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }
