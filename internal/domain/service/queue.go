package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// DispatchJob is a decided interaction waiting to be delivered.
type DispatchJob struct {
	Interaction model.Interaction
	// RecipientID is the platform id of the sender, used for direct messages.
	RecipientID string
	// Lead, when set, is announced to operators before the reply goes out.
	Lead *outbound.LeadNotification
}

// JobRunner accepts decided interactions for delivery.
type JobRunner interface {
	Submit(ctx context.Context, job DispatchJob)
}

// InlineRunner dispatches on the caller's goroutine.
type InlineRunner struct {
	Dispatcher *Dispatcher
}

func (r InlineRunner) Submit(ctx context.Context, job DispatchJob) {
	r.Dispatcher.Dispatch(ctx, job)
}

// DispatchQueue runs dispatch jobs on a fixed set of workers after the
// callback has been acknowledged. A full queue falls back to inline dispatch.
type DispatchQueue struct {
	dispatcher *Dispatcher
	workers    int
	jobs       chan DispatchJob
	logger     *slog.Logger

	wg      conc.WaitGroup
	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewDispatchQueue(dispatcher *Dispatcher, workers, size int, logger *slog.Logger) *DispatchQueue {
	if workers <= 0 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchQueue{
		dispatcher: dispatcher,
		workers:    workers,
		jobs:       make(chan DispatchJob, size),
		logger:     logger,
	}
}

// Start launches the workers. Jobs keep the values of ctx but not its
// cancellation, so Close can drain what is queued.
func (q *DispatchQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	base := context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Go(func() {
			for job := range q.jobs {
				q.run(base, job)
			}
		})
	}
	q.logger.Info("dispatch queue started", "workers", q.workers, "capacity", cap(q.jobs))
}

// Submit enqueues job, or dispatches it inline when the queue is full, not
// started or already closed.
func (q *DispatchQueue) Submit(ctx context.Context, job DispatchJob) {
	q.mu.RLock()
	if q.started && !q.closed {
		select {
		case q.jobs <- job:
			q.mu.RUnlock()
			return
		default:
		}
	}
	q.mu.RUnlock()

	q.logger.Warn("dispatch queue unavailable, dispatching inline", "interactionID", job.Interaction.ID)
	q.run(context.WithoutCancel(ctx), job)
}

// Close stops accepting jobs and waits for queued ones to finish.
func (q *DispatchQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("dispatch queue drained")
}

// Len reports the number of queued jobs.
func (q *DispatchQueue) Len() int {
	return len(q.jobs)
}

func (q *DispatchQueue) run(ctx context.Context, job DispatchJob) {
	var pc panics.Catcher
	pc.Try(func() { q.dispatcher.Dispatch(ctx, job) })
	if r := pc.Recovered(); r != nil {
		q.logger.Error("dispatch panicked", "interactionID", job.Interaction.ID, "panic", r.Value)
	}
}
