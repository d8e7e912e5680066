package writebehind

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flashbid/flashbid/internal/domain/auction"
)

// ErrQueueFull is returned by Enqueue when the job queue is saturated. The
// caller logs the loss; the bidder's accepted response is unaffected.
var ErrQueueFull = fmt.Errorf("write-behind queue is full")

// JobRecorder defines the interface for executing a write-behind job
type JobRecorder interface {
	Record(ctx context.Context, job Job) error
}

// Pool is a bounded work queue drained by a fixed set of workers. Bounding
// the queue keeps resource usage flat under bid storms instead of spawning a
// goroutine per accepted bid.
type Pool struct {
	recorder   JobRecorder
	jobs       chan Job
	workers    int
	jobTimeout time.Duration
	logger     *slog.Logger
}

// NewPool creates a new write-behind worker pool
func NewPool(recorder JobRecorder, workers, queueSize int, jobTimeout time.Duration, logger *slog.Logger) *Pool {
	return &Pool{
		recorder:   recorder,
		jobs:       make(chan Job, queueSize),
		workers:    workers,
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

// Enqueue implements auction.BidScheduler. It never blocks the bidder's
// response path: a saturated queue rejects the job with ErrQueueFull.
func (p *Pool) Enqueue(bid auction.AcceptedBid) error {
	job := Job{
		ID:       uuid.New(),
		ItemID:   bid.ItemID,
		BidderID: bid.BidderID,
		Amount:   bid.Amount,
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is cancelled. A job picked up
// by a worker runs on a context detached from the run context, so shutdown
// does not abort an in-flight transaction mid-way; each job is bounded by
// its own timeout instead.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					p.drain(ctx)
					return nil
				case job := <-p.jobs:
					p.process(ctx, job)
				}
			}
		})
	}

	return g.Wait()
}

// drain empties the queue on shutdown. A job accepted by Enqueue was promised
// execution or a logged terminal failure, so queued jobs are processed rather
// than discarded when the run context is cancelled.
func (p *Pool) drain(ctx context.Context) {
	for {
		select {
		case job := <-p.jobs:
			p.process(ctx, job)
		default:
			return
		}
	}
}

func (p *Pool) process(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.jobTimeout)
	defer cancel()

	if err := p.recorder.Record(jobCtx, job); err != nil {
		p.logger.Error("write-behind job failed",
			"job_id", job.ID,
			"item_id", job.ItemID,
			"bidder_id", job.BidderID,
			"amount", job.Amount,
			"error", err,
		)
	}
}
