package writebehind

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashbid/flashbid/internal/domain/auction"
)

type fakeRecorder struct {
	mu        sync.Mutex
	jobs      []Job
	recordErr error
}

func (f *fakeRecorder) Record(ctx context.Context, job Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.recordErr
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPool_ProcessesEnqueuedJobs(t *testing.T) {
	recorder := &fakeRecorder{}
	pool := NewPool(recorder, 4, 64, time.Second, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	const jobs = 20
	for i := 0; i < jobs; i++ {
		err := pool.Enqueue(auction.AcceptedBid{ItemID: int64(i), BidderID: "Alice", Amount: 100 + int64(i)})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return recorder.count() == jobs
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestPool_EnqueueAssignsJobIDs(t *testing.T) {
	pool := NewPool(&fakeRecorder{}, 1, 2, time.Second, discardLogger())

	require.NoError(t, pool.Enqueue(auction.AcceptedBid{ItemID: 1, BidderID: "Alice", Amount: 100}))
	require.NoError(t, pool.Enqueue(auction.AcceptedBid{ItemID: 1, BidderID: "Bob", Amount: 200}))

	a := <-pool.jobs
	b := <-pool.jobs
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "Alice", a.BidderID)
	assert.Equal(t, int64(200), b.Amount)
}

func TestPool_EnqueueRejectsWhenFull(t *testing.T) {
	// No workers running: the queue fills up and stays full.
	pool := NewPool(&fakeRecorder{}, 1, 2, time.Second, discardLogger())

	require.NoError(t, pool.Enqueue(auction.AcceptedBid{ItemID: 1, BidderID: "Alice", Amount: 100}))
	require.NoError(t, pool.Enqueue(auction.AcceptedBid{ItemID: 1, BidderID: "Bob", Amount: 200}))

	err := pool.Enqueue(auction.AcceptedBid{ItemID: 1, BidderID: "Carol", Amount: 300})
	assert.ErrorIs(t, err, ErrQueueFull, "a saturated queue must reject instead of blocking the bidder")
}

func TestPool_ShutdownDrainsQueuedJobs(t *testing.T) {
	recorder := &fakeRecorder{}
	pool := NewPool(recorder, 1, 64, time.Second, discardLogger())

	const jobs = 10
	for i := 0; i < jobs; i++ {
		require.NoError(t, pool.Enqueue(auction.AcceptedBid{ItemID: 1, BidderID: "Alice", Amount: 100 + int64(i)}))
	}

	// Cancel before the worker picks anything up: jobs accepted by Enqueue
	// still run to completion during shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, pool.Run(ctx))
	assert.Equal(t, jobs, recorder.count(), "accepted jobs must not be dropped on shutdown")
}

func TestPool_RecorderFailuresDoNotStopWorkers(t *testing.T) {
	recorder := &fakeRecorder{recordErr: fmt.Errorf("db down")}
	pool := NewPool(recorder, 2, 16, time.Second, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Enqueue(auction.AcceptedBid{ItemID: 1, BidderID: "Alice", Amount: int64(i + 1)}))
	}

	require.Eventually(t, func() bool {
		return recorder.count() == 5
	}, 2*time.Second, 10*time.Millisecond, "failed jobs are logged, not fatal")

	cancel()
	assert.NoError(t, <-done)
}
