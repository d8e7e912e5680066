package auction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArbiter struct {
	acceptNext bool
	raiseErr   error
	raiseCalls []PlaceBidCommand
	info       *CurrentInfo
	infoErr    error
}

func (f *fakeArbiter) InitItem(ctx context.Context, itemID, startPrice int64) (bool, error) {
	return true, nil
}

func (f *fakeArbiter) CurrentInfo(ctx context.Context, itemID int64) (*CurrentInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

func (f *fakeArbiter) RaiseIfHigher(ctx context.Context, itemID, amount int64, bidderID string) (bool, error) {
	f.raiseCalls = append(f.raiseCalls, PlaceBidCommand{ItemID: itemID, BidderID: bidderID, Amount: amount})
	return f.acceptNext, f.raiseErr
}

type fakeScheduler struct {
	enqueued   []AcceptedBid
	enqueueErr error
}

func (f *fakeScheduler) Enqueue(bid AcceptedBid) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.enqueued = append(f.enqueued, bid)
	return nil
}

func newTestService(arbiter *fakeArbiter, scheduler *fakeScheduler) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(arbiter, scheduler, nil, nil, nil, logger)
}

func TestService_PlaceBid(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted bid schedules exactly one write-behind job", func(t *testing.T) {
		arbiter := &fakeArbiter{acceptNext: true}
		scheduler := &fakeScheduler{}
		svc := newTestService(arbiter, scheduler)

		accepted, err := svc.PlaceBid(ctx, PlaceBidCommand{ItemID: 1, BidderID: "Alice", Amount: 10500})
		require.NoError(t, err)
		assert.True(t, accepted)

		require.Len(t, scheduler.enqueued, 1)
		assert.Equal(t, AcceptedBid{ItemID: 1, BidderID: "Alice", Amount: 10500}, scheduler.enqueued[0])
	})

	t.Run("rejected bid schedules nothing", func(t *testing.T) {
		arbiter := &fakeArbiter{acceptNext: false}
		scheduler := &fakeScheduler{}
		svc := newTestService(arbiter, scheduler)

		accepted, err := svc.PlaceBid(ctx, PlaceBidCommand{ItemID: 1, BidderID: "Bob", Amount: 10200})
		require.NoError(t, err)
		assert.False(t, accepted)
		assert.Empty(t, scheduler.enqueued)
	})

	t.Run("arbitration failure schedules nothing", func(t *testing.T) {
		arbiter := &fakeArbiter{raiseErr: fmt.Errorf("connection refused")}
		scheduler := &fakeScheduler{}
		svc := newTestService(arbiter, scheduler)

		accepted, err := svc.PlaceBid(ctx, PlaceBidCommand{ItemID: 1, BidderID: "Alice", Amount: 10500})
		require.Error(t, err)
		assert.False(t, accepted)
		assert.Empty(t, scheduler.enqueued)
	})

	t.Run("scheduling failure does not reverse an accepted bid", func(t *testing.T) {
		arbiter := &fakeArbiter{acceptNext: true}
		scheduler := &fakeScheduler{enqueueErr: fmt.Errorf("queue is full")}
		svc := newTestService(arbiter, scheduler)

		accepted, err := svc.PlaceBid(ctx, PlaceBidCommand{ItemID: 1, BidderID: "Alice", Amount: 10500})
		require.NoError(t, err)
		assert.True(t, accepted, "write-behind problems must never reach the bidder")
	})

	t.Run("non-positive amounts are rejected before arbitration", func(t *testing.T) {
		for _, amount := range []int64{0, -100} {
			arbiter := &fakeArbiter{acceptNext: true}
			scheduler := &fakeScheduler{}
			svc := newTestService(arbiter, scheduler)

			accepted, err := svc.PlaceBid(ctx, PlaceBidCommand{ItemID: 1, BidderID: "Alice", Amount: amount})
			assert.ErrorIs(t, err, ErrInvalidBidAmount)
			assert.False(t, accepted)
			assert.Empty(t, arbiter.raiseCalls)
		}
	})
}

func TestService_Init_RejectsNegativeStartPrice(t *testing.T) {
	svc := newTestService(&fakeArbiter{}, &fakeScheduler{})

	initialized, err := svc.Init(context.Background(), 1, -1)
	assert.ErrorIs(t, err, ErrInvalidStartPrice)
	assert.False(t, initialized)
}

func TestService_CurrentInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the live pair", func(t *testing.T) {
		arbiter := &fakeArbiter{info: &CurrentInfo{ItemID: 1, Price: 10500, Bidder: "Alice"}}
		svc := newTestService(arbiter, &fakeScheduler{})

		info, err := svc.CurrentInfo(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(10500), info.Price)
		assert.Equal(t, "Alice", info.Bidder)
	})

	t.Run("propagates not-initialized", func(t *testing.T) {
		arbiter := &fakeArbiter{infoErr: ErrNotInitialized}
		svc := newTestService(arbiter, &fakeScheduler{})

		_, err := svc.CurrentInfo(ctx, 404)
		assert.ErrorIs(t, err, ErrNotInitialized)
	})
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "Item-42", DefaultName(42))
}
