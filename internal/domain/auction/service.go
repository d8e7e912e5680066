package auction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flashbid/flashbid/pkg/database"
)

// Validation errors
var (
	ErrInvalidStartPrice = fmt.Errorf("start price must not be negative")
	ErrInvalidBidAmount  = fmt.Errorf("bid amount must be positive")
	ErrNotInitialized    = fmt.Errorf("item not initialized")
)

// Service implements the core bidding logic: arbitration against the
// volatile store on the hot path, durable persistence handed off to the
// write-behind scheduler.
type Service struct {
	arbiter    Arbiter
	scheduler  BidScheduler
	txManager  database.TransactionManager
	itemRepo   ItemRepository
	bidLogRepo BidLogRepository
	logger     *slog.Logger
}

// NewService creates a new auction service
func NewService(
	arbiter Arbiter,
	scheduler BidScheduler,
	txManager database.TransactionManager,
	itemRepo ItemRepository,
	bidLogRepo BidLogRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		arbiter:    arbiter,
		scheduler:  scheduler,
		txManager:  txManager,
		itemRepo:   itemRepo,
		bidLogRepo: bidLogRepo,
		logger:     logger,
	}
}

// Init sets up an auction item in both stores. The durable row is created
// only if absent and the volatile entry is seeded idempotently, so repeating
// the call is a no-op in both layers. Returns whether the volatile entry was
// initialized by this call.
func (s *Service) Init(ctx context.Context, itemID, startPrice int64) (bool, error) {
	if startPrice < 0 {
		return false, ErrInvalidStartPrice
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	item := &Item{
		ID:           itemID,
		Name:         DefaultName(itemID),
		CurrentPrice: startPrice,
		UpdatedAt:    time.Now(),
	}
	if createErr := s.itemRepo.CreateIfAbsent(ctx, tx, item); createErr != nil {
		return false, fmt.Errorf("failed to create item: %w", createErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	initialized, err := s.arbiter.InitItem(ctx, itemID, startPrice)
	if err != nil {
		return false, fmt.Errorf("failed to initialize arbitration entry: %w", err)
	}

	return initialized, nil
}

// PlaceBid runs the atomic raise against the volatile store and, on success,
// schedules the write-behind job before returning. The bidder never waits on
// persistence; a scheduling failure is logged and the bid stays accepted.
func (s *Service) PlaceBid(ctx context.Context, cmd PlaceBidCommand) (bool, error) {
	if cmd.Amount <= 0 {
		return false, ErrInvalidBidAmount
	}

	accepted, err := s.arbiter.RaiseIfHigher(ctx, cmd.ItemID, cmd.Amount, cmd.BidderID)
	if err != nil {
		return false, fmt.Errorf("arbitration failed: %w", err)
	}
	if !accepted {
		return false, nil
	}

	if enqErr := s.scheduler.Enqueue(AcceptedBid{
		ItemID:   cmd.ItemID,
		BidderID: cmd.BidderID,
		Amount:   cmd.Amount,
	}); enqErr != nil {
		s.logger.Error("failed to schedule write-behind job",
			"item_id", cmd.ItemID,
			"bidder_id", cmd.BidderID,
			"amount", cmd.Amount,
			"error", enqErr,
		)
	}

	return true, nil
}

// CurrentInfo reads the live (price, bidder) pair from the volatile store.
// Returns ErrNotInitialized if the item was never initialized.
func (s *Service) CurrentInfo(ctx context.Context, itemID int64) (*CurrentInfo, error) {
	return s.arbiter.CurrentInfo(ctx, itemID)
}

// BidHistory returns the durable ledger rows for an item, newest first.
func (s *Service) BidHistory(ctx context.Context, itemID int64) ([]*BidRecord, error) {
	records, err := s.bidLogRepo.ListByItemID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bid records: %w", err)
	}
	return records, nil
}
