package auction

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Arbiter defines the interface for the volatile arbitration store. The
// implementation must make RaiseIfHigher atomic per item key: no two
// concurrent callers may both win with candidates only one could have won.
type Arbiter interface {
	// InitItem seeds (startPrice, "system") for the item if and only if no
	// volatile entry exists. Returns whether it performed the initialization.
	InitItem(ctx context.Context, itemID, startPrice int64) (bool, error)

	// CurrentInfo returns the live (price, bidder) pair, or ErrNotInitialized
	// if the item has no volatile entry. Side-effect free.
	CurrentInfo(ctx context.Context, itemID int64) (*CurrentInfo, error)

	// RaiseIfHigher atomically compares amount against the stored price
	// (a missing key reads as 0) and replaces both price and bidder in a
	// single indivisible step iff amount is strictly greater. An equal bid
	// never displaces the incumbent.
	RaiseIfHigher(ctx context.Context, itemID, amount int64, bidderID string) (bool, error)
}

// BidScheduler defines the interface for handing an accepted bid to the
// write-behind pipeline. Enqueue must not block the bidder; a full queue is
// reported as an error so the caller can log the loss instead of waiting.
type BidScheduler interface {
	Enqueue(bid AcceptedBid) error
}

// ItemRepository defines the interface for durable item persistence
type ItemRepository interface {
	// CreateIfAbsent inserts the item row within a transaction, leaving an
	// existing row untouched.
	CreateIfAbsent(ctx context.Context, tx pgx.Tx, item *Item) error

	// UpsertCurrentPrice creates the item row with the given price, or raises
	// current_price when amount is strictly greater than the latest committed
	// value. The comparison is re-evaluated inside the transaction, so
	// concurrent write-behind commits preserve the non-decreasing invariant.
	UpsertCurrentPrice(ctx context.Context, tx pgx.Tx, itemID int64, name string, amount int64) error

	// GetByID retrieves the durable item row
	GetByID(ctx context.Context, itemID int64) (*Item, error)
}

// BidLogRepository defines the interface for the append-only bid ledger
type BidLogRepository interface {
	// Insert appends a bid record within a transaction and fills in the
	// store-assigned ID.
	Insert(ctx context.Context, tx pgx.Tx, rec *BidRecord) error

	// ListByItemID retrieves the ledger rows for an item, newest first
	ListByItemID(ctx context.Context, itemID int64) ([]*BidRecord, error)
}
