package auction

import (
	"fmt"
	"time"
)

// Item is the durable projection of an auction item. The volatile store is
// authoritative for arbitration; this row is an eventually-consistent mirror
// maintained by the write-behind pipeline.
type Item struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	CurrentPrice int64     `db:"current_price"` // in cents
	UpdatedAt    time.Time `db:"updated_at"`
}

// BidRecord is one row of the append-only bid ledger. Records are never
// mutated or deleted. CreatedAt reflects when the write-behind task ran,
// not the arbitration instant.
type BidRecord struct {
	ID        int64     `db:"id"`
	ItemID    int64     `db:"item_id"`
	BidderID  string    `db:"bidder_id"`
	Amount    int64     `db:"amount"` // in cents
	CreatedAt time.Time `db:"created_at"`
}

// CurrentInfo is the live (price, bidder) pair read from the volatile store.
type CurrentInfo struct {
	ItemID int64
	Price  int64 // in cents
	Bidder string
}

// SystemBidder marks a freshly initialized item that nobody has bid on yet.
const SystemBidder = "system"

// PlaceBidCommand represents the command to place a bid
type PlaceBidCommand struct {
	ItemID   int64
	BidderID string
	Amount   int64 // in cents
}

// AcceptedBid is the success signal handed to the write-behind scheduler
// after arbitration accepted a bid.
type AcceptedBid struct {
	ItemID   int64
	BidderID string
	Amount   int64 // in cents
}

// DefaultName derives the display name for items created lazily by the
// write-behind pipeline or by initialization.
func DefaultName(itemID int64) string {
	return fmt.Sprintf("Item-%d", itemID)
}
