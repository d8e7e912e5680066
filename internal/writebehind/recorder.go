// Package writebehind folds accepted bids into the durable store after the
// bidder has already received a response. It is one-directional: nothing
// here ever reads from or feeds back into the arbitration store, and its
// failures never affect arbitration correctness or availability.
package writebehind

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flashbid/flashbid/internal/adapters/events"
	"github.com/flashbid/flashbid/internal/domain/auction"
	"github.com/flashbid/flashbid/pkg/database"
)

// Job carries one accepted bid to the durable store. The ID exists only for
// log correlation across enqueue, execution, and failure lines.
type Job struct {
	ID       uuid.UUID
	ItemID   int64
	BidderID string
	Amount   int64
}

// EventPublisher defines the interface for publishing recorded-bid events
// to a message broker
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// bidRecordedEvent is the JSON payload published after a successful commit
type bidRecordedEvent struct {
	JobID      string    `json:"job_id"`
	RecordID   int64     `json:"record_id"`
	ItemID     int64     `json:"item_id"`
	BidderID   string    `json:"bidder_id"`
	Amount     int64     `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Recorder executes write-behind jobs: one transaction appending the ledger
// row and upserting the durable price snapshot. Delivery is at-most-once; a
// failed transaction is logged by the pool and never retried.
type Recorder struct {
	txManager  database.TransactionManager
	itemRepo   auction.ItemRepository
	bidLogRepo auction.BidLogRepository
	publisher  EventPublisher // optional, may be nil
	logger     *slog.Logger
}

// NewRecorder creates a new write-behind recorder. publisher may be nil when
// no broker is configured.
func NewRecorder(
	txManager database.TransactionManager,
	itemRepo auction.ItemRepository,
	bidLogRepo auction.BidLogRepository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Recorder {
	return &Recorder{
		txManager:  txManager,
		itemRepo:   itemRepo,
		bidLogRepo: bidLogRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

// Record persists one accepted bid. The item upsert and the ledger append
// commit or roll back together.
func (r *Recorder) Record(ctx context.Context, job Job) error {
	tx, err := r.txManager.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Upsert before the append so the ledger's foreign key is satisfied when
	// the item row does not exist yet.
	if upsertErr := r.itemRepo.UpsertCurrentPrice(ctx, tx, job.ItemID, auction.DefaultName(job.ItemID), job.Amount); upsertErr != nil {
		return fmt.Errorf("failed to upsert current price: %w", upsertErr)
	}

	rec := &auction.BidRecord{
		ItemID:    job.ItemID,
		BidderID:  job.BidderID,
		Amount:    job.Amount,
		CreatedAt: time.Now(),
	}
	if insertErr := r.bidLogRepo.Insert(ctx, tx, rec); insertErr != nil {
		return fmt.Errorf("failed to append bid record: %w", insertErr)
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", commitErr)
	}

	r.publishRecorded(ctx, job, rec)

	return nil
}

// publishRecorded emits a bid.recorded event after the commit. The record is
// already durable, so a publish failure is logged only.
func (r *Recorder) publishRecorded(ctx context.Context, job Job, rec *auction.BidRecord) {
	if r.publisher == nil {
		return
	}

	payload, err := json.Marshal(bidRecordedEvent{
		JobID:      job.ID.String(),
		RecordID:   rec.ID,
		ItemID:     rec.ItemID,
		BidderID:   rec.BidderID,
		Amount:     rec.Amount,
		RecordedAt: rec.CreatedAt,
	})
	if err != nil {
		r.logger.Error("failed to marshal bid.recorded event", "job_id", job.ID, "error", err)
		return
	}

	if err := r.publisher.Publish(ctx, events.ExchangeName, events.BidRecordedKey, payload); err != nil {
		r.logger.Error("failed to publish bid.recorded event", "job_id", job.ID, "error", err)
	}
}
