package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashbid/flashbid/internal/domain/auction"
	pkgdb "github.com/flashbid/flashbid/pkg/database"
)

// PostgresBidLogRepository implements auction.BidLogRepository using pgx
type PostgresBidLogRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidLogRepository creates a new PostgreSQL bid ledger repository
func NewPostgresBidLogRepository(pool *pgxpool.Pool) *PostgresBidLogRepository {
	return &PostgresBidLogRepository{pool: pool}
}

// Insert appends a bid record within a transaction. The store assigns the
// record ID; rows are never updated or deleted afterwards.
func (r *PostgresBidLogRepository) Insert(ctx context.Context, tx pgx.Tx, rec *auction.BidRecord) error {
	query := `
		INSERT INTO bid_logs (item_id, bidder_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := tx.QueryRow(ctx, query,
		rec.ItemID,
		rec.BidderID,
		rec.Amount,
		rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert bid record: %w", err)
	}
	return nil
}

// ListByItemID retrieves the ledger rows for an item, newest first
func (r *PostgresBidLogRepository) ListByItemID(ctx context.Context, itemID int64) ([]*auction.BidRecord, error) {
	return r.listByItemID(ctx, r.pool, itemID)
}

func (r *PostgresBidLogRepository) listByItemID(ctx context.Context, db pkgdb.DBTX, itemID int64) ([]*auction.BidRecord, error) {
	query := `
		SELECT id, item_id, bidder_id, amount, created_at
		FROM bid_logs
		WHERE item_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bid records: %w", err)
	}
	defer rows.Close()

	var result []*auction.BidRecord
	for rows.Next() {
		var rec auction.BidRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ItemID,
			&rec.BidderID,
			&rec.Amount,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bid record: %w", err)
		}
		result = append(result, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bid records: %w", err)
	}

	return result, nil
}
