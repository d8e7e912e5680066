package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flashbid/flashbid/internal/domain/auction"
	pkgdb "github.com/flashbid/flashbid/pkg/database"
)

// PostgresItemRepository implements auction.ItemRepository using pgx
type PostgresItemRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

// NewPostgresItemRepository creates a new PostgreSQL item repository
func NewPostgresItemRepository(pool *pgxpool.Pool) *PostgresItemRepository {
	return &PostgresItemRepository{pool: pool}
}

// CreateIfAbsent inserts the item row, leaving an existing row untouched.
// Re-initialization is a durable no-op, matching the volatile layer.
func (r *PostgresItemRepository) CreateIfAbsent(ctx context.Context, tx pgx.Tx, item *auction.Item) error {
	query := `
		INSERT INTO items (id, name, current_price, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := tx.Exec(ctx, query,
		item.ID,
		item.Name,
		item.CurrentPrice,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// UpsertCurrentPrice creates the item row or raises current_price when the
// amount is strictly greater than the latest committed value. The WHERE
// clause re-evaluates the comparison inside the transaction, so concurrent
// write-behind commits cannot lower the price.
func (r *PostgresItemRepository) UpsertCurrentPrice(ctx context.Context, tx pgx.Tx, itemID int64, name string, amount int64) error {
	query := `
		INSERT INTO items (id, name, current_price, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			current_price = EXCLUDED.current_price,
			updated_at = NOW()
		WHERE items.current_price < EXCLUDED.current_price
	`
	_, err := tx.Exec(ctx, query, itemID, name, amount)
	if err != nil {
		return fmt.Errorf("failed to upsert current price: %w", err)
	}
	return nil
}

// GetByID retrieves the durable item row
func (r *PostgresItemRepository) GetByID(ctx context.Context, itemID int64) (*auction.Item, error) {
	return r.getByID(ctx, r.pool, itemID)
}

// getByID runs against any DBTX, so the same query serves pool reads and
// reads inside an open transaction.
func (r *PostgresItemRepository) getByID(ctx context.Context, db pkgdb.DBTX, itemID int64) (*auction.Item, error) {
	query := `
		SELECT id, name, current_price, updated_at
		FROM items
		WHERE id = $1
	`
	var item auction.Item
	err := db.QueryRow(ctx, query, itemID).Scan(
		&item.ID,
		&item.Name,
		&item.CurrentPrice,
		&item.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("item not found")
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}
