//go:build integration

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashbid/flashbid/internal/domain/auction"
	"github.com/flashbid/flashbid/pkg/testhelpers"
)

// The repositories route reads through a single DBTX-based query path.
// Passing an open transaction must observe uncommitted rows, while the
// pool-backed methods only see committed state.
func TestRepositories_QueryPathServesPoolAndTransaction(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := testhelpers.NewTestDatabase(t, "../../../migrations")
	defer testDB.Close()
	ctx := context.Background()

	itemRepo := NewPostgresItemRepository(testDB.Pool)
	bidLogRepo := NewPostgresBidLogRepository(testDB.Pool)

	tx, err := testDB.Pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	item := &auction.Item{ID: 1, Name: auction.DefaultName(1), CurrentPrice: 10000, UpdatedAt: time.Now()}
	require.NoError(t, itemRepo.CreateIfAbsent(ctx, tx, item))

	rec := &auction.BidRecord{ItemID: 1, BidderID: "Alice", Amount: 10500, CreatedAt: time.Now()}
	require.NoError(t, bidLogRepo.Insert(ctx, tx, rec))

	inTx, err := itemRepo.getByID(ctx, tx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), inTx.CurrentPrice)

	recsInTx, err := bidLogRepo.listByItemID(ctx, tx, 1)
	require.NoError(t, err)
	assert.Len(t, recsInTx, 1)

	// Not committed yet: the pool path cannot see either row.
	_, err = itemRepo.GetByID(ctx, 1)
	assert.Error(t, err)

	recs, err := bidLogRepo.ListByItemID(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, recs)

	require.NoError(t, tx.Commit(ctx))

	committed, err := itemRepo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), committed.CurrentPrice)
	assert.Equal(t, auction.DefaultName(1), committed.Name)

	recs, err = bidLogRepo.ListByItemID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Alice", recs[0].BidderID)
	assert.Equal(t, int64(10500), recs[0].Amount)
}
