package work

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/consensus/poa"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/executor"
	"github.com/fuelnet/fuelnode/metrics"
	"github.com/fuelnet/fuelnode/storage/database"
)

// fakePool is a minimal Pool for exercising shouldProduce/produceOnce
// without a real txpool.Pool.
type fakePool struct {
	includable []*types.Transaction
	length     int
	gas        uint64
	removed    []common.Hash
	included   []common.Hash
	blockID    common.Hash
}

func (f *fakePool) Includable(maxGas uint64) []*types.Transaction { return f.includable }
func (f *fakePool) Len() int                                      { return f.length }
func (f *fakePool) ConsumableGas() uint64                         { return f.gas }
func (f *fakePool) Remove(ids []common.Hash, reason error) []common.Hash {
	f.removed = append(f.removed, ids...)
	return ids
}
func (f *fakePool) BlockUpdate(included []common.Hash, blockID common.Hash, blockHeight uint64, skipped map[common.Hash]error) {
	f.included = included
	f.blockID = blockID
	for id := range skipped {
		f.removed = append(f.removed, id)
	}
}

func newTestProducer(t *testing.T, trigger Trigger, pool Pool) *Producer {
	t.Helper()
	store := database.NewStore(database.NewMemStore(), 0)
	params := types.DefaultConsensusParameters()
	exec := executor.New(store, params)
	engine, err := poa.New("", true)
	require.NoError(t, err)
	require.NotNil(t, engine)

	cfg := Config{Trigger: trigger, BlockGasLimit: params.BlockGasLimit}
	return New(cfg, pool, store, exec, engine, metrics.New(false))
}

func TestShouldProduceNever(t *testing.T) {
	p := newTestProducer(t, Trigger{Kind: TriggerNever}, &fakePool{})
	require.False(t, p.shouldProduce())
}

func TestShouldProduceInstantRequiresPooledGas(t *testing.T) {
	p := newTestProducer(t, Trigger{Kind: TriggerInstant}, &fakePool{})
	require.False(t, p.shouldProduce())

	p2 := newTestProducer(t, Trigger{Kind: TriggerInstant}, &fakePool{length: 1, gas: 100})
	require.True(t, p2.shouldProduce())
}

func TestShouldProduceIntervalWaitsForDeadline(t *testing.T) {
	p := newTestProducer(t, Trigger{Kind: TriggerInterval, Min: time.Hour}, &fakePool{})
	require.False(t, p.shouldProduce())

	p.mu.Lock()
	p.lastBlockAt = time.Now().Add(-2 * time.Hour)
	p.mu.Unlock()
	require.True(t, p.shouldProduce())
}

func TestShouldProduceHybridIdleAndMaxBlockTime(t *testing.T) {
	pool := &fakePool{}
	p := newTestProducer(t, Trigger{
		Kind:          TriggerHybrid,
		MinBlockTime:  time.Hour,
		MaxTxIdleTime: time.Hour,
		MaxBlockTime:  time.Hour,
	}, pool)

	// Empty pool, nothing elapsed: no.
	require.False(t, p.shouldProduce())

	// max_block_time alone forces production even with an empty pool.
	p.mu.Lock()
	p.lastBlockAt = time.Now().Add(-2 * time.Hour)
	p.mu.Unlock()
	require.True(t, p.shouldProduce())

	// Reset, now pool non-empty but idle/min-block-time thresholds unmet.
	p.mu.Lock()
	p.lastBlockAt = time.Now()
	p.lastTxAt = time.Now()
	p.mu.Unlock()
	pool.length = 1
	require.False(t, p.shouldProduce())
}

func TestProduceOnceCommitsEmptyBlockAndBroadcasts(t *testing.T) {
	pool := &fakePool{}
	p := newTestProducer(t, Trigger{Kind: TriggerInstant}, pool)

	require.NoError(t, p.produceOnce(context.Background()))

	height, found, err := p.store.LatestHeight()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), height)

	select {
	case committed := <-p.Imported():
		require.Equal(t, uint64(0), committed.Block.Header.Height)
		require.Empty(t, pool.included, "the synthesized mint id is never pool-resident")
		require.Equal(t, committed.BlockID, pool.blockID)
	default:
		t.Fatal("expected a BlockCommitted broadcast")
	}
}

func TestProduceOnceRelaysSkippedTransactionsToPool(t *testing.T) {
	oversized := &types.Transaction{Kind: types.KindScript, GasPrice: 1, GasLimit: 1_000_000_000}
	pool := &fakePool{includable: []*types.Transaction{oversized}}
	p := newTestProducer(t, Trigger{Kind: TriggerInstant}, pool)

	require.NoError(t, p.produceOnce(context.Background()))
	require.Len(t, pool.removed, 1)
}

func TestRunReturnsImmediatelyWhenTriggerNever(t *testing.T) {
	p := newTestProducer(t, Trigger{Kind: TriggerNever}, &fakePool{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx) // must return promptly without blocking on the ticker
}
