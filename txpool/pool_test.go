package txpool

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/metrics"
	"github.com/fuelnet/fuelnode/storage/database"
	"github.com/fuelnet/fuelnode/txpool/notify"
)

func acceptAll(types.Input, [][]byte) bool { return true }

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 32
	}
	store := database.NewStore(database.NewMemStore(), 0)
	return New(cfg, types.DefaultConsensusParameters(), store, acceptAll, metrics.New(false))
}

// emptyTx is the minimal transaction admission accepts trivially: no
// inputs/outputs means checkFeeReadiness's in >= out+fee holds at 0 >= 0.
func emptyTx(gasPrice uint64) *types.Transaction {
	return &types.Transaction{Kind: types.KindScript, GasPrice: gasPrice, GasLimit: 0}
}

func TestInsertAcceptsWellFormedTransaction(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000})
	results := p.Insert([]*types.Transaction{emptyTx(1)}, 0)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Reject)
	require.NotNil(t, results[0].Outcome)
	require.Equal(t, 1, p.Len())
}

func TestInsertReportsPoolSizeAndAdmissionMetrics(t *testing.T) {
	store := database.NewStore(database.NewMemStore(), 0)
	reg := metrics.New(false)
	p := New(Config{MaxTx: 10, BlockGasLimit: 1_000_000, MaxDepth: 32}, types.DefaultConsensusParameters(), store, acceptAll, reg)

	p.Insert([]*types.Transaction{emptyTx(1)}, 0)
	require.Equal(t, float64(1), testutil.ToFloat64(reg.PoolSize))
	require.Equal(t, float64(1), testutil.ToFloat64(reg.AdmissionTotal.WithLabelValues("accepted")))

	p.Insert([]*types.Transaction{&types.Transaction{Kind: types.KindMint}}, 0)
	require.Equal(t, float64(1), testutil.ToFloat64(reg.AdmissionTotal.WithLabelValues("rejected")))
}

func TestInsertRejectsMint(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000})
	mint := &types.Transaction{Kind: types.KindMint}
	results := p.Insert([]*types.Transaction{mint}, 0)
	require.Equal(t, errs.ReasonMintDisallowed, results[0].Reject)
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000})
	tx := emptyTx(1)
	require.NoError(t, p.Insert([]*types.Transaction{tx}, 0)[0].Reject)
	results := p.Insert([]*types.Transaction{tx}, 0)
	require.Equal(t, errs.ReasonTxKnown, results[0].Reject)
}

func TestInsertRejectsGasPriceBelowMinimum(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000, MinGasPrice: 5})
	results := p.Insert([]*types.Transaction{emptyTx(1)}, 0)
	require.Equal(t, errs.ReasonGasPriceTooLow, results[0].Reject)
}

func TestInsertPushesOutLowestTipWhenFull(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 1, BlockGasLimit: 1_000_000})
	low := emptyTx(1)
	require.NoError(t, p.Insert([]*types.Transaction{low}, 0)[0].Reject)

	high := emptyTx(10)
	result := p.Insert([]*types.Transaction{high}, 0)[0]
	require.NoError(t, result.Reject)
	require.Len(t, result.Outcome.Removed, 1)
	require.Equal(t, 1, p.Len())

	lowID, err := low.ID()
	require.NoError(t, err)
	require.Nil(t, p.FindOne(lowID))
}

func TestInsertRejectsWhenFullAndTipNotHigher(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 1, BlockGasLimit: 1_000_000})
	require.NoError(t, p.Insert([]*types.Transaction{emptyTx(10)}, 0)[0].Reject)

	results := p.Insert([]*types.Transaction{emptyTx(5)}, 0)
	require.Equal(t, errs.ReasonLimitHit, results[0].Reject)
}

func TestAllReturnsTipDescending(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000})
	require.NoError(t, p.Insert([]*types.Transaction{emptyTx(1)}, 0)[0].Reject)
	require.NoError(t, p.Insert([]*types.Transaction{emptyTx(5)}, 0)[0].Reject)
	require.NoError(t, p.Insert([]*types.Transaction{emptyTx(3)}, 0)[0].Reject)

	all := p.All()
	require.Len(t, all, 3)
	require.Equal(t, uint64(5), all[0].GasPrice)
	require.Equal(t, uint64(3), all[1].GasPrice)
	require.Equal(t, uint64(1), all[2].GasPrice)
}

func putTestCoin(t *testing.T, p *Pool, coin types.Coin) {
	t.Helper()
	txn := p.store.WriteTransaction()
	require.NoError(t, database.PutCoin(txn, coin))
	require.NoError(t, txn.Commit())
}

func TestIncludableBoundsByGas(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000})

	utxoA := types.UtxoID{TxID: common.Hash256([]byte("a")), OutputIndex: 0}
	utxoB := types.UtxoID{TxID: common.Hash256([]byte("b")), OutputIndex: 0}
	putTestCoin(t, p, types.Coin{UtxoID: utxoA, Amount: 10_000, Status: types.CoinUnspent})
	putTestCoin(t, p, types.Coin{UtxoID: utxoB, Amount: 10_000, Status: types.CoinUnspent})

	a := &types.Transaction{
		Kind:     types.KindScript,
		GasPrice: 5,
		GasLimit: 600,
		Inputs:   []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxoA, Amount: 10_000}},
	}
	b := &types.Transaction{
		Kind:     types.KindScript,
		GasPrice: 1,
		GasLimit: 600,
		Inputs:   []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxoB, Amount: 10_000}},
	}
	require.NoError(t, p.Insert([]*types.Transaction{a}, 0)[0].Reject)
	require.NoError(t, p.Insert([]*types.Transaction{b}, 0)[0].Reject)

	// Both fit under a loose cap, highest tip first.
	includable := p.Includable(10_000)
	require.Len(t, includable, 2)
	require.Equal(t, uint64(5), includable[0].GasPrice)

	// Only the higher-tip transaction fits once the cap excludes the second.
	includable = p.Includable(700)
	require.Len(t, includable, 1)
	require.Equal(t, uint64(5), includable[0].GasPrice)
}

func TestRemoveDropsEntryAndPublishesStatus(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000})
	tx := emptyTx(1)
	require.NoError(t, p.Insert([]*types.Transaction{tx}, 0)[0].Reject)
	id, err := tx.ID()
	require.NoError(t, err)

	ch, cancel := p.SubscribeStatus(id)
	defer cancel()

	removed := p.Remove([]common.Hash{id}, errs.ReasonTTL)
	require.Equal(t, []common.Hash{id}, removed)
	require.Nil(t, p.FindOne(id))

	select {
	case status := <-ch:
		require.Equal(t, notify.StatusSqueezedOut, status.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a status notification")
	}
}

func TestPruneExpiredDropsOldEntries(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000, TransactionTTL: -time.Second})
	tx := emptyTx(1)
	require.NoError(t, p.Insert([]*types.Transaction{tx}, 0)[0].Reject)

	removed := p.PruneExpired()
	require.Len(t, removed, 1)
	require.Equal(t, 0, p.Len())
}

func TestConsumableGasSumsPooledTransactions(t *testing.T) {
	p := newTestPool(t, Config{MaxTx: 10, BlockGasLimit: 1_000_000})
	require.NoError(t, p.Insert([]*types.Transaction{{Kind: types.KindScript, GasPrice: 1, GasLimit: 100}}, 0)[0].Reject)
	require.NoError(t, p.Insert([]*types.Transaction{{Kind: types.KindScript, GasPrice: 1, GasLimit: 200}}, 0)[0].Reject)
	require.Equal(t, uint64(300), p.ConsumableGas())
}
