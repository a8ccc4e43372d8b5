package genesis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/storage/database"
)

func newTestImporter(t *testing.T) (*Importer, *database.Store) {
	t.Helper()
	store := database.NewStore(database.NewMemStore(), 0)
	return New(store), store
}

func TestImportCommitsGenesisBlockAndStagedState(t *testing.T) {
	imp, store := newTestImporter(t)

	coin := types.Coin{UtxoID: types.UtxoID{TxID: common.Hash256([]byte("a")), OutputIndex: 0}, Amount: 100}
	msg := types.Message{Nonce: common.Hash256([]byte("m")), Amount: 50}
	contract := ContractEntry{Contract: types.Contract{Bytecode: []byte{0x01}}}

	cfg := StateConfig{
		Height:    0,
		DaHeight:  0,
		Coins:     []types.Coin{coin},
		Messages:  []types.Message{msg},
		Contracts: []ContractEntry{contract},
	}

	require.NoError(t, imp.Import(context.Background(), cfg))

	height, found, err := store.LatestHeight()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), height)

	got, found, err := store.GetCoin(coin.UtxoID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(100), got.Amount)

	gotMsg, found, err := store.GetMessage(msg.Nonce)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(50), gotMsg.Amount)

	id := contract.Contract.ID()
	gotContract, found, err := store.GetContract(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, contract.Contract.Bytecode, gotContract.Bytecode)
}

func TestImportIsNoopWhenAlreadyApplied(t *testing.T) {
	imp, _ := newTestImporter(t)
	require.NoError(t, imp.Import(context.Background(), StateConfig{Height: 0}))

	// A second call against a store that already has a committed height
	// must not attempt to re-import (it would hit the duplicate-contract
	// guard); it simply returns nil.
	require.NoError(t, imp.Import(context.Background(), StateConfig{
		Height:    0,
		Contracts: []ContractEntry{{Contract: types.Contract{Bytecode: []byte{0xFF}}}},
	}))
}

func TestImportRejectsCoinHeightBeyondGenesis(t *testing.T) {
	imp, _ := newTestImporter(t)
	cfg := StateConfig{
		Height: 5,
		Coins: []types.Coin{{
			UtxoID:    types.UtxoID{TxID: common.Hash256([]byte("a")), OutputIndex: 0},
			TxPointer: types.TxPointer{BlockHeight: 10},
		}},
	}
	err := imp.Import(context.Background(), cfg)
	require.Error(t, err)
}

func TestImportRejectsDuplicateContractID(t *testing.T) {
	imp, store := newTestImporter(t)
	contract := types.Contract{Bytecode: []byte{0x01}}
	id := contract.ID()

	txn := store.WriteTransaction()
	require.NoError(t, database.PutContract(txn, id, contract, nil, types.UtxoID{TxID: id}))
	require.NoError(t, txn.Commit())

	cfg := StateConfig{Height: 0, Contracts: []ContractEntry{{Contract: contract}}}
	err := imp.Import(context.Background(), cfg)
	require.Error(t, err)
}

func TestImportCancelledContextAbortsBeforeCommit(t *testing.T) {
	imp, store := newTestImporter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coins := make([]types.Coin, GroupSize+1)
	for i := range coins {
		coins[i] = types.Coin{UtxoID: types.UtxoID{TxID: common.Hash256([]byte{byte(i), byte(i >> 8)}), OutputIndex: 0}}
	}

	err := imp.Import(ctx, StateConfig{Height: 0, Coins: coins})
	require.Error(t, err)

	_, found, lerr := store.LatestHeight()
	require.NoError(t, lerr)
	require.False(t, found, "genesis block must not be committed when import was aborted")
}
