package dependency

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
)

func noSuchCoin(types.UtxoID) (*types.Coin, bool, error) { return nil, false, nil }
func noSuchContract(common.Hash) (bool, error)            { return false, nil }

func unspentCoinLookup(coin types.Coin) CoinLookup {
	return func(id types.UtxoID) (*types.Coin, bool, error) {
		if id != coin.UtxoID {
			return nil, false, nil
		}
		c := coin
		return &c, true, nil
	}
}

func txID(seed string) common.Hash { return common.Hash256([]byte(seed)) }

func TestInsertRejectsUnknownUtxo(t *testing.T) {
	g := New(32)
	tx := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: types.UtxoID{TxID: txID("missing")}}}}

	_, _, err := g.Insert(txID("a"), 1, tx, noSuchCoin, noSuchContract)
	require.Error(t, err)
}

func TestInsertRejectsAlreadySpentUtxo(t *testing.T) {
	g := New(32)
	utxo := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxo, Status: types.CoinSpent})

	tx := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo}}}
	_, _, err := g.Insert(txID("a"), 1, tx, lookup, noSuchContract)
	require.Error(t, err)
}

func TestInsertRejectsCoinInputWithMismatchedOwner(t *testing.T) {
	g := New(32)
	utxo := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	owner := common.Address{1}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxo, Owner: owner, Status: types.CoinUnspent})

	tx := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo, Owner: common.Address{2}}}}
	_, _, err := g.Insert(txID("a"), 1, tx, lookup, noSuchContract)
	require.Equal(t, errs.ReasonIoWrongOwner, err)
}

func TestInsertRejectsCoinInputWithMismatchedAmount(t *testing.T) {
	g := New(32)
	utxo := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxo, Amount: 10, Status: types.CoinUnspent})

	tx := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo, Amount: 11}}}
	_, _, err := g.Insert(txID("a"), 1, tx, lookup, noSuchContract)
	require.Equal(t, errs.ReasonIoWrongAmount, err)
}

func TestInsertRejectsCoinInputWithMismatchedAssetID(t *testing.T) {
	g := New(32)
	utxo := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxo, AssetID: common.AssetID{1}, Status: types.CoinUnspent})

	tx := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo, AssetID: common.AssetID{2}}}}
	_, _, err := g.Insert(txID("a"), 1, tx, lookup, noSuchContract)
	require.Equal(t, errs.ReasonIoWrongAssetId, err)
}

func TestInsertAcceptsUnspentStoreCoinAtDepthZero(t *testing.T) {
	g := New(32)
	utxo := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxo, Status: types.CoinUnspent})

	tx := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo}}}
	depth, evict, err := g.Insert(txID("a"), 1, tx, lookup, noSuchContract)
	require.NoError(t, err)
	require.Equal(t, 1, depth)
	require.Empty(t, evict)
}

func TestInsertChainsPoolProducedCoin(t *testing.T) {
	g := New(32)
	utxoRoot := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxoRoot, Status: types.CoinUnspent})

	a := txID("a")
	txA := &types.Transaction{
		Inputs:  []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxoRoot}},
		Outputs: []types.Output{{Kind: types.OutputCoin}},
	}
	depthA, _, err := g.Insert(a, 1, txA, lookup, noSuchContract)
	require.NoError(t, err)
	g.Publish(a, 1, depthA, txA)

	// txA's first output is now a pool-tracked coin at UtxoID{TxID: a, OutputIndex: 0}.
	producedUtxo := types.UtxoID{TxID: a, OutputIndex: 0}
	parent, isPoolParent := g.CoinParent(producedUtxo)
	require.True(t, isPoolParent)
	require.Equal(t, a, parent)

	b := txID("b")
	txB := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: producedUtxo}}}
	depthB, evict, err := g.Insert(b, 5, txB, noSuchCoin, noSuchContract)
	require.NoError(t, err)
	require.Equal(t, depthA+1, depthB)
	require.Empty(t, evict, "producedUtxo has not yet been spent by anything to evict")
}

func TestInsertCollidesOnEqualOrHigherPriorTip(t *testing.T) {
	g := New(32)
	utxo := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxo, Status: types.CoinUnspent})

	a := txID("a")
	txA := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo}}}
	depthA, _, err := g.Insert(a, 5, txA, lookup, noSuchContract)
	require.NoError(t, err)
	g.Publish(a, 5, depthA, txA)

	b := txID("b")
	txB := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo}}}
	_, _, err = g.Insert(b, 3, txB, lookup, noSuchContract)
	require.Equal(t, errs.ReasonCollision(a.String(), utxo.String()), err)
}

func TestInsertReplacesOnStrictlyHigherTip(t *testing.T) {
	g := New(32)
	utxo := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxo, Status: types.CoinUnspent})

	a := txID("a")
	txA := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo}}}
	depthA, _, err := g.Insert(a, 5, txA, lookup, noSuchContract)
	require.NoError(t, err)
	g.Publish(a, 5, depthA, txA)

	c := txID("c")
	txC := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxo}}}
	_, evict, err := g.Insert(c, 10, txC, lookup, noSuchContract)
	require.NoError(t, err)
	require.Equal(t, []common.Hash{a}, evict)
}

func TestInsertRejectsDepthBeyondLimit(t *testing.T) {
	g := New(2)
	utxoRoot := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxoRoot, Status: types.CoinUnspent})

	a := txID("a")
	txA := &types.Transaction{
		Inputs:  []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxoRoot}},
		Outputs: []types.Output{{Kind: types.OutputCoin}},
	}
	depthA, _, err := g.Insert(a, 1, txA, lookup, noSuchContract)
	require.NoError(t, err)
	g.Publish(a, 1, depthA, txA)

	producedUtxo := types.UtxoID{TxID: a, OutputIndex: 0}
	b := txID("b")
	txB := &types.Transaction{
		Inputs:  []types.Input{{Kind: types.InputCoinSigned, UtxoID: producedUtxo}},
		Outputs: []types.Output{{Kind: types.OutputCoin}},
	}
	depthB, _, err := g.Insert(b, 2, txB, noSuchCoin, noSuchContract)
	require.NoError(t, err)
	g.Publish(b, 2, depthB, txB)

	producedUtxoB := types.UtxoID{TxID: b, OutputIndex: 0}
	c := txID("c")
	txC := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: producedUtxoB}}}
	_, _, err = g.Insert(c, 3, txC, noSuchCoin, noSuchContract)
	require.Equal(t, errs.ReasonMaxDepth, err)
}

func TestDependentsOfAndRecursivelyRemoveWalkChain(t *testing.T) {
	g := New(32)
	utxoRoot := types.UtxoID{TxID: txID("root"), OutputIndex: 0}
	lookup := unspentCoinLookup(types.Coin{UtxoID: utxoRoot, Status: types.CoinUnspent})

	a := txID("a")
	txA := &types.Transaction{
		Inputs:  []types.Input{{Kind: types.InputCoinSigned, UtxoID: utxoRoot}},
		Outputs: []types.Output{{Kind: types.OutputCoin}},
	}
	depthA, _, err := g.Insert(a, 1, txA, lookup, noSuchContract)
	require.NoError(t, err)
	g.Publish(a, 1, depthA, txA)

	producedA := types.UtxoID{TxID: a, OutputIndex: 0}
	b := txID("b")
	txB := &types.Transaction{
		Inputs:  []types.Input{{Kind: types.InputCoinSigned, UtxoID: producedA}},
		Outputs: []types.Output{{Kind: types.OutputCoin}},
	}
	depthB, _, err := g.Insert(b, 2, txB, noSuchCoin, noSuchContract)
	require.NoError(t, err)
	g.Publish(b, 2, depthB, txB)

	producedB := types.UtxoID{TxID: b, OutputIndex: 0}
	c := txID("c")
	txC := &types.Transaction{Inputs: []types.Input{{Kind: types.InputCoinSigned, UtxoID: producedB}}}
	depthC, _, err := g.Insert(c, 3, txC, noSuchCoin, noSuchContract)
	require.NoError(t, err)
	g.Publish(c, 3, depthC, txC)

	deps := g.DependentsOf(a)
	require.ElementsMatch(t, []common.Hash{b, c}, deps)

	removed := g.RecursivelyRemove(a)
	require.ElementsMatch(t, []common.Hash{a, b, c}, removed)

	_, isPoolParent := g.CoinParent(producedA)
	require.False(t, isPoolParent)
	_, isPoolParent = g.CoinParent(producedB)
	require.False(t, isPoolParent)
}

func TestContractParentTracksOriginThenLatestConsumer(t *testing.T) {
	g := New(32)
	contractID := txID("contract")

	a := txID("a")
	txA := &types.Transaction{Outputs: []types.Output{{Kind: types.OutputContractCreated, ContractID: contractID}}}
	depthA, _, err := g.Insert(a, 5, txA, noSuchCoin, noSuchContract)
	require.NoError(t, err)
	g.Publish(a, 5, depthA, txA)

	parent, isPoolParent := g.ContractParent(contractID)
	require.True(t, isPoolParent)
	require.Equal(t, a, parent)

	// A contract input on the still-unmined origin may only be consumed at
	// a tip no higher than the origin's own, per classifyContract.
	b := txID("b")
	txB := &types.Transaction{
		Inputs:  []types.Input{{Kind: types.InputContract, ContractID: contractID}},
		Outputs: []types.Output{{Kind: types.OutputContract, InputIndex: 0}},
	}
	depthB, _, err := g.Insert(b, 3, txB, noSuchCoin, noSuchContract)
	require.NoError(t, err)
	require.Equal(t, depthA+1, depthB)
	g.Publish(b, 3, depthB, txB)

	parent, isPoolParent = g.ContractParent(contractID)
	require.True(t, isPoolParent)
	require.Equal(t, b, parent)
}

func TestContractInputRejectsHigherTipThanCurrentHolder(t *testing.T) {
	g := New(32)
	contractID := txID("contract")

	a := txID("a")
	txA := &types.Transaction{Outputs: []types.Output{{Kind: types.OutputContractCreated, ContractID: contractID}}}
	depthA, _, err := g.Insert(a, 5, txA, noSuchCoin, noSuchContract)
	require.NoError(t, err)
	g.Publish(a, 5, depthA, txA)

	b := txID("b")
	txB := &types.Transaction{
		Inputs:  []types.Input{{Kind: types.InputContract, ContractID: contractID}},
		Outputs: []types.Output{{Kind: types.OutputContract, InputIndex: 0}},
	}
	depthB, _, err := g.Insert(b, 3, txB, noSuchCoin, noSuchContract)
	require.NoError(t, err)
	g.Publish(b, 3, depthB, txB)

	// b lowered the holder's tip to 3; a later consumer bidding higher than
	// the current holder is rejected rather than evicting it.
	c := txID("c")
	txC := &types.Transaction{
		Inputs:  []types.Input{{Kind: types.InputContract, ContractID: contractID}},
		Outputs: []types.Output{{Kind: types.OutputContract, InputIndex: 0}},
	}
	_, evict, err := g.Insert(c, 5, txC, noSuchCoin, noSuchContract)
	require.Equal(t, errs.ReasonContractPricedLower(contractID.String()), err)
	require.Empty(t, evict)
}
