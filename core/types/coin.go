package types

import "github.com/fuelnet/fuelnode/common"

// CoinStatus records whether a coin is still spendable or has already been
// consumed by a transaction (spent coins are retained, tombstoned, until
// pruned, so that late/duplicate inputs resolve to a clear reject reason
// instead of NotExisting).
type CoinStatus uint8

const (
	CoinUnspent CoinStatus = iota
	CoinSpent
)

// Coin is a spendable UTXO: an unconsumed Output of kind Coin or Change,
// indexed in the owned_coins_index and coins columns of spec.md §6.
type Coin struct {
	UtxoID    UtxoID
	Owner     common.Address
	Amount    uint64
	AssetID   common.AssetID
	Maturity  uint32
	TxPointer TxPointer
	Status    CoinStatus
}

func (c Coin) Spendable(currentHeight uint64) bool {
	return c.Status == CoinUnspent && currentHeight >= uint64(c.Maturity)
}
