package database

import (
	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
)

// Coin-addressed typed accessors: the convenience layer the original
// source's `Database` trait exposes over its raw KV store (supplemented
// feature C.7 of SPEC_FULL.md). The Get* accessors report absence as
// found == false; the Must* variants return the NotFound domain error of §7.

func ownedCoinKey(owner common.Address, id types.UtxoID) []byte {
	b := make([]byte, common.AddressLength+len(id.Bytes()))
	copy(b, owner.Bytes())
	copy(b[common.AddressLength:], id.Bytes())
	return b
}

// GetCoin looks up a UTXO by id; found is false when it has never existed.
func (s *Store) GetCoin(id types.UtxoID) (*types.Coin, bool, error) {
	var c types.Coin
	found, err := s.GetValue(ColumnCoins, id.Bytes(), &c)
	if err != nil || !found {
		return nil, found, err
	}
	return &c, true, nil
}

// MustGetCoin is GetCoin with the must-exist convention.
func (s *Store) MustGetCoin(id types.UtxoID) (*types.Coin, error) {
	var c types.Coin
	if err := s.MustGetValue("coin", ColumnCoins, id.Bytes(), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// PutCoin inserts or overwrites a coin record and indexes it by
// owner, via t so the write participates in the caller's atomic commit.
func PutCoin(t *Txn, coin types.Coin) error {
	enc, err := Encode(coin)
	if err != nil {
		return err
	}
	t.Put(ColumnCoins, coin.UtxoID.Bytes(), enc)
	t.Put(ColumnOwnedCoinsIndex, ownedCoinKey(coin.Owner, coin.UtxoID), []byte{})
	return nil
}

// SpendCoin tombstones a coin as spent within t, per spec.md §3's
// spend-once invariant: the record is retained, not deleted, so a
// duplicate spend resolves to InputUtxoIdSpent rather than NotExisting.
func SpendCoin(t *Txn, coin types.Coin) error {
	coin.Status = types.CoinSpent
	enc, err := Encode(coin)
	if err != nil {
		return err
	}
	t.Put(ColumnCoins, coin.UtxoID.Bytes(), enc)
	return nil
}

// GetMessage looks up a bridged message by nonce.
func (s *Store) GetMessage(nonce common.Hash) (*types.Message, bool, error) {
	var m types.Message
	found, err := s.GetValue(ColumnMessages, nonce.Bytes(), &m)
	if err != nil || !found {
		return nil, found, err
	}
	return &m, true, nil
}

func ownedMessageKey(recipient common.Address, nonce common.Hash) []byte {
	b := make([]byte, common.AddressLength+common.HashLength)
	copy(b, recipient.Bytes())
	copy(b[common.AddressLength:], nonce.Bytes())
	return b
}

// PutMessage inserts a bridged message and indexes it by recipient.
func PutMessage(t *Txn, msg types.Message) error {
	enc, err := Encode(msg)
	if err != nil {
		return err
	}
	t.Put(ColumnMessages, msg.Nonce.Bytes(), enc)
	t.Put(ColumnOwnedMessagesIndex, ownedMessageKey(msg.Recipient, msg.Nonce), []byte{})
	return nil
}

// SpendMessage tombstones a message as spent and records its nonce in
// ColumnSpentMessages, the dedicated "at most one unspent message per
// nonce" ledger spec.md §6 calls for.
func SpendMessage(t *Txn, msg types.Message) error {
	msg.Status = types.MessageSpent
	enc, err := Encode(msg)
	if err != nil {
		return err
	}
	t.Put(ColumnMessages, msg.Nonce.Bytes(), enc)
	t.Put(ColumnSpentMessages, msg.Nonce.Bytes(), []byte{})
	return nil
}

// IsMessageSpent reports whether nonce has already been recorded as spent.
func (s *Store) IsMessageSpent(nonce common.Hash) (bool, error) {
	return s.Exists(ColumnSpentMessages, nonce.Bytes())
}

// GetContract looks up a deployed contract by id.
func (s *Store) GetContract(id common.Hash) (*types.Contract, bool, error) {
	var c types.Contract
	found, err := s.GetValue(ColumnContractsInfo, id.Bytes(), &c)
	if err != nil || !found {
		return nil, found, err
	}
	return &c, true, nil
}

// PutContract deploys a new contract: raw bytecode and info records, its
// initial storage slots, and its initial latest-utxo pointer.
func PutContract(t *Txn, id common.Hash, c types.Contract, initialStorage []types.StorageSlot, latestUtxo types.UtxoID) error {
	infoEnc, err := Encode(c)
	if err != nil {
		return err
	}
	t.Put(ColumnContractsInfo, id.Bytes(), infoEnc)
	t.Put(ColumnContractsRawCode, id.Bytes(), c.Bytecode)
	t.Put(ColumnContractsLatestUtxo, id.Bytes(), latestUtxo.Bytes())
	for _, slot := range initialStorage {
		t.Put(ColumnContractsState, contractSlotKey(id, slot.Key), slot.Value.Bytes())
	}
	return nil
}

func contractSlotKey(id common.Hash, slot common.Hash) []byte {
	b := make([]byte, common.HashLength*2)
	copy(b, id.Bytes())
	copy(b[common.HashLength:], slot.Bytes())
	return b
}

func contractAssetKey(id common.Hash, asset common.AssetID) []byte {
	b := make([]byte, common.HashLength*2)
	copy(b, id.Bytes())
	copy(b[common.HashLength:], asset.Bytes())
	return b
}

// GetContractAssetBalance reads a contract's balance of asset.
func (s *Store) GetContractAssetBalance(id common.Hash, asset common.AssetID) (uint64, bool, error) {
	v, found, err := s.Get(ColumnContractsAssets, contractAssetKey(id, asset))
	if err != nil || !found {
		return 0, found, err
	}
	return decodeUint64(v), true, nil
}

// PutContractAssetBalance writes a contract's balance of asset within t.
func PutContractAssetBalance(t *Txn, id common.Hash, asset common.AssetID, amount uint64) {
	t.Put(ColumnContractsAssets, contractAssetKey(id, asset), encodeUint64(amount))
}

// GetContractLatestUtxo returns the UtxoID of the most recent Contract
// output that touched id, used to chain the next contract input's
// TxPointer.
func (s *Store) GetContractLatestUtxo(id common.Hash) (types.UtxoID, bool, error) {
	v, found, err := s.Get(ColumnContractsLatestUtxo, id.Bytes())
	if err != nil || !found {
		return types.UtxoID{}, found, err
	}
	utxo, err := types.UtxoIDFromBytes(v)
	return utxo, err == nil, err
}

func SetContractLatestUtxo(t *Txn, id common.Hash, utxo types.UtxoID) {
	t.Put(ColumnContractsLatestUtxo, id.Bytes(), utxo.Bytes())
}
