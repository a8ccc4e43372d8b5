package database

import (
	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
)

// TxStatusKind is the closed set of terminal/interim tx statuses recorded
// in ColumnTxStatus.
type TxStatusKind uint8

const (
	TxStatusSubmitted TxStatusKind = iota
	TxStatusSuccess
	TxStatusFailure
	TxStatusSqueezedOut
)

// TxStatus is the persisted record a client polls for after submission.
type TxStatus struct {
	Kind        TxStatusKind
	BlockID     common.Hash
	BlockHeight uint64
	Reason      string // populated for Failure/SqueezedOut
}

func (s *Store) GetTxStatus(id common.Hash) (*TxStatus, bool, error) {
	var st TxStatus
	found, err := s.GetValue(ColumnTxStatus, id.Bytes(), &st)
	if err != nil || !found {
		return nil, found, err
	}
	return &st, true, nil
}

func SetTxStatus(t *Txn, id common.Hash, st TxStatus) error {
	enc, err := Encode(st)
	if err != nil {
		return err
	}
	t.Put(ColumnTxStatus, id.Bytes(), enc)
	return nil
}

// Receipt is a single VM execution side-effect record. The opcode-level
// receipt schema is the executor's concern (out of storage's scope per
// spec.md §1); storage only persists whatever the executor hands it as an
// ordered, opaque-to-storage list keyed by tx id.
type Receipt struct {
	Kind    string
	Payload []byte
}

func (s *Store) GetReceipts(txID common.Hash) ([]Receipt, bool, error) {
	var rs []Receipt
	found, err := s.GetValue(ColumnReceipts, txID.Bytes(), &rs)
	if err != nil || !found {
		return nil, found, err
	}
	return rs, true, nil
}

func SetReceipts(t *Txn, txID common.Hash, receipts []Receipt) error {
	enc, err := Encode(receipts)
	if err != nil {
		return err
	}
	t.Put(ColumnReceipts, txID.Bytes(), enc)
	return nil
}

// GetTransaction looks up a committed transaction's canonical encoding by
// id and decodes it.
func (s *Store) GetTransaction(id common.Hash) (*types.Transaction, bool, error) {
	v, found, err := s.Get(ColumnTransactions, id.Bytes())
	if err != nil || !found {
		return nil, found, err
	}
	tx, err := types.DecodeTransaction(v)
	if err != nil {
		return nil, true, err
	}
	return tx, true, nil
}

func PutTransaction(t *Txn, id common.Hash, tx *types.Transaction) error {
	enc, err := tx.Encode()
	if err != nil {
		return err
	}
	t.Put(ColumnTransactions, id.Bytes(), enc)
	return nil
}

// GetBlock looks up a sealed block by id, consulting the decoded-object
// cache before falling back to the raw-bytes column lookup and decode.
func (s *Store) GetBlock(id common.Hash) (*types.Block, bool, error) {
	if s.blocks != nil {
		if v, ok := s.blocks.Get(id); ok {
			b, _ := v.(*types.Block)
			return b, b != nil, nil
		}
	}
	v, found, err := s.Get(ColumnBlocks, id.Bytes())
	if err != nil || !found {
		return nil, found, err
	}
	b, err := types.DecodeBlock(v)
	if err != nil {
		return nil, true, err
	}
	if s.blocks != nil {
		s.blocks.Add(id, b)
	}
	return b, true, nil
}

// GetBlockIDByHeight resolves a committed height to its block id via
// ColumnBlockHeightIndex.
func (s *Store) GetBlockIDByHeight(height uint64) (common.Hash, bool, error) {
	v, found, err := s.Get(ColumnBlockHeightIndex, common.Key64(height))
	if err != nil || !found {
		return common.Hash{}, found, err
	}
	return common.BytesToHash(v), true, nil
}

// GetBlockByHeight is the composition of GetBlockIDByHeight and GetBlock,
// the lookup the sync engine and block-request server both need.
func (s *Store) GetBlockByHeight(height uint64) (*types.Block, bool, error) {
	id, found, err := s.GetBlockIDByHeight(height)
	if err != nil || !found {
		return nil, found, err
	}
	return s.GetBlock(id)
}

// PutBlock inserts a sealed block, indexing it by height, and advances the
// recorded chain tip. The caller is responsible for committing t and for
// ensuring height is exactly one past the current tip.
func PutBlock(t *Txn, id common.Hash, block *types.Block) error {
	enc, err := block.Encode()
	if err != nil {
		return err
	}
	t.Put(ColumnBlocks, id.Bytes(), enc)
	t.Put(ColumnBlockHeightIndex, common.Key64(block.Header.Height), id.Bytes())
	t.Put(ColumnMetadata, metadataLatestHeightKey, encodeUint64(block.Header.Height))
	return nil
}

// ConsensusSeal is the PoA signature over a sealed block's header hash.
type ConsensusSeal struct {
	Signature []byte
}

func (s *Store) GetConsensusSeal(blockID common.Hash) (*ConsensusSeal, bool, error) {
	var seal ConsensusSeal
	found, err := s.GetValue(ColumnSealedBlockConsensus, blockID.Bytes(), &seal)
	if err != nil || !found {
		return nil, found, err
	}
	return &seal, true, nil
}

func SetConsensusSeal(t *Txn, blockID common.Hash, seal ConsensusSeal) error {
	enc, err := Encode(seal)
	if err != nil {
		return err
	}
	t.Put(ColumnSealedBlockConsensus, blockID.Bytes(), enc)
	return nil
}
