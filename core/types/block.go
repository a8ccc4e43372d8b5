package types

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/errs"
)

// BlockHeader is the block's sealed metadata, hashed to produce its id
// (spec.md §3). Grounded on the teacher's block header layout
// (blockchain/types/block.go), trimmed to the fields a UTXO, PoA chain
// actually needs: no uncle/difficulty fields, no account state root.
type BlockHeader struct {
	Height             uint64
	DaHeight           uint64
	PrevRoot           common.Hash
	Time               uint64
	TxRoot             common.Hash
	OutputMessagesRoot common.Hash
	ApplicationHash    common.Hash
}

// Hash is the block header's content-addressed identifier and also the
// block's id.
func (h BlockHeader) Hash() (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(&h)
	if err != nil {
		return common.Hash{}, errs.NewCodecError("header.Hash", err)
	}
	return common.Hash256(enc), nil
}

// HeightKey renders Height as the big-endian key used by the
// block_height_index column.
func (h BlockHeader) HeightKey() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, h.Height)
	return b
}

// Block pairs a sealed header with the ids of the transactions it commits,
// in execution order (the producer-appended Mint transaction is always
// last).
type Block struct {
	Header BlockHeader
	TxIDs  []common.Hash
}

func (b Block) ID() (common.Hash, error) { return b.Header.Hash() }

func (b Block) Encode() ([]byte, error) {
	enc, err := rlp.EncodeToBytes(&b)
	if err != nil {
		return nil, errs.NewCodecError("block.Encode", err)
	}
	return enc, nil
}

func DecodeBlock(data []byte) (*Block, error) {
	var b Block
	if err := rlp.DecodeBytes(data, &b); err != nil {
		return nil, errs.NewCodecError("block.Decode", err)
	}
	return &b, nil
}
