package types

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/errs"
)

// Kind is the closed set of transaction variants from spec.md §3. Grounded
// on the teacher's kTxType... dispatch constants in
// blockchain/types/tx_internal_data.go, narrowed from klaytn's dozen
// account-model variants to Fuel's three.
type Kind uint8

const (
	KindScript Kind = iota
	KindCreate
	KindMint
)

// Transaction is a union of the three variants. Script and Create share the
// Inputs/Outputs/Witnesses/gas fields; Mint is a restricted coinbase-style
// variant the producer alone may append, and Create additionally carries
// the deployed contract's bytecode and initial storage.
type Transaction struct {
	Kind     Kind
	GasPrice uint64
	GasLimit uint64
	Maturity uint32

	Inputs    []Input
	Outputs   []Output
	Witnesses [][]byte

	// Create-only.
	Salt         common.Hash
	Bytecode     []byte
	StorageSlots []StorageSlot

	// Mint-only: the producer's block-reward style coinbase output is
	// expressed as a regular Output, so Mint carries no extra fields beyond
	// the shared ones (its Inputs is always empty).
}

// signingPayload is the canonical, witness-excluded encoding used to derive
// a transaction's id: two transactions differing only in their witness set
// (e.g. a predicate owner resigning the same intent) must resolve to the
// same id.
type signingPayload struct {
	Kind         Kind
	GasPrice     uint64
	GasLimit     uint64
	Maturity     uint32
	Inputs       []Input
	Outputs      []Output
	Salt         common.Hash
	Bytecode     []byte
	StorageSlots []StorageSlot
}

// ID returns the transaction's content-addressed identifier: the Keccak256
// hash of its canonical RLP encoding, excluding witness data.
func (tx *Transaction) ID() (common.Hash, error) {
	payload := signingPayload{
		Kind:         tx.Kind,
		GasPrice:     tx.GasPrice,
		GasLimit:     tx.GasLimit,
		Maturity:     tx.Maturity,
		Inputs:       tx.Inputs,
		Outputs:      tx.Outputs,
		Salt:         tx.Salt,
		Bytecode:     tx.Bytecode,
		StorageSlots: tx.StorageSlots,
	}
	enc, err := rlp.EncodeToBytes(&payload)
	if err != nil {
		return common.Hash{}, errs.NewCodecError("tx.ID", err)
	}
	return common.Hash256(enc), nil
}

// IsMint reports whether tx is the single producer-appended Mint
// transaction closing out a block.
func (tx *Transaction) IsMint() bool { return tx.Kind == KindMint }

// GasUsedIsZero reports whether tx can never consume gas: Mint
// transactions carry no script and are priced at zero regardless of
// GasPrice/GasLimit.
func (tx *Transaction) GasUsedIsZero() bool { return tx.Kind == KindMint }

// MaxGas is the upper bound on gas this transaction may consume, used by
// admission's GasLimitExceedsBlock check.
func (tx *Transaction) MaxGas() uint64 {
	if tx.IsMint() {
		return 0
	}
	return tx.GasLimit
}

// Encode returns the transaction's canonical wire encoding (including
// witnesses), used for p2p gossip and block bodies.
func (tx *Transaction) Encode() ([]byte, error) {
	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return nil, errs.NewCodecError("tx.Encode", err)
	}
	return enc, nil
}

// DecodeTransaction parses a transaction from its canonical wire encoding.
func DecodeTransaction(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := rlp.DecodeBytes(data, &tx); err != nil {
		return nil, errs.NewCodecError("tx.Decode", err)
	}
	return &tx, nil
}

// CheckedMetadata is the product of successful admission: the fields the
// pool and producer need without re-deriving them on every access.
type CheckedMetadata struct {
	ID       common.Hash
	Fee      uint64
	GasPrice uint64
}

// PendingTransaction is a transaction's record inside the pool: the
// transaction itself, its checked metadata, and the bookkeeping the
// dependency graph and eviction policy need (spec.md §4).
type PendingTransaction struct {
	Tx          *Transaction
	Metadata    CheckedMetadata
	SubmittedAt int64 // unix nanos, used for the by_time index and TTL eviction
}

func (p *PendingTransaction) ID() common.Hash { return p.Metadata.ID }

func (p *PendingTransaction) Tip() uint64 { return p.Metadata.GasPrice }
