// Package types defines the Fuel-family data model of spec.md §3: the
// transaction variants, their inputs/outputs, spendable resources (coins,
// messages, contracts) and the block/header pair that seals them.
//
// Grounded on the teacher's variant-tagged struct idiom in
// blockchain/types/tx_internal_data_*.go (one struct per transaction kind
// behind a common interface), generalized from klaytn's account-based
// transaction kinds to Fuel's UTXO-based ones.
package types

import (
	"encoding/binary"
	"fmt"

	"github.com/fuelnet/fuelnode/common"
)

// UtxoID addresses a coin output: the id of the producing transaction plus
// the output's position within it.
type UtxoID struct {
	TxID        common.Hash
	OutputIndex uint8
}

func (u UtxoID) Bytes() []byte {
	b := make([]byte, common.HashLength+1)
	copy(b, u.TxID[:])
	b[common.HashLength] = u.OutputIndex
	return b
}

func (u UtxoID) String() string {
	return fmt.Sprintf("%s:%d", u.TxID.String(), u.OutputIndex)
}

func UtxoIDFromBytes(b []byte) (UtxoID, error) {
	if len(b) != common.HashLength+1 {
		return UtxoID{}, fmt.Errorf("invalid utxo id length %d", len(b))
	}
	return UtxoID{TxID: common.BytesToHash(b[:common.HashLength]), OutputIndex: b[common.HashLength]}, nil
}

// TxPointer locates the transaction that produced a coin or created a
// contract: the block it was mined in and its index within that block.
type TxPointer struct {
	BlockHeight uint64
	TxIndex     uint16
}

func (p TxPointer) Bytes() []byte {
	b := make([]byte, 10)
	binary.BigEndian.PutUint64(b, p.BlockHeight)
	binary.BigEndian.PutUint16(b[8:], p.TxIndex)
	return b
}
