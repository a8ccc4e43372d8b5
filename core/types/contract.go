package types

import "github.com/fuelnet/fuelnode/common"

// StorageSlot is a single key/value pair of a contract's initial state, set
// at deployment time by a Create transaction.
type StorageSlot struct {
	Key   common.Hash
	Value common.Hash
}

// Contract is a deployed piece of bytecode addressed by a content-derived
// ContractID (spec.md §3 Create transaction, §6 contracts column).
type Contract struct {
	Salt             common.Hash
	Bytecode         []byte
	CodeRoot         common.Hash
	InitialStateRoot common.Hash
}

// ID is the content-addressed identifier used to look the contract up and
// to populate an OutputContractCreated: the hash of the code root, the
// initial state root and the deployer-chosen salt.
func (c Contract) ID() common.Hash {
	buf := make([]byte, 0, common.HashLength*3)
	buf = append(buf, c.CodeRoot.Bytes()...)
	buf = append(buf, c.InitialStateRoot.Bytes()...)
	buf = append(buf, c.Salt.Bytes()...)
	return common.Hash256(buf)
}
