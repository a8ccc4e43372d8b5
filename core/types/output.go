package types

import "github.com/fuelnet/fuelnode/common"

// OutputKind is the closed set of output variants from spec.md §3.
type OutputKind uint8

const (
	OutputCoin OutputKind = iota
	OutputContract
	OutputChange
	OutputVariable
	OutputContractCreated
	OutputMessage
)

// Output is a union of all output variants, mirroring Input's shallow-union
// design.
type Output struct {
	Kind OutputKind

	// Coin, Change, Variable, Message outputs.
	To      common.Address
	Amount  uint64
	AssetID common.AssetID

	// Contract output: back-references the contract input it updates.
	InputIndex  uint8
	BalanceRoot common.Hash
	StateRoot   common.Hash

	// ContractCreated output: the id and initial state root of a newly
	// deployed contract.
	ContractID       common.Hash
	InitialStateRoot common.Hash
}

func (o Output) SpendsAsset() bool {
	switch o.Kind {
	case OutputCoin, OutputChange, OutputVariable:
		return true
	default:
		return false
	}
}
