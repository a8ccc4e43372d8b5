package types

// ConsensusParameters bounds the shapes of transactions and blocks the
// executor and admission pipeline will accept, loaded once at genesis and
// held immutable for the life of the node (spec.md §6).
type ConsensusParameters struct {
	MaxInputs        uint16
	MaxOutputs       uint16
	MaxWitnesses     uint16
	MaxGasPerTx      uint64
	BlockGasLimit    uint64
	BaseAssetID      [32]byte
	ChainID          uint64
	MaxBlockTxsCount uint32
}

// DefaultConsensusParameters mirrors the development genesis defaults; a
// real deployment always overrides these via the genesis config.
func DefaultConsensusParameters() ConsensusParameters {
	return ConsensusParameters{
		MaxInputs:        255,
		MaxOutputs:       255,
		MaxWitnesses:     16,
		MaxGasPerTx:      30_000_000,
		BlockGasLimit:    60_000_000,
		ChainID:          0,
		MaxBlockTxsCount: 65535,
	}
}
