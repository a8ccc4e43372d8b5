package txpool

import (
	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
)

// checkedTx is the product of admission step 2: a transaction proven to be
// well-formed, (optionally) properly authorized, and fee-ready at the
// current gas price.
type checkedTx struct {
	tx  *types.Transaction
	id  common.Hash
	fee uint64
}

// checkStatic runs the structural half of step 2: shape limits against the
// consensus parameters, and maturity against the current height. Fuel's
// closed reject-reason set has no dedicated "too many inputs"/"too many
// outputs" variant, so structural violations resolve to the generic
// NotSupported reason, the same bucket the source reserves for
// not-yet-implemented transaction shapes.
func checkStatic(tx *types.Transaction, params types.ConsensusParameters, currentHeight uint64) error {
	if len(tx.Inputs) > int(params.MaxInputs) || len(tx.Outputs) > int(params.MaxOutputs) || len(tx.Witnesses) > int(params.MaxWitnesses) {
		return errs.ReasonNotSupported
	}
	if uint64(tx.Maturity) > currentHeight {
		return errs.ReasonNotSupported
	}
	for _, out := range tx.Outputs {
		if out.Kind != types.OutputContract {
			continue
		}
		if int(out.InputIndex) >= len(tx.Inputs) || !tx.Inputs[out.InputIndex].IsContract() {
			return errs.ReasonIoContractOutput
		}
	}
	return nil
}

// checkAuthorization runs the UTXO-validation half of step 2: every
// signed input's witness must recover to its claimed owner, every
// predicate input's predicate must be syntactically well-formed (full
// predicate execution is delegated to the parallel executor abstraction
// and is out of the pool's admission path). Disabled entirely when
// utxo_validation is off, the dev-mode fast path.
func checkAuthorization(tx *types.Transaction, verifyWitness func(in types.Input, witnesses [][]byte) bool) error {
	for _, in := range tx.Inputs {
		switch in.Kind {
		case types.InputCoinSigned:
			if !verifyWitness(in, tx.Witnesses) {
				return errs.ReasonIoWrongOwner
			}
		case types.InputMessageCoinSigned, types.InputMessageDataSigned:
			if !verifyWitness(in, tx.Witnesses) {
				return errs.ReasonIoMessageInput
			}
		case types.InputCoinPredicate:
			if len(in.Predicate) == 0 {
				return errs.ReasonIoWrongOwner
			}
		case types.InputMessageCoinPredicate, types.InputMessageDataPredicate:
			if len(in.Predicate) == 0 {
				return errs.ReasonIoMessageInput
			}
		}
	}
	return nil
}

// checkFeeReadiness sums spendable base-asset value across coin/message
// inputs and compares it to the outputs plus the transaction's worst-case
// fee (gas_price * gas_limit). Mint transactions pass trivially once the
// gas-price floor holds; a zero gas price only makes the fee term zero, so
// the inputs must still cover the outputs.
func checkFeeReadiness(tx *types.Transaction, baseAsset common.AssetID, minGasPrice uint64) error {
	if tx.GasPrice < minGasPrice {
		return errs.ReasonGasPriceTooLow
	}
	if tx.IsMint() {
		return nil
	}

	var in, out uint64
	for _, input := range tx.Inputs {
		if assetOf(input) == baseAsset {
			in += input.Amount
		}
	}
	for _, output := range tx.Outputs {
		if !output.SpendsAsset() {
			continue
		}
		if output.AssetID == baseAsset {
			out += output.Amount
		}
	}
	fee := tx.GasPrice * tx.GasLimit
	if in < out+fee {
		return errs.ReasonIoWrongAmount
	}
	return nil
}

func assetOf(in types.Input) common.AssetID {
	if in.IsCoin() {
		return in.AssetID
	}
	return common.AssetID{}
}

// checkBlacklist runs admission step 3 over every input's identifying
// resource.
func checkBlacklist(tx *types.Transaction, bl Blacklist) error {
	for _, in := range tx.Inputs {
		switch {
		case in.IsCoin():
			if bl.hasUtxo(in.UtxoID) {
				return errs.ReasonBlacklistedUTXO(in.UtxoID.String())
			}
			if bl.hasAddress(in.Owner) {
				return errs.ReasonBlacklistedOwner(in.Owner.String())
			}
		case in.IsMessage():
			if bl.hasMessage(in.Nonce) {
				return errs.ReasonBlacklistedMessage(in.Nonce.String())
			}
			if bl.hasAddress(in.Recipient) {
				return errs.ReasonBlacklistedOwner(in.Recipient.String())
			}
		case in.IsContract():
			if bl.hasContract(in.ContractID) {
				return errs.ReasonBlacklistedContract(in.ContractID.String())
			}
		}
	}
	return nil
}

// checkGasLimit runs admission step 4.
func checkGasLimit(tx *types.Transaction, blockGasLimit uint64) error {
	if tx.MaxGas() > blockGasLimit {
		return errs.ReasonGasLimitExceedsBlock
	}
	return nil
}
