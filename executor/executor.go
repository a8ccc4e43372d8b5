// Package executor implements the deterministic block applicator of
// spec.md §4.5 (component numbering per SPEC_FULL.md §D: the spec.md
// prose numbers it under the producer's call sequence in §4.4 step 3):
// apply a block's transactions against a storage snapshot inside one
// write transaction, returning an ExecutionResult and the list of
// transactions that had to be skipped.
//
// Grounded on the teacher's state_transition idiom — blockchain/state
// applies one transaction at a time against a StateDB, rolling back to a
// pre-transaction snapshot on failure (the teacher's work/worker.go
// commitTransaction calls env.state.Snapshot()/RevertToSnapshot) — adapted
// from account/state mutation to UTXO consumption/production, and from
// original upgradable-executor/src/executor.rs's skip-vs-abort
// classification.
package executor

import (
	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/log"
	"github.com/fuelnet/fuelnode/merkle"
	"github.com/fuelnet/fuelnode/storage/database"
)

var logger = log.NewModuleLogger("executor")

// SkippedTransaction pairs a transaction id with the reason the executor
// could not include it; the producer relays these verbatim to the pool's
// remove_txs per spec.md §4.4 step 4.
type SkippedTransaction struct {
	ID     common.Hash
	Reason error
}

// ExecutionResult is everything the producer and sync engine need after a
// block finishes executing.
type ExecutionResult struct {
	Block              types.Block
	Skipped            []SkippedTransaction
	TxRoot             common.Hash
	OutputMessagesRoot common.Hash
}

// Executor applies transactions against a Store's write transaction.
// UTXO-validation (signature/predicate checks) has already run at
// admission time for pool-sourced transactions; the executor re-derives
// nothing it doesn't have to, but never trusts fee/amount bookkeeping
// computed outside its own pass, per spec.md §4.5 "deterministic".
type Executor struct {
	store  *database.Store
	params types.ConsensusParameters
}

func New(store *database.Store, params types.ConsensusParameters) *Executor {
	return &Executor{store: store, params: params}
}

// ProduceAndExecuteBlock is the producer-facing entry point (spec.md §4.4
// step 3): build a block at height from candidates, bounded by maxGas,
// executing each in order, skipping (not aborting on) per-tx failures that
// classify as skippable. A Mint transaction crediting coinbaseRecipient
// closes out the block. The returned Txn is uncommitted; the caller seals
// the header and commits atomically.
func (e *Executor) ProduceAndExecuteBlock(height, daHeight uint64, candidates []*types.Transaction, maxGas uint64, coinbaseRecipient common.Address, baseAsset common.AssetID, now uint64) (*ExecutionResult, *database.Txn, error) {
	txn := e.store.WriteTransaction()
	result := &ExecutionResult{}

	var includedIDs []common.Hash
	var gasUsed uint64
	var totalFees uint64

	txTree := merkle.NewTree()
	msgTree := merkle.NewTree()

	for _, tx := range candidates {
		id, err := tx.ID()
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedTransaction{Reason: err})
			continue
		}
		if gasUsed+tx.MaxGas() > maxGas {
			result.Skipped = append(result.Skipped, SkippedTransaction{ID: id, Reason: errs.ReasonGasLimitExceedsBlock})
			continue
		}

		fee, execErr := e.applyTransaction(txn, tx, id, height, msgTree)
		if execErr != nil {
			if ee, ok := execErr.(*errs.ExecutorError); ok && ee.Skippable {
				result.Skipped = append(result.Skipped, SkippedTransaction{ID: id, Reason: ee.Err})
				continue
			}
			return nil, nil, execErr
		}

		gasUsed += tx.MaxGas()
		totalFees += fee
		includedIDs = append(includedIDs, id)
		txTree.Push(id.Bytes())

		if err := database.PutTransaction(txn, id, tx); err != nil {
			return nil, nil, err
		}
		if err := database.SetTxStatus(txn, id, database.TxStatus{Kind: database.TxStatusSuccess, BlockHeight: height}); err != nil {
			return nil, nil, err
		}
	}

	mint := mintTransaction(coinbaseRecipient, baseAsset, totalFees)
	mintID, err := mint.ID()
	if err != nil {
		return nil, nil, errs.NewFatal(err)
	}
	if err := e.applyMint(txn, mint, mintID, height); err != nil {
		return nil, nil, errs.NewFatal(err)
	}
	includedIDs = append(includedIDs, mintID)
	txTree.Push(mintID.Bytes())
	if err := database.PutTransaction(txn, mintID, mint); err != nil {
		return nil, nil, err
	}

	block := types.Block{
		Header: types.BlockHeader{
			Height:             height,
			DaHeight:           daHeight,
			Time:               now,
			TxRoot:             txTree.Root(),
			OutputMessagesRoot: msgTree.Root(),
		},
		TxIDs: includedIDs,
	}
	result.Block = block
	result.TxRoot = block.Header.TxRoot
	result.OutputMessagesRoot = block.Header.OutputMessagesRoot

	logger.Debug("executed block", "height", height, "included", len(includedIDs)-1, "skipped", len(result.Skipped))
	return result, txn, nil
}

// applyTransaction consumes tx's inputs and produces its outputs against
// txn, returning the fee actually collected. Any failure here is wrapped
// as a *errs.ExecutorError; whether it is Skippable follows the same
// classification admission uses for the analogous reject reason.
func (e *Executor) applyTransaction(txn *database.Txn, tx *types.Transaction, id common.Hash, height uint64, msgTree merkle.Tree) (fee uint64, err error) {
	if uint64(tx.Maturity) > height {
		return 0, &errs.ExecutorError{Skippable: true, Err: errs.ReasonNotSupported}
	}

	for _, in := range tx.Inputs {
		switch {
		case in.IsCoin():
			v, found, gerr := txn.Get(database.ColumnCoins, in.UtxoID.Bytes())
			if gerr != nil {
				return 0, &errs.ExecutorError{Skippable: false, Err: gerr}
			}
			if !found {
				return 0, &errs.ExecutorError{Skippable: true, Err: errs.ReasonInputUtxoIdNotExisting(in.UtxoID.String())}
			}
			var coin types.Coin
			if derr := database.Decode(v, &coin); derr != nil {
				return 0, &errs.ExecutorError{Skippable: false, Err: derr}
			}
			if coin.Status == types.CoinSpent {
				return 0, &errs.ExecutorError{Skippable: true, Err: errs.ReasonInputUtxoIdSpent(in.UtxoID.String())}
			}
			if serr := database.SpendCoin(txn, coin); serr != nil {
				return 0, &errs.ExecutorError{Skippable: false, Err: serr}
			}
		case in.IsMessage():
			v, found, gerr := txn.Get(database.ColumnMessages, in.Nonce.Bytes())
			if gerr != nil {
				return 0, &errs.ExecutorError{Skippable: false, Err: gerr}
			}
			if !found {
				return 0, &errs.ExecutorError{Skippable: true, Err: errs.ReasonInputMessageUnknown(in.Nonce.String())}
			}
			var msg types.Message
			if derr := database.Decode(v, &msg); derr != nil {
				return 0, &errs.ExecutorError{Skippable: false, Err: derr}
			}
			if msg.Status == types.MessageSpent {
				return 0, &errs.ExecutorError{Skippable: true, Err: errs.ReasonInputMessageIdSpent(in.Nonce.String())}
			}
			if serr := database.SpendMessage(txn, msg); serr != nil {
				return 0, &errs.ExecutorError{Skippable: false, Err: serr}
			}
		case in.IsContract():
			if _, found, gerr := txn.Get(database.ColumnContractsInfo, in.ContractID.Bytes()); gerr != nil {
				return 0, &errs.ExecutorError{Skippable: false, Err: gerr}
			} else if !found {
				return 0, &errs.ExecutorError{Skippable: true, Err: errs.ReasonInputContractNotExisting(in.ContractID.String())}
			}
		}
	}

	for i, out := range tx.Outputs {
		switch out.Kind {
		case types.OutputCoin, types.OutputChange, types.OutputVariable:
			coin := types.Coin{
				UtxoID:    types.UtxoID{TxID: id, OutputIndex: uint8(i)},
				Owner:     out.To,
				Amount:    out.Amount,
				AssetID:   out.AssetID,
				TxPointer: types.TxPointer{BlockHeight: height, TxIndex: 0},
			}
			if perr := database.PutCoin(txn, coin); perr != nil {
				return 0, &errs.ExecutorError{Skippable: false, Err: perr}
			}
		case types.OutputContractCreated:
			database.SetContractLatestUtxo(txn, out.ContractID, types.UtxoID{TxID: id, OutputIndex: uint8(i)})
		case types.OutputContract:
			contractID := tx.Inputs[out.InputIndex].ContractID
			database.SetContractLatestUtxo(txn, contractID, types.UtxoID{TxID: id, OutputIndex: uint8(i)})
		case types.OutputMessage:
			msgID := common.Hash256(append(append(out.To.Bytes(), common.Key64(out.Amount)...), id.Bytes()...))
			msgTree.Push(msgID.Bytes())
		}
	}

	return tx.GasPrice * tx.GasLimit, nil
}

// applyMint appends the producer's coinbase-style reward transaction; it
// is never subject to the admission path (spec.md §4.2 step 1 rejects Mint
// outright for submitters) and is only ever constructed here.
func (e *Executor) applyMint(txn *database.Txn, mint *types.Transaction, id common.Hash, height uint64) error {
	for i, out := range mint.Outputs {
		coin := types.Coin{
			UtxoID:    types.UtxoID{TxID: id, OutputIndex: uint8(i)},
			Owner:     out.To,
			Amount:    out.Amount,
			AssetID:   out.AssetID,
			TxPointer: types.TxPointer{BlockHeight: height},
		}
		if err := database.PutCoin(txn, coin); err != nil {
			return err
		}
	}
	return database.SetTxStatus(txn, id, database.TxStatus{Kind: database.TxStatusSuccess, BlockHeight: height})
}

func mintTransaction(recipient common.Address, baseAsset common.AssetID, fees uint64) *types.Transaction {
	return &types.Transaction{
		Kind: types.KindMint,
		Outputs: []types.Output{
			{Kind: types.OutputCoin, To: recipient, Amount: fees, AssetID: baseAsset},
		},
	}
}
