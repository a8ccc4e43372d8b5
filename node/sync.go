package node

import (
	"context"

	"github.com/fuelnet/fuelnode/consensus/poa"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/storage/database"
	"github.com/fuelnet/fuelnode/sync"
)

// syncConsensusAdapter satisfies sync.ConsensusPort against the node's
// single PoA authority: a synced header is only accepted if it carries a
// seal from the same key this node would itself seal with.
type syncConsensusAdapter struct {
	engine *poa.Engine
}

func (a *syncConsensusAdapter) CheckSealedHeader(h sync.SealedHeader) bool {
	if a.engine == nil {
		return false
	}
	return poa.CheckSealedHeader(h.BlockID, database.ConsensusSeal{Signature: h.Signature}, a.engine.Address())
}

// AwaitDAHeight is a no-op: the settlement-layer height oracle spec.md §1
// defers to an external collaborator is not modeled here, so synced
// headers never block on it.
func (a *syncConsensusAdapter) AwaitDAHeight(ctx context.Context, da uint64) error {
	return nil
}

// syncImporterAdapter satisfies sync.BlockImporterPort by recording the
// synced header/id index and reconciling the pool against its tx ids.
// GetTransactions' wire contract only resolves tx ids, not bodies (spec.md
// §4.5), so full UTXO state application for synced blocks is left for the
// executor to catch up on; this adapter advances the committed height and
// block index other lookups (GetBlock, LatestHeight) depend on.
type syncImporterAdapter struct {
	node *Node
}

func (a *syncImporterAdapter) ExecuteAndCommit(ctx context.Context, block sync.SealedBlock) error {
	txn := a.node.store.WriteTransaction()
	stored := types.Block{Header: types.BlockHeader{Height: block.Header.Height}, TxIDs: block.TxIDs}
	if err := database.PutBlock(txn, block.Header.BlockID, &stored); err != nil {
		return err
	}
	if err := database.SetConsensusSeal(txn, block.Header.BlockID, database.ConsensusSeal{Signature: block.Header.Signature}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return errs.NewStorageError(err)
	}
	a.node.pool.BlockUpdate(block.TxIDs, block.Header.BlockID, block.Header.Height, nil)
	return nil
}

// WireSync constructs the sync engine against a concrete PeerToPeer
// transport, once the node's process has one (an external collaborator per
// spec.md §1, the same deferral WireTransport documents for gossip).
func (n *Node) WireSync(p2p sync.PeerToPeer) {
	cfg := sync.Config{
		HeaderBatchSize:        n.cfg.HeaderBatchSize,
		MaxHeaderBatchRequests: n.cfg.MaxHeaderBatchRequests,
		MaxGetTxnsRequests:     n.cfg.MaxGetTxnsRequests,
	}
	n.syncEngine = sync.New(cfg, p2p, &syncConsensusAdapter{engine: n.engine}, &syncImporterAdapter{node: n}, n.store.LatestHeight)
}

// Sync returns the sync engine, or nil if WireSync has not been called.
func (n *Node) Sync() *sync.Engine { return n.syncEngine }
