// Package p2pglue implements the inbound-gossip and peer-connect glue of
// spec.md §4.7: gossiped transactions run the same admission path as
// direct submissions, pool results map to a gossip verdict reported back
// to the transport, and a newly connected peer receives the local pool in
// wire-size-bounded batches.
//
// The transport itself (libp2p gossipsub/request-response, peer discovery)
// is an external collaborator per spec.md §1 and is not implemented here;
// this package only specifies the boundary ports and the glue logic
// between them and txpool.Pool, grounded on original fuel-p2p/src/
// service.rs's gossipsub publish/next_event/send_request_msg contract and
// klaytn's networks/p2p peer/request correlation idiom. Outstanding
// requests are correlated with github.com/satori/go.uuid (a klaytn
// dependency).
package p2pglue

import (
	uuid "github.com/satori/go.uuid"

	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/log"
	"github.com/fuelnet/fuelnode/txpool"
)

var logger = log.NewModuleLogger("p2pglue")

// GossipVerdict is reported back to the transport for each gossiped
// message so it can update the originating peer's gossip score.
type GossipVerdict uint8

const (
	VerdictAccept GossipVerdict = iota
	VerdictReject
	VerdictIgnore
)

// Transport is the boundary this package reports gossip verdicts and
// correlates outbound requests against; its wire-level implementation is
// out of scope per spec.md §1.
type Transport interface {
	ReportGossipVerdict(messageID uuid.UUID, peer string, verdict GossipVerdict)
	SendPooledTransactions(peer string, batch []*types.Transaction) error
}

// MaxSyncBatchBytes bounds a single pool-sync message's encoded size, the
// "per-message wire limit" spec.md §4.7 requires batching under.
const MaxSyncBatchBytes = 512 * 1024

// Glue wires inbound gossip and peer-connect events to the pool.
type Glue struct {
	pool      *txpool.Pool
	transport Transport
	height    func() uint64
}

func New(pool *txpool.Pool, transport Transport, currentHeight func() uint64) *Glue {
	return &Glue{pool: pool, transport: transport, height: currentHeight}
}

// OnGossipTransaction admits a single gossiped transaction through the
// pool's ordinary admission path and reports the resulting verdict.
func (g *Glue) OnGossipTransaction(messageID uuid.UUID, peer string, tx *types.Transaction) GossipVerdict {
	results := g.pool.Insert([]*types.Transaction{tx}, g.height())
	result := results[0]

	var verdict GossipVerdict
	switch {
	case result.Outcome != nil:
		verdict = VerdictAccept
	case isKnownOrIgnorable(result.Reject):
		verdict = VerdictIgnore
	default:
		verdict = VerdictReject
	}

	g.transport.ReportGossipVerdict(messageID, peer, verdict)
	return verdict
}

// isKnownOrIgnorable reports whether a reject reason reflects the gossiped
// tx being already known/stale rather than actively malicious, which
// should not penalize the relaying peer's gossip score.
func isKnownOrIgnorable(reject error) bool {
	reason, ok := reject.(errs.RejectReason)
	if !ok {
		return false
	}
	switch reason.String() {
	case "TxKnown":
		return true
	default:
		return false
	}
}

// OnPeerConnected ships the local pool to a newly connected peer in
// batches sized under MaxSyncBatchBytes, per spec.md §4.7's peer-connect
// pool-sync sub-task.
func (g *Glue) OnPeerConnected(peer string) {
	all := g.pool.All()
	if len(all) == 0 {
		return
	}

	var batch []*types.Transaction
	size := 0
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := g.transport.SendPooledTransactions(peer, batch); err != nil {
			logger.Warn("pool sync send failed", "peer", peer, "err", err)
		}
		batch = nil
		size = 0
	}

	for _, tx := range all {
		encSize := estimateEncodedSize(tx)
		if size+encSize > MaxSyncBatchBytes && len(batch) > 0 {
			flush()
		}
		batch = append(batch, tx)
		size += encSize
	}
	flush()
}

// estimateEncodedSize is a cheap upper bound on a transaction's wire size,
// good enough for batch-sizing without paying for a full encode per tx.
func estimateEncodedSize(tx *types.Transaction) int {
	size := 64
	for _, w := range tx.Witnesses {
		size += len(w)
	}
	if tx.Bytecode != nil {
		size += len(tx.Bytecode)
	}
	size += len(tx.Inputs)*128 + len(tx.Outputs)*96
	return size
}

// OnPoolSyncBatch admits an inbound pool-sync payload one-by-one; per-tx
// errors are logged and do not abort the batch (spec.md §4.7 "errors log
// and continue").
func (g *Glue) OnPoolSyncBatch(peer string, batch []*types.Transaction) {
	results := g.pool.Insert(batch, g.height())
	for i, result := range results {
		if result.Reject != nil && !isKnownOrIgnorable(result.Reject) {
			logger.Debug("pool sync entry rejected", "peer", peer, "index", i, "err", result.Reject)
		}
	}
}

// NewCorrelationID mints a correlation id for an outstanding request,
// grounded on fuel-p2p's request/response id correlation (service.rs's
// send_request_msg), implemented with the klaytn dependency tree's
// github.com/satori/go.uuid rather than inventing an id scheme.
func NewCorrelationID() (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.UUID{}, errs.NewFatal(err)
	}
	return id, nil
}
