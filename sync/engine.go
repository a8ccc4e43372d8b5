// Package sync drives the local chain tip to the network tip using peers
// as a pull source, per spec.md §4.5: a three-stage pipeline (headers →
// transactions → execute/commit) with per-stage concurrency bounds and
// strictly ascending-height commits.
//
// Grounded on the original crates/services/sync back-pressure design
// (each stage a bounded channel sized to its concurrency bound) combined
// with golang.org/x/sync/semaphore.Weighted (an erigon/coreth dependency
// in the pack) to cap in-flight requests per stage, and
// gopkg.in/karalabe/cookiejar.v2/collections/prque (a klaytn dependency,
// used upstream by the fetcher's block queue) to reassemble
// out-of-order header/body arrivals into the ascending order the commit
// stage requires.
package sync

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/log"
)

var logger = log.NewModuleLogger("sync")

// SourcePeer pairs a fetched value with the peer that supplied it, so a
// validation failure can be attributed to that peer. The engine does not
// retry a failed request from another peer: the failure ends Run.
type SourcePeer[T any] struct {
	Peer  string
	Value T
}

// SealedHeader is the wire/commit unit the header stage fetches and the
// consensus port validates.
type SealedHeader struct {
	Height    uint64
	BlockID   common.Hash
	Signature []byte
}

// SealedBlock is a header plus its full transaction bodies, the unit the
// commit stage hands to BlockImporterPort.
type SealedBlock struct {
	Header SealedHeader
	TxIDs  []common.Hash
}

// PeerToPeer is the transport boundary this engine pulls from; the
// transport itself is an external collaborator per spec.md §1.
type PeerToPeer interface {
	HeightStream() <-chan uint64
	GetSealedBlockHeaders(ctx context.Context, start, end uint64) ([]SourcePeer[SealedHeader], error)
	GetTransactions(ctx context.Context, sp SourcePeer[common.Hash]) (SourcePeer[[]common.Hash], bool, error)
}

// BlockImporterPort commits a fully-assembled block to storage.
type BlockImporterPort interface {
	ExecuteAndCommit(ctx context.Context, block SealedBlock) error
}

// ConsensusPort validates a header's seal and can block until a required
// DA height is observed.
type ConsensusPort interface {
	CheckSealedHeader(header SealedHeader) bool
	AwaitDAHeight(ctx context.Context, da uint64) error
}

// Config carries the sync-relevant subset of spec.md §6.
type Config struct {
	HeaderBatchSize        int
	MaxHeaderBatchRequests int
	MaxGetTxnsRequests     int
}

// Engine runs the pipelined sync loop. One Engine drives one node's catch-up
// to its peers' reported tip; it holds no chain state itself beyond the
// local height it reads from storage at each iteration.
type Engine struct {
	cfg   Config
	p2p   PeerToPeer
	cons  ConsensusPort
	imp   BlockImporterPort
	local func() (uint64, bool, error)
}

func New(cfg Config, p2p PeerToPeer, cons ConsensusPort, imp BlockImporterPort, localHeight func() (uint64, bool, error)) *Engine {
	return &Engine{cfg: cfg, p2p: p2p, cons: cons, imp: imp, local: localHeight}
}

// headerJob is one batch of headers in flight through the pipeline. It
// carries no semaphore claim: stage 1 releases its header-semaphore slot
// once the batch has been fetched and handed on.
type headerJob struct {
	start, end uint64
	headers    []SourcePeer[SealedHeader]
}

// Run drives the loop until target height is reached or ctx is cancelled.
// It is re-entrant: a caller may invoke Run again whenever HeightStream
// reports a new, higher peer tip. The node package only constructs the
// engine (WireSync); it does not call Run itself.
func (e *Engine) Run(ctx context.Context, targetHeight uint64) error {
	start, found, err := e.local()
	if err != nil {
		return errs.NewStorageError(err)
	}
	next := uint64(0)
	if found {
		next = start + 1
	}
	if next > targetHeight {
		return nil
	}

	headerSem := semaphore.NewWeighted(int64(maxInt(1, e.cfg.MaxHeaderBatchRequests)))
	txSem := semaphore.NewWeighted(int64(maxInt(1, e.cfg.MaxGetTxnsRequests)))

	jobs := make(chan *headerJob, e.cfg.MaxHeaderBatchRequests+1)
	assembled := make(chan SealedBlock, e.cfg.MaxGetTxnsRequests+1)
	errCh := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go e.fetchHeaders(ctx, next, targetHeight, headerSem, jobs, errCh)
	go e.fetchTransactions(ctx, txSem, jobs, assembled, errCh)

	return e.commitInOrder(ctx, next, targetHeight, assembled, errCh, cancel)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// fetchHeaders is stage 1: request header_batch_size ranges, up to
// max_header_batch_requests concurrently, running consensus validation
// inline before handing batches on to stage 2. Concurrent batches can
// complete out of start-order; that's fine, stage 3's reorderBuffer is the
// single place height order is enforced.
func (e *Engine) fetchHeaders(ctx context.Context, next, target uint64, sem *semaphore.Weighted, out chan<- *headerJob, errCh chan<- error) {
	defer close(out)
	batch := uint64(maxInt(1, e.cfg.HeaderBatchSize))

	var wg sync.WaitGroup
	for start := next; start <= target; start += batch {
		end := start + batch - 1
		if end > target {
			end = target
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return
		}
		start, end := start, end
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			headers, err := e.p2p.GetSealedBlockHeaders(ctx, start, end)
			if err != nil {
				select {
				case errCh <- fmt.Errorf("fetch headers [%d,%d]: %w", start, end, errs.NewSyncError(err)):
				default:
				}
				return
			}
			for _, h := range headers {
				if !e.cons.CheckSealedHeader(h.Value) {
					select {
					case errCh <- errs.NewSyncError(fmt.Errorf("header at height %d failed consensus check from peer %s", h.Value.Height, h.Peer)):
					default:
					}
					return
				}
			}

			select {
			case out <- &headerJob{start: start, end: end, headers: headers}:
			case <-ctx.Done():
			}
		}()
	}
	wg.Wait()
}

// fetchTransactions is stage 2: bounded by max_get_txns_requests, fetches
// bodies for every header in a job concurrently (so completions arrive out
// of height order) and emits fully-assembled blocks for stage 3 to
// reassemble.
func (e *Engine) fetchTransactions(ctx context.Context, sem *semaphore.Weighted, in <-chan *headerJob, out chan<- SealedBlock, errCh chan<- error) {
	defer close(out)

	var wg sync.WaitGroup
	for job := range in {
		for _, h := range job.headers {
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return
			}
			h := h
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				sp, ok, err := e.p2p.GetTransactions(ctx, SourcePeer[common.Hash]{Peer: h.Peer, Value: h.Value.BlockID})
				if err != nil {
					select {
					case errCh <- errs.NewSyncError(err):
					default:
					}
					return
				}
				if !ok {
					select {
					case errCh <- errs.NewSyncError(fmt.Errorf("transactions for block %s unavailable from peer %s", h.Value.BlockID, h.Peer)):
					default:
					}
					return
				}
				select {
				case out <- SealedBlock{Header: h.Value, TxIDs: sp.Value}:
				case <-ctx.Done():
				}
			}()
		}
	}
	wg.Wait()
}

// commitInOrder is stage 3: concurrency 1, serial, strictly ascending
// height. Stage 2 completions arrive in whatever order their concurrent
// fetches finished in, so this stage buffers early arrivals in a
// reorderBuffer and only commits once the next expected height is present,
// per spec.md §4.5 "Commits occur strictly in ascending block height."
func (e *Engine) commitInOrder(ctx context.Context, next, target uint64, in <-chan SealedBlock, errCh <-chan error, cancel context.CancelFunc) error {
	buf := newReorderBuffer(next)

	for buf.expect <= target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			cancel()
			return err
		case block, ok := <-in:
			if !ok {
				select {
				case err := <-errCh:
					return err
				default:
				}
				if buf.expect <= target {
					return errs.NewSyncError(fmt.Errorf("sync aborted before reaching height %d", target))
				}
				return nil
			}
			buf.Push(block)
			for _, ready := range buf.Drain() {
				if err := e.imp.ExecuteAndCommit(ctx, ready); err != nil {
					cancel()
					return err
				}
				logger.Info("committed synced block", "height", ready.Header.Height, "block_id", ready.Header.BlockID.String())
			}
		}
	}
	return nil
}
