// Package work implements the PoA block-production state machine of
// spec.md §4.4: a trigger-gated timer loop that, on firing, pulls
// includable transactions from the pool, hands them to the executor,
// seals the resulting block under the configured consensus key, and
// commits it in one atomic storage transaction.
//
// Grounded on work/worker.go's mux/channel/mutex event-loop idiom
// (newWorker's chainHeadCh-driven commitNewWork, register/unregister of
// Agents) generalized per the design note from "mine continuously on
// every new head/tx" to "produce exactly when Trigger says to, and
// nothing else."
package work

import (
	"context"
	"sync"
	"time"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/consensus/poa"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/executor"
	"github.com/fuelnet/fuelnode/log"
	"github.com/fuelnet/fuelnode/metrics"
	"github.com/fuelnet/fuelnode/storage/database"
)

var logger = log.NewModuleLogger("work")

// TriggerKind is the closed set of production triggers from spec.md §4.4.
type TriggerKind uint8

const (
	TriggerNever TriggerKind = iota
	TriggerInstant
	TriggerInterval
	TriggerHybrid
)

// Trigger configures when the producer fires, per spec.md §6's `trigger`
// option.
type Trigger struct {
	Kind           TriggerKind
	Min            time.Duration // Interval
	MinBlockTime   time.Duration // Hybrid
	MaxTxIdleTime  time.Duration // Hybrid
	MaxBlockTime   time.Duration // Hybrid
}

// Pool is the subset of txpool.Pool the producer needs; named to keep the
// producer testable against a fake.
type Pool interface {
	Includable(maxGas uint64) []*types.Transaction
	Len() int
	ConsumableGas() uint64
	Remove(ids []common.Hash, reason error) []common.Hash
	BlockUpdate(included []common.Hash, blockID common.Hash, blockHeight uint64, skipped map[common.Hash]error)
}

// Config is the producer-relevant subset of spec.md §6.
type Config struct {
	Trigger           Trigger
	BlockGasLimit     uint64
	CoinbaseRecipient common.Address
	BaseAssetID       common.AssetID
	DaHeight          func() uint64
}

// BlockCommitted is broadcast on the import channel after a sealed block's
// storage transaction commits (spec.md §4.4 step 6).
type BlockCommitted struct {
	Block   types.Block
	BlockID common.Hash
}

// Producer is the PoA state machine. One Producer drives one node's block
// production; it has no notion of peers or competing producers, per
// spec.md §1's single-producer Non-goal.
type Producer struct {
	cfg     Config
	pool    Pool
	store   *database.Store
	exec    *executor.Executor
	engine  *poa.Engine
	metrics *metrics.Registry

	mu          sync.Mutex
	lastBlockAt time.Time
	lastTxAt    time.Time

	importedCh chan BlockCommitted
}

func New(cfg Config, pool Pool, store *database.Store, exec *executor.Executor, engine *poa.Engine, reg *metrics.Registry) *Producer {
	now := time.Now()
	if reg == nil {
		reg = metrics.New(false)
	}
	return &Producer{
		cfg:         cfg,
		pool:        pool,
		store:       store,
		exec:        exec,
		engine:      engine,
		metrics:     reg,
		lastBlockAt: now,
		lastTxAt:    now,
		importedCh:  make(chan BlockCommitted, 16),
	}
}

// Imported is the block-import broadcast channel (spec.md §4.4 step 6 /
// §5 "Block-import notifications arrive at subscribers in height order").
func (p *Producer) Imported() <-chan BlockCommitted { return p.importedCh }

// NotifyNewTx lets the gossip/admission path mark the last-tx-arrival
// instant the Hybrid trigger's max_tx_idle_time measures against.
func (p *Producer) NotifyNewTx() {
	p.mu.Lock()
	p.lastTxAt = time.Now()
	p.mu.Unlock()
}

// Run drives the trigger loop until ctx is cancelled, the cooperative
// cancellation design note's "checked at every suspension point": the
// select below is the producer's only suspension point.
func (p *Producer) Run(ctx context.Context) {
	if p.cfg.Trigger.Kind == TriggerNever {
		logger.Info("production disabled", "trigger", "Never")
		return
	}
	if p.engine == nil {
		logger.Warn("consensus key absent; producer will not produce", "trigger", p.cfg.Trigger.Kind)
		return
	}

	ticker := time.NewTicker(p.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.shouldProduce() {
				if err := p.produceOnce(ctx); err != nil {
					logger.Error("block production failed", "err", err)
					// Producer triggers have no internal timeout or
					// retry; the next tick simply tries again
					// (spec.md §5 "Cancellation and timeouts").
				}
			}
		}
	}
}

// tickInterval is the loop's polling granularity: for Instant it must be
// fine enough to react promptly to an empty-to-non-empty pool transition;
// for Interval/Hybrid it can safely be coarser since shouldProduce gates
// on wall-clock deadlines regardless of poll frequency.
func (p *Producer) tickInterval() time.Duration {
	switch p.cfg.Trigger.Kind {
	case TriggerInstant:
		return 20 * time.Millisecond
	case TriggerInterval:
		return minDuration(p.cfg.Trigger.Min, 250*time.Millisecond)
	case TriggerHybrid:
		return minDuration(p.cfg.Trigger.MinBlockTime, 250*time.Millisecond)
	default:
		return time.Second
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a > 0 && a < b {
		return a
	}
	return b
}

// shouldProduce implements the trigger decision table of spec.md §4.4.
func (p *Producer) shouldProduce() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.cfg.Trigger.Kind {
	case TriggerNever:
		return false
	case TriggerInstant:
		return p.pool.ConsumableGas() > 0 && p.pool.Len() > 0
	case TriggerInterval:
		return time.Since(p.lastBlockAt) >= p.cfg.Trigger.Min
	case TriggerHybrid:
		sinceBlock := time.Since(p.lastBlockAt)
		if sinceBlock >= p.cfg.Trigger.MaxBlockTime {
			return true
		}
		if p.pool.Len() == 0 {
			return false
		}
		return sinceBlock >= p.cfg.Trigger.MinBlockTime && time.Since(p.lastTxAt) >= p.cfg.Trigger.MaxTxIdleTime
	default:
		return false
	}
}

// produceOnce runs the six-step production sequence of spec.md §4.4.
func (p *Producer) produceOnce(ctx context.Context) error {
	// Step 1: current height, next height.
	height, found, err := p.store.LatestHeight()
	if err != nil {
		return errs.NewStorageError(err)
	}
	nextHeight := uint64(0)
	if found {
		nextHeight = height + 1
	}

	// Step 2: includable transactions bounded by block gas limit.
	candidates := p.pool.Includable(p.cfg.BlockGasLimit)

	daHeight := uint64(0)
	if p.cfg.DaHeight != nil {
		daHeight = p.cfg.DaHeight()
	}

	// Step 3: produce and execute against a fresh storage snapshot.
	result, txn, err := p.exec.ProduceAndExecuteBlock(nextHeight, daHeight, candidates, p.cfg.BlockGasLimit, p.cfg.CoinbaseRecipient, p.cfg.BaseAssetID, uint64(time.Now().Unix()))
	if err != nil {
		return err
	}

	// Step 4: seal and commit atomically.
	blockID, err := result.Block.ID()
	if err != nil {
		return errs.NewFatal(err)
	}
	seal, err := p.engine.Seal(blockID)
	if err != nil {
		return err
	}
	if err := database.PutBlock(txn, blockID, &result.Block); err != nil {
		return err
	}
	if err := database.SetConsensusSeal(txn, blockID, seal); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return errs.NewStorageError(err)
	}

	p.mu.Lock()
	p.lastBlockAt = time.Now()
	p.mu.Unlock()

	// Step 5: reconcile the pool against the committed block. The
	// synthesized Mint transaction is always the last entry in TxIDs and
	// was never pool-resident, so it is excluded from the included set.
	skipped := make(map[common.Hash]error, len(result.Skipped))
	for _, s := range result.Skipped {
		skipped[s.ID] = s.Reason
	}
	included := result.Block.TxIDs
	if len(included) > 0 {
		included = included[:len(included)-1]
	}
	p.pool.BlockUpdate(included, blockID, nextHeight, skipped)

	p.metrics.BlockHeight.Set(float64(nextHeight))
	p.metrics.BlockTxCount.Observe(float64(len(included)))

	// Step 6: broadcast the sealed block.
	select {
	case p.importedCh <- BlockCommitted{Block: result.Block, BlockID: blockID}:
	default:
		logger.Warn("import channel full, dropping broadcast", "height", nextHeight)
	}

	logger.Info("produced block", "height", nextHeight, "txs", len(result.Block.TxIDs), "block_id", blockID.String())
	return nil
}
