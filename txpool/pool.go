// Package txpool implements the transaction pool of spec.md §4.2: per-tx
// admission, three secondary indexes, the input/output dependency graph,
// cascading eviction, TTL pruning and block-commit reconciliation, guarded
// by a single mutex per spec.md §5's "pool state is a single logical cell"
// ordering guarantee.
//
// Grounded on go-ethereum core/txpool/txpool.go's single pool.mu guarding
// every index, generalized to Fuel's UTXO dependency graph per the
// "Shared mutable collections guarded by a single lock" design note.
package txpool

import (
	"sort"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/log"
	"github.com/fuelnet/fuelnode/metrics"
	"github.com/fuelnet/fuelnode/storage/database"
	"github.com/fuelnet/fuelnode/txpool/dependency"
	"github.com/fuelnet/fuelnode/txpool/notify"
)

var logger = log.NewModuleLogger("txpool")

// Config carries the pool-relevant subset of spec.md §6's enumerated
// configuration options.
type Config struct {
	MinGasPrice    uint64
	UtxoValidation bool
	MaxTx          int
	MaxDepth       int
	TransactionTTL time.Duration
	BlockGasLimit  uint64
}

// InsertionOutcome is the per-tx success payload of spec.md §4.2 insert.
type InsertionOutcome struct {
	Inserted    common.Hash
	Removed     []common.Hash
	SubmittedAt time.Time
}

// InsertResult is one batch-insert slot: exactly one of Outcome/Reject is set.
type InsertResult struct {
	Outcome *InsertionOutcome
	Reject  error
}

// TxInfo is the externally visible projection of a pooled transaction.
type TxInfo struct {
	Tx          *types.Transaction
	ID          common.Hash
	Tip         uint64
	SubmittedAt time.Time
}

type tipKey struct {
	tip uint64
	id  common.Hash
}

func lessTip(a, b tipKey) bool {
	if a.tip != b.tip {
		return a.tip > b.tip // descending tip order
	}
	return lessHash(a.id, b.id)
}

func lessHash(a, b common.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

type timeKey struct {
	at time.Time
	id common.Hash
}

func lessTime(a, b timeKey) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return lessHash(a.id, b.id)
}

// VerifyWitnessFunc authorizes a signed input against the tx's witnesses,
// the hot-path half of admission step 2 (predicate execution itself runs
// off-thread per spec.md §5 and is not modeled here — see Non-goals §1).
type VerifyWitnessFunc func(in types.Input, witnesses [][]byte) bool

// Pool is the node's mempool. All mutable state lives behind mu; per
// spec.md §5, no suspension point may occur while mu is held.
type Pool struct {
	mu sync.Mutex

	cfg     Config
	params  types.ConsensusParameters
	store   *database.Store
	graph   *dependency.Graph
	bl      Blacklist
	feed    *notify.Feed
	metrics *metrics.Registry

	verifyWitness VerifyWitnessFunc

	byID   map[common.Hash]*types.PendingTransaction
	byTip  *btree.BTreeG[tipKey]
	byTime *btree.BTreeG[timeKey]
}

func New(cfg Config, params types.ConsensusParameters, store *database.Store, verifyWitness VerifyWitnessFunc, reg *metrics.Registry) *Pool {
	if reg == nil {
		reg = metrics.New(false)
	}
	return &Pool{
		cfg:           cfg,
		params:        params,
		store:         store,
		graph:         dependency.New(cfg.MaxDepth),
		bl:            NewBlacklist(),
		feed:          notify.NewFeed(),
		metrics:       reg,
		verifyWitness: verifyWitness,
		byID:          make(map[common.Hash]*types.PendingTransaction),
		byTip:         btree.NewG(32, lessTip),
		byTime:        btree.NewG(32, lessTime),
	}
}

// reportMetricsLocked refreshes the pool-size gauges; callers must already
// hold mu.
func (p *Pool) reportMetricsLocked() {
	var gas uint64
	for _, pt := range p.byID {
		gas += pt.Tx.MaxGas()
	}
	p.metrics.PoolSize.Set(float64(len(p.byID)))
	p.metrics.PoolGas.Set(float64(gas))
}

func (p *Pool) Blacklist() *Blacklist { return &p.bl }

// Insert runs the 9-step admission algorithm of spec.md §4.2 for each
// transaction in batch, independently. Failures are per-tx and never
// abort the batch.
func (p *Pool) Insert(batch []*types.Transaction, currentHeight uint64) []InsertResult {
	results := make([]InsertResult, len(batch))
	for i, tx := range batch {
		res := p.insertOne(tx, currentHeight)
		if res.Outcome != nil {
			p.metrics.AdmissionTotal.WithLabelValues("accepted").Inc()
		} else {
			p.metrics.AdmissionTotal.WithLabelValues("rejected").Inc()
		}
		results[i] = res
	}
	return results
}

func (p *Pool) insertOne(tx *types.Transaction, currentHeight uint64) InsertResult {
	// Step 1: Mint is producer-only.
	if tx.IsMint() {
		return InsertResult{Reject: errs.ReasonMintDisallowed}
	}

	// Step 2: checked-tx construction.
	if err := checkStatic(tx, p.params, currentHeight); err != nil {
		return InsertResult{Reject: err}
	}
	if p.cfg.UtxoValidation {
		if err := checkAuthorization(tx, p.verifyWitness); err != nil {
			return InsertResult{Reject: err}
		}
	}
	if err := checkFeeReadiness(tx, common.AssetID(p.params.BaseAssetID), p.cfg.MinGasPrice); err != nil {
		return InsertResult{Reject: err}
	}

	id, err := tx.ID()
	if err != nil {
		return InsertResult{Reject: errs.NewCodecError("tx.ID", err)}
	}
	tip := tx.GasPrice

	p.mu.Lock()
	defer p.mu.Unlock()

	// Step 3: blacklist.
	if err := checkBlacklist(tx, p.bl); err != nil {
		p.publishStatus(id, notify.Status{Kind: notify.StatusSqueezedOut, Time: time.Now(), Reason: err.Error()})
		return InsertResult{Reject: err}
	}

	// Step 4: max-gas vs block gas limit.
	if err := checkGasLimit(tx, p.cfg.BlockGasLimit); err != nil {
		return InsertResult{Reject: err}
	}

	// Step 5: duplicate id.
	if _, exists := p.byID[id]; exists {
		return InsertResult{Reject: errs.ReasonTxKnown}
	}

	// Step 6: pool size limit.
	pushoutCandidate := common.Hash{}
	fullBefore := len(p.byID) >= p.cfg.MaxTx && p.cfg.MaxTx > 0
	if fullBefore {
		lowest, ok := p.lowestTip()
		if !ok || tip <= lowest.Tip {
			return InsertResult{Reject: errs.ReasonLimitHit}
		}
		pushoutCandidate = lowest.ID
	}

	// Step 7: dependency insertion.
	depth, evict, err := p.graph.Insert(id, tip, tx, p.coinLookup, p.contractLookup)
	if err != nil {
		return InsertResult{Reject: err}
	}

	var removed []common.Hash
	for _, evID := range evict {
		removed = append(removed, p.removeLocked(evID, errs.ReasonCollision(id.String(), ""))...)
	}

	// Step 9: pushout only if step 7 evicted nothing.
	if fullBefore && len(evict) == 0 && pushoutCandidate != (common.Hash{}) {
		removed = append(removed, p.removeLocked(pushoutCandidate, errs.ReasonLimitHit)...)
	}

	p.graph.Publish(id, tip, depth, tx)

	now := time.Now()
	pending := &types.PendingTransaction{
		Tx:          tx,
		Metadata:    types.CheckedMetadata{ID: id, Fee: tip * tx.GasLimit, GasPrice: tx.GasPrice},
		SubmittedAt: now.UnixNano(),
	}
	p.byID[id] = pending
	p.byTip.ReplaceOrInsert(tipKey{tip: tip, id: id})
	p.byTime.ReplaceOrInsert(timeKey{at: now, id: id})

	p.publishStatus(id, notify.Status{Kind: notify.StatusSubmitted, Time: now})
	p.feed.PublishNew(id)
	p.reportMetricsLocked()

	return InsertResult{Outcome: &InsertionOutcome{Inserted: id, Removed: removed, SubmittedAt: now}}
}

// lowestTip returns the pool's lowest-tip entry. byTip orders by tip
// descending (lessTip), so the minimum sits at the ascending-iteration end.
func (p *Pool) lowestTip() (TxInfo, bool) {
	var out TxInfo
	found := false
	p.byTip.Descend(func(k tipKey) bool {
		out = TxInfo{ID: k.id, Tip: k.tip}
		found = true
		return false
	})
	return out, found
}

func (p *Pool) coinLookup(id types.UtxoID) (*types.Coin, bool, error) {
	return p.store.GetCoin(id)
}

func (p *Pool) contractLookup(id common.Hash) (bool, error) {
	_, found, err := p.store.GetContract(id)
	return found, err
}

// Find returns, per id, the pooled transaction info or nil if absent.
func (p *Pool) Find(ids []common.Hash) []*TxInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*TxInfo, len(ids))
	for i, id := range ids {
		out[i] = p.findLocked(id)
	}
	return out
}

func (p *Pool) FindOne(id common.Hash) *TxInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findLocked(id)
}

func (p *Pool) findLocked(id common.Hash) *TxInfo {
	pt, ok := p.byID[id]
	if !ok {
		return nil
	}
	return &TxInfo{Tx: pt.Tx, ID: id, Tip: pt.Tip(), SubmittedAt: time.Unix(0, pt.SubmittedAt)}
}

// All returns every pooled transaction, sorted by tip descending, for the
// gossip glue's peer-connect pool-sync sub-task (spec.md §4.7).
func (p *Pool) All() []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.Transaction, 0, len(p.byID))
	p.byTip.Ascend(func(k tipKey) bool {
		if pt, ok := p.byID[k.id]; ok {
			out = append(out, pt.Tx)
		}
		return true
	})
	return out
}

// FindDependent returns the transitive closure of every pooled transaction
// depending on any of ids, sorted by tip descending.
func (p *Pool) FindDependent(ids []common.Hash) []*TxInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := map[common.Hash]struct{}{}
	var out []*TxInfo
	for _, id := range ids {
		for _, dep := range p.graph.DependentsOf(id) {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			if info := p.findLocked(dep); info != nil {
				out = append(out, info)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tip > out[j].Tip })
	return out
}

// Includable returns pooled transactions sorted by tip descending, such
// that every transaction appears only after every pool-internal
// transaction it depends on, bounded by maxGas.
func (p *Pool) Includable(maxGas uint64) []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	all := make([]*types.PendingTransaction, 0, len(p.byID))
	// byTip orders by tip descending (lessTip), so Ascend already visits
	// highest tip first.
	ids := make([]common.Hash, 0, len(p.byID))
	p.byTip.Ascend(func(k tipKey) bool {
		ids = append(ids, k.id)
		return true
	})
	for _, id := range ids {
		if pt, ok := p.byID[id]; ok {
			all = append(all, pt)
		}
	}

	emitted := map[common.Hash]struct{}{}
	var out []*types.Transaction
	var gas uint64
	for _, pt := range all {
		id := pt.ID()
		if !p.dependenciesSatisfied(pt.Tx, emitted) {
			continue
		}
		if gas+pt.Tx.MaxGas() > maxGas {
			continue
		}
		gas += pt.Tx.MaxGas()
		emitted[id] = struct{}{}
		out = append(out, pt.Tx)
	}
	return out
}

func (p *Pool) dependenciesSatisfied(tx *types.Transaction, emitted map[common.Hash]struct{}) bool {
	for _, in := range tx.Inputs {
		if !in.IsCoin() && !in.IsContract() {
			continue
		}
		var parentTxID common.Hash
		var isPoolParent bool
		if in.IsCoin() {
			parentTxID, isPoolParent = p.graph.CoinParent(in.UtxoID)
		} else {
			parentTxID, isPoolParent = p.graph.ContractParent(in.ContractID)
		}
		if !isPoolParent {
			continue
		}
		if parentTxID == (common.Hash{}) {
			continue
		}
		if _, ok := emitted[parentTxID]; !ok {
			if _, stillPooled := p.byID[parentTxID]; stillPooled {
				return false
			}
		}
	}
	return true
}

// Remove is user-initiated removal (spec.md §4.2 remove): transitively
// evicts dependents and reports reason to every removed id's subscribers.
func (p *Pool) Remove(ids []common.Hash, reason error) []common.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	var removed []common.Hash
	for _, id := range ids {
		removed = append(removed, p.removeLocked(id, reason)...)
	}
	p.reportMetricsLocked()
	return removed
}

func (p *Pool) removeLocked(id common.Hash, reason error) []common.Hash {
	if _, ok := p.byID[id]; !ok {
		return nil
	}
	cascaded := p.graph.RecursivelyRemove(id)
	var removed []common.Hash
	for _, cid := range cascaded {
		pt, ok := p.byID[cid]
		if !ok {
			continue
		}
		delete(p.byID, cid)
		p.byTip.Delete(tipKey{tip: pt.Tip(), id: cid})
		p.byTime.Delete(timeKey{at: time.Unix(0, pt.SubmittedAt), id: cid})
		removed = append(removed, cid)
		p.publishStatus(cid, notify.Status{Kind: notify.StatusSqueezedOut, Time: time.Now(), Reason: reason.Error()})
	}
	return removed
}

// RemoveCommitted drops a transaction the executor successfully mined,
// without cascading eviction: its outputs remain valid graph roots for any
// dependent still in the pool (spec.md §4.2 remove_committed).
func (p *Pool) RemoveCommitted(id common.Hash, blockID common.Hash, blockHeight uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pt, ok := p.byID[id]
	if !ok {
		return
	}
	delete(p.byID, id)
	p.byTip.Delete(tipKey{tip: pt.Tip(), id: id})
	p.byTime.Delete(timeKey{at: time.Unix(0, pt.SubmittedAt), id: id})
	p.reportMetricsLocked()
	p.feed.PublishStatus(id, notify.Status{Kind: notify.StatusSuccess, Time: time.Now(), BlockID: blockID})
}

// BlockUpdate reconciles the pool after a block commits: every included id
// is removed via RemoveCommitted, and every skipped id is removed with its
// reported reason.
func (p *Pool) BlockUpdate(included []common.Hash, blockID common.Hash, blockHeight uint64, skipped map[common.Hash]error) {
	for _, id := range included {
		p.RemoveCommitted(id, blockID, blockHeight)
	}
	for id, reason := range skipped {
		p.Remove([]common.Hash{id}, reason)
	}
}

// PruneExpired drops every transaction older than the configured TTL.
func (p *Pool) PruneExpired() []common.Hash {
	p.mu.Lock()
	cutoff := time.Now().Add(-p.cfg.TransactionTTL)
	var expired []common.Hash
	p.byTime.Ascend(func(k timeKey) bool {
		if k.at.After(cutoff) {
			return false
		}
		expired = append(expired, k.id)
		return true
	})
	p.mu.Unlock()

	var removed []common.Hash
	for _, id := range expired {
		p.mu.Lock()
		removed = append(removed, p.removeLocked(id, errs.ReasonTTL)...)
		p.reportMetricsLocked()
		p.mu.Unlock()
	}
	return removed
}

// Len reports the current pool size, used by the producer's Instant
// trigger transition check.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}

// ConsumableGas sums MaxGas across every pooled transaction, used by the
// Instant trigger's "consumable-gas > 0" condition.
func (p *Pool) ConsumableGas() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var gas uint64
	for _, pt := range p.byID {
		gas += pt.Tx.MaxGas()
	}
	return gas
}

func (p *Pool) publishStatus(id common.Hash, status notify.Status) {
	p.feed.PublishStatus(id, status)
}

// SubscribeNew registers a lossy broadcast subscriber to newly admitted ids.
func (p *Pool) SubscribeNew(bufSize int) (<-chan common.Hash, func()) { return p.feed.SubscribeNew(bufSize) }

// SubscribeStatus registers a per-id status stream subscriber.
func (p *Pool) SubscribeStatus(id common.Hash) (<-chan notify.Status, func()) {
	return p.feed.SubscribeStatus(id)
}
