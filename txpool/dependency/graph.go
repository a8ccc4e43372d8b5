// Package dependency tracks the pool's input/output dependency graph: which
// pool transaction currently "holds" each pending coin or contract
// resource, so a transaction spending another pool transaction's not-yet-
// mined output can be admitted, and so evicting a transaction correctly
// cascades to everything that depended on it.
//
// Grounded on the teacher's single-mutex-guarded in-memory index style
// (work/worker.go's pendingMu-guarded maps), generalized from klaytn's
// account-nonce ordering to Fuel's UTXO/contract resource graph per
// spec.md §4.2.
package dependency

import (
	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/errs"
)

// CoinLookup resolves a UTXO against committed chain state when it is not
// tracked in the graph.
type CoinLookup func(types.UtxoID) (coin *types.Coin, found bool, err error)

// ContractLookup reports whether a contract exists in committed chain
// state when it is not tracked in the graph.
type ContractLookup func(common.Hash) (found bool, err error)

type coinNode struct {
	spentByTxID common.Hash
	spentByTip  uint64
	depth       int
}

type contractNode struct {
	holderTxID common.Hash
	holderTip  uint64
	isOrigin   bool
	usedBy     map[common.Hash]struct{}
	depth      int
}

// Graph is the pool's dependency index. It is not itself concurrency-safe;
// callers (the pool) serialize access under their own mutex, the same
// single-lock discipline the teacher's worker state uses.
type Graph struct {
	maxDepth  int
	coins     map[types.UtxoID]*coinNode
	contracts map[common.Hash]*contractNode

	// touchedByTx lets eviction and removal find every resource a given tx
	// published or consumed without re-walking its inputs/outputs.
	publishedCoins     map[common.Hash][]types.UtxoID
	publishedContracts map[common.Hash][]common.Hash
	consumedCoins      map[common.Hash][]types.UtxoID
	consumedContracts  map[common.Hash][]common.Hash
}

func New(maxDepth int) *Graph {
	return &Graph{
		maxDepth:           maxDepth,
		coins:              make(map[types.UtxoID]*coinNode),
		contracts:          make(map[common.Hash]*contractNode),
		publishedCoins:     make(map[common.Hash][]types.UtxoID),
		publishedContracts: make(map[common.Hash][]common.Hash),
		consumedCoins:      make(map[common.Hash][]types.UtxoID),
		consumedContracts:  make(map[common.Hash][]common.Hash),
	}
}

// Insert runs step 7 of the admission algorithm (spec.md §4.2): classify
// every input's resource, compute depth, and detect collisions. On success
// it returns the tx's depth and the set of rival txs whose cone must be
// evicted to make room; the caller publishes outputs (via Publish) only
// after committing to admission.
func (g *Graph) Insert(txID common.Hash, tip uint64, tx *types.Transaction, coinLookup CoinLookup, contractLookup ContractLookup) (depth int, evict []common.Hash, err error) {
	maxParentDepth := -1
	evictSet := map[common.Hash]struct{}{}

	for _, in := range tx.Inputs {
		switch {
		case in.IsCoin():
			d, ev, rejectErr := g.classifyCoin(txID, tip, in, coinLookup)
			if rejectErr != nil {
				return 0, nil, rejectErr
			}
			if ev != (common.Hash{}) {
				evictSet[ev] = struct{}{}
			}
			if d > maxParentDepth {
				maxParentDepth = d
			}
		case in.IsMessage():
			// Message inputs are not UTXO-chained resources: they are
			// consumed exactly once from the messages column and never
			// re-published, so they contribute no graph depth.
		case in.IsContract():
			d, ev, rejectErr := g.classifyContract(txID, tip, in.ContractID, contractLookup)
			if rejectErr != nil {
				return 0, nil, rejectErr
			}
			if ev != (common.Hash{}) {
				evictSet[ev] = struct{}{}
			}
			if d > maxParentDepth {
				maxParentDepth = d
			}
		}
	}

	depth = maxParentDepth + 1
	if depth > g.maxDepth {
		return 0, nil, errs.ReasonMaxDepth
	}

	evict = make([]common.Hash, 0, len(evictSet))
	for id := range evictSet {
		evict = append(evict, id)
	}
	return depth, evict, nil
}

func (g *Graph) classifyCoin(txID common.Hash, tip uint64, in types.Input, lookup CoinLookup) (parentDepth int, evicted common.Hash, err error) {
	id := in.UtxoID
	if node, ok := g.coins[id]; ok {
		if node.spentByTip >= tip {
			return 0, common.Hash{}, errs.ReasonCollision(node.spentByTxID.String(), id.String())
		}
		g.consumedCoins[txID] = append(g.consumedCoins[txID], id)
		return node.depth, node.spentByTxID, nil
	}

	coin, found, err := lookup(id)
	if err != nil {
		return 0, common.Hash{}, errs.NewStorageError(err)
	}
	if !found {
		return 0, common.Hash{}, errs.ReasonInputUtxoIdNotExisting(id.String())
	}
	if coin.Status == types.CoinSpent {
		return 0, common.Hash{}, errs.ReasonInputUtxoIdSpent(id.String())
	}
	if rejectErr := checkCoinCompatibility(in, *coin); rejectErr != nil {
		return 0, common.Hash{}, rejectErr
	}
	g.consumedCoins[txID] = append(g.consumedCoins[txID], id)
	return 0, common.Hash{}, nil
}

// checkCoinCompatibility verifies that a coin input's claimed owner, amount
// and asset id match the coin it is actually spending, the same
// output/input cross-check the original txpool runs against the producing
// output before admitting a spend.
func checkCoinCompatibility(in types.Input, coin types.Coin) error {
	if in.Owner != coin.Owner {
		return errs.ReasonIoWrongOwner
	}
	if in.Amount != coin.Amount {
		return errs.ReasonIoWrongAmount
	}
	if in.AssetID != coin.AssetID {
		return errs.ReasonIoWrongAssetId
	}
	return nil
}

func (g *Graph) classifyContract(txID common.Hash, tip uint64, id common.Hash, lookup ContractLookup) (parentDepth int, evicted common.Hash, err error) {
	if node, ok := g.contracts[id]; ok {
		if tip > node.holderTip {
			return 0, common.Hash{}, errs.ReasonContractPricedLower(id.String())
		}
		return node.depth, common.Hash{}, nil
	}

	found, err := lookup(id)
	if err != nil {
		return 0, common.Hash{}, errs.NewStorageError(err)
	}
	if !found {
		return 0, common.Hash{}, errs.ReasonInputContractNotExisting(id.String())
	}
	g.consumedContracts[txID] = append(g.consumedContracts[txID], id)
	return 0, common.Hash{}, nil
}

// Publish records a successfully admitted tx's outputs as new graph
// resources (step "output publication" in spec.md §4.2).
func (g *Graph) Publish(txID common.Hash, tip uint64, depth int, tx *types.Transaction) {
	for i, out := range tx.Outputs {
		switch out.Kind {
		case types.OutputCoin, types.OutputChange, types.OutputVariable:
			id := types.UtxoID{TxID: txID, OutputIndex: uint8(i)}
			g.coins[id] = &coinNode{depth: depth}
			g.publishedCoins[txID] = append(g.publishedCoins[txID], id)
		case types.OutputContractCreated:
			g.contracts[out.ContractID] = &contractNode{
				holderTxID: txID,
				holderTip:  tip,
				isOrigin:   true,
				usedBy:     make(map[common.Hash]struct{}),
				depth:      depth,
			}
			g.publishedContracts[txID] = append(g.publishedContracts[txID], out.ContractID)
		case types.OutputContract:
			id := tx.Inputs[out.InputIndex].ContractID
			if node, ok := g.contracts[id]; ok {
				node.holderTxID = txID
				node.holderTip = tip
				node.isOrigin = false
				node.depth = depth
				g.publishedContracts[txID] = append(g.publishedContracts[txID], id)
			}
		}
	}

	for _, parent := range g.consumedCoins[txID] {
		if node, ok := g.coins[parent]; ok {
			node.spentByTxID = txID
			node.spentByTip = tip
		} else {
			g.coins[parent] = &coinNode{spentByTxID: txID, spentByTip: tip, depth: 0}
		}
	}
	for _, id := range g.consumedContracts[txID] {
		if node, ok := g.contracts[id]; ok {
			node.usedBy[txID] = struct{}{}
		}
	}
}

// CoinParent reports whether utxoID was produced by a still-tracked pool
// transaction (as opposed to a db-rooted coin, depth 0): the producing
// tx id is UtxoID.TxID itself, since a coin's address already encodes its
// producer. Used by Includable to order a consumer after its producer.
func (g *Graph) CoinParent(utxoID types.UtxoID) (parentTxID common.Hash, isPoolParent bool) {
	node, ok := g.coins[utxoID]
	if !ok || node.depth == 0 {
		return common.Hash{}, false
	}
	return utxoID.TxID, true
}

// ContractParent reports the tx that most recently touched contractID
// within the pool (its origin creator, or the latest in-pool consumer),
// if any.
func (g *Graph) ContractParent(contractID common.Hash) (parentTxID common.Hash, isPoolParent bool) {
	node, ok := g.contracts[contractID]
	if !ok {
		return common.Hash{}, false
	}
	return node.holderTxID, true
}

// DependentsOf returns the transitive closure of transactions consuming
// any resource txID published, without mutating the graph (find_dependent,
// spec.md §4.2), by walking the same edges RecursivelyRemove would but
// only recording rather than deleting.
func (g *Graph) DependentsOf(txID common.Hash) []common.Hash {
	var deps []common.Hash
	seen := map[common.Hash]struct{}{txID: {}}
	queue := []common.Hash{txID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, coinID := range g.publishedCoins[id] {
			if node, ok := g.coins[coinID]; ok && node.spentByTxID != (common.Hash{}) {
				if _, ok := seen[node.spentByTxID]; !ok {
					seen[node.spentByTxID] = struct{}{}
					deps = append(deps, node.spentByTxID)
					queue = append(queue, node.spentByTxID)
				}
			}
		}
		for _, cID := range g.publishedContracts[id] {
			if node, ok := g.contracts[cID]; ok {
				for consumer := range node.usedBy {
					if _, ok := seen[consumer]; !ok {
						seen[consumer] = struct{}{}
						deps = append(deps, consumer)
						queue = append(queue, consumer)
					}
				}
			}
		}
	}
	return deps
}

// RecursivelyRemove walks every resource txID published, transitively
// collecting every tx that consumed it, per
// recursively_remove_all_dependencies in spec.md §4.2. The caller is
// responsible for removing the returned ids from its own id index; Remove
// only unwinds graph state.
func (g *Graph) RecursivelyRemove(txID common.Hash) []common.Hash {
	var removed []common.Hash
	seen := map[common.Hash]struct{}{txID: {}}
	queue := []common.Hash{txID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		removed = append(removed, id)

		for _, coinID := range g.publishedCoins[id] {
			if node, ok := g.coins[coinID]; ok {
				if node.spentByTxID != (common.Hash{}) {
					if _, ok := seen[node.spentByTxID]; !ok {
						seen[node.spentByTxID] = struct{}{}
						queue = append(queue, node.spentByTxID)
					}
				}
				delete(g.coins, coinID)
			}
		}
		for _, cID := range g.publishedContracts[id] {
			if node, ok := g.contracts[cID]; ok {
				for consumer := range node.usedBy {
					if _, ok := seen[consumer]; !ok {
						seen[consumer] = struct{}{}
						queue = append(queue, consumer)
					}
				}
				delete(g.contracts, cID)
			}
		}

		for _, coinID := range g.consumedCoins[id] {
			if node, ok := g.coins[coinID]; ok && node.depth == 0 {
				node.spentByTxID = common.Hash{}
				node.spentByTip = 0
			}
		}
		for _, cID := range g.consumedContracts[id] {
			if node, ok := g.contracts[cID]; ok {
				delete(node.usedBy, id)
			}
		}

		delete(g.publishedCoins, id)
		delete(g.publishedContracts, id)
		delete(g.consumedCoins, id)
		delete(g.consumedContracts, id)
	}
	return removed
}
