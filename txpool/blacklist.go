package txpool

import (
	set "gopkg.in/fatih/set.v0"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
)

// Blacklist is the configured set of forbidden resources from spec.md §6
// (`blacklist`: set of utxo-ids, addresses, contract-ids, message-nonces),
// checked on every admission. Membership sets use fatih/set.v0, the
// teacher pack's unordered-set library, rather than a hand-rolled
// map[string]struct{}.
type Blacklist struct {
	utxos     *set.Set
	addresses *set.Set
	contracts *set.Set
	messages  *set.Set
}

func NewBlacklist() Blacklist {
	return Blacklist{
		utxos:     set.New(),
		addresses: set.New(),
		contracts: set.New(),
		messages:  set.New(),
	}
}

func (b Blacklist) AddUtxo(id types.UtxoID)       { b.utxos.Add(id.String()) }
func (b Blacklist) AddAddress(a common.Address)   { b.addresses.Add(a.String()) }
func (b Blacklist) AddContract(id common.Hash)    { b.contracts.Add(id.String()) }
func (b Blacklist) AddMessage(nonce common.Hash)  { b.messages.Add(nonce.String()) }

func (b Blacklist) hasUtxo(id types.UtxoID) bool      { return b.utxos.Has(id.String()) }
func (b Blacklist) hasAddress(a common.Address) bool  { return b.addresses.Has(a.String()) }
func (b Blacklist) hasContract(id common.Hash) bool   { return b.contracts.Has(id.String()) }
func (b Blacklist) hasMessage(nonce common.Hash) bool { return b.messages.Has(nonce.String()) }
