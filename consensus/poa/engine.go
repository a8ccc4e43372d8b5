// Package poa implements the single-producer Proof-of-Authority sealing
// contract of spec.md §4.4 step 5: sign a sealed block's header hash with
// the configured consensus key, and verify a received header's seal.
//
// Grounded on consensus/istanbul/backend/backend.go's Seal/SealHash/
// VerifyHeader contract, simplified per spec.md §1's Non-goal ("Consensus
// among multiple independent producers") from istanbul's N-of-M validator
// quorum down to a single signer — there is no validator set, no round
// change, no commit-quorum, only "does the signature recover to the one
// configured authority."
package poa

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/log"
	"github.com/fuelnet/fuelnode/storage/database"
)

var logger = log.NewModuleLogger("poa")

// devConsensusKeyHex is the well-known deterministic key used when a node
// is explicitly configured with "dev" in place of a real secret
// (SPEC_FULL.md §C.5), mirroring the original's dev-mode sentinel. It must
// never be reachable as a default.
const devConsensusKeyHex = "0x0101010101010101010101010101010101010101010101010101010101010101"

// Engine seals and verifies blocks under single-key PoA.
type Engine struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New constructs an Engine from a hex-encoded secp256k1 private key. An
// empty key with dev=true resolves to the deterministic dev key
// (SPEC_FULL.md §C.5); an empty key with dev=false returns a nil Engine,
// the "consensus key absent" case spec.md §4.4 "Failure" requires be
// logged and left unable to produce.
func New(hexKey string, dev bool) (*Engine, error) {
	if hexKey == "" {
		if !dev {
			return nil, nil
		}
		hexKey = devConsensusKeyHex
	}
	key, err := crypto.HexToECDSA(trim0x(hexKey))
	if err != nil {
		return nil, errs.NewFatal(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &Engine{key: key, address: common.BytesToAddress(addr.Bytes())}, nil
}

func trim0x(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Address returns the configured authority's address, used by sync to know
// which signer to expect.
func (e *Engine) Address() common.Address { return e.address }

// Seal signs headerHash and returns the consensus seal to persist in
// ColumnSealedBlockConsensus.
func (e *Engine) Seal(headerHash common.Hash) (database.ConsensusSeal, error) {
	sig, err := crypto.Sign(headerHash.Bytes(), e.key)
	if err != nil {
		return database.ConsensusSeal{}, errs.NewFatal(err)
	}
	return database.ConsensusSeal{Signature: sig}, nil
}

// CheckSealedHeader verifies that seal over headerHash recovers to the
// single configured authority, the sync engine's ConsensusPort contract
// (spec.md §4.5). It takes the expected authority explicitly so a syncing
// node can validate without holding the producer's private key.
func CheckSealedHeader(headerHash common.Hash, seal database.ConsensusSeal, expectedAuthority common.Address) bool {
	pub, err := crypto.SigToPub(headerHash.Bytes(), seal.Signature)
	if err != nil {
		logger.Warn("seal recovery failed", "err", err)
		return false
	}
	recovered := common.BytesToAddress(crypto.PubkeyToAddress(*pub).Bytes())
	return recovered == expectedAuthority
}
