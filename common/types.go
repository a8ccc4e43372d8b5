// Package common holds the wire/storage-level primitive types shared by
// every other package: 32-byte hashes and addresses, and the small helpers
// built on them. Unlike the account-based teacher chain (20-byte
// addresses), this UTXO-based chain addresses owners, assets and contracts
// with full 32-byte identifiers, per spec.md §6's key layouts.
package common

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	HashLength    = 32
	AddressLength = 32
)

// Hash is a 32-byte identifier: a transaction id, block id, contract id or
// message nonce, depending on context.
type Hash [HashLength]byte

func BytesToHash(b []byte) (h Hash) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte  { return h[:] }
func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) IsZero() bool   { return h == Hash{} }

// Address identifies a coin/message owner or recipient.
type Address [AddressLength]byte

func BytesToAddress(b []byte) (a Address) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// AssetID identifies a fungible asset class (the base asset, or a
// contract-minted asset).
type AssetID Hash

func (a AssetID) Bytes() []byte  { return a[:] }
func (a AssetID) String() string { return Hash(a).String() }

// Hash256 returns the deterministic content hash of b, used for transaction
// ids, contract ids and block ids. Grounded on the teacher's use of Keccak
// (go-ethereum's crypto package) for every content-addressed identifier.
func Hash256(b []byte) Hash {
	return BytesToHash(crypto.Keccak256(b))
}

// Key64 renders n as an 8-byte big-endian key suffix, used for height-keyed
// columns such as block_height_index.
func Key64(n uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(n)
		n >>= 8
	}
	return b
}

func FmtKey(parts ...[]byte) string {
	s := ""
	for _, p := range parts {
		s += hex.EncodeToString(p)
	}
	return s
}
