package database

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/fuelnet/fuelnode/errs"
)

// Encode renders v with the node's canonical, deterministic binary codec:
// RLP, the same encoding the teacher uses for every persisted and
// gossiped object. A unit value (an empty struct) RLP-encodes to a
// non-empty, stable byte string, satisfying the unit-value-round-trips
// requirement of spec.md §4.
func Encode(v interface{}) ([]byte, error) {
	b, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, errs.NewCodecError("encode", err)
	}
	return b, nil
}

// Decode parses b into v, which must be a pointer.
func Decode(b []byte, v interface{}) error {
	if err := rlp.DecodeBytes(b, v); err != nil {
		return errs.NewCodecError("decode", err)
	}
	return nil
}

// PutValue encodes value and stores it at (col, key).
func (s *Store) PutValue(col Column, key []byte, value interface{}) error {
	b, err := Encode(value)
	if err != nil {
		return err
	}
	return s.Put(col, key, b)
}

// GetValue decodes the value at (col, key) into out; found is false if the
// key is absent.
func (s *Store) GetValue(col Column, key []byte, out interface{}) (found bool, err error) {
	b, found, err := s.Get(col, key)
	if err != nil || !found {
		return found, err
	}
	if err := Decode(b, out); err != nil {
		return true, err
	}
	return true, nil
}

// MustGetValue behaves like GetValue but returns a NotFoundError instead of
// found=false, for the typed "must exist" accessors spec.md §4 calls for.
func (s *Store) MustGetValue(what string, col Column, key []byte, out interface{}) error {
	found, err := s.GetValue(col, key, out)
	if err != nil {
		return err
	}
	if !found {
		return errs.NewNotFound(what, col.String())
	}
	return nil
}
