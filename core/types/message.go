package types

import (
	"encoding/binary"

	"github.com/fuelnet/fuelnode/common"
)

// MessageStatus mirrors CoinStatus: a bridged message is retained,
// tombstoned, once spent so a replayed input resolves to InputMessageIdSpent
// rather than InputMessageUnknown.
type MessageStatus uint8

const (
	MessageUnspent MessageStatus = iota
	MessageSpent
)

// Message is a value bridged in from the settlement layer at DaHeight,
// addressed by its Nonce (spec.md §3, §6 messages column).
type Message struct {
	Sender    common.Address
	Recipient common.Address
	Nonce     common.Hash
	Amount    uint64
	Data      []byte
	DaHeight  uint64
	Status    MessageStatus
}

// ID is the deterministic message id used as its Nonce/lookup key: the
// content hash of every field that identifies the bridged event.
func (m Message) ID() common.Hash {
	buf := make([]byte, 0, common.AddressLength*2+common.HashLength+8+8+len(m.Data))
	buf = append(buf, m.Sender.Bytes()...)
	buf = append(buf, m.Recipient.Bytes()...)
	buf = append(buf, m.Nonce.Bytes()...)
	amt := make([]byte, 8)
	binary.BigEndian.PutUint64(amt, m.Amount)
	buf = append(buf, amt...)
	buf = append(buf, m.Data...)
	return common.Hash256(buf)
}

func (m Message) HasData() bool { return len(m.Data) > 0 }

func (m Message) Spendable() bool { return m.Status == MessageUnspent }
