// Package notify implements the pool's two subscription surfaces from
// spec.md §4.3: a lossy bounded broadcast of newly admitted tx ids, and a
// per-id status stream that replays the latest status to new subscribers
// and terminates after a terminal status.
//
// Grounded on the teacher's event.Feed/event.TypeMux subscription style
// (used throughout node/cn for new-block and new-tx events), adapted to
// the drop-oldest lossy semantics spec.md's original source uses instead
// of TypeMux's drop-newest-on-full behavior.
package notify

import (
	"sync"
	"time"

	"github.com/fuelnet/fuelnode/common"
)

// StatusKind is the closed set of per-tx notifications spec.md §4.3 names.
type StatusKind uint8

const (
	StatusSubmitted StatusKind = iota
	StatusSqueezedOut
	StatusSuccess
	StatusFailure
)

func (k StatusKind) Terminal() bool { return k == StatusSqueezedOut || k == StatusSuccess || k == StatusFailure }

// Status is one update delivered on a per-id status stream.
type Status struct {
	Kind    StatusKind
	Time    time.Time
	Reason  string      // populated for StatusSqueezedOut
	BlockID common.Hash // populated for StatusSuccess/StatusFailure
}

// Feed is the pool's notification hub. One Feed serves every subscriber;
// the pool holds a single instance for its lifetime.
type Feed struct {
	mu sync.Mutex

	newTxSubs  map[int]chan common.Hash
	nextSubID  int
	statusSubs map[common.Hash]map[int]chan Status
	lastStatus map[common.Hash]Status
}

func NewFeed() *Feed {
	return &Feed{
		newTxSubs:  make(map[int]chan common.Hash),
		statusSubs: make(map[common.Hash]map[int]chan Status),
		lastStatus: make(map[common.Hash]Status),
	}
}

// SubscribeNew registers a lossy, bounded subscriber to newly admitted tx
// ids. The returned cancel func must be called to stop receiving.
func (f *Feed) SubscribeNew(bufSize int) (<-chan common.Hash, func()) {
	if bufSize < 1 {
		bufSize = 1
	}
	f.mu.Lock()
	id := f.nextSubID
	f.nextSubID++
	ch := make(chan common.Hash, bufSize)
	f.newTxSubs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.newTxSubs, id)
		f.mu.Unlock()
	}
	return ch, cancel
}

// PublishNew broadcasts id to every new-tx subscriber. A subscriber whose
// buffer is full has its oldest queued id dropped to make room: consumers
// are expected to resync via find() rather than rely on every id arriving.
func (f *Feed) PublishNew(id common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.newTxSubs {
		sendDropOldest(ch, id)
	}
}

func sendDropOldest(ch chan common.Hash, id common.Hash) {
	for {
		select {
		case ch <- id:
			return
		default:
			select {
			case <-ch:
			default:
				return
			}
		}
	}
}

// SubscribeStatus registers a subscriber to a single tx id's status
// stream. The subscriber immediately receives the most recent status, if
// any, then every subsequent update until a terminal status closes the
// channel.
func (f *Feed) SubscribeStatus(id common.Hash) (<-chan Status, func()) {
	f.mu.Lock()
	subID := f.nextSubID
	f.nextSubID++
	ch := make(chan Status, 4)
	if f.statusSubs[id] == nil {
		f.statusSubs[id] = make(map[int]chan Status)
	}
	f.statusSubs[id][subID] = ch
	if last, ok := f.lastStatus[id]; ok {
		ch <- last
	}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if subs, ok := f.statusSubs[id]; ok {
			delete(subs, subID)
			if len(subs) == 0 {
				delete(f.statusSubs, id)
			}
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// PublishStatus delivers status to every subscriber of id. A terminal
// status closes every subscriber channel after delivery and forgets the
// id, per spec.md §4.3 ("streams terminate after a terminal status or
// when the pool drops the entry").
func (f *Feed) PublishStatus(id common.Hash, status Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastStatus[id] = status
	for _, ch := range f.statusSubs[id] {
		select {
		case ch <- status:
		default:
		}
		if status.Kind.Terminal() {
			close(ch)
		}
	}
	if status.Kind.Terminal() {
		delete(f.statusSubs, id)
		delete(f.lastStatus, id)
	}
}

// Forget drops id's last known status and closes its subscriber channels
// without emitting a terminal update. The pool's TTL pruning does not use
// it: PruneExpired publishes a SqueezedOut status instead.
func (f *Feed) Forget(id common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.statusSubs[id] {
		close(ch)
	}
	delete(f.statusSubs, id)
	delete(f.lastStatus, id)
}
