package sync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuelnet/fuelnode/common"
)

type fakeP2P struct {
	headers map[uint64]SealedHeader
	failAt  uint64 // if non-zero, GetSealedBlockHeaders covering this height fails
}

func (f *fakeP2P) HeightStream() <-chan uint64 { return nil }

func (f *fakeP2P) GetSealedBlockHeaders(ctx context.Context, start, end uint64) ([]SourcePeer[SealedHeader], error) {
	if f.failAt != 0 && f.failAt >= start && f.failAt <= end {
		return nil, errors.New("peer unavailable")
	}
	var out []SourcePeer[SealedHeader]
	for h := start; h <= end; h++ {
		header, ok := f.headers[h]
		if !ok {
			continue
		}
		out = append(out, SourcePeer[SealedHeader]{Peer: "peer-1", Value: header})
	}
	return out, nil
}

func (f *fakeP2P) GetTransactions(ctx context.Context, sp SourcePeer[common.Hash]) (SourcePeer[[]common.Hash], bool, error) {
	return SourcePeer[[]common.Hash]{Peer: sp.Peer, Value: nil}, true, nil
}

type acceptingConsensus struct{}

func (acceptingConsensus) CheckSealedHeader(header SealedHeader) bool { return true }
func (acceptingConsensus) AwaitDAHeight(ctx context.Context, da uint64) error { return nil }

type recordingImporter struct {
	mu       sync.Mutex
	heights  []uint64
}

func (r *recordingImporter) ExecuteAndCommit(ctx context.Context, block SealedBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heights = append(r.heights, block.Header.Height)
	return nil
}

func headersUpTo(target uint64) map[uint64]SealedHeader {
	headers := make(map[uint64]SealedHeader, target+1)
	for h := uint64(0); h <= target; h++ {
		headers[h] = SealedHeader{Height: h, BlockID: common.Hash256([]byte{byte(h)})}
	}
	return headers
}

func TestEngineRunCommitsAscendingHeights(t *testing.T) {
	imp := &recordingImporter{}
	eng := New(
		Config{HeaderBatchSize: 2, MaxHeaderBatchRequests: 3, MaxGetTxnsRequests: 3},
		&fakeP2P{headers: headersUpTo(9)},
		acceptingConsensus{},
		imp,
		func() (uint64, bool, error) { return 0, false, nil },
	)

	require.NoError(t, eng.Run(context.Background(), 9))
	require.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, imp.heights)
}

func TestEngineRunNoopWhenAlreadyAtTarget(t *testing.T) {
	imp := &recordingImporter{}
	eng := New(
		Config{HeaderBatchSize: 4, MaxHeaderBatchRequests: 1, MaxGetTxnsRequests: 1},
		&fakeP2P{},
		acceptingConsensus{},
		imp,
		func() (uint64, bool, error) { return 5, true, nil },
	)

	require.NoError(t, eng.Run(context.Background(), 5))
	require.Empty(t, imp.heights)
}

func TestEngineRunPropagatesHeaderFetchError(t *testing.T) {
	imp := &recordingImporter{}
	eng := New(
		Config{HeaderBatchSize: 2, MaxHeaderBatchRequests: 2, MaxGetTxnsRequests: 2},
		&fakeP2P{headers: headersUpTo(5), failAt: 3},
		acceptingConsensus{},
		imp,
		func() (uint64, bool, error) { return 0, false, nil },
	)

	err := eng.Run(context.Background(), 5)
	require.Error(t, err)
}

type rejectingConsensus struct{}

func (rejectingConsensus) CheckSealedHeader(header SealedHeader) bool { return header.Height < 2 }
func (rejectingConsensus) AwaitDAHeight(ctx context.Context, da uint64) error { return nil }

func TestEngineRunFailsConsensusCheck(t *testing.T) {
	imp := &recordingImporter{}
	eng := New(
		Config{HeaderBatchSize: 5, MaxHeaderBatchRequests: 1, MaxGetTxnsRequests: 1},
		&fakeP2P{headers: headersUpTo(4)},
		rejectingConsensus{},
		imp,
		func() (uint64, bool, error) { return 0, false, nil },
	)

	err := eng.Run(context.Background(), 4)
	require.Error(t, err)
}
