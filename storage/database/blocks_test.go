package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/core/types"
)

func TestPutBlockThenGetBlockRoundTrips(t *testing.T) {
	s := newTestStore(t)
	block := &types.Block{Header: types.BlockHeader{Height: 1}, TxIDs: []common.Hash{{1}}}
	id := common.Hash{9}

	txn := s.WriteTransaction()
	require.NoError(t, PutBlock(txn, id, block))
	require.NoError(t, txn.Commit())

	got, found, err := s.GetBlock(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, block.Header.Height, got.Header.Height)
	require.Equal(t, block.TxIDs, got.TxIDs)

	height, found, err := s.GetBlockIDByHeight(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id, height)

	latest, found, err := s.LatestHeight()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(1), latest)
}

func TestGetBlockServesRepeatedLookupsFromTheObjectCache(t *testing.T) {
	s := newTestStore(t)
	block := &types.Block{Header: types.BlockHeader{Height: 1}}
	id := common.Hash{9}

	txn := s.WriteTransaction()
	require.NoError(t, PutBlock(txn, id, block))
	require.NoError(t, txn.Commit())

	first, found, err := s.GetBlock(id)
	require.NoError(t, err)
	require.True(t, found)

	second, found, err := s.GetBlock(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Same(t, first, second, "a cache hit must return the same decoded object, not a fresh decode")
}

func TestGetBlockMissingIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, found, err := s.GetBlock(common.Hash{1})
	require.NoError(t, err)
	require.False(t, found)
}

func TestGetBlockByHeightComposesIDLookupAndGetBlock(t *testing.T) {
	s := newTestStore(t)
	block := &types.Block{Header: types.BlockHeader{Height: 3}}
	id := common.Hash{5}

	txn := s.WriteTransaction()
	require.NoError(t, PutBlock(txn, id, block))
	require.NoError(t, txn.Commit())

	got, found, err := s.GetBlockByHeight(3)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, block.Header.Height, got.Header.Height)
}
