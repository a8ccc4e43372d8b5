package poa

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuelnet/fuelnode/common"
)

func TestNewWithEmptyKeyAndDevFalseReturnsNilEngine(t *testing.T) {
	engine, err := New("", false)
	require.NoError(t, err)
	require.Nil(t, engine)
}

func TestNewWithDevTrueResolvesDeterministicKey(t *testing.T) {
	a, err := New("", true)
	require.NoError(t, err)
	require.NotNil(t, a)

	b, err := New("", true)
	require.NoError(t, err)
	require.Equal(t, a.Address(), b.Address(), "the dev key is deterministic across instances")
}

func TestNewRejectsMalformedHexKey(t *testing.T) {
	_, err := New("not-hex", false)
	require.Error(t, err)
}

func TestSealThenCheckSealedHeaderRoundTrips(t *testing.T) {
	engine, err := New("", true)
	require.NoError(t, err)

	headerHash := common.Hash256([]byte("block-header"))
	seal, err := engine.Seal(headerHash)
	require.NoError(t, err)
	require.NotEmpty(t, seal.Signature)

	require.True(t, CheckSealedHeader(headerHash, seal, engine.Address()))
}

func TestCheckSealedHeaderRejectsWrongAuthority(t *testing.T) {
	engine, err := New("", true)
	require.NoError(t, err)

	other, err := New("0x0202020202020202020202020202020202020202020202020202020202020202", false)
	require.NoError(t, err)

	headerHash := common.Hash256([]byte("block-header"))
	seal, err := engine.Seal(headerHash)
	require.NoError(t, err)

	require.False(t, CheckSealedHeader(headerHash, seal, other.Address()))
}

func TestCheckSealedHeaderRejectsTamperedHash(t *testing.T) {
	engine, err := New("", true)
	require.NoError(t, err)

	seal, err := engine.Seal(common.Hash256([]byte("original")))
	require.NoError(t, err)

	require.False(t, CheckSealedHeader(common.Hash256([]byte("tampered")), seal, engine.Address()))
}
