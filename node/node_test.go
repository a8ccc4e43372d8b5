package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	uuid "github.com/satori/go.uuid"

	"github.com/fuelnet/fuelnode/common"
	"github.com/fuelnet/fuelnode/config"
	"github.com/fuelnet/fuelnode/core/types"
	"github.com/fuelnet/fuelnode/p2pglue"
	chainsync "github.com/fuelnet/fuelnode/sync"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DatabaseType = config.DatabaseInMemory
	cfg.Metrics = false
	return cfg
}

func TestNewConstructsInMemoryNodeWithoutConsensusKey(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)
	require.NotNil(t, n.Pool())
	require.NotNil(t, n.Store())
	require.NotNil(t, n.Producer())
	require.Nil(t, n.engine, "no consensus_key configured means block production stays disabled")
}

func TestNewAppliesEmptyGenesisSoTheStoreHasACommittedHeight(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)
	height, found, err := n.Store().LatestHeight()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(0), height)
}

func TestNewRejectsUnreadableChainConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ChainConfig = "/nonexistent/chain_config.json"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestWireSyncExposesEngine(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)
	require.Nil(t, n.Sync())

	n.WireSync(noopPeerToPeer{})
	require.NotNil(t, n.Sync())
}

type noopPeerToPeer struct{}

func (noopPeerToPeer) HeightStream() <-chan uint64 { return make(chan uint64) }
func (noopPeerToPeer) GetSealedBlockHeaders(ctx context.Context, start, end uint64) ([]chainsync.SourcePeer[chainsync.SealedHeader], error) {
	return nil, nil
}
func (noopPeerToPeer) GetTransactions(ctx context.Context, sp chainsync.SourcePeer[common.Hash]) (chainsync.SourcePeer[[]common.Hash], bool, error) {
	return chainsync.SourcePeer[[]common.Hash]{}, false, nil
}

func TestNewWithDevConsensusKeyResolvesEngine(t *testing.T) {
	cfg := testConfig()
	cfg.ConsensusKey = "dev"
	n, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, n.engine)
}

func TestNewRejectsUnknownDatabaseType(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseType = config.DatabaseType("carrier-pigeon")
	_, err := New(cfg)
	require.Error(t, err)
}

func TestNewRejectsMalformedCoinbaseRecipient(t *testing.T) {
	cfg := testConfig()
	cfg.CoinbaseRecipient = "not-hex"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestStartStopRunsAndDrainsTheProducerLoop(t *testing.T) {
	cfg := testConfig()
	cfg.Trigger = config.TriggerConfig{Kind: config.TriggerNever}
	n, err := New(cfg)
	require.NoError(t, err)

	n.Start(context.Background())
	require.NoError(t, n.Stop())
}

func TestWireTransportExposesGlue(t *testing.T) {
	n, err := New(testConfig())
	require.NoError(t, err)
	require.Nil(t, n.Glue())

	n.WireTransport(noopTransport{})
	require.NotNil(t, n.Glue())
}

type noopTransport struct{}

func (noopTransport) ReportGossipVerdict(uuid.UUID, string, p2pglue.GossipVerdict) {}
func (noopTransport) SendPooledTransactions(string, []*types.Transaction) error   { return nil }

func TestDecodeAddressEmptyStringIsZeroValue(t *testing.T) {
	addr, err := decodeAddress("")
	require.NoError(t, err)
	require.Equal(t, common.Address{}, addr)
}

func TestDecodeAddressRejectsInvalidHex(t *testing.T) {
	_, err := decodeAddress("zz")
	require.Error(t, err)
}

func TestDecodeAddressAcceptsWith0xPrefix(t *testing.T) {
	addr, err := decodeAddress("0x0101010101010101010101010101010101010101010101010101010101010101")
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, addr)
}

func TestDecodeUtxoIDRejectsMissingColon(t *testing.T) {
	_, err := decodeUtxoID("not-a-utxo-id")
	require.Error(t, err)
}

func TestDecodeUtxoIDRejectsNonNumericIndex(t *testing.T) {
	_, err := decodeUtxoID("0x0101010101010101010101010101010101010101010101010101010101010101:abc")
	require.Error(t, err)
}

func TestDecodeUtxoIDRoundTrips(t *testing.T) {
	hexHash := "0x0101010101010101010101010101010101010101010101010101010101010101"
	id, err := decodeUtxoID(hexHash + ":3")
	require.NoError(t, err)
	require.Equal(t, uint8(3), id.OutputIndex)
}

func TestApplyBlacklistRejectsUnparseableEntries(t *testing.T) {
	cfg := testConfig()
	cfg.Blacklist = config.BlacklistConfig{Owners: []string{"not-hex"}}
	_, err := New(cfg)
	require.Error(t, err)
}

func TestApplyBlacklistAcceptsWellFormedEntries(t *testing.T) {
	cfg := testConfig()
	cfg.Blacklist = config.BlacklistConfig{
		Utxos: []string{"0x0101010101010101010101010101010101010101010101010101010101010101:0"},
	}
	n, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, n.Pool())
}
