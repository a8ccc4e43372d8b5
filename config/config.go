// Package config loads the node's configuration, every option enumerated
// in spec.md §6 plus the persistence and metrics knobs the ambient stack
// adds.
//
// Grounded on gxp/config.go's `Config` struct and its `toml` struct tags,
// adapted from klaytn's mainnet/light-client/mining option set to the
// txpool/producer/sync/genesis option set spec.md §6 names, loaded the
// same way via github.com/naoina/toml rather than klaytn's
// gencodec-generated marshaling (hex-valued options such as the consensus
// key, coinbase recipient and blacklist entries are kept as plain strings
// here and decoded by the node package).
package config

import (
	"bufio"
	"os"
	"reflect"
	"time"

	"github.com/naoina/toml"

	"github.com/fuelnet/fuelnode/errs"
	"github.com/fuelnet/fuelnode/work"
)

// DatabaseType is the closed set of backends spec.md §6 names.
type DatabaseType string

const (
	DatabaseInMemory DatabaseType = "in-memory"
	DatabaseRocksDB  DatabaseType = "rocks-db" // served by storage/database's LevelStore, see DESIGN.md.
)

// TriggerKind mirrors work.TriggerKind in string form for TOML decoding.
type TriggerKind string

const (
	TriggerNever    TriggerKind = "never"
	TriggerInstant  TriggerKind = "instant"
	TriggerInterval TriggerKind = "interval"
	TriggerHybrid   TriggerKind = "hybrid"
)

// TriggerConfig is the TOML-shaped form of spec.md §6's trigger option;
// only the fields relevant to Kind are read.
type TriggerConfig struct {
	Kind          TriggerKind   `toml:"kind"`
	Min           time.Duration `toml:"min,omitempty"`
	MinBlockTime  time.Duration `toml:"min_block_time,omitempty"`
	MaxTxIdleTime time.Duration `toml:"max_tx_idle_time,omitempty"`
	MaxBlockTime  time.Duration `toml:"max_block_time,omitempty"`
}

// ToTrigger converts the TOML trigger shape into the producer's own type.
func (t TriggerConfig) ToTrigger() work.Trigger {
	switch t.Kind {
	case TriggerInstant:
		return work.Trigger{Kind: work.TriggerInstant}
	case TriggerInterval:
		return work.Trigger{Kind: work.TriggerInterval, Min: t.Min}
	case TriggerHybrid:
		return work.Trigger{
			Kind:          work.TriggerHybrid,
			MinBlockTime:  t.MinBlockTime,
			MaxTxIdleTime: t.MaxTxIdleTime,
			MaxBlockTime:  t.MaxBlockTime,
		}
	default:
		return work.Trigger{Kind: work.TriggerNever}
	}
}

// BlacklistConfig is spec.md §6's blacklist option, a set of resource ids
// rejected at admission regardless of pool state.
type BlacklistConfig struct {
	Utxos     []string `toml:"utxos,omitempty"`
	Owners    []string `toml:"owners,omitempty"`
	Contracts []string `toml:"contracts,omitempty"`
	Messages  []string `toml:"messages,omitempty"`
}

// Config carries every option spec.md §6 enumerates.
type Config struct {
	// Transaction pool
	MinGasPrice      uint64        `toml:"min_gas_price"`
	UtxoValidation   bool          `toml:"utxo_validation"`
	MaxTx            int           `toml:"max_tx"`
	MaxDepth         int           `toml:"max_depth"`
	TransactionTTL   time.Duration `toml:"transaction_ttl"`
	Blacklist        BlacklistConfig `toml:"blacklist"`

	// Consensus parameters / production
	BlockGasLimit       uint64          `toml:"block_gas_limit"`
	MaxInputs           uint16          `toml:"max_inputs"`
	Trigger             TriggerConfig   `toml:"trigger"`
	ManualBlocksEnabled bool            `toml:"manual_blocks_enabled"`
	CoinbaseRecipient   string          `toml:"coinbase_recipient"` // hex-encoded common.Address, like klaytn's hexutil-marshaled fields.
	ConsensusKey        string          `toml:"consensus_key"`      // "dev" or hex secret; env var takes priority.
	ChainConfig         string          `toml:"chain_config"`  // alias or JSON path.

	// Sync engine
	HeaderBatchSize        int `toml:"header_batch_size"`
	MaxHeaderBatchRequests int `toml:"max_header_batch_requests"`
	MaxGetTxnsRequests     int `toml:"max_get_txns_requests"`

	// Persistence
	DatabaseType DatabaseType `toml:"database_type"`
	DatabasePath string       `toml:"database_path"`

	// Observability
	Metrics bool `toml:"metrics"`

	// Networking boundary, consumed only by p2pglue; see its own doc comment.
	ListenAddr string `toml:"listen_addr,omitempty"`
}

// consensusKeyEnvVar is the override spec.md §6 "Environment variables"
// names, taking priority over the TOML/CLI value.
const consensusKeyEnvVar = "CONSENSUS_KEY_SECRET"

// Default mirrors gxp.DefaultConfig: a conservative standalone-node
// baseline a deployment can override per-field via TOML.
func Default() Config {
	return Config{
		MinGasPrice:            1,
		UtxoValidation:         true,
		MaxTx:                  4096,
		MaxDepth:               32,
		TransactionTTL:         10 * time.Minute,
		BlockGasLimit:          30_000_000,
		MaxInputs:              255,
		Trigger:                TriggerConfig{Kind: TriggerInstant},
		HeaderBatchSize:        64,
		MaxHeaderBatchRequests: 4,
		MaxGetTxnsRequests:     4,
		DatabaseType:           DatabaseInMemory,
		DatabasePath:           "",
		Metrics:                true,
	}
}

// tomlSettings ensures TOML keys use the same names as Go struct fields,
// the same override the teacher applies in cmd/ranger/config.go.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
}

// Load reads a TOML file into Default(), then applies the
// CONSENSUS_KEY_SECRET environment override.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errs.NewFatal(err)
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return Config{}, errs.NewFatal(err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if secret := os.Getenv(consensusKeyEnvVar); secret != "" {
		cfg.ConsensusKey = secret
	}
}
