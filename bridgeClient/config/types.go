package config

import (
	"fmt"
	"strings"
)

// ConfigVersion is bumped whenever a NetworkConfig field changes meaning.
const ConfigVersion = 1

// Network selects one deployment of the bridge programs and routers.
type Network string

const (
	// NetworkDevnet pairs Solana devnet with Base Sepolia
	NetworkDevnet Network = "devnet"

	// NetworkMainnet pairs Solana mainnet-beta with Base
	NetworkMainnet Network = "mainnet"
)

// ParseNetwork maps a user supplied name onto a Network.
func ParseNetwork(name string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(name))) {
	case NetworkDevnet:
		return NetworkDevnet, nil
	case NetworkMainnet:
		return NetworkMainnet, nil
	default:
		return "", fmt.Errorf("unknown network %q (expected devnet or mainnet)", name)
	}
}

func (n Network) String() string {
	return string(n)
}

type Config struct {
	// Log Config
	LogLevel   int    `json:"log_level" mapstructure:"log_level"`     // e.g., 0 = debug, 1 = info, etc.
	LogFormat  string `json:"log_format" mapstructure:"log_format"`   // "json" or "console"
	LogSampler bool   `json:"log_sampler" mapstructure:"log_sampler"` // if true, samples logs (e.g., 1 in 5)

	// Active network and the per-network deployment records
	Network  Network                    `json:"network" mapstructure:"network"`
	Networks map[Network]*NetworkConfig `json:"networks" mapstructure:"networks"`

	// Query Server Config
	QueryServerPort int `json:"query_server_port" mapstructure:"query_server_port"` // Port for HTTP query server (default: 8080)

	// Price display
	CoinGeckoURL      string `json:"coingecko_url" mapstructure:"coingecko_url"`             // simple/price endpoint
	PriceCacheSeconds int    `json:"price_cache_seconds" mapstructure:"price_cache_seconds"` // default: 60

	// Transfer history database; empty means <home>/databases/transfers.db
	DBPath string `json:"db_path" mapstructure:"db_path"`
}

// NetworkConfig is the versioned record of every externally owned
// identifier the encoders need for one network.
type NetworkConfig struct {
	Version      int                `json:"version" mapstructure:"version"`
	Solana       SolanaConfig       `json:"solana" mapstructure:"solana"`
	Evm          EvmConfig          `json:"evm" mapstructure:"evm"`
	Confirmation ConfirmationConfig `json:"confirmation" mapstructure:"confirmation"`
	Tokens       []TokenConfig      `json:"tokens" mapstructure:"tokens"`
}

type SolanaConfig struct {
	RPCURLs          []string `json:"rpc_urls" mapstructure:"rpc_urls"`
	GenesisHash      string   `json:"genesis_hash" mapstructure:"genesis_hash"`
	BridgeProgramID  string   `json:"bridge_program_id" mapstructure:"bridge_program_id"`
	GasFeeReceiver   string   `json:"gas_fee_receiver" mapstructure:"gas_fee_receiver"`
	BridgeSolDisc    string   `json:"bridge_sol_discriminator" mapstructure:"bridge_sol_discriminator"` // hex, 8 bytes
	BridgeSplDisc    string   `json:"bridge_spl_discriminator" mapstructure:"bridge_spl_discriminator"` // hex, 8 bytes
	Commitment       string   `json:"commitment" mapstructure:"commitment"`                             // "confirmed" or "finalized" (default)
	ComputeUnitLimit uint32   `json:"compute_unit_limit" mapstructure:"compute_unit_limit"`             // 0 leaves the runtime default
}

type EvmConfig struct {
	RPCURLs             []string `json:"rpc_urls" mapstructure:"rpc_urls"`
	ChainID             int64    `json:"chain_id" mapstructure:"chain_id"`
	BaseBridgeAddress   string   `json:"base_bridge_address" mapstructure:"base_bridge_address"`
	CCIPRouterAddress   string   `json:"ccip_router_address" mapstructure:"ccip_router_address"`
	SolanaChainSelector uint64   `json:"solana_chain_selector,string" mapstructure:"solana_chain_selector"` // defaults from chain-selectors
}

// ConfirmationConfig holds the reorg heuristic. It is a tunable, not a
// finality proof.
type ConfirmationConfig struct {
	ApprovalConfirmations uint64 `json:"approval_confirmations" mapstructure:"approval_confirmations"`
	TransferConfirmations uint64 `json:"transfer_confirmations" mapstructure:"transfer_confirmations"`
	FinalityMarginSeconds int    `json:"finality_margin_seconds" mapstructure:"finality_margin_seconds"`
	PollIntervalSeconds   int    `json:"poll_interval_seconds" mapstructure:"poll_interval_seconds"`
	TimeoutSeconds        int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// TokenConfig describes one bridgeable token on both sides.
type TokenConfig struct {
	Symbol      string `json:"symbol" mapstructure:"symbol"`
	SolanaMint  string `json:"solana_mint" mapstructure:"solana_mint"`
	EvmAddress  string `json:"evm_address" mapstructure:"evm_address"`
	Decimals    uint8  `json:"decimals" mapstructure:"decimals"`
	CoinGeckoID string `json:"coingecko_id,omitempty" mapstructure:"coingecko_id"`
}

// Active returns the record for the selected network.
func (c *Config) Active() (*NetworkConfig, error) {
	return c.NetworkConfig(c.Network)
}

// NetworkConfig returns the record for network
func (c *Config) NetworkConfig(network Network) (*NetworkConfig, error) {
	if c.Networks == nil {
		return nil, fmt.Errorf("no network configs found")
	}
	nc, ok := c.Networks[network]
	if !ok || nc == nil {
		return nil, fmt.Errorf("no config found for network %s", network)
	}
	return nc, nil
}

// Token looks a token up by symbol, case-insensitively.
func (nc *NetworkConfig) Token(symbol string) (TokenConfig, bool) {
	for _, token := range nc.Tokens {
		if strings.EqualFold(token.Symbol, symbol) {
			return token, true
		}
	}
	return TokenConfig{}, false
}
