package config

import (
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/spf13/viper"

	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

const (
	defaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price"

	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

//go:embed default_config.json
var defaultConfigJSON []byte

// DefaultSolanaSelector returns the CCIP chain selector of the Solana
// cluster paired with network.
func DefaultSolanaSelector(network Network) (uint64, error) {
	switch network {
	case NetworkDevnet:
		return chainsel.SOLANA_DEVNET.Selector, nil
	case NetworkMainnet:
		return chainsel.SOLANA_MAINNET.Selector, nil
	default:
		return 0, fmt.Errorf("no default solana chain selector for network %q", network)
	}
}

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}

	if cfg.Network == "" {
		cfg.Network = NetworkDevnet
	}
	network, err := ParseNetwork(string(cfg.Network))
	if err != nil {
		return err
	}
	cfg.Network = network

	// Set defaults for query server
	if cfg.QueryServerPort == 0 {
		cfg.QueryServerPort = 8080
	}

	// Set defaults for price display
	if cfg.CoinGeckoURL == "" {
		cfg.CoinGeckoURL = defaultCoinGeckoURL
	}
	if cfg.PriceCacheSeconds == 0 {
		cfg.PriceCacheSeconds = 60
	}

	// Initialize Networks if nil or empty
	if len(cfg.Networks) == 0 {
		defaultCfg, err := LoadDefaultConfig()
		if err != nil {
			return err
		}
		cfg.Networks = defaultCfg.Networks
	}

	for name, nc := range cfg.Networks {
		if nc == nil {
			return fmt.Errorf("network %s: empty config", name)
		}
		if _, err := ParseNetwork(string(name)); err != nil {
			return err
		}
		if err := validateNetworkConfig(name, nc); err != nil {
			return fmt.Errorf("network %s: %w", name, err)
		}
	}

	if _, err := cfg.Active(); err != nil {
		return err
	}
	return nil
}

func validateNetworkConfig(network Network, nc *NetworkConfig) error {
	if nc.Version == 0 {
		nc.Version = ConfigVersion
	}
	if nc.Version > ConfigVersion {
		return fmt.Errorf("config version %d is newer than supported version %d", nc.Version, ConfigVersion)
	}

	// Solana
	if nc.Solana.Commitment == "" {
		nc.Solana.Commitment = CommitmentFinalized
	}
	if nc.Solana.Commitment != CommitmentConfirmed && nc.Solana.Commitment != CommitmentFinalized {
		return fmt.Errorf("solana commitment must be '%s' or '%s'", CommitmentConfirmed, CommitmentFinalized)
	}
	for field, value := range map[string]string{
		"bridge_program_id": nc.Solana.BridgeProgramID,
		"gas_fee_receiver":  nc.Solana.GasFeeReceiver,
	} {
		if value == "" {
			continue
		}
		if _, err := solana.PublicKeyFromBase58(value); err != nil {
			return fmt.Errorf("solana.%s: invalid public key %q", field, value)
		}
	}
	for field, value := range map[string]string{
		"bridge_sol_discriminator": nc.Solana.BridgeSolDisc,
		"bridge_spl_discriminator": nc.Solana.BridgeSplDisc,
	} {
		if value == "" {
			continue
		}
		if _, err := DecodeDiscriminator(value); err != nil {
			return fmt.Errorf("solana.%s: %w", field, err)
		}
	}

	// EVM
	for field, value := range map[string]string{
		"base_bridge_address": nc.Evm.BaseBridgeAddress,
		"ccip_router_address": nc.Evm.CCIPRouterAddress,
	} {
		if value != "" && !ethcommon.IsHexAddress(value) {
			return fmt.Errorf("evm.%s: invalid address %q", field, value)
		}
	}
	if nc.Evm.SolanaChainSelector == 0 {
		selector, err := DefaultSolanaSelector(network)
		if err != nil {
			return err
		}
		nc.Evm.SolanaChainSelector = selector
	}
	family, err := chainsel.GetSelectorFamily(nc.Evm.SolanaChainSelector)
	if err != nil {
		return fmt.Errorf("evm.solana_chain_selector: %w", err)
	}
	if family != chainsel.FamilySolana {
		return fmt.Errorf("evm.solana_chain_selector %d belongs to family %s, not %s",
			nc.Evm.SolanaChainSelector, family, chainsel.FamilySolana)
	}

	// Confirmation heuristic
	if nc.Confirmation.ApprovalConfirmations == 0 {
		nc.Confirmation.ApprovalConfirmations = 1
	}
	if nc.Confirmation.TransferConfirmations == 0 {
		nc.Confirmation.TransferConfirmations = 1
	}
	if nc.Confirmation.FinalityMarginSeconds < 0 {
		return fmt.Errorf("confirmation.finality_margin_seconds must not be negative")
	}
	if nc.Confirmation.PollIntervalSeconds == 0 {
		nc.Confirmation.PollIntervalSeconds = 2
	}
	if nc.Confirmation.TimeoutSeconds == 0 {
		nc.Confirmation.TimeoutSeconds = 300
	}

	seen := make(map[string]bool, len(nc.Tokens))
	for _, token := range nc.Tokens {
		symbol := strings.ToUpper(token.Symbol)
		if symbol == "" {
			return fmt.Errorf("token symbol is required")
		}
		if seen[symbol] {
			return fmt.Errorf("duplicate token %s", token.Symbol)
		}
		seen[symbol] = true
		if token.SolanaMint != "" {
			if _, err := solana.PublicKeyFromBase58(token.SolanaMint); err != nil {
				return fmt.Errorf("token %s: invalid solana mint %q", token.Symbol, token.SolanaMint)
			}
		}
		if token.EvmAddress != "" && !ethcommon.IsHexAddress(token.EvmAddress) {
			return fmt.Errorf("token %s: invalid evm address %q", token.Symbol, token.EvmAddress)
		}
		if token.Decimals > 18 {
			return fmt.Errorf("token %s: decimals must be at most 18", token.Symbol)
		}
	}
	return nil
}

// DecodeDiscriminator parses an 8-byte hex instruction discriminator.
func DecodeDiscriminator(value string) ([8]byte, error) {
	var out [8]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return out, fmt.Errorf("invalid hex discriminator: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("discriminator must be %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(constant.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Save writes the given config to <NodeDir>/config/bridged_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, constant.ConfigSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, constant.ConfigFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads <BasePath>/config/bridged_config.json, applies BRIDGED_*
// environment overrides and validates the result.
func Load(basePath string) (Config, error) {
	configFile := filepath.Join(basePath, constant.ConfigSubdir, constant.ConfigFileName)

	v := newViper()
	v.SetConfigFile(filepath.Clean(configFile))
	if err := v.ReadInConfig(); err != nil {
		return Config{}, bridgeerrors.WrapChainError(err, bridgeerrors.ErrCodeConfig, "", "failed to read config file")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, bridgeerrors.WrapChainError(err, bridgeerrors.ErrCodeConfig, "", "failed to unmarshal config")
	}
	if err := validateConfig(&cfg); err != nil {
		return Config{}, bridgeerrors.WrapChainError(err, bridgeerrors.ErrCodeConfig, "", "invalid config")
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}
