package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// gasHeadroomPercent is added on top of the node's gas estimate.
const gasHeadroomPercent = 20

type txBackend interface {
	GetPendingNonce(ctx context.Context, account ethcommon.Address) (uint64, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BroadcastTransaction(ctx context.Context, tx *types.Transaction) (ethcommon.Hash, error)
}

// KeyWallet signs legacy EIP-155 transactions with a local secp256k1 key.
type KeyWallet struct {
	key     *ecdsa.PrivateKey
	address ethcommon.Address
	chainID *big.Int
	backend txBackend
	confirm chaincommon.Confirmer
	logger  zerolog.Logger
}

// ParsePrivateKey parses a hex private key with or without 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// NewKeyWallet creates a wallet. A nil confirm approves every transaction.
func NewKeyWallet(key *ecdsa.PrivateKey, chainID *big.Int, backend txBackend, confirm chaincommon.Confirmer, logger zerolog.Logger) (*KeyWallet, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("chainID is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	return &KeyWallet{
		key:     key,
		address: address,
		chainID: new(big.Int).Set(chainID),
		backend: backend,
		confirm: confirm,
		logger:  logger.With().Str("component", "evm_wallet").Str("address", address.Hex()).Logger(),
	}, nil
}

// Address returns the wallet address
func (w *KeyWallet) Address() ethcommon.Address {
	return w.address
}

// SendTransaction signs call and broadcasts it
func (w *KeyWallet) SendTransaction(ctx context.Context, call chaincommon.EvmCall) (ethcommon.Hash, error) {
	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}

	prompt := fmt.Sprintf("Sign %s to %s with value %s wei as %s?", call.Label, call.To.Hex(), value.String(), w.address.Hex())
	if w.confirm != nil && !w.confirm(prompt) {
		return ethcommon.Hash{}, bridgeerrors.NewUserRejectedError(constant.ChainEVM, "transaction rejected by signer")
	}

	nonce, err := w.backend.GetPendingNonce(ctx, w.address)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	gasPrice, err := w.backend.GetGasPrice(ctx)
	if err != nil {
		return ethcommon.Hash{}, err
	}

	to := call.To
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     w.address,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
		Data:     call.Data,
	})
	if err != nil {
		return ethcommon.Hash{}, err
	}
	gas += gas * gasHeadroomPercent / 100

	tx := types.NewTransaction(nonce, to, value, gas, gasPrice, call.Data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(w.chainID), w.key)
	if err != nil {
		return ethcommon.Hash{}, bridgeerrors.NewUnknownError(constant.ChainEVM, "failed to sign transaction", err)
	}

	hash, err := w.backend.BroadcastTransaction(ctx, signed)
	if err != nil {
		return ethcommon.Hash{}, err
	}

	w.logger.Info().
		Str("label", call.Label).
		Str("tx_hash", hash.Hex()).
		Uint64("nonce", nonce).
		Uint64("gas", gas).
		Msg("transaction submitted")
	return hash, nil
}
