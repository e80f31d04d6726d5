package svm

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

type transactionSender interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// KeypairWallet signs with a local keypair and submits through an RPC client.
type KeypairWallet struct {
	key     solana.PrivateKey
	sender  transactionSender
	confirm chaincommon.Confirmer
	logger  zerolog.Logger
}

// LoadKeypair reads a solana-keygen JSON keypair file.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return key, nil
}

// NewKeypairWallet creates a wallet. A nil confirm approves every transaction.
func NewKeypairWallet(key solana.PrivateKey, sender transactionSender, confirm chaincommon.Confirmer, logger zerolog.Logger) (*KeypairWallet, error) {
	if len(key) != 64 {
		return nil, fmt.Errorf("invalid keypair length: expected 64 bytes, got %d", len(key))
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}

	return &KeypairWallet{
		key:     key,
		sender:  sender,
		confirm: confirm,
		logger:  logger.With().Str("component", "svm_wallet").Str("address", key.PublicKey().String()).Logger(),
	}, nil
}

// PublicKey returns the wallet address
func (w *KeypairWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// SignAndSend signs tx with the wallet key and broadcasts it
func (w *KeypairWallet) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if tx == nil {
		return solana.Signature{}, bridgeerrors.NewValidationError(constant.ChainSolana, "transaction is nil")
	}

	prompt := fmt.Sprintf("Sign Solana transaction with %d instruction(s) as %s?", len(tx.Message.Instructions), w.PublicKey())
	if w.confirm != nil && !w.confirm(prompt) {
		return solana.Signature{}, bridgeerrors.NewUserRejectedError(constant.ChainSolana, "transaction rejected by signer")
	}

	pub := w.PublicKey()
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &w.key
		}
		return nil
	}); err != nil {
		return solana.Signature{}, bridgeerrors.NewValidationError(constant.ChainSolana, fmt.Sprintf("failed to sign transaction: %v", err))
	}

	sig, err := w.sender.SendTransaction(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}

	w.logger.Info().Str("signature", sig.String()).Msg("transaction submitted")
	return sig, nil
}
