package common

import (
	"context"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// TxOutcome is the on-chain view of a submitted transaction.
type TxOutcome struct {
	// Found is false while the transaction is unknown to the node.
	Found bool
	// Success is meaningful only when Found is true.
	Success bool
	// Confirmations counts blocks including the inclusion block (EVM only).
	Confirmations uint64
	// Confirmed and Finalized mirror Solana commitment levels.
	Confirmed bool
	Finalized bool
	// FailureReason carries the chain's error payload for failed transactions.
	FailureReason string
}

// SolanaReader is the read side of a Solana RPC endpoint.
type SolanaReader interface {
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (TxOutcome, error)
}

// SolanaWallet signs and submits a constructed transaction. A declined
// signature is reported as a USER_REJECTED error.
type SolanaWallet interface {
	PublicKey() solana.PublicKey
	SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// EvmCall is a contract call awaiting a signature.
type EvmCall struct {
	To    ethcommon.Address
	Data  []byte
	Value *big.Int
	// Label names the call in logs and wallet prompts, e.g. "approve".
	Label string
}

// EvmReader is the read side of an EVM RPC endpoint.
type EvmReader interface {
	BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error)
	CallContract(ctx context.Context, to ethcommon.Address, data []byte) ([]byte, error)
	// VerifyBroadcastedTx reports inclusion, status and confirmation depth.
	VerifyBroadcastedTx(ctx context.Context, txHash ethcommon.Hash) (TxOutcome, error)
}

// EvmWallet signs and submits a contract call. A declined signature is
// reported as a USER_REJECTED error.
type EvmWallet interface {
	Address() ethcommon.Address
	SendTransaction(ctx context.Context, call EvmCall) (ethcommon.Hash, error)
}

// Confirmer asks the key holder to approve a signature. Returning false
// rejects the transaction.
type Confirmer func(prompt string) bool
