package svm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// RPCClient provides Solana RPC operations over a pool of endpoints
type RPCClient struct {
	clients    []*rpc.Client
	index      uint64
	commitment rpc.CommitmentType
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewRPCClient creates a new Solana RPC client from RPC URLs and validates genesis hash
func NewRPCClient(rpcURLs []string, expectedGenesisHash string, logger zerolog.Logger) (*RPCClient, error) {
	if len(rpcURLs) == 0 {
		return nil, fmt.Errorf("no RPC URLs provided")
	}

	log := logger.With().Str("component", "svm_rpc_client").Logger()
	clients := make([]*rpc.Client, 0, len(rpcURLs))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, url := range rpcURLs {
		client := rpc.New(url)

		health, err := client.GetHealth(ctx)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to connect to RPC endpoint, skipping")
			continue
		}

		if health != "ok" {
			log.Warn().
				Str("url", url).
				Str("health", health).
				Msg("node is not healthy, skipping")
			continue
		}

		if expectedGenesisHash != "" {
			genesisHash, err := client.GetGenesisHash(ctx)
			if err != nil {
				log.Warn().
					Err(err).
					Str("url", url).
					Str("expected_genesis_hash", expectedGenesisHash).
					Msg("failed to verify genesis hash, proceeding with client anyway")
				clients = append(clients, client)
				continue
			}

			if genesisHash.String() != expectedGenesisHash {
				log.Warn().
					Str("url", url).
					Str("expected_genesis_hash", expectedGenesisHash).
					Str("actual_genesis_hash", genesisHash.String()).
					Msg("genesis hash mismatch, skipping")
				continue
			}
		}

		clients = append(clients, client)
		log.Info().Str("url", url).Msg("connected to RPC endpoint")
	}

	if len(clients) == 0 {
		return nil, bridgeerrors.NewNetworkError(constant.ChainSolana, "failed to connect to any valid RPC endpoints", nil)
	}

	return &RPCClient{
		clients:    clients,
		commitment: rpc.CommitmentConfirmed,
		logger:     log,
	}, nil
}

// executeWithFailover executes a function with round-robin failover. An
// endpoint that answered with a JSON-RPC error is not retried elsewhere.
func (rc *RPCClient) executeWithFailover(ctx context.Context, operation string, fn func(*rpc.Client) error) error {
	rc.mu.RLock()
	clients := rc.clients
	rc.mu.RUnlock()

	if len(clients) == 0 {
		return bridgeerrors.NewNetworkError(constant.ChainSolana, fmt.Sprintf("no RPC clients available for %s", operation), nil)
	}

	var lastErr error
	for attempt := 0; attempt < len(clients); attempt++ {
		if err := ctx.Err(); err != nil {
			return bridgeerrors.NewNetworkError(constant.ChainSolana, operation, err)
		}

		index := atomic.AddUint64(&rc.index, 1) - 1
		client := clients[index%uint64(len(clients))]

		err := fn(client)
		if err == nil {
			return nil
		}

		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			return bridgeerrors.NewProtocolError(constant.ChainSolana, fmt.Sprintf("%s rejected by node", operation), err).
				WithContext("rpc_code", rpcErr.Code)
		}

		lastErr = err
		rc.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next endpoint")
	}

	return bridgeerrors.NewNetworkError(constant.ChainSolana,
		fmt.Sprintf("operation %s failed after trying %d endpoints", operation, len(clients)), lastErr)
}

// GetBalance returns the lamport balance of account
func (rc *RPCClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var balance uint64
	err := rc.executeWithFailover(ctx, "get_balance", func(client *rpc.Client) error {
		res, innerErr := client.GetBalance(ctx, account, rc.commitment)
		if innerErr != nil {
			return innerErr
		}
		balance = res.Value
		return nil
	})
	return balance, err
}

// GetTokenBalance returns the raw token amount held by tokenAccount. Only a
// token account the node reports as absent reads as empty; every other
// failure is returned with its kind intact.
func (rc *RPCClient) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	var amount string
	err := rc.executeWithFailover(ctx, "get_token_account_balance", func(client *rpc.Client) error {
		res, innerErr := client.GetTokenAccountBalance(ctx, tokenAccount, rc.commitment)
		if innerErr != nil {
			return innerErr
		}
		if res == nil || res.Value == nil {
			amount = "0"
			return nil
		}
		amount = res.Value.Amount
		return nil
	})
	if bridgeerrors.IsKind(err, bridgeerrors.ErrCodeProtocol) {
		missing, lookupErr := rc.accountMissing(ctx, tokenAccount)
		if lookupErr != nil || !missing {
			return 0, err
		}
		rc.logger.Debug().Str("account", tokenAccount.String()).Msg("token account does not exist, treating as empty")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	balance, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return 0, bridgeerrors.NewProtocolError(constant.ChainSolana, fmt.Sprintf("invalid token amount %q", amount), err)
	}
	return balance, nil
}

// accountMissing reports whether the node has no account at address.
func (rc *RPCClient) accountMissing(ctx context.Context, address solana.PublicKey) (bool, error) {
	var missing bool
	err := rc.executeWithFailover(ctx, "get_account_info", func(client *rpc.Client) error {
		res, innerErr := client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
			Commitment: rc.commitment,
		})
		if errors.Is(innerErr, rpc.ErrNotFound) {
			missing = true
			return nil
		}
		if innerErr != nil {
			return innerErr
		}
		missing = res == nil || res.Value == nil
		return nil
	})
	return missing, err
}

// GetRecentBlockhash gets a recent blockhash for transaction building
func (rc *RPCClient) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	var blockhash solana.Hash
	err := rc.executeWithFailover(ctx, "get_recent_blockhash", func(client *rpc.Client) error {
		resp, innerErr := client.GetLatestBlockhash(ctx, rc.commitment)
		if innerErr != nil {
			return innerErr
		}
		blockhash = resp.Value.Blockhash
		return nil
	})
	return blockhash, err
}

// SendTransaction broadcasts a signed transaction and returns its signature.
// The signature is known before broadcast, so a failed send carries it: an
// endpoint may have accepted the tx before the failure was observed.
func (rc *RPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, bridgeerrors.NewValidationError(constant.ChainSolana, "transaction has no signatures")
	}
	sig := tx.Signatures[0]

	attempts := 0
	err := rc.executeWithFailover(ctx, "send_transaction", func(client *rpc.Client) error {
		attempts++
		_, innerErr := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rc.commitment,
		})
		if innerErr != nil && attempts > 1 && isAlreadyProcessed(innerErr) {
			rc.logger.Info().
				Str("signature", sig.String()).
				Msg("transaction already processed after failover, treating as sent")
			return nil
		}
		return innerErr
	})
	if err != nil {
		chainErr := bridgeerrors.WrapChainError(err, bridgeerrors.ErrCodeNetwork, constant.ChainSolana, "send transaction")
		if attempts > 0 {
			chainErr.WithTxHash(sig.String())
		}
		return solana.Signature{}, chainErr
	}
	return sig, nil
}

// isAlreadyProcessed matches the node's answer to a duplicate signature.
func isAlreadyProcessed(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "already been processed") || strings.Contains(msg, "alreadyprocessed")
}

// GetSignatureStatus maps the signature's commitment level onto a TxOutcome
func (rc *RPCClient) GetSignatureStatus(ctx context.Context, sig solana.Signature) (chaincommon.TxOutcome, error) {
	var statuses *rpc.GetSignatureStatusesResult
	err := rc.executeWithFailover(ctx, "get_signature_statuses", func(client *rpc.Client) error {
		var innerErr error
		statuses, innerErr = client.GetSignatureStatuses(ctx, true, sig)
		return innerErr
	})
	if err != nil {
		return chaincommon.TxOutcome{}, err
	}
	return outcomeFromStatuses(statuses), nil
}

func outcomeFromStatuses(res *rpc.GetSignatureStatusesResult) chaincommon.TxOutcome {
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return chaincommon.TxOutcome{}
	}

	status := res.Value[0]
	out := chaincommon.TxOutcome{
		Found:   true,
		Success: status.Err == nil,
	}
	if status.Err != nil {
		out.FailureReason = fmt.Sprintf("%v", status.Err)
	}
	if status.Confirmations != nil {
		out.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed:
		out.Confirmed = true
	case rpc.ConfirmationStatusFinalized:
		out.Confirmed = true
		out.Finalized = true
	}
	return out
}

// IsHealthy checks if any RPC in the pool answers a slot query
func (rc *RPCClient) IsHealthy(ctx context.Context) bool {
	rc.mu.RLock()
	hasClients := len(rc.clients) > 0
	rc.mu.RUnlock()

	if !hasClients {
		return false
	}

	err := rc.executeWithFailover(ctx, "get_slot", func(client *rpc.Client) error {
		_, innerErr := client.GetSlot(ctx, rpc.CommitmentFinalized)
		return innerErr
	})
	return err == nil
}

// Close closes all RPC connections
func (rc *RPCClient) Close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.clients = nil
}
