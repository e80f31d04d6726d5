package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// RPCClient provides EVM RPC operations over a pool of endpoints
type RPCClient struct {
	clients []*ethclient.Client
	chainID *big.Int
	index   uint64
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// NewRPCClient creates a new EVM RPC client from RPC URLs and validates chain ID
func NewRPCClient(rpcURLs []string, expectedChainID int64, logger zerolog.Logger) (*RPCClient, error) {
	if len(rpcURLs) == 0 {
		return nil, fmt.Errorf("no RPC URLs provided")
	}

	log := logger.With().Str("component", "evm_rpc_client").Logger()
	clients := make([]*ethclient.Client, 0, len(rpcURLs))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, url := range rpcURLs {
		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to connect to RPC endpoint, skipping")
			continue
		}

		clientChainID, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			log.Warn().Err(err).Str("url", url).Msg("failed to read chain ID, skipping")
			continue
		}

		if clientChainID.Int64() != expectedChainID {
			client.Close()
			log.Warn().
				Str("url", url).
				Int64("expected_chain_id", expectedChainID).
				Int64("actual_chain_id", clientChainID.Int64()).
				Msg("chain ID mismatch, closing client")
			continue
		}

		clients = append(clients, client)
		log.Info().Str("url", url).Msg("connected to RPC endpoint")
	}

	if len(clients) == 0 {
		return nil, bridgeerrors.NewNetworkError(constant.ChainEVM, "failed to connect to any valid RPC endpoints", nil)
	}

	return &RPCClient{
		clients: clients,
		chainID: big.NewInt(expectedChainID),
		logger:  log,
	}, nil
}

// executeWithFailover executes a function with round-robin failover.
// ethereum.NotFound is returned unchanged; a JSON-RPC error from the node
// is a PROTOCOL error and is not retried on another endpoint.
func (rc *RPCClient) executeWithFailover(ctx context.Context, operation string, fn func(*ethclient.Client) error) error {
	rc.mu.RLock()
	clients := rc.clients
	rc.mu.RUnlock()

	if len(clients) == 0 {
		return bridgeerrors.NewNetworkError(constant.ChainEVM, fmt.Sprintf("no RPC clients available for %s", operation), nil)
	}

	var lastErr error
	for attempt := 0; attempt < len(clients); attempt++ {
		if err := ctx.Err(); err != nil {
			return bridgeerrors.NewNetworkError(constant.ChainEVM, operation, err)
		}

		index := atomic.AddUint64(&rc.index, 1) - 1
		client := clients[index%uint64(len(clients))]

		err := fn(client)
		if err == nil {
			return nil
		}
		if errors.Is(err, ethereum.NotFound) {
			return err
		}

		var rpcErr gethrpc.Error
		if errors.As(err, &rpcErr) {
			return bridgeerrors.NewProtocolError(constant.ChainEVM, fmt.Sprintf("%s rejected by node", operation), err).
				WithContext("rpc_code", rpcErr.ErrorCode())
		}

		lastErr = err
		rc.logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Err(err).
			Msg("operation failed, trying next endpoint")
	}

	return bridgeerrors.NewNetworkError(constant.ChainEVM,
		fmt.Sprintf("operation %s failed after trying %d endpoints", operation, len(clients)), lastErr)
}

// ChainID returns the verified chain ID
func (rc *RPCClient) ChainID() *big.Int {
	return new(big.Int).Set(rc.chainID)
}

// IsHealthy checks if any RPC in the pool is healthy by pinging it
func (rc *RPCClient) IsHealthy(ctx context.Context) bool {
	rc.mu.RLock()
	hasClients := len(rc.clients) > 0
	rc.mu.RUnlock()

	if !hasClients {
		return false
	}

	_, err := rc.GetLatestBlock(ctx)
	return err == nil
}

// GetLatestBlock returns the latest block number
func (rc *RPCClient) GetLatestBlock(ctx context.Context) (uint64, error) {
	var blockNum uint64
	err := rc.executeWithFailover(ctx, "get_block_number", func(client *ethclient.Client) error {
		var innerErr error
		blockNum, innerErr = client.BlockNumber(ctx)
		return innerErr
	})
	return blockNum, err
}

// BalanceAt returns the native balance of account at the latest block
func (rc *RPCClient) BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	var balance *big.Int
	err := rc.executeWithFailover(ctx, "get_balance", func(client *ethclient.Client) error {
		var innerErr error
		balance, innerErr = client.BalanceAt(ctx, account, nil)
		return innerErr
	})
	return balance, err
}

// CallContract executes a read-only call against to
func (rc *RPCClient) CallContract(ctx context.Context, to ethcommon.Address, data []byte) ([]byte, error) {
	var out []byte
	err := rc.executeWithFailover(ctx, "eth_call", func(client *ethclient.Client) error {
		var innerErr error
		out, innerErr = client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		return innerErr
	})
	return out, err
}

// GetGasPrice fetches the current gas price
func (rc *RPCClient) GetGasPrice(ctx context.Context) (*big.Int, error) {
	var gasPrice *big.Int
	err := rc.executeWithFailover(ctx, "get_gas_price", func(client *ethclient.Client) error {
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		var innerErr error
		gasPrice, innerErr = client.SuggestGasPrice(callCtx)
		return innerErr
	})
	return gasPrice, err
}

// GetPendingNonce returns the next nonce for account including pending transactions
func (rc *RPCClient) GetPendingNonce(ctx context.Context, account ethcommon.Address) (uint64, error) {
	var nonce uint64
	err := rc.executeWithFailover(ctx, "get_pending_nonce", func(client *ethclient.Client) error {
		var innerErr error
		nonce, innerErr = client.PendingNonceAt(ctx, account)
		return innerErr
	})
	return nonce, err
}

// EstimateGas estimates the gas needed to execute msg
func (rc *RPCClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var gas uint64
	err := rc.executeWithFailover(ctx, "estimate_gas", func(client *ethclient.Client) error {
		var innerErr error
		gas, innerErr = client.EstimateGas(ctx, msg)
		return innerErr
	})
	return gas, err
}

// BroadcastTransaction sends a signed transaction and returns its hash. A
// failed send still carries the hash once any endpoint was tried.
func (rc *RPCClient) BroadcastTransaction(ctx context.Context, tx *types.Transaction) (ethcommon.Hash, error) {
	hash := tx.Hash()

	attempts := 0
	err := rc.executeWithFailover(ctx, "send_transaction", func(client *ethclient.Client) error {
		attempts++
		err := client.SendTransaction(ctx, tx)
		if err != nil && attempts > 1 && isAlreadyKnown(err) {
			rc.logger.Info().
				Str("tx_hash", hash.Hex()).
				Msg("transaction already known after failover, treating as broadcast")
			return nil
		}
		return err
	})
	if err != nil {
		chainErr := bridgeerrors.WrapChainError(err, bridgeerrors.ErrCodeNetwork, constant.ChainEVM, "send transaction")
		if attempts > 0 {
			chainErr.WithTxHash(hash.Hex())
		}
		return ethcommon.Hash{}, chainErr
	}
	return hash, nil
}

// isAlreadyKnown matches the txpool's answer to a duplicate submission.
func isAlreadyKnown(err error) bool {
	var rpcErr gethrpc.Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(strings.ToLower(rpcErr.Error()), "already known")
}

// GetTransactionReceipt fetches a transaction receipt
func (rc *RPCClient) GetTransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := rc.executeWithFailover(ctx, "get_transaction_receipt", func(client *ethclient.Client) error {
		var innerErr error
		receipt, innerErr = client.TransactionReceipt(ctx, txHash)
		return innerErr
	})
	return receipt, err
}

// VerifyBroadcastedTx checks the status of a broadcasted transaction.
// Confirmations count the inclusion block, so a just-mined tx has one.
func (rc *RPCClient) VerifyBroadcastedTx(ctx context.Context, txHash ethcommon.Hash) (chaincommon.TxOutcome, error) {
	receipt, err := rc.GetTransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return chaincommon.TxOutcome{}, nil
	}
	if err != nil {
		return chaincommon.TxOutcome{}, err
	}

	latestBlock, err := rc.GetLatestBlock(ctx)
	if err != nil {
		return chaincommon.TxOutcome{}, err
	}

	out := chaincommon.TxOutcome{
		Found:   true,
		Success: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil && latestBlock >= receipt.BlockNumber.Uint64() {
		out.Confirmations = latestBlock - receipt.BlockNumber.Uint64() + 1
	}
	if !out.Success {
		out.FailureReason = "transaction reverted"
	}
	return out, nil
}

// Close closes all RPC connections
func (rc *RPCClient) Close() {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	for _, client := range rc.clients {
		if client != nil {
			client.Close()
		}
	}
	rc.clients = nil
}
