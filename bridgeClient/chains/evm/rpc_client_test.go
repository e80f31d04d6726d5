package evm

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

const testChainID = 84532

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type rpcFailure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeEthRPC answers JSON-RPC requests from a method table.
type fakeEthRPC struct {
	mu       sync.Mutex
	handlers map[string]func() (interface{}, *rpcFailure)
	calls    map[string]int
	dropped  map[string]bool
}

func newFakeEthRPC(t *testing.T) (*fakeEthRPC, *httptest.Server) {
	t.Helper()
	f := &fakeEthRPC{
		handlers: map[string]func() (interface{}, *rpcFailure){
			"eth_chainId": func() (interface{}, *rpcFailure) { return hexutil.EncodeUint64(testChainID), nil },
		},
		calls:   map[string]int{},
		dropped: map[string]bool{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.calls[req.Method]++
		handler, ok := f.handlers[req.Method]
		drop := f.dropped[req.Method]
		f.mu.Unlock()

		if drop {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if !ok {
			resp["error"] = rpcFailure{Code: -32601, Message: "method not found"}
		} else if result, failure := handler(); failure != nil {
			resp["error"] = failure
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeEthRPC) on(method string, result interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = func() (interface{}, *rpcFailure) { return result, nil }
}

func (f *fakeEthRPC) fail(method string, code int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = func() (interface{}, *rpcFailure) { return nil, &rpcFailure{Code: code, Message: message} }
}

// drop closes the connection on method without answering.
func (f *fakeEthRPC) drop(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped[method] = true
}

func (f *fakeEthRPC) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func receiptJSON(txHash ethcommon.Hash, block uint64, status uint64) map[string]interface{} {
	return map[string]interface{}{
		"type":              "0x0",
		"transactionHash":   txHash.Hex(),
		"transactionIndex":  "0x0",
		"blockHash":         ethcommon.HexToHash("0xbb").Hex(),
		"blockNumber":       hexutil.EncodeUint64(block),
		"cumulativeGasUsed": "0x5208",
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x1",
		"logsBloom":         hexutil.Encode(make([]byte, 256)),
		"logs":              []interface{}{},
		"status":            hexutil.EncodeUint64(status),
	}
}

func TestNewRPCClient(t *testing.T) {
	t.Run("no urls", func(t *testing.T) {
		_, err := NewRPCClient(nil, testChainID, zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("chain id mismatch", func(t *testing.T) {
		_, srv := newFakeEthRPC(t)
		_, err := NewRPCClient([]string{srv.URL}, 8453, zerolog.Nop())
		require.Error(t, err)
		assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeNetwork))
	})

	t.Run("connects", func(t *testing.T) {
		_, srv := newFakeEthRPC(t)
		rc, err := NewRPCClient([]string{srv.URL}, testChainID, zerolog.Nop())
		require.NoError(t, err)
		defer rc.Close()
		assert.Equal(t, int64(testChainID), rc.ChainID().Int64())
	})
}

func TestRPCClient_Reads(t *testing.T) {
	fake, srv := newFakeEthRPC(t)
	rc, err := NewRPCClient([]string{srv.URL}, testChainID, zerolog.Nop())
	require.NoError(t, err)
	defer rc.Close()

	ctx := context.Background()

	fake.on("eth_getBalance", "0xde0b6b3a7640000")
	balance, err := rc.BalanceAt(ctx, ethcommon.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.String())

	word := ethcommon.LeftPadBytes(big.NewInt(42).Bytes(), 32)
	fake.on("eth_call", hexutil.Encode(word))
	out, err := rc.CallContract(ctx, ethcommon.HexToAddress("0x02"), []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, word, out)

	fake.on("eth_blockNumber", "0x10")
	block, err := rc.GetLatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), block)
	assert.True(t, rc.IsHealthy(ctx))
}

func TestRPCClient_ProtocolErrorDoesNotFailOver(t *testing.T) {
	fake, srv := newFakeEthRPC(t)
	rc, err := NewRPCClient([]string{srv.URL, srv.URL}, testChainID, zerolog.Nop())
	require.NoError(t, err)
	defer rc.Close()

	fake.fail("eth_call", 3, "execution reverted")
	_, err = rc.CallContract(context.Background(), ethcommon.HexToAddress("0x02"), nil)
	require.Error(t, err)
	assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeProtocol))
	assert.Equal(t, 1, fake.count("eth_call"))
}

func TestRPCClient_NetworkError(t *testing.T) {
	_, srv := newFakeEthRPC(t)
	rc, err := NewRPCClient([]string{srv.URL}, testChainID, zerolog.Nop())
	require.NoError(t, err)
	defer rc.Close()

	srv.Close()
	_, err = rc.BalanceAt(context.Background(), ethcommon.HexToAddress("0x01"))
	require.Error(t, err)
	assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeNetwork))
	assert.False(t, rc.IsHealthy(context.Background()))
}

func TestRPCClient_VerifyBroadcastedTx(t *testing.T) {
	txHash := ethcommon.HexToHash("0xabc")

	tests := []struct {
		name    string
		receipt interface{}
		latest  string
		want    func(t *testing.T, found, success bool, confirmations uint64)
	}{
		{
			name:    "not yet mined",
			receipt: nil,
			latest:  "0x64",
			want: func(t *testing.T, found, success bool, confirmations uint64) {
				assert.False(t, found)
				assert.Zero(t, confirmations)
			},
		},
		{
			name:    "mined in latest block",
			receipt: receiptJSON(txHash, 100, 1),
			latest:  "0x64",
			want: func(t *testing.T, found, success bool, confirmations uint64) {
				assert.True(t, found)
				assert.True(t, success)
				assert.Equal(t, uint64(1), confirmations)
			},
		},
		{
			name:    "reverted with depth",
			receipt: receiptJSON(txHash, 100, 0),
			latest:  "0x66",
			want: func(t *testing.T, found, success bool, confirmations uint64) {
				assert.True(t, found)
				assert.False(t, success)
				assert.Equal(t, uint64(3), confirmations)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, srv := newFakeEthRPC(t)
			rc, err := NewRPCClient([]string{srv.URL}, testChainID, zerolog.Nop())
			require.NoError(t, err)
			defer rc.Close()

			fake.on("eth_getTransactionReceipt", tt.receipt)
			fake.on("eth_blockNumber", tt.latest)

			outcome, err := rc.VerifyBroadcastedTx(context.Background(), txHash)
			require.NoError(t, err)
			tt.want(t, outcome.Found, outcome.Success, outcome.Confirmations)
		})
	}
}

func signedTestTx(t *testing.T) *types.Transaction {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	to := ethcommon.HexToAddress("0x02")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      21000,
		To:       &to,
		Value:    big.NewInt(1),
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(testChainID)), key)
	require.NoError(t, err)
	return signed
}

func TestRPCClient_BroadcastTransaction(t *testing.T) {
	newPair := func(t *testing.T) (*fakeEthRPC, *fakeEthRPC, *RPCClient) {
		fakeA, srvA := newFakeEthRPC(t)
		fakeB, srvB := newFakeEthRPC(t)
		rc, err := NewRPCClient([]string{srvA.URL, srvB.URL}, testChainID, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(rc.Close)
		return fakeA, fakeB, rc
	}

	t.Run("returns the hash", func(t *testing.T) {
		fake, srv := newFakeEthRPC(t)
		rc, err := NewRPCClient([]string{srv.URL}, testChainID, zerolog.Nop())
		require.NoError(t, err)
		defer rc.Close()

		tx := signedTestTx(t)
		fake.on("eth_sendRawTransaction", tx.Hash().Hex())
		hash, err := rc.BroadcastTransaction(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, tx.Hash(), hash)
	})

	t.Run("rejection after failover keeps the hash", func(t *testing.T) {
		fakeA, fakeB, rc := newPair(t)
		fakeA.drop("eth_sendRawTransaction")
		fakeB.fail("eth_sendRawTransaction", -32000, "nonce too low")

		tx := signedTestTx(t)
		_, err := rc.BroadcastTransaction(context.Background(), tx)
		require.Error(t, err)
		assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeProtocol))
		assert.Equal(t, tx.Hash().Hex(), bridgeerrors.TxHashOf(err))
		assert.Equal(t, 1, fakeA.count("eth_sendRawTransaction"))
		assert.Equal(t, 1, fakeB.count("eth_sendRawTransaction"))
	})

	t.Run("already known after failover is broadcast", func(t *testing.T) {
		fakeA, fakeB, rc := newPair(t)
		fakeA.drop("eth_sendRawTransaction")
		fakeB.fail("eth_sendRawTransaction", -32000, "already known")

		tx := signedTestTx(t)
		hash, err := rc.BroadcastTransaction(context.Background(), tx)
		require.NoError(t, err)
		assert.Equal(t, tx.Hash(), hash)
	})

	t.Run("already known on first attempt is an error", func(t *testing.T) {
		fake, srv := newFakeEthRPC(t)
		rc, err := NewRPCClient([]string{srv.URL}, testChainID, zerolog.Nop())
		require.NoError(t, err)
		defer rc.Close()

		fake.fail("eth_sendRawTransaction", -32000, "already known")
		tx := signedTestTx(t)
		_, err = rc.BroadcastTransaction(context.Background(), tx)
		require.Error(t, err)
		assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeProtocol))
		assert.Equal(t, tx.Hash().Hex(), bridgeerrors.TxHashOf(err))
	})

	t.Run("cancelled before sending carries no hash", func(t *testing.T) {
		_, _, rc := newPair(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := rc.BroadcastTransaction(ctx, signedTestTx(t))
		require.Error(t, err)
		assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeNetwork))
		assert.Empty(t, bridgeerrors.TxHashOf(err))
	})
}
