package core

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
	"github.com/tipjar/crossbridge/bridgeClient/config"
)

const (
	testProgramID      = "7c6mteAcTXaQ1MFBCrnuzoZVTTAEfZwa6wgy4bqX3KXC"
	testGasFeeReceiver = "AFs1LCbodhvwpgX3u3URLsud6R1XMSaMiQ5LtXw4GKYT"
	testBaseBridge     = "0x01824a90d32A69022DdAEcC6C5C14Ed08dB4EB9B"
	testRouter         = "0xD3b06cEbF099CE7DA4AcCf578aaebFDBd6e88a93"
	testSolToken       = "0xCace0c896714DaF7098FFD8CC54aFCFe0338b4BC"
	testUSDCToken      = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	testUSDCMint       = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	testEvmSender      = "0x00000000000000000000000000000000000000e1"
	testEvmRecipient   = "0x1111111111111111111111111111111111111111"
)

var (
	testSolanaSender    = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	testSolanaRecipient = solana.PublicKeyFromBytes(bytes.Repeat([]byte{0x42}, 32))
)

func testNetworkConfig() *config.NetworkConfig {
	return &config.NetworkConfig{
		Version: config.ConfigVersion,
		Solana: config.SolanaConfig{
			BridgeProgramID: testProgramID,
			GasFeeReceiver:  testGasFeeReceiver,
			Commitment:      config.CommitmentFinalized,
		},
		Evm: config.EvmConfig{
			ChainID:             84532,
			BaseBridgeAddress:   testBaseBridge,
			CCIPRouterAddress:   testRouter,
			SolanaChainSelector: chainsel.SOLANA_DEVNET.Selector,
		},
		Confirmation: config.ConfirmationConfig{
			ApprovalConfirmations: 2,
			TransferConfirmations: 1,
		},
		Tokens: []config.TokenConfig{
			{Symbol: "SOL", SolanaMint: "So11111111111111111111111111111111111111112", EvmAddress: testSolToken, Decimals: 9},
			{Symbol: "USDC", SolanaMint: testUSDCMint, EvmAddress: testUSDCToken, Decimals: 6},
		},
	}
}

func fixedSalt(fill byte) func() ([]byte, error) {
	return func() ([]byte, error) { return bytes.Repeat([]byte{fill}, 32), nil }
}

func newTestOrchestrator(t *testing.T, nc *config.NetworkConfig, ports Ports, recorder Recorder) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(config.NetworkDevnet, nc, ports, recorder, nil, zerolog.Nop())
	require.NoError(t, err)
	o.pollInterval = time.Millisecond
	o.pollTimeout = 2 * time.Second
	o.newSalt = fixedSalt(7)
	return o
}

// collect drains updates until the stream closes.
func collect(t *testing.T, updates <-chan StatusUpdate) []StatusUpdate {
	t.Helper()
	var out []StatusUpdate
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return out
			}
			out = append(out, u)
		case <-timeout:
			t.Fatal("status stream was not closed")
			return out
		}
	}
}

func statesOf(updates []StatusUpdate) []State {
	out := make([]State, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.State)
	}
	return out
}

func word(v int64) []byte {
	return ethcommon.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

type mockSolanaReader struct {
	mock.Mock
}

func (m *mockSolanaReader) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockSolanaReader) GetTokenBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	args := m.Called(ctx, tokenAccount)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockSolanaReader) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *mockSolanaReader) GetSignatureStatus(ctx context.Context, sig solana.Signature) (chaincommon.TxOutcome, error) {
	args := m.Called(ctx, sig)
	return args.Get(0).(chaincommon.TxOutcome), args.Error(1)
}

type mockSolanaWallet struct {
	mock.Mock
	key solana.PublicKey
}

func (m *mockSolanaWallet) PublicKey() solana.PublicKey {
	return m.key
}

func (m *mockSolanaWallet) SignAndSend(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(solana.Signature), args.Error(1)
}

type mockEvmReader struct {
	mock.Mock
}

func (m *mockEvmReader) BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *mockEvmReader) CallContract(ctx context.Context, to ethcommon.Address, data []byte) ([]byte, error) {
	args := m.Called(ctx, to, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockEvmReader) VerifyBroadcastedTx(ctx context.Context, txHash ethcommon.Hash) (chaincommon.TxOutcome, error) {
	args := m.Called(ctx, txHash)
	return args.Get(0).(chaincommon.TxOutcome), args.Error(1)
}

type mockEvmWallet struct {
	mock.Mock
	address ethcommon.Address
}

func (m *mockEvmWallet) Address() ethcommon.Address {
	return m.address
}

func (m *mockEvmWallet) SendTransaction(ctx context.Context, call chaincommon.EvmCall) (ethcommon.Hash, error) {
	args := m.Called(ctx, call)
	return args.Get(0).(ethcommon.Hash), args.Error(1)
}

func callLabeled(label string) interface{} {
	return mock.MatchedBy(func(call chaincommon.EvmCall) bool { return call.Label == label })
}
