// Package core drives a bridge transfer from an unsigned request to a
// confirmed on-chain transaction.
package core

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
	"github.com/tipjar/crossbridge/bridgeClient/chains/evm"
	"github.com/tipjar/crossbridge/bridgeClient/chains/svm"
	"github.com/tipjar/crossbridge/bridgeClient/config"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
	"github.com/tipjar/crossbridge/bridgeClient/metrics"
)

// statusBufferSize holds every update one transfer can emit, so a reader
// that stops listening never blocks the worker.
const statusBufferSize = 16

// solanaFeeReserveLamports covers the signature fee on top of the bridged amount.
const solanaFeeReserveLamports = 10_000

// Ports are the chain collaborators. Only the pair for a transfer's source
// chain has to be set.
type Ports struct {
	SolanaReader chaincommon.SolanaReader
	SolanaWallet chaincommon.SolanaWallet
	EvmReader    chaincommon.EvmReader
	EvmWallet    chaincommon.EvmWallet
}

// Recorder persists transfers and their transitions.
type Recorder interface {
	Create(et *EncodedTransfer) error
	Transition(update StatusUpdate) error
}

// Orchestrator builds and tracks transfers for one network.
type Orchestrator struct {
	network        config.Network
	cfg            *config.NetworkConfig
	encoder        *svm.InstructionEncoder
	gasFeeReceiver solana.PublicKey
	ports          Ports
	recorder       Recorder
	metrics        *metrics.Metrics
	logger         zerolog.Logger

	pollInterval   time.Duration
	pollTimeout    time.Duration
	finalityMargin time.Duration
	newSalt        func() ([]byte, error)
}

// NewOrchestrator wires a NetworkConfig record to the chain ports. recorder
// and m may be nil.
func NewOrchestrator(network config.Network, nc *config.NetworkConfig, ports Ports, recorder Recorder, m *metrics.Metrics, logger zerolog.Logger) (*Orchestrator, error) {
	if nc == nil {
		return nil, bridgeerrors.NewConfigError("", fmt.Sprintf("no config for network %s", network))
	}

	o := &Orchestrator{
		network:        network,
		cfg:            nc,
		ports:          ports,
		recorder:       recorder,
		metrics:        m,
		logger:         logger.With().Str("component", "orchestrator").Str("network", network.String()).Logger(),
		pollInterval:   time.Duration(nc.Confirmation.PollIntervalSeconds) * time.Second,
		pollTimeout:    time.Duration(nc.Confirmation.TimeoutSeconds) * time.Second,
		finalityMargin: time.Duration(nc.Confirmation.FinalityMarginSeconds) * time.Second,
		newSalt:        svm.NewSalt,
	}

	if nc.Solana.BridgeProgramID != "" {
		programID, err := solana.PublicKeyFromBase58(nc.Solana.BridgeProgramID)
		if err != nil {
			return nil, bridgeerrors.NewConfigError(constant.ChainSolana, fmt.Sprintf("invalid bridge program id: %v", err))
		}
		discriminators, err := discriminatorsFromConfig(nc.Solana)
		if err != nil {
			return nil, err
		}
		o.encoder, err = svm.NewInstructionEncoder(programID, discriminators)
		if err != nil {
			return nil, err
		}
	}
	if nc.Solana.GasFeeReceiver != "" {
		receiver, err := solana.PublicKeyFromBase58(nc.Solana.GasFeeReceiver)
		if err != nil {
			return nil, bridgeerrors.NewConfigError(constant.ChainSolana, fmt.Sprintf("invalid gas fee receiver: %v", err))
		}
		o.gasFeeReceiver = receiver
	}
	return o, nil
}

func discriminatorsFromConfig(sc config.SolanaConfig) (map[svm.InstructionKind]svm.Discriminator, error) {
	if sc.BridgeSolDisc == "" && sc.BridgeSplDisc == "" {
		return nil, nil
	}
	out := make(map[svm.InstructionKind]svm.Discriminator, 2)
	for kind, value := range map[svm.InstructionKind]string{
		svm.InstructionBridgeSol: sc.BridgeSolDisc,
		svm.InstructionBridgeSpl: sc.BridgeSplDisc,
	} {
		if value == "" {
			out[kind] = svm.DefaultDiscriminators[kind]
			continue
		}
		disc, err := config.DecodeDiscriminator(value)
		if err != nil {
			return nil, bridgeerrors.NewConfigError(constant.ChainSolana, fmt.Sprintf("%s discriminator: %v", kind, err))
		}
		out[kind] = svm.Discriminator(disc)
	}
	return out, nil
}

// Network returns the network the orchestrator was built for.
func (o *Orchestrator) Network() config.Network {
	return o.network
}

// SubmitAndTrack signs, sends and follows et. The returned channel yields
// one update per state and is closed after Completed or Failed. Cancelling
// ctx abandons the local wait only; a sent transaction stays sent.
func (o *Orchestrator) SubmitAndTrack(ctx context.Context, et *EncodedTransfer) <-chan StatusUpdate {
	updates := make(chan StatusUpdate, statusBufferSize)
	run := &transferRun{
		o:       o,
		et:      et,
		updates: updates,
		logger:  o.logger.With().Str("transfer_id", transferID(et)).Str("kind", kindOf(et)).Logger(),
	}
	go run.execute(ctx)
	return updates
}

func transferID(et *EncodedTransfer) string {
	if et == nil {
		return ""
	}
	return et.ID
}

func kindOf(et *EncodedTransfer) string {
	if et == nil {
		return ""
	}
	return string(et.Kind)
}

// transferRun is the state of one SubmitAndTrack call.
type transferRun struct {
	o       *Orchestrator
	et      *EncodedTransfer
	updates chan<- StatusUpdate
	logger  zerolog.Logger

	state          State
	txHash         string
	approvalTxHash string
	fee            *big.Int
}

func (r *transferRun) execute(ctx context.Context) {
	defer close(r.updates)

	r.emit(StateValidating, 0)

	err := r.validateEnvelope()
	if err == nil && r.o.recorder != nil {
		err = r.o.recorder.Create(r.et)
	}
	if err == nil {
		switch {
		case r.et.Solana != nil:
			err = r.runSolana(ctx)
		default:
			err = r.runEvm(ctx)
		}
	}

	if err != nil {
		r.fail(err)
		return
	}
	r.emit(StateCompleted, 0)
	r.o.metrics.ObserveOutcome(string(r.et.Kind), StateCompleted.String())
	r.logger.Info().Str("tx_hash", r.txHash).Msg("transfer completed")
}

func (r *transferRun) validateEnvelope() error {
	if r.et == nil {
		return bridgeerrors.NewValidationError("", "encoded transfer is required")
	}
	if r.et.Network != r.o.network {
		return bridgeerrors.NewValidationError(chainLabel(r.et.Kind),
			fmt.Sprintf("transfer was built for %s, orchestrator runs on %s", r.et.Network, r.o.network))
	}
	if (r.et.Solana == nil) == (r.et.Evm == nil) {
		return bridgeerrors.NewValidationError(chainLabel(r.et.Kind), "transfer must carry exactly one chain payload")
	}
	if r.et.Request.Amount == nil || r.et.Request.Amount.Sign() <= 0 {
		return bridgeerrors.NewValidationError(chainLabel(r.et.Kind), "amount must be greater than zero")
	}
	return nil
}

func (r *transferRun) emit(state State, confirmations uint64) {
	r.state = state
	update := StatusUpdate{
		TransferID:     transferID(r.et),
		State:          state,
		TxHash:         r.txHash,
		ApprovalTxHash: r.approvalTxHash,
		Confirmations:  confirmations,
		Time:           time.Now(),
	}
	if r.fee != nil {
		update.Fee = new(big.Int).Set(r.fee)
	}
	r.publish(update)
}

func (r *transferRun) fail(err error) {
	chainErr := bridgeerrors.WrapChainError(err, bridgeerrors.ErrCodeUnknown, chainLabel(kindOrEmpty(r.et)), "transfer failed")
	if chainErr.TxHash == "" && chainErr.Code == bridgeerrors.ErrCodeProtocol {
		chainErr.TxHash = r.txHash
	}

	r.logger.Error().
		Err(chainErr).
		Str("code", string(chainErr.Code)).
		Str("failed_in", r.state.String()).
		Msg("transfer failed")

	r.state = StateFailed
	r.publish(StatusUpdate{
		TransferID:     transferID(r.et),
		State:          StateFailed,
		TxHash:         r.txHash,
		ApprovalTxHash: r.approvalTxHash,
		Fee:            r.fee,
		Err:            chainErr,
		Time:           time.Now(),
	})
	r.o.metrics.ObserveOutcome(kindOf(r.et), string(chainErr.Code))
}

func kindOrEmpty(et *EncodedTransfer) TransferKind {
	if et == nil {
		return ""
	}
	return et.Kind
}

func (r *transferRun) publish(update StatusUpdate) {
	r.logger.Info().
		Str("state", update.State.String()).
		Str("tx_hash", update.TxHash).
		Uint64("confirmations", update.Confirmations).
		Msg("transfer state changed")

	r.o.metrics.ObserveTransition(kindOf(r.et), update.State.String())
	if r.o.recorder != nil && r.et != nil && update.State != StateValidating {
		if err := r.o.recorder.Transition(update); err != nil {
			r.logger.Warn().Err(err).Str("state", update.State.String()).Msg("failed to record transition")
		}
	}
	r.updates <- update
}

func (r *transferRun) pollConfig() chaincommon.PollConfig {
	return chaincommon.PollConfig{Interval: r.o.pollInterval, Timeout: r.o.pollTimeout}
}

// runSolana handles both bridge program paths.
func (r *transferRun) runSolana(ctx context.Context) error {
	payload := r.et.Solana
	reader, wallet := r.o.ports.SolanaReader, r.o.ports.SolanaWallet

	if wallet == nil {
		return bridgeerrors.NewValidationError(constant.ChainSolana, "wallet not connected")
	}
	if reader == nil {
		return bridgeerrors.NewConfigError(constant.ChainSolana, "solana reader is not configured")
	}
	if !wallet.PublicKey().Equals(payload.Payer) {
		return bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("connected wallet %s is not the sender %s", wallet.PublicKey(), payload.Payer))
	}

	amount := r.et.Request.Amount.Uint64()
	lamports, err := reader.GetBalance(ctx, payload.Payer)
	if err != nil {
		return err
	}
	required := uint64(solanaFeeReserveLamports)
	if r.et.Kind == KindSolNative {
		required += amount
	}
	if lamports < required {
		return bridgeerrors.NewInsufficientFundsError(constant.ChainSolana,
			fmt.Sprintf("balance %d lamports is below the required %d", lamports, required))
	}
	if r.et.Kind == KindSplToken {
		tokens, err := reader.GetTokenBalance(ctx, payload.FromTokenAccount)
		if err != nil {
			return err
		}
		if tokens < amount {
			return bridgeerrors.NewInsufficientFundsError(constant.ChainSolana,
				fmt.Sprintf("token balance %d is below the transfer amount %d", tokens, amount))
		}
	}

	r.emit(StateSubmitting, 0)
	blockhash, err := reader.GetRecentBlockhash(ctx)
	if err != nil {
		return err
	}
	tx, err := svm.BuildTransaction([]solana.Instruction{payload.Instruction}, blockhash, payload.Payer, payload.ComputeUnitLimit)
	if err != nil {
		return err
	}
	sig, err := wallet.SignAndSend(ctx, tx)
	if err != nil {
		r.txHash = bridgeerrors.TxHashOf(err)
		return err
	}
	r.txHash = sig.String()

	r.emit(StateAwaitingConfirmation, 0)
	finalized := r.o.cfg.Solana.Commitment != config.CommitmentConfirmed
	started := time.Now()
	err = chaincommon.PollUntil(ctx, constant.ChainSolana, r.pollConfig(), r.logger, "transfer confirmation", func(ctx context.Context) (bool, error) {
		outcome, err := reader.GetSignatureStatus(ctx, sig)
		if err != nil {
			return false, err
		}
		if !outcome.Found {
			return false, nil
		}
		if !outcome.Success {
			return false, bridgeerrors.NewProtocolError(constant.ChainSolana,
				fmt.Sprintf("transaction failed: %s", outcome.FailureReason), nil).WithTxHash(r.txHash)
		}
		if finalized {
			return outcome.Finalized, nil
		}
		return outcome.Confirmed, nil
	})
	r.o.metrics.ObserveConfirmationWait(string(r.et.Kind), "transfer", time.Since(started))
	return err
}

// runEvm handles the CCIP and Base bridge token paths.
func (r *transferRun) runEvm(ctx context.Context) error {
	payload := r.et.Evm
	reader, wallet := r.o.ports.EvmReader, r.o.ports.EvmWallet

	if wallet == nil {
		return bridgeerrors.NewValidationError(constant.ChainEVM, "wallet not connected")
	}
	if reader == nil {
		return bridgeerrors.NewConfigError(constant.ChainEVM, "evm reader is not configured")
	}
	if wallet.Address() != payload.Sender {
		return bridgeerrors.NewValidationError(constant.ChainEVM,
			fmt.Sprintf("connected wallet %s is not the sender %s", wallet.Address().Hex(), payload.Sender.Hex()))
	}

	amount := r.et.Request.Amount
	tokenBalance, err := evm.TokenBalance(ctx, reader, payload.Token, payload.Sender)
	if err != nil {
		return err
	}
	if tokenBalance.Cmp(amount) < 0 {
		return bridgeerrors.NewInsufficientFundsError(constant.ChainEVM,
			fmt.Sprintf("token balance %s is below the transfer amount %s", tokenBalance, amount))
	}
	nativeBalance, err := reader.BalanceAt(ctx, payload.Sender)
	if err != nil {
		return err
	}
	if nativeBalance.Sign() <= 0 {
		return bridgeerrors.NewInsufficientFundsError(constant.ChainEVM, "no native balance to pay for gas")
	}

	submit := payload.Submit
	if payload.Message != nil {
		r.emit(StateEstimatingFee, 0)
		fee, err := r.estimateFee(ctx, reader, payload)
		if err != nil {
			return err
		}
		if nativeBalance.Cmp(fee) < 0 {
			return bridgeerrors.NewInsufficientFundsError(constant.ChainEVM,
				fmt.Sprintf("native balance %s is below the ccip fee %s", nativeBalance, fee))
		}
		r.fee = fee
		submit.Value = new(big.Int).Set(fee)
	}

	r.emit(StateApproving, 0)
	approvalHash, err := wallet.SendTransaction(ctx, payload.Approve)
	if err != nil {
		r.approvalTxHash = bridgeerrors.TxHashOf(err)
		return err
	}
	r.approvalTxHash = approvalHash.Hex()

	r.emit(StateAwaitingApprovalConfirmation, 0)
	started := time.Now()
	if err := r.awaitEvmReceipt(ctx, reader, approvalHash, r.o.cfg.Confirmation.ApprovalConfirmations, "approval"); err != nil {
		return err
	}
	if err := r.waitFinalityMargin(ctx); err != nil {
		return err
	}
	r.o.metrics.ObserveConfirmationWait(string(r.et.Kind), "approval", time.Since(started))

	r.emit(StateSubmitting, 0)
	txHash, err := wallet.SendTransaction(ctx, submit)
	if err != nil {
		r.txHash = bridgeerrors.TxHashOf(err)
		return err
	}
	r.txHash = txHash.Hex()

	r.emit(StateAwaitingConfirmation, 0)
	started = time.Now()
	err = r.awaitEvmReceipt(ctx, reader, txHash, r.o.cfg.Confirmation.TransferConfirmations, "transfer")
	r.o.metrics.ObserveConfirmationWait(string(r.et.Kind), "transfer", time.Since(started))
	return err
}

func (r *transferRun) estimateFee(ctx context.Context, reader chaincommon.EvmReader, payload *EvmPayload) (*big.Int, error) {
	data, err := evm.PackGetFee(payload.DestChainSelector, payload.Message)
	if err != nil {
		return nil, err
	}
	out, err := reader.CallContract(ctx, payload.Submit.To, data)
	if err != nil {
		return nil, err
	}
	fee, err := evm.UnpackGetFee(out)
	if err != nil {
		return nil, err
	}
	r.logger.Info().Str("fee_wei", fee.String()).Uint64("dest_chain_selector", payload.DestChainSelector).Msg("ccip fee estimated")
	return fee, nil
}

// awaitEvmReceipt blocks until txHash is mined with a success status and
// has at least the wanted number of confirmations.
func (r *transferRun) awaitEvmReceipt(ctx context.Context, reader chaincommon.EvmReader, txHash ethcommon.Hash, wanted uint64, stage string) error {
	if wanted == 0 {
		wanted = 1
	}
	return chaincommon.PollUntil(ctx, constant.ChainEVM, r.pollConfig(), r.logger, stage+" confirmation", func(ctx context.Context) (bool, error) {
		outcome, err := reader.VerifyBroadcastedTx(ctx, txHash)
		if err != nil {
			return false, err
		}
		if !outcome.Found {
			return false, nil
		}
		if !outcome.Success {
			return false, bridgeerrors.NewProtocolError(constant.ChainEVM,
				fmt.Sprintf("%s transaction reverted", stage), nil).WithTxHash(txHash.Hex())
		}
		return outcome.Confirmations >= wanted, nil
	})
}

// waitFinalityMargin sleeps for the configured settling delay after the
// approval is confirmed. It is a reorg heuristic, not a finality proof.
func (r *transferRun) waitFinalityMargin(ctx context.Context) error {
	if r.o.finalityMargin <= 0 {
		return nil
	}
	timer := time.NewTimer(r.o.finalityMargin)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return bridgeerrors.NewNetworkError(constant.ChainEVM, "stopped waiting for finality margin", ctx.Err())
	case <-timer.C:
		return nil
	}
}
