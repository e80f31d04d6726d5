package core

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/tipjar/crossbridge/bridgeClient/addrcodec"
	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
	"github.com/tipjar/crossbridge/bridgeClient/chains/evm"
	"github.com/tipjar/crossbridge/bridgeClient/chains/svm"
	"github.com/tipjar/crossbridge/bridgeClient/config"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
	"github.com/tipjar/crossbridge/bridgeClient/pda"
)

// TransferRequest is what a caller asks for. Amount is in base units.
type TransferRequest struct {
	Kind      TransferKind
	Sender    string
	Recipient string
	// Token is a configured token symbol; ignored for KindSolNative.
	Token  string
	Amount *big.Int
	// Call is an optional contract call executed on Base; KindSolNative only.
	Call *svm.ContractCall
}

// EncodedTransfer is a fully encoded, unsigned transfer ready for
// SubmitAndTrack. Exactly one of Solana and Evm is set.
type EncodedTransfer struct {
	ID      string
	Kind    TransferKind
	Network config.Network
	Request TransferRequest
	Solana  *SolanaPayload
	Evm     *EvmPayload
}

// SolanaPayload holds the bridge program instruction and the addresses it
// was derived from.
type SolanaPayload struct {
	Instruction      *solana.GenericInstruction
	Payer            solana.PublicKey
	Salt             []byte
	Bridge           solana.PublicKey
	OutgoingMessage  solana.PublicKey
	Mint             solana.PublicKey // SPL only
	FromTokenAccount solana.PublicKey // SPL only
	ComputeUnitLimit uint32
}

// EvmPayload holds the allowance and submit calls of an EVM token path.
type EvmPayload struct {
	Sender  ethcommon.Address
	Token   ethcommon.Address
	Spender ethcommon.Address
	Approve chaincommon.EvmCall
	// Submit carries no value until the CCIP fee is known.
	Submit chaincommon.EvmCall
	// Message and DestChainSelector are set on the CCIP path only.
	Message           *evm.EVM2AnyMessage
	DestChainSelector uint64
}

// BuildTransfer validates req and encodes it. It performs no network I/O;
// the only side effect is drawing a fresh salt on Solana paths.
func (o *Orchestrator) BuildTransfer(req TransferRequest) (*EncodedTransfer, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, bridgeerrors.NewValidationError(chainLabel(req.Kind), "amount must be greater than zero")
	}

	et := &EncodedTransfer{
		ID:      uuid.NewString(),
		Kind:    req.Kind,
		Network: o.network,
		Request: req,
	}
	et.Request.Amount = new(big.Int).Set(req.Amount)

	var err error
	switch req.Kind {
	case KindSolNative:
		et.Solana, err = o.buildSolNative(req)
	case KindSplToken:
		et.Solana, err = o.buildSplToken(req)
	case KindCCIPToken:
		et.Evm, err = o.buildCCIPToken(req)
	case KindBaseBridgeToken:
		et.Evm, err = o.buildBaseBridgeToken(req)
	default:
		return nil, bridgeerrors.NewValidationError("", fmt.Sprintf("unknown transfer kind %q", req.Kind))
	}
	if err != nil {
		return nil, err
	}
	return et, nil
}

// SolDecimals is the scale of native SOL amounts (lamports).
const SolDecimals uint8 = 9

// AmountDecimals returns the base-unit scale for amounts of the given kind
// and token symbol.
func (o *Orchestrator) AmountDecimals(kind TransferKind, symbol string) (uint8, error) {
	if kind == KindSolNative {
		return SolDecimals, nil
	}
	token, err := o.token(chainLabel(kind), symbol)
	if err != nil {
		return 0, err
	}
	return token.Decimals, nil
}

// DecodeInstruction parses bridge program instruction data using the
// network's discriminators.
func (o *Orchestrator) DecodeInstruction(data []byte) (*svm.DecodedInstruction, error) {
	if o.encoder == nil {
		return nil, bridgeerrors.NewConfigError(constant.ChainSolana,
			fmt.Sprintf("bridge program is not configured for network %s", o.network))
	}
	return o.encoder.DecodeBridgeInstruction(data)
}

func (o *Orchestrator) requireEncoder() error {
	if o.encoder == nil {
		return bridgeerrors.NewConfigError(constant.ChainSolana,
			fmt.Sprintf("bridge program is not configured for network %s", o.network))
	}
	if o.gasFeeReceiver.IsZero() {
		return bridgeerrors.NewConfigError(constant.ChainSolana,
			fmt.Sprintf("gas fee receiver is not configured for network %s", o.network))
	}
	return nil
}

func (o *Orchestrator) token(chain, symbol string) (config.TokenConfig, error) {
	if symbol == "" {
		return config.TokenConfig{}, bridgeerrors.NewValidationError(chain, "token is required")
	}
	token, ok := o.cfg.Token(symbol)
	if !ok {
		return config.TokenConfig{}, bridgeerrors.NewValidationError(chain,
			fmt.Sprintf("token %s is not configured for network %s", symbol, o.network))
	}
	return token, nil
}

// solanaCommon derives the accounts shared by both bridge program paths.
func (o *Orchestrator) solanaCommon(sender string) (payer solana.PublicKey, salt []byte, bridge, outgoing solana.PublicKey, err error) {
	if err = o.requireEncoder(); err != nil {
		return
	}

	key, err := addrcodec.DecodeSolanaKey(sender)
	if err != nil {
		return
	}
	payer = key.PublicKey()

	salt, err = o.newSalt()
	if err != nil {
		err = bridgeerrors.NewUnknownError(constant.ChainSolana, "failed to draw salt", err)
		return
	}

	programID := o.encoder.ProgramID()
	bridgeState, err := pda.BridgeState(programID)
	if err != nil {
		return
	}
	outgoingMessage, err := pda.OutgoingMessage(programID, bridgeState.Address, salt)
	if err != nil {
		return
	}
	return payer, salt, bridgeState.Address, outgoingMessage.Address, nil
}

func (o *Orchestrator) buildSolNative(req TransferRequest) (*SolanaPayload, error) {
	payer, salt, bridge, outgoing, err := o.solanaCommon(req.Sender)
	if err != nil {
		return nil, err
	}

	solVault, err := pda.SolVault(o.encoder.ProgramID())
	if err != nil {
		return nil, err
	}

	ix, err := o.encoder.BridgeSolInstruction(
		svm.BridgeSolArgs{Salt: salt, To: req.Recipient, Amount: req.Amount, Call: req.Call},
		svm.BridgeSolAccounts{
			Payer:           payer,
			From:            payer,
			GasFeeReceiver:  o.gasFeeReceiver,
			SolVault:        solVault.Address,
			Bridge:          bridge,
			OutgoingMessage: outgoing,
		},
	)
	if err != nil {
		return nil, err
	}

	return &SolanaPayload{
		Instruction:      ix,
		Payer:            payer,
		Salt:             salt,
		Bridge:           bridge,
		OutgoingMessage:  outgoing,
		ComputeUnitLimit: o.cfg.Solana.ComputeUnitLimit,
	}, nil
}

func (o *Orchestrator) buildSplToken(req TransferRequest) (*SolanaPayload, error) {
	if req.Call != nil {
		return nil, bridgeerrors.NewValidationError(constant.ChainSolana, "contract calls are not supported for SPL transfers")
	}

	token, err := o.token(constant.ChainSolana, req.Token)
	if err != nil {
		return nil, err
	}
	mintKey, err := addrcodec.DecodeSolanaKey(token.SolanaMint)
	if err != nil {
		return nil, err
	}
	remoteToken, err := addrcodec.DecodeBytes20(token.EvmAddress)
	if err != nil {
		return nil, err
	}

	payer, salt, bridge, outgoing, err := o.solanaCommon(req.Sender)
	if err != nil {
		return nil, err
	}

	mint := mintKey.PublicKey()
	fromTokenAccount, err := pda.AssociatedTokenAccount(payer, mint)
	if err != nil {
		return nil, err
	}
	tokenVault, err := pda.TokenVault(o.encoder.ProgramID(), mint, remoteToken)
	if err != nil {
		return nil, err
	}

	ix, err := o.encoder.BridgeSplInstruction(
		svm.BridgeSplArgs{Salt: salt, To: req.Recipient, RemoteToken: remoteToken.String(), Amount: req.Amount},
		svm.BridgeSplAccounts{
			Payer:            payer,
			From:             payer,
			GasFeeReceiver:   o.gasFeeReceiver,
			Mint:             mint,
			FromTokenAccount: fromTokenAccount,
			Bridge:           bridge,
			TokenVault:       tokenVault.Address,
			OutgoingMessage:  outgoing,
		},
	)
	if err != nil {
		return nil, err
	}

	return &SolanaPayload{
		Instruction:      ix,
		Payer:            payer,
		Salt:             salt,
		Bridge:           bridge,
		OutgoingMessage:  outgoing,
		Mint:             mint,
		FromTokenAccount: fromTokenAccount,
		ComputeUnitLimit: o.cfg.Solana.ComputeUnitLimit,
	}, nil
}

// evmCommon parses the fields shared by both EVM token paths.
func (o *Orchestrator) evmCommon(req TransferRequest) (sender addrcodec.EvmAddress, recipient addrcodec.SolanaKey, token config.TokenConfig, local addrcodec.EvmAddress, err error) {
	if req.Call != nil {
		err = bridgeerrors.NewValidationError(constant.ChainEVM, "contract calls are only supported for native SOL transfers")
		return
	}
	if sender, err = addrcodec.DecodeBytes20(req.Sender); err != nil {
		return
	}
	if recipient, err = addrcodec.DecodeSolanaKey(req.Recipient); err != nil {
		return
	}
	if token, err = o.token(constant.ChainEVM, req.Token); err != nil {
		return
	}
	local, err = addrcodec.DecodeBytes20(token.EvmAddress)
	return
}

func (o *Orchestrator) buildCCIPToken(req TransferRequest) (*EvmPayload, error) {
	sender, recipient, _, token, err := o.evmCommon(req)
	if err != nil {
		return nil, err
	}
	if o.cfg.Evm.CCIPRouterAddress == "" {
		return nil, bridgeerrors.NewConfigError(constant.ChainEVM,
			fmt.Sprintf("ccip router is not configured for network %s", o.network))
	}
	router := ethcommon.HexToAddress(o.cfg.Evm.CCIPRouterAddress)
	selector := o.cfg.Evm.SolanaChainSelector

	msg, err := evm.BuildTokenTransferMessage(token.Common(), req.Amount, recipient)
	if err != nil {
		return nil, err
	}
	approveData, err := evm.PackApprove(router, req.Amount)
	if err != nil {
		return nil, err
	}
	sendData, err := evm.PackCCIPSend(selector, msg)
	if err != nil {
		return nil, err
	}

	return &EvmPayload{
		Sender:            sender.Common(),
		Token:             token.Common(),
		Spender:           router,
		Approve:           chaincommon.EvmCall{To: token.Common(), Data: approveData, Label: "approve"},
		Submit:            chaincommon.EvmCall{To: router, Data: sendData, Label: "ccipSend"},
		Message:           msg,
		DestChainSelector: selector,
	}, nil
}

func (o *Orchestrator) buildBaseBridgeToken(req TransferRequest) (*EvmPayload, error) {
	sender, recipient, tokenCfg, token, err := o.evmCommon(req)
	if err != nil {
		return nil, err
	}
	if o.cfg.Evm.BaseBridgeAddress == "" {
		return nil, bridgeerrors.NewConfigError(constant.ChainEVM,
			fmt.Sprintf("base bridge is not configured for network %s", o.network))
	}
	bridge := ethcommon.HexToAddress(o.cfg.Evm.BaseBridgeAddress)

	remoteMint, err := addrcodec.DecodeSolanaKey(tokenCfg.SolanaMint)
	if err != nil {
		return nil, err
	}
	transfer, err := evm.NewBridgeTransfer(token.Common(), remoteMint, recipient, req.Amount)
	if err != nil {
		return nil, err
	}
	bridgeData, err := evm.PackBridgeToken(transfer)
	if err != nil {
		return nil, err
	}
	approveData, err := evm.PackApprove(bridge, req.Amount)
	if err != nil {
		return nil, err
	}

	return &EvmPayload{
		Sender:  sender.Common(),
		Token:   token.Common(),
		Spender: bridge,
		Approve: chaincommon.EvmCall{To: token.Common(), Data: approveData, Label: "approve"},
		Submit:  chaincommon.EvmCall{To: bridge, Data: bridgeData, Label: "bridgeToken"},
	}, nil
}

func chainLabel(kind TransferKind) string {
	if kind.SourceChain() == addrcodec.ChainSolana {
		return constant.ChainSolana
	}
	return constant.ChainEVM
}
