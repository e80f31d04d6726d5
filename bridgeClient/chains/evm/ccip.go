package evm

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/tipjar/crossbridge/bridgeClient/addrcodec"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// SVMExtraArgsV1Tag prefixes extra args addressed to an SVM destination.
var SVMExtraArgsV1Tag = [4]byte{0x1f, 0x3b, 0x3a, 0xba}

// SVMTokenOnlyReceiver is the message receiver for transfers that carry no
// data. The real recipient travels in SVMExtraArgsV1.TokenReceiver.
var SVMTokenOnlyReceiver = make([]byte, 32)

// SVMExtraArgsV1 are the destination execution parameters for Solana.
// Field names and order follow the on-chain struct.
type SVMExtraArgsV1 struct {
	ComputeUnits             uint32
	AccountIsWritableBitmap  uint64
	AllowOutOfOrderExecution bool
	TokenReceiver            [32]byte
	Accounts                 [][32]byte
}

// NewTokenTransferExtraArgs returns the extra args of a token-only transfer
// to recipient.
func NewTokenTransferExtraArgs(recipient addrcodec.SolanaKey) SVMExtraArgsV1 {
	return SVMExtraArgsV1{
		ComputeUnits:             0,
		AccountIsWritableBitmap:  0,
		AllowOutOfOrderExecution: true,
		TokenReceiver:            addrcodec.EncodeSolanaKeyToBytes32(recipient),
		Accounts:                 [][32]byte{},
	}
}

// EncodeSVMExtraArgs returns tag || abi.encode(args). SVM destinations
// execute out of order, so AllowOutOfOrderExecution must be true.
func EncodeSVMExtraArgs(args SVMExtraArgsV1) ([]byte, error) {
	if !args.AllowOutOfOrderExecution {
		return nil, bridgeerrors.NewProtocolError(constant.ChainEVM, "svm destinations require allowOutOfOrderExecution", nil)
	}
	if args.Accounts == nil {
		args.Accounts = [][32]byte{}
	}

	encoded, err := abi.Arguments{{Type: svmExtraArgsType}}.Pack(args)
	if err != nil {
		return nil, bridgeerrors.NewProtocolError(constant.ChainEVM, "failed to encode svm extra args", err)
	}

	out := make([]byte, 0, len(SVMExtraArgsV1Tag)+len(encoded))
	out = append(out, SVMExtraArgsV1Tag[:]...)
	return append(out, encoded...), nil
}

// DecodeSVMExtraArgs parses a blob produced by EncodeSVMExtraArgs.
func DecodeSVMExtraArgs(data []byte) (*SVMExtraArgsV1, error) {
	if len(data) < len(SVMExtraArgsV1Tag) || !bytes.Equal(data[:4], SVMExtraArgsV1Tag[:]) {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "extra args do not carry the SVMExtraArgsV1 tag")
	}

	values, err := abi.Arguments{{Type: svmExtraArgsType}}.Unpack(data[4:])
	if err != nil {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, fmt.Sprintf("malformed svm extra args: %v", err))
	}
	args := *abi.ConvertType(values[0], new(SVMExtraArgsV1)).(*SVMExtraArgsV1)
	return &args, nil
}

// EVMTokenAmount is one token leg of a CCIP message.
type EVMTokenAmount struct {
	Token  ethcommon.Address
	Amount *big.Int
}

// EVM2AnyMessage is the router's outbound message struct.
type EVM2AnyMessage struct {
	Receiver     []byte
	Data         []byte
	TokenAmounts []EVMTokenAmount
	FeeToken     ethcommon.Address
	ExtraArgs    []byte
}

// BuildTokenTransferMessage builds a CCIP message moving amount of token to
// recipient on Solana, paying the fee in native gas.
func BuildTokenTransferMessage(token ethcommon.Address, amount *big.Int, recipient addrcodec.SolanaKey) (*EVM2AnyMessage, error) {
	if token == (ethcommon.Address{}) {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "token address is required")
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "amount must be greater than zero")
	}

	extraArgs, err := EncodeSVMExtraArgs(NewTokenTransferExtraArgs(recipient))
	if err != nil {
		return nil, err
	}

	return &EVM2AnyMessage{
		Receiver:     append([]byte(nil), SVMTokenOnlyReceiver...),
		Data:         []byte{},
		TokenAmounts: []EVMTokenAmount{{Token: token, Amount: new(big.Int).Set(amount)}},
		FeeToken:     ethcommon.Address{},
		ExtraArgs:    extraArgs,
	}, nil
}

// PackGetFee encodes router.getFee(destChainSelector, message).
func PackGetFee(destChainSelector uint64, msg *EVM2AnyMessage) ([]byte, error) {
	if msg == nil {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "message is required")
	}
	return packCall(sigGetFee, abi.Arguments{{Type: uint64Type}, {Type: evm2AnyMessageType}}, destChainSelector, *msg)
}

// UnpackGetFee decodes the fee returned by router.getFee.
func UnpackGetFee(out []byte) (*big.Int, error) {
	fee, err := unpackUint256(out)
	if err != nil {
		return nil, bridgeerrors.NewProtocolError(constant.ChainEVM, "invalid getFee response", err)
	}
	return fee, nil
}

// PackCCIPSend encodes router.ccipSend(destChainSelector, message). The
// fee quoted by getFee for the same message is sent as call value.
func PackCCIPSend(destChainSelector uint64, msg *EVM2AnyMessage) ([]byte, error) {
	if msg == nil {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "message is required")
	}
	return packCall(sigCCIPSend, abi.Arguments{{Type: uint64Type}, {Type: evm2AnyMessageType}}, destChainSelector, *msg)
}
