package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/tipjar/crossbridge/bridgeClient/addrcodec"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// BridgeTransfer is the transfer argument of the Base bridge's bridgeToken.
type BridgeTransfer struct {
	LocalToken   ethcommon.Address
	RemoteToken  [32]byte
	To           [32]byte
	RemoteAmount *big.Int
}

// NewBridgeTransfer moves amount of localToken to recipient on Solana, where
// remoteToken is the mint the bridge pairs with localToken.
func NewBridgeTransfer(localToken ethcommon.Address, remoteToken, recipient addrcodec.SolanaKey, amount *big.Int) (*BridgeTransfer, error) {
	if localToken == (ethcommon.Address{}) {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "local token is required")
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "amount must be greater than zero")
	}

	return &BridgeTransfer{
		LocalToken:   localToken,
		RemoteToken:  addrcodec.EncodeSolanaKeyToBytes32(remoteToken),
		To:           addrcodec.EncodeSolanaKeyToBytes32(recipient),
		RemoteAmount: new(big.Int).Set(amount),
	}, nil
}

// PackBridgeToken encodes bridgeToken(transfer, signatures) with no
// signatures; the bridge's validators attest on the Solana side.
func PackBridgeToken(transfer *BridgeTransfer) ([]byte, error) {
	if transfer == nil {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "transfer is required")
	}
	return packCall(sigBridgeToken, abi.Arguments{{Type: bridgeTransferType}, {Type: bytesArrTy}}, *transfer, [][]byte{})
}
