package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"

	chaincommon "github.com/tipjar/crossbridge/bridgeClient/chains/common"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// PackApprove encodes approve(spender, amount).
func PackApprove(spender ethcommon.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, bridgeerrors.NewValidationError(constant.ChainEVM, "approval amount must be greater than zero")
	}
	return packCall(sigApprove, abi.Arguments{{Type: addressType}, {Type: uint256Type}}, spender, amount)
}

// PackBalanceOf encodes balanceOf(account).
func PackBalanceOf(account ethcommon.Address) ([]byte, error) {
	return packCall(sigBalanceOf, abi.Arguments{{Type: addressType}}, account)
}

// TokenBalance reads the ERC-20 balance of account through reader.
func TokenBalance(ctx context.Context, reader chaincommon.EvmReader, token, account ethcommon.Address) (*big.Int, error) {
	data, err := PackBalanceOf(account)
	if err != nil {
		return nil, err
	}
	out, err := reader.CallContract(ctx, token, data)
	if err != nil {
		return nil, err
	}
	balance, err := unpackUint256(out)
	if err != nil {
		return nil, bridgeerrors.NewProtocolError(constant.ChainEVM, "invalid balanceOf response", err)
	}
	return balance, nil
}
