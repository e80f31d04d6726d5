package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
)

// Function signatures of the contracts this client calls.
const (
	sigApprove     = "approve(address,uint256)"
	sigBalanceOf   = "balanceOf(address)"
	sigGetFee      = "getFee(uint64,(bytes,bytes,(address,uint256)[],address,bytes))"
	sigCCIPSend    = "ccipSend(uint64,(bytes,bytes,(address,uint256)[],address,bytes))"
	sigBridgeToken = "bridgeToken((address,bytes32,bytes32,uint256),bytes[])"
)

var (
	addressType = mustNewType("address", nil)
	uint64Type  = mustNewType("uint64", nil)
	uint256Type = mustNewType("uint256", nil)
	bytesArrTy  = mustNewType("bytes[]", nil)

	evm2AnyMessageType = mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "receiver", Type: "bytes"},
		{Name: "data", Type: "bytes"},
		{Name: "tokenAmounts", Type: "tuple[]", Components: []abi.ArgumentMarshaling{
			{Name: "token", Type: "address"},
			{Name: "amount", Type: "uint256"},
		}},
		{Name: "feeToken", Type: "address"},
		{Name: "extraArgs", Type: "bytes"},
	})

	svmExtraArgsType = mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "computeUnits", Type: "uint32"},
		{Name: "accountIsWritableBitmap", Type: "uint64"},
		{Name: "allowOutOfOrderExecution", Type: "bool"},
		{Name: "tokenReceiver", Type: "bytes32"},
		{Name: "accounts", Type: "bytes32[]"},
	})

	bridgeTransferType = mustNewType("tuple", []abi.ArgumentMarshaling{
		{Name: "localToken", Type: "address"},
		{Name: "remoteToken", Type: "bytes32"},
		{Name: "to", Type: "bytes32"},
		{Name: "remoteAmount", Type: "uint256"},
	})
)

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(fmt.Sprintf("invalid abi type %s: %v", t, err))
	}
	return typ
}

// selector returns the 4-byte function selector of signature.
func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// packCall prefixes the ABI-encoded values with the selector of signature.
func packCall(signature string, arguments abi.Arguments, values ...interface{}) ([]byte, error) {
	encodedArgs, err := arguments.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", signature, err)
	}
	return append(selector(signature), encodedArgs...), nil
}

// unpackUint256 decodes a single uint256 return value.
func unpackUint256(out []byte) (*big.Int, error) {
	values, err := abi.Arguments{{Type: uint256Type}}.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack uint256: %w", err)
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected return type %T", values[0])
	}
	return v, nil
}
