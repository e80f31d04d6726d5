// Package addrcodec converts addresses between their chain-native text forms
// and the fixed-width byte slots that cross-chain payloads carry.
package addrcodec

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

const (
	EvmAddressLength = 20
	SolanaKeyLength  = 32
	Bytes32Length    = 32
)

// ChainKind identifies which chain an address belongs to.
type ChainKind uint8

const (
	ChainEVM ChainKind = iota + 1
	ChainSolana
)

func (k ChainKind) String() string {
	switch k {
	case ChainEVM:
		return "evm"
	case ChainSolana:
		return "solana"
	default:
		return "unknown"
	}
}

// ChainAddress is implemented by EvmAddress and SolanaKey only.
type ChainAddress interface {
	Chain() ChainKind
	Bytes() []byte
	String() string
}

// EvmAddress is a 20-byte account or contract address.
type EvmAddress [EvmAddressLength]byte

func (a EvmAddress) Chain() ChainKind { return ChainEVM }
func (a EvmAddress) Bytes() []byte { return a[:] }

// String returns the EIP-55 checksummed form.
func (a EvmAddress) String() string { return common.Address(a).Hex() }

// Common returns the go-ethereum representation.
func (a EvmAddress) Common() common.Address { return common.Address(a) }

// IsZero reports whether every byte is zero.
func (a EvmAddress) IsZero() bool { return a == EvmAddress{} }

// SolanaKey is a 32-byte ed25519 public key or program-derived address.
type SolanaKey [SolanaKeyLength]byte

func (k SolanaKey) Chain() ChainKind { return ChainSolana }
func (k SolanaKey) Bytes() []byte { return k[:] }
func (k SolanaKey) String() string { return base58.Encode(k[:]) }

// PublicKey returns the solana-go representation.
func (k SolanaKey) PublicKey() solana.PublicKey { return solana.PublicKey(k) }

// Bytes32 is the canonical cross-chain address slot.
type Bytes32 [Bytes32Length]byte

func (b Bytes32) Hex() string { return "0x" + hex.EncodeToString(b[:]) }

// DecodeBytes20 parses a 20-byte address from hex text. The 0x prefix is
// optional, hex digits are case-insensitive, and exactly 40 digits are
// required.
func DecodeBytes20(text string) (EvmAddress, error) {
	if !common.IsHexAddress(text) {
		return EvmAddress{}, bridgeerrors.NewValidationError(constant.ChainEVM,
			fmt.Sprintf("invalid evm address %q: want 40 hex digits", text))
	}
	return EvmAddress(common.HexToAddress(text)), nil
}

// DecodeSolanaKey parses a base58 public key that must decode to exactly
// 32 bytes.
func DecodeSolanaKey(text string) (SolanaKey, error) {
	raw, err := base58.Decode(text)
	if err != nil || text == "" {
		return SolanaKey{}, bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("invalid solana key %q: not base58", text))
	}
	if len(raw) != SolanaKeyLength {
		return SolanaKey{}, bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("invalid solana key %q: decoded to %d bytes, want %d", text, len(raw), SolanaKeyLength))
	}
	var key SolanaKey
	copy(key[:], raw)
	return key, nil
}

// EncodeEvmToBytes32 left-pads the address with 12 zero bytes.
func EncodeEvmToBytes32(addr EvmAddress) Bytes32 {
	var out Bytes32
	copy(out[Bytes32Length-EvmAddressLength:], addr[:])
	return out
}

// EncodeSolanaKeyToBytes32 is the identity on the key bytes.
func EncodeSolanaKeyToBytes32(key SolanaKey) Bytes32 {
	return Bytes32(key)
}

// DecodeBytes32ToEvm recovers an EvmAddress from its padded slot and rejects
// slots whose 12 leading bytes are not zero.
func DecodeBytes32ToEvm(b Bytes32) (EvmAddress, error) {
	for _, v := range b[:Bytes32Length-EvmAddressLength] {
		if v != 0 {
			return EvmAddress{}, bridgeerrors.NewValidationError(constant.ChainEVM,
				fmt.Sprintf("bytes32 %s is not a padded evm address", b.Hex()))
		}
	}
	var addr EvmAddress
	copy(addr[:], b[Bytes32Length-EvmAddressLength:])
	return addr, nil
}

// ToBytes32 dispatches on the address variant.
func ToBytes32(addr ChainAddress) (Bytes32, error) {
	switch a := addr.(type) {
	case EvmAddress:
		return EncodeEvmToBytes32(a), nil
	case SolanaKey:
		return EncodeSolanaKeyToBytes32(a), nil
	case nil:
		return Bytes32{}, bridgeerrors.NewValidationError("", "address is required")
	default:
		return Bytes32{}, bridgeerrors.NewValidationError("", fmt.Sprintf("unsupported address type %T", addr))
	}
}

// Parse decodes text as an address of the given chain.
func Parse(kind ChainKind, text string) (ChainAddress, error) {
	switch kind {
	case ChainEVM:
		return DecodeBytes20(text)
	case ChainSolana:
		return DecodeSolanaKey(text)
	default:
		return nil, bridgeerrors.NewValidationError("", fmt.Sprintf("unknown chain kind %d", kind))
	}
}
