package svm

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/near/borsh-go"

	"github.com/tipjar/crossbridge/bridgeClient/addrcodec"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// Borsh layouts of the instruction arguments following the discriminator.
type bridgeSolPayload struct {
	Salt   [32]byte
	To     [20]byte
	Amount uint64
	Call   *callPayload
}

type bridgeSplPayload struct {
	Salt        [32]byte
	To          [20]byte
	RemoteToken [20]byte
	Amount      uint64
	Call        *callPayload
}

type callPayload struct {
	Ty    uint8
	To    [20]byte
	Value [16]byte
	Data  []byte
}

// DecodedCall is a contract call recovered from instruction data.
type DecodedCall struct {
	Target addrcodec.EvmAddress
	Value  *uint256.Int
	Data   []byte
}

// DecodedInstruction is bridge instruction data parsed back into fields.
// RemoteToken is set for bridge_spl only.
type DecodedInstruction struct {
	Kind        InstructionKind
	Salt        [32]byte
	To          addrcodec.EvmAddress
	RemoteToken *addrcodec.EvmAddress
	Amount      uint64
	Call        *DecodedCall
}

// DecodeBridgeInstruction parses data produced by EncodeBridgeSol or
// EncodeBridgeSpl. Unknown discriminators and trailing bytes are rejected.
func (e *InstructionEncoder) DecodeBridgeInstruction(data []byte) (*DecodedInstruction, error) {
	if len(data) < len(Discriminator{}) {
		return nil, bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("instruction data too short: %d bytes", len(data)))
	}

	var disc Discriminator
	copy(disc[:], data[:8])
	body := data[8:]

	kind, ok := e.kindOf(disc)
	if !ok {
		return nil, bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("unknown discriminator %v", disc))
	}

	switch kind {
	case InstructionBridgeSol:
		p, err := deserializeExact[bridgeSolPayload](body)
		if err != nil {
			return nil, err
		}
		call, err := p.Call.decoded()
		if err != nil {
			return nil, err
		}
		return &DecodedInstruction{
			Kind:   kind,
			Salt:   p.Salt,
			To:     addrcodec.EvmAddress(p.To),
			Amount: p.Amount,
			Call:   call,
		}, nil

	case InstructionBridgeSpl:
		p, err := deserializeExact[bridgeSplPayload](body)
		if err != nil {
			return nil, err
		}
		call, err := p.Call.decoded()
		if err != nil {
			return nil, err
		}
		remote := addrcodec.EvmAddress(p.RemoteToken)
		return &DecodedInstruction{
			Kind:        kind,
			Salt:        p.Salt,
			To:          addrcodec.EvmAddress(p.To),
			RemoteToken: &remote,
			Amount:      p.Amount,
			Call:        call,
		}, nil
	}

	return nil, bridgeerrors.NewValidationError(constant.ChainSolana, fmt.Sprintf("unsupported instruction %s", kind))
}

func (e *InstructionEncoder) kindOf(disc Discriminator) (InstructionKind, bool) {
	for kind, d := range e.discriminators {
		if d == disc {
			return kind, true
		}
	}
	return 0, false
}

// deserializeExact decodes body as T and requires that every byte was used.
func deserializeExact[T any](body []byte) (T, error) {
	var v T
	if err := borsh.Deserialize(&v, body); err != nil {
		return v, bridgeerrors.NewValidationError(constant.ChainSolana, fmt.Sprintf("malformed instruction data: %v", err))
	}
	reencoded, err := borsh.Serialize(v)
	if err != nil {
		return v, bridgeerrors.NewValidationError(constant.ChainSolana, fmt.Sprintf("malformed instruction data: %v", err))
	}
	if !bytes.Equal(reencoded, body) {
		return v, bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("instruction data has %d trailing bytes", len(body)-len(reencoded)))
	}
	return v, nil
}

func (c *callPayload) decoded() (*DecodedCall, error) {
	if c == nil {
		return nil, nil
	}
	if c.Ty != CallTypeCall {
		return nil, bridgeerrors.NewValidationError(constant.ChainSolana, fmt.Sprintf("unsupported call type %d", c.Ty))
	}

	// u128 little-endian into big-endian for uint256.
	be := make([]byte, 16)
	for i := range c.Value {
		be[15-i] = c.Value[i]
	}

	return &DecodedCall{
		Target: addrcodec.EvmAddress(c.To),
		Value:  new(uint256.Int).SetBytes(be),
		Data:   c.Data,
	}, nil
}
