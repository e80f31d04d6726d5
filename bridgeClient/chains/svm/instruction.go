package svm

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/tipjar/crossbridge/bridgeClient/addrcodec"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// InstructionKind names a bridge program entrypoint.
type InstructionKind uint8

const (
	InstructionBridgeSol InstructionKind = iota + 1
	InstructionBridgeSpl
)

func (k InstructionKind) String() string {
	switch k {
	case InstructionBridgeSol:
		return "bridge_sol"
	case InstructionBridgeSpl:
		return "bridge_spl"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Discriminator is the 8-byte Anchor instruction selector.
type Discriminator [8]byte

// DefaultDiscriminators are the selectors of the deployed bridge program.
// They are fixed values and are not recomputed from instruction names.
var DefaultDiscriminators = map[InstructionKind]Discriminator{
	InstructionBridgeSol: {190, 190, 32, 158, 75, 153, 32, 86},
	InstructionBridgeSpl: {87, 109, 172, 103, 8, 187, 223, 126},
}

const (
	saltLength = 32

	optionNone byte = 0
	optionSome byte = 1

	// CallTypeCall is the only call variant the bridge accepts from this client.
	CallTypeCall byte = 0

	// BridgeSolDataLength is the native payload size without a call.
	BridgeSolDataLength = 8 + saltLength + addrcodec.EvmAddressLength + 8 + 1
	// BridgeSplDataLength is the fungible payload size; calls are never attached.
	BridgeSplDataLength = 8 + saltLength + addrcodec.EvmAddressLength + addrcodec.EvmAddressLength + 8 + 1
)

// ContractCall is executed on Base after the bridged value arrives.
type ContractCall struct {
	Target string
	Value  *uint256.Int
	Data   []byte
}

// BridgeSolArgs are the instruction arguments of bridge_sol.
type BridgeSolArgs struct {
	Salt   []byte
	To     string
	Amount *big.Int
	Call   *ContractCall
}

// BridgeSplArgs are the instruction arguments of bridge_spl.
type BridgeSplArgs struct {
	Salt        []byte
	To          string
	RemoteToken string
	Amount      *big.Int
	Call        *ContractCall
}

// BridgeSolAccounts is the account set of bridge_sol.
type BridgeSolAccounts struct {
	Payer           solana.PublicKey
	From            solana.PublicKey
	GasFeeReceiver  solana.PublicKey
	SolVault        solana.PublicKey
	Bridge          solana.PublicKey
	OutgoingMessage solana.PublicKey
}

// BridgeSplAccounts is the account set of bridge_spl.
type BridgeSplAccounts struct {
	Payer            solana.PublicKey
	From             solana.PublicKey
	GasFeeReceiver   solana.PublicKey
	Mint             solana.PublicKey
	FromTokenAccount solana.PublicKey
	Bridge           solana.PublicKey
	TokenVault       solana.PublicKey
	OutgoingMessage  solana.PublicKey
}

// InstructionEncoder serializes bridge program instructions. It holds no
// mutable state and is safe for concurrent use.
type InstructionEncoder struct {
	programID      solana.PublicKey
	discriminators map[InstructionKind]Discriminator
}

// NewInstructionEncoder creates an encoder for programID. A nil
// discriminators map selects DefaultDiscriminators.
func NewInstructionEncoder(programID solana.PublicKey, discriminators map[InstructionKind]Discriminator) (*InstructionEncoder, error) {
	if programID.IsZero() {
		return nil, fmt.Errorf("programID is required")
	}
	if discriminators == nil {
		discriminators = DefaultDiscriminators
	}
	for _, kind := range []InstructionKind{InstructionBridgeSol, InstructionBridgeSpl} {
		if _, ok := discriminators[kind]; !ok {
			return nil, fmt.Errorf("missing discriminator for %s", kind)
		}
	}

	return &InstructionEncoder{
		programID:      programID,
		discriminators: discriminators,
	}, nil
}

// ProgramID returns the bridge program this encoder targets.
func (e *InstructionEncoder) ProgramID() solana.PublicKey {
	return e.programID
}

// Discriminator returns the selector for kind.
func (e *InstructionEncoder) Discriminator(kind InstructionKind) (Discriminator, bool) {
	d, ok := e.discriminators[kind]
	return d, ok
}

// EncodeBridgeSol builds bridge_sol instruction data:
// disc(8) || salt(32) || to(20) || amount(u64 LE) || Option<Call>
func (e *InstructionEncoder) EncodeBridgeSol(args BridgeSolArgs) ([]byte, error) {
	if err := validateSalt(args.Salt); err != nil {
		return nil, err
	}
	to, err := addrcodec.DecodeBytes20(args.To)
	if err != nil {
		return nil, err
	}
	amount, err := toU64Amount(args.Amount)
	if err != nil {
		return nil, err
	}
	call, err := encodeCall(args.Call)
	if err != nil {
		return nil, err
	}

	disc := e.discriminators[InstructionBridgeSol]
	data := make([]byte, 0, BridgeSolDataLength+len(call)-1)
	data = append(data, disc[:]...)
	data = append(data, args.Salt...)
	data = append(data, to[:]...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = append(data, call...)
	return data, nil
}

// EncodeBridgeSpl builds bridge_spl instruction data:
// disc(8) || salt(32) || to(20) || remoteToken(20) || amount(u64 LE) || None
func (e *InstructionEncoder) EncodeBridgeSpl(args BridgeSplArgs) ([]byte, error) {
	if args.Call != nil {
		return nil, bridgeerrors.NewValidationError(constant.ChainSolana, "contract calls are not supported for token transfers")
	}
	if err := validateSalt(args.Salt); err != nil {
		return nil, err
	}
	to, err := addrcodec.DecodeBytes20(args.To)
	if err != nil {
		return nil, err
	}
	remoteToken, err := addrcodec.DecodeBytes20(args.RemoteToken)
	if err != nil {
		return nil, err
	}
	amount, err := toU64Amount(args.Amount)
	if err != nil {
		return nil, err
	}

	disc := e.discriminators[InstructionBridgeSpl]
	data := make([]byte, 0, BridgeSplDataLength)
	data = append(data, disc[:]...)
	data = append(data, args.Salt...)
	data = append(data, to[:]...)
	data = append(data, remoteToken[:]...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = append(data, optionNone)
	return data, nil
}

// BridgeSolInstruction pairs the encoded data with the bridge_sol accounts.
func (e *InstructionEncoder) BridgeSolInstruction(args BridgeSolArgs, accounts BridgeSolAccounts) (*solana.GenericInstruction, error) {
	data, err := e.EncodeBridgeSol(args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(e.programID, BridgeSolAccountMetas(accounts), data), nil
}

// BridgeSplInstruction pairs the encoded data with the bridge_spl accounts.
func (e *InstructionEncoder) BridgeSplInstruction(args BridgeSplArgs, accounts BridgeSplAccounts) (*solana.GenericInstruction, error) {
	data, err := e.EncodeBridgeSpl(args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(e.programID, BridgeSplAccountMetas(accounts), data), nil
}

// BridgeSolAccountMetas returns the bridge_sol account list.
// Order and flags must match the bridge program's account structure.
func BridgeSolAccountMetas(acc BridgeSolAccounts) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: acc.Payer, IsWritable: true, IsSigner: true},
		{PublicKey: acc.From, IsWritable: true, IsSigner: false},
		{PublicKey: acc.GasFeeReceiver, IsWritable: true, IsSigner: false},
		{PublicKey: acc.SolVault, IsWritable: true, IsSigner: false},
		{PublicKey: acc.Bridge, IsWritable: true, IsSigner: false},
		{PublicKey: acc.OutgoingMessage, IsWritable: true, IsSigner: false},
		{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
	}
}

// BridgeSplAccountMetas returns the bridge_spl account list. The source
// owner signs only when it is also the payer.
func BridgeSplAccountMetas(acc BridgeSplAccounts) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		{PublicKey: acc.Payer, IsWritable: true, IsSigner: true},
		{PublicKey: acc.From, IsWritable: true, IsSigner: acc.From.Equals(acc.Payer)},
		{PublicKey: acc.GasFeeReceiver, IsWritable: true, IsSigner: false},
		{PublicKey: acc.Mint, IsWritable: true, IsSigner: false},
		{PublicKey: acc.FromTokenAccount, IsWritable: true, IsSigner: false},
		{PublicKey: acc.Bridge, IsWritable: true, IsSigner: false},
		{PublicKey: acc.TokenVault, IsWritable: true, IsSigner: false},
		{PublicKey: acc.OutgoingMessage, IsWritable: true, IsSigner: false},
		{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
	}
}

func validateSalt(salt []byte) error {
	if len(salt) != saltLength {
		return bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("salt must be %d bytes, got %d", saltLength, len(salt)))
	}
	return nil
}

func toU64Amount(amount *big.Int) (uint64, error) {
	if amount == nil || amount.Sign() <= 0 {
		return 0, bridgeerrors.NewValidationError(constant.ChainSolana, "amount must be greater than zero")
	}
	if !amount.IsUint64() {
		return 0, bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("amount %s exceeds u64", amount.String()))
	}
	return amount.Uint64(), nil
}

// encodeCall serializes Option<Call>:
// 0x00, or 0x01 || ty(1) || target(20) || value(u128 LE) || len(u32 LE) || data
func encodeCall(call *ContractCall) ([]byte, error) {
	if call == nil {
		return []byte{optionNone}, nil
	}

	target, err := addrcodec.DecodeBytes20(call.Target)
	if err != nil {
		return nil, err
	}
	value := call.Value
	if value == nil {
		value = new(uint256.Int)
	}
	if value.BitLen() > 128 {
		return nil, bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("call value %s exceeds u128", value.Dec()))
	}
	if uint64(len(call.Data)) > math.MaxUint32 {
		return nil, bridgeerrors.NewValidationError(constant.ChainSolana, "call data too large")
	}

	out := make([]byte, 0, 1+1+addrcodec.EvmAddressLength+16+4+len(call.Data))
	out = append(out, optionSome, CallTypeCall)
	out = append(out, target[:]...)
	// uint256 limbs are little-endian; the low two form the u128.
	out = binary.LittleEndian.AppendUint64(out, value[0])
	out = binary.LittleEndian.AppendUint64(out, value[1])
	out = binary.LittleEndian.AppendUint32(out, uint32(len(call.Data)))
	out = append(out, call.Data...)
	return out, nil
}
