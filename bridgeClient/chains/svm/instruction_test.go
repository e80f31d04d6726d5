package svm

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
	"github.com/tipjar/crossbridge/bridgeClient/pda"
)

// testProgramAddress is the devnet bridge program; only used for offline derivations.
const testProgramAddress = "7c6mteAcTXaQ1MFBCrnuzoZVTTAEfZwa6wgy4bqX3KXC"

const (
	testRecipient   = "0x1111111111111111111111111111111111111111"
	testRemoteToken = "0xCace0c896714DaF7098FFD8CC54aFCFe0338b4BC"
)

func newTestEncoder(t *testing.T) *InstructionEncoder {
	t.Helper()
	enc, err := NewInstructionEncoder(solana.MustPublicKeyFromBase58(testProgramAddress), nil)
	require.NoError(t, err)
	return enc
}

// makeSalt returns a deterministic 32-byte salt where every byte = fill
func makeSalt(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, 32)
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestNewInstructionEncoder(t *testing.T) {
	_, err := NewInstructionEncoder(solana.PublicKey{}, nil)
	assert.Error(t, err)

	_, err = NewInstructionEncoder(solana.MustPublicKeyFromBase58(testProgramAddress),
		map[InstructionKind]Discriminator{InstructionBridgeSol: {1}})
	assert.ErrorContains(t, err, "missing discriminator for bridge_spl")

	enc := newTestEncoder(t)
	d, ok := enc.Discriminator(InstructionBridgeSol)
	require.True(t, ok)
	assert.Equal(t, Discriminator{190, 190, 32, 158, 75, 153, 32, 86}, d)
}

func TestEncodeBridgeSol(t *testing.T) {
	enc := newTestEncoder(t)

	data, err := enc.EncodeBridgeSol(BridgeSolArgs{
		Salt:   makeSalt(0x01),
		To:     testRecipient,
		Amount: big.NewInt(1_500_000_000),
	})
	require.NoError(t, err)

	expected := []byte{190, 190, 32, 158, 75, 153, 32, 86}
	expected = append(expected, makeSalt(0x01)...)
	expected = append(expected, bytes.Repeat([]byte{0x11}, 20)...)
	expected = append(expected, 0x00, 0x2F, 0x68, 0x59, 0x00, 0x00, 0x00, 0x00)
	expected = append(expected, 0x00)

	assert.Equal(t, expected, data)
	assert.Len(t, data, BridgeSolDataLength)
	assert.Equal(t, 69, len(data))
}

func TestEncodeBridgeSolWithCall(t *testing.T) {
	enc := newTestEncoder(t)

	data, err := enc.EncodeBridgeSol(BridgeSolArgs{
		Salt:   makeSalt(0x02),
		To:     testRecipient,
		Amount: big.NewInt(1),
		Call: &ContractCall{
			Target: "0x2222222222222222222222222222222222222222",
			Value:  uint256.NewInt(0x0102),
			Data:   []byte{0xde, 0xad},
		},
	})
	require.NoError(t, err)

	call := data[BridgeSolDataLength-1:]
	expected := []byte{0x01, 0x00}
	expected = append(expected, bytes.Repeat([]byte{0x22}, 20)...)
	expected = append(expected, mustHex(t, "02010000000000000000000000000000")...)
	expected = append(expected, 0x02, 0x00, 0x00, 0x00, 0xde, 0xad)
	assert.Equal(t, expected, call)
}

func TestEncodeBridgeSpl(t *testing.T) {
	enc := newTestEncoder(t)

	data, err := enc.EncodeBridgeSpl(BridgeSplArgs{
		Salt:        makeSalt(0x03),
		To:          testRecipient,
		RemoteToken: testRemoteToken,
		Amount:      big.NewInt(42),
	})
	require.NoError(t, err)

	assert.Len(t, data, 89)
	assert.Equal(t, []byte{87, 109, 172, 103, 8, 187, 223, 126}, data[:8])
	assert.Equal(t, makeSalt(0x03), data[8:40])
	assert.Equal(t, bytes.Repeat([]byte{0x11}, 20), data[40:60])
	assert.Equal(t, mustHex(t, "cace0c896714daf7098ffd8cc54afcfe0338b4bc"), data[60:80])
	assert.Equal(t, []byte{42, 0, 0, 0, 0, 0, 0, 0}, data[80:88])
	assert.Equal(t, byte(0x00), data[88])
}

func TestEncodeValidation(t *testing.T) {
	enc := newTestEncoder(t)
	maxU64Plus := new(big.Int).Add(new(big.Int).SetUint64(^uint64(0)), big.NewInt(1))
	tooBig := new(uint256.Int).Lsh(uint256.NewInt(1), 128)

	tests := []struct {
		name          string
		args          BridgeSolArgs
		errorContains string
	}{
		{name: "zero amount", args: BridgeSolArgs{Salt: makeSalt(1), To: testRecipient, Amount: big.NewInt(0)}, errorContains: "greater than zero"},
		{name: "negative amount", args: BridgeSolArgs{Salt: makeSalt(1), To: testRecipient, Amount: big.NewInt(-5)}, errorContains: "greater than zero"},
		{name: "nil amount", args: BridgeSolArgs{Salt: makeSalt(1), To: testRecipient}, errorContains: "greater than zero"},
		{name: "amount above u64", args: BridgeSolArgs{Salt: makeSalt(1), To: testRecipient, Amount: maxU64Plus}, errorContains: "exceeds u64"},
		{name: "short salt", args: BridgeSolArgs{Salt: makeSalt(1)[:31], To: testRecipient, Amount: big.NewInt(1)}, errorContains: "salt must be 32 bytes"},
		{name: "long salt", args: BridgeSolArgs{Salt: append(makeSalt(1), 0), To: testRecipient, Amount: big.NewInt(1)}, errorContains: "salt must be 32 bytes"},
		{name: "bad recipient", args: BridgeSolArgs{Salt: makeSalt(1), To: "0x1234", Amount: big.NewInt(1)}, errorContains: "invalid evm address"},
		{
			name: "call value above u128",
			args: BridgeSolArgs{Salt: makeSalt(1), To: testRecipient, Amount: big.NewInt(1),
				Call: &ContractCall{Target: testRecipient, Value: tooBig}},
			errorContains: "exceeds u128",
		},
		{
			name: "bad call target",
			args: BridgeSolArgs{Salt: makeSalt(1), To: testRecipient, Amount: big.NewInt(1),
				Call: &ContractCall{Target: "nope"}},
			errorContains: "invalid evm address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := enc.EncodeBridgeSol(tt.args)
			require.Error(t, err)
			assert.Nil(t, data)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeValidation))
		})
	}

	t.Run("spl rejects calls", func(t *testing.T) {
		data, err := enc.EncodeBridgeSpl(BridgeSplArgs{
			Salt: makeSalt(1), To: testRecipient, RemoteToken: testRemoteToken, Amount: big.NewInt(1),
			Call: &ContractCall{Target: testRecipient},
		})
		require.Error(t, err)
		assert.Nil(t, data)
		assert.True(t, bridgeerrors.IsKind(err, bridgeerrors.ErrCodeValidation))
	})

	t.Run("spl rejects bad remote token", func(t *testing.T) {
		_, err := enc.EncodeBridgeSpl(BridgeSplArgs{
			Salt: makeSalt(1), To: testRecipient, RemoteToken: "0xzz", Amount: big.NewInt(1),
		})
		require.Error(t, err)
	})
}

func TestBridgeSolInstructionAccounts(t *testing.T) {
	enc := newTestEncoder(t)
	programID := enc.ProgramID()

	payer := solana.NewWallet().PublicKey()
	bridge, err := pda.BridgeState(programID)
	require.NoError(t, err)
	vault, err := pda.SolVault(programID)
	require.NoError(t, err)
	salt := makeSalt(0x01)
	msg, err := pda.OutgoingMessage(programID, bridge.Address, salt)
	require.NoError(t, err)
	feeReceiver := solana.MustPublicKeyFromBase58("AFs1LCbodhvwpgX3u3URLsud6R1XMSaMiQ5LtXw4GKYT")

	ix, err := enc.BridgeSolInstruction(
		BridgeSolArgs{Salt: salt, To: testRecipient, Amount: big.NewInt(1_500_000_000)},
		BridgeSolAccounts{
			Payer:           payer,
			From:            payer,
			GasFeeReceiver:  feeReceiver,
			SolVault:        vault.Address,
			Bridge:          bridge.Address,
			OutgoingMessage: msg.Address,
		},
	)
	require.NoError(t, err)

	assert.Equal(t, programID, ix.ProgramID())
	accounts := ix.Accounts()
	require.Len(t, accounts, 7)

	expected := []struct {
		key      solana.PublicKey
		signer   bool
		writable bool
	}{
		{payer, true, true},
		{payer, false, true},
		{feeReceiver, false, true},
		{vault.Address, false, true},
		{bridge.Address, false, true},
		{msg.Address, false, true},
		{solana.SystemProgramID, false, false},
	}
	for i, e := range expected {
		assert.Equal(t, e.key, accounts[i].PublicKey, "account %d", i)
		assert.Equal(t, e.signer, accounts[i].IsSigner, "account %d signer", i)
		assert.Equal(t, e.writable, accounts[i].IsWritable, "account %d writable", i)
	}

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Len(t, data, 69)
}

func TestBridgeSplAccountMetas(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()

	accs := BridgeSplAccounts{
		Payer:            payer,
		From:             payer,
		GasFeeReceiver:   solana.NewWallet().PublicKey(),
		Mint:             solana.NewWallet().PublicKey(),
		FromTokenAccount: solana.NewWallet().PublicKey(),
		Bridge:           solana.NewWallet().PublicKey(),
		TokenVault:       solana.NewWallet().PublicKey(),
		OutgoingMessage:  solana.NewWallet().PublicKey(),
	}

	metas := BridgeSplAccountMetas(accs)
	require.Len(t, metas, 10)
	assert.True(t, metas[0].IsSigner)
	assert.True(t, metas[1].IsSigner, "from signs when it is the payer")
	for i := 0; i < 8; i++ {
		assert.True(t, metas[i].IsWritable, "account %d writable", i)
	}
	for i := 2; i < 10; i++ {
		assert.False(t, metas[i].IsSigner, "account %d signer", i)
	}
	assert.Equal(t, accs.Mint, metas[3].PublicKey)
	assert.Equal(t, accs.FromTokenAccount, metas[4].PublicKey)
	assert.Equal(t, accs.TokenVault, metas[6].PublicKey)
	assert.Equal(t, solana.TokenProgramID, metas[8].PublicKey)
	assert.False(t, metas[8].IsWritable)
	assert.Equal(t, solana.SystemProgramID, metas[9].PublicKey)
	assert.False(t, metas[9].IsWritable)

	accs.From = other
	metas = BridgeSplAccountMetas(accs)
	assert.False(t, metas[1].IsSigner, "from does not sign when a different payer pays")
}

func TestDecodeBridgeInstruction(t *testing.T) {
	enc := newTestEncoder(t)

	t.Run("native with call", func(t *testing.T) {
		data, err := enc.EncodeBridgeSol(BridgeSolArgs{
			Salt:   makeSalt(0x05),
			To:     testRecipient,
			Amount: big.NewInt(7),
			Call: &ContractCall{
				Target: "0x3333333333333333333333333333333333333333",
				Value:  uint256.MustFromDecimal("340282366920938463463374607431768211455"),
				Data:   []byte{1, 2, 3},
			},
		})
		require.NoError(t, err)

		decoded, err := enc.DecodeBridgeInstruction(data)
		require.NoError(t, err)
		assert.Equal(t, InstructionBridgeSol, decoded.Kind)
		assert.Equal(t, makeSalt(0x05), decoded.Salt[:])
		assert.Equal(t, uint64(7), decoded.Amount)
		assert.Nil(t, decoded.RemoteToken)
		require.NotNil(t, decoded.Call)
		assert.Equal(t, "340282366920938463463374607431768211455", decoded.Call.Value.Dec())
		assert.Equal(t, []byte{1, 2, 3}, decoded.Call.Data)
		assert.Equal(t, bytes.Repeat([]byte{0x33}, 20), decoded.Call.Target[:])
	})

	t.Run("token", func(t *testing.T) {
		data, err := enc.EncodeBridgeSpl(BridgeSplArgs{
			Salt: makeSalt(0x06), To: testRecipient, RemoteToken: testRemoteToken, Amount: big.NewInt(99),
		})
		require.NoError(t, err)

		decoded, err := enc.DecodeBridgeInstruction(data)
		require.NoError(t, err)
		assert.Equal(t, InstructionBridgeSpl, decoded.Kind)
		require.NotNil(t, decoded.RemoteToken)
		assert.Equal(t, mustHex(t, "cace0c896714daf7098ffd8cc54afcfe0338b4bc"), decoded.RemoteToken[:])
		assert.Equal(t, uint64(99), decoded.Amount)
		assert.Nil(t, decoded.Call)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		data, err := enc.EncodeBridgeSol(BridgeSolArgs{Salt: makeSalt(1), To: testRecipient, Amount: big.NewInt(1)})
		require.NoError(t, err)

		_, err = enc.DecodeBridgeInstruction(data[:4])
		assert.Error(t, err)

		_, err = enc.DecodeBridgeInstruction(append(append([]byte{}, data...), 0xff))
		assert.ErrorContains(t, err, "trailing bytes")

		bad := append([]byte{}, data...)
		bad[0] ^= 0xff
		_, err = enc.DecodeBridgeInstruction(bad)
		assert.ErrorContains(t, err, "unknown discriminator")

		_, err = enc.DecodeBridgeInstruction(data[:30])
		assert.Error(t, err)
	})
}

func TestEncodingMatchesBorsh(t *testing.T) {
	enc := newTestEncoder(t)

	payload := bridgeSolPayload{Amount: 123456789}
	copy(payload.Salt[:], makeSalt(0x09))
	copy(payload.To[:], bytes.Repeat([]byte{0x11}, 20))
	payload.Call = &callPayload{Ty: CallTypeCall, Data: []byte{0xaa}}
	copy(payload.Call.To[:], bytes.Repeat([]byte{0x44}, 20))
	payload.Call.Value[0] = 5

	body, err := borsh.Serialize(payload)
	require.NoError(t, err)

	data, err := enc.EncodeBridgeSol(BridgeSolArgs{
		Salt:   makeSalt(0x09),
		To:     testRecipient,
		Amount: big.NewInt(123456789),
		Call: &ContractCall{
			Target: "0x4444444444444444444444444444444444444444",
			Value:  uint256.NewInt(5),
			Data:   []byte{0xaa},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, body, data[8:])
}

func TestNewSalt(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Len(t, b, 32)
	assert.NotEqual(t, a, b)
}
