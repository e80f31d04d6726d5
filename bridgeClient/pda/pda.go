// Package pda derives the bridge program's program-derived addresses.
package pda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/tipjar/crossbridge/bridgeClient/addrcodec"
	"github.com/tipjar/crossbridge/bridgeClient/constant"
	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

// Seed prefixes owned by the deployed bridge program.
var (
	BridgeSeed          = []byte("bridge")
	SolVaultSeed        = []byte("sol_vault")
	TokenVaultSeed      = []byte("token_vault")
	OutgoingMessageSeed = []byte("outgoing_message")
)

// ProgramDerivedAddress is an off-curve address owned by ProgramID.
type ProgramDerivedAddress struct {
	Seeds     [][]byte
	ProgramID solana.PublicKey
	Address   solana.PublicKey
	Bump      uint8
}

// Derive finds the canonical address and bump for seeds under programID.
func Derive(seeds [][]byte, programID solana.PublicKey) (ProgramDerivedAddress, error) {
	if programID.IsZero() {
		return ProgramDerivedAddress{}, bridgeerrors.NewValidationError(constant.ChainSolana, "program id is required")
	}
	for i, s := range seeds {
		if len(s) > solana.MaxSeedLength {
			return ProgramDerivedAddress{}, bridgeerrors.NewValidationError(constant.ChainSolana,
				fmt.Sprintf("seed %d is %d bytes, max %d", i, len(s), solana.MaxSeedLength))
		}
	}

	address, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return ProgramDerivedAddress{}, bridgeerrors.NewProtocolError(constant.ChainSolana, "failed to derive program address", err)
	}

	copied := make([][]byte, len(seeds))
	for i, s := range seeds {
		copied[i] = append([]byte(nil), s...)
	}

	return ProgramDerivedAddress{
		Seeds:     copied,
		ProgramID: programID,
		Address:   address,
		Bump:      bump,
	}, nil
}

// BridgeState derives the bridge's global state account.
func BridgeState(programID solana.PublicKey) (ProgramDerivedAddress, error) {
	return Derive([][]byte{BridgeSeed}, programID)
}

// SolVault derives the vault that escrows native SOL.
func SolVault(programID solana.PublicKey) (ProgramDerivedAddress, error) {
	return Derive([][]byte{SolVaultSeed}, programID)
}

// TokenVault derives the escrow for mint paired with remoteToken on Base.
func TokenVault(programID, mint solana.PublicKey, remoteToken addrcodec.EvmAddress) (ProgramDerivedAddress, error) {
	return Derive([][]byte{TokenVaultSeed, mint.Bytes(), remoteToken.Bytes()}, programID)
}

// OutgoingMessage derives the per-transfer message account. The salt must be
// 32 bytes.
func OutgoingMessage(programID, bridgeState solana.PublicKey, salt []byte) (ProgramDerivedAddress, error) {
	if len(salt) != 32 {
		return ProgramDerivedAddress{}, bridgeerrors.NewValidationError(constant.ChainSolana,
			fmt.Sprintf("salt must be 32 bytes, got %d", len(salt)))
	}
	return Derive([][]byte{OutgoingMessageSeed, bridgeState.Bytes(), salt}, programID)
}

// AssociatedTokenAccount returns the owner's associated token account for mint.
func AssociatedTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, bridgeerrors.NewProtocolError(constant.ChainSolana, "failed to derive associated token account", err)
	}
	return ata, nil
}
