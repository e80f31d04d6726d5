package svm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ComputeBudgetProgramID is the native compute budget program.
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// BuildTransaction assembles an unsigned transaction with payer as fee payer.
// A non-zero computeUnitLimit prepends a SetComputeUnitLimit instruction.
func BuildTransaction(
	instructions []solana.Instruction,
	blockhash solana.Hash,
	payer solana.PublicKey,
	computeUnitLimit uint32,
) (*solana.Transaction, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("at least one instruction is required")
	}
	if payer.IsZero() {
		return nil, fmt.Errorf("payer is required")
	}

	ixs := make([]solana.Instruction, 0, len(instructions)+1)
	if computeUnitLimit > 0 {
		ixs = append(ixs, buildSetComputeUnitLimitInstruction(computeUnitLimit))
	}
	ixs = append(ixs, instructions...)

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}

// buildSetComputeUnitLimitInstruction creates a SetComputeUnitLimit instruction
// Instruction format: [1-byte instruction type (2 = SetComputeUnitLimit)] + [4-byte u32 units]
func buildSetComputeUnitLimitInstruction(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)

	return solana.NewInstruction(ComputeBudgetProgramID, []*solana.AccountMeta{}, data)
}
