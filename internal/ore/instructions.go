package ore

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Instruction tags.
const (
	InstructionReset    byte = 0
	InstructionRegister byte = 1
	InstructionMine     byte = 2
	InstructionClaim    byte = 3
)

// RegisterInstruction opens the proof account for signer. The proof PDA
// bump is carried in the instruction data.
func RegisterInstruction(signer solana.PublicKey) (solana.Instruction, error) {
	proof, bump, err := ProofAddress(signer)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(
		ProgramID,
		solana.AccountMetaSlice{
			solana.NewAccountMeta(signer, true, true),
			solana.NewAccountMeta(proof, true, false),
			solana.NewAccountMeta(solana.SystemProgramID, false, false),
		},
		[]byte{InstructionRegister, bump},
	), nil
}

// OpenAccountTransaction builds the unsigned "open account" transaction
// paid for by signer.
func OpenAccountTransaction(signer solana.PublicKey, recent solana.Hash) (*solana.Transaction, error) {
	ix, err := RegisterInstruction(signer)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent,
		solana.TransactionPayer(signer),
	)
	if err != nil {
		return nil, fmt.Errorf("new transaction: %w", err)
	}
	return tx, nil
}
