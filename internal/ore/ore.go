// Package ore describes the ORE mining program: its addresses, account
// layouts and the instructions the toolbar needs to build.
package ore

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// TokenDecimals is the decimal-scaling exponent for raw ORE amounts.
const TokenDecimals = 9

var (
	// ProgramID is the ORE program.
	ProgramID = solana.MustPublicKeyFromBase58("mineRHF5r6S7HyD9SppBfVMXMavDkJsxwGesEvxZr2A")

	// MintAddress is the ORE token mint.
	MintAddress = solana.MustPublicKeyFromBase58("oreoN2tQbHXVaZsr3pf66A48miqcBXCDJozganhEJgz")
)

// PDA seeds.
var (
	treasurySeed = []byte("treasury")
	proofSeed    = []byte("proof")
)

// TreasuryAddress returns the program-derived address of the global treasury.
func TreasuryAddress() (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{treasurySeed}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive treasury address: %w", err)
	}
	return addr, bump, nil
}

// ProofAddress returns the program-derived address of the proof account
// owned by authority.
func ProofAddress(authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{proofSeed, authority.Bytes()}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive proof address: %w", err)
	}
	return addr, bump, nil
}
