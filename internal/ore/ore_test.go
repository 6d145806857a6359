package ore

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func treasuryBytes(rewardRate, claimed uint64) []byte {
	b := make([]byte, discriminatorSize+treasurySize)
	b[0] = DiscriminatorTreasury
	off := discriminatorSize
	binary.LittleEndian.PutUint64(b[off:], 255) // bump
	off += 8 + 32 + 32
	binary.LittleEndian.PutUint64(b[off:], uint64(1700000000))
	off += 8
	binary.LittleEndian.PutUint64(b[off:], rewardRate)
	off += 8
	binary.LittleEndian.PutUint64(b[off:], claimed)
	return b
}

func proofBytes(authority solana.PublicKey, claimable uint64, hash solana.Hash) []byte {
	b := make([]byte, discriminatorSize+proofSize)
	b[0] = DiscriminatorProof
	off := discriminatorSize
	copy(b[off:], authority[:])
	off += 32
	binary.LittleEndian.PutUint64(b[off:], claimable)
	off += 8
	copy(b[off:], hash[:])
	off += 32
	binary.LittleEndian.PutUint64(b[off:], 42)
	off += 8
	binary.LittleEndian.PutUint64(b[off:], 7)
	return b
}

func TestDecodeTreasury(t *testing.T) {
	tr, err := DecodeTreasury(treasuryBytes(5_000_000_000, 123_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint64(255), tr.Bump)
	assert.Equal(t, int64(1700000000), tr.LastResetAt)
	assert.Equal(t, uint64(5_000_000_000), tr.RewardRate)
	assert.Equal(t, uint64(123_000_000_000), tr.TotalClaimedRewards)
}

func TestDecodeProof(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	hash := solana.HashFromBytes([]byte("0123456789abcdef0123456789abcdef"))

	p, err := DecodeProof(proofBytes(authority, 9, hash))
	require.NoError(t, err)
	assert.Equal(t, authority, p.Authority)
	assert.Equal(t, uint64(9), p.ClaimableRewards)
	assert.Equal(t, hash, p.Hash)
	assert.Equal(t, uint64(42), p.TotalHashes)
	assert.Equal(t, uint64(7), p.TotalRewards)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := DecodeTreasury(nil)
	assert.Error(t, err, "empty data")

	_, err = DecodeTreasury(treasuryBytes(1, 1)[:20])
	assert.Error(t, err, "short data")

	wrong := proofBytes(solana.PublicKey{}, 1, solana.Hash{})
	_, err = DecodeTreasury(append(wrong, make([]byte, 64)...))
	assert.Error(t, err, "proof discriminator on treasury")

	_, err = DecodeProof(treasuryBytes(1, 1))
	assert.Error(t, err, "treasury discriminator on proof")
}

func TestProofAddress_Deterministic(t *testing.T) {
	authority := solana.NewWallet().PublicKey()
	a1, b1, err := ProofAddress(authority)
	require.NoError(t, err)
	a2, b2, err := ProofAddress(authority)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)

	other, _, err := ProofAddress(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, a1, other)
}

func TestOpenAccountTransaction(t *testing.T) {
	signer := solana.NewWallet().PublicKey()
	recent := solana.HashFromBytes(make([]byte, 32))

	tx, err := OpenAccountTransaction(signer, recent)
	require.NoError(t, err)
	require.Len(t, tx.Message.Instructions, 1)
	assert.Equal(t, signer, tx.Message.AccountKeys[0], "fee payer first")
	assert.Equal(t, recent, tx.Message.RecentBlockhash)

	proof, bump, err := ProofAddress(signer)
	require.NoError(t, err)
	ix := tx.Message.Instructions[0]
	assert.Equal(t, []byte{InstructionRegister, bump}, []byte(ix.Data))

	program, err := tx.Message.Program(ix.ProgramIDIndex)
	require.NoError(t, err)
	assert.Equal(t, ProgramID, program)
	assert.Contains(t, tx.Message.AccountKeys, proof)
}
