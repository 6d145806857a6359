package ore

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Account discriminators, stored in the first byte of the 8-byte header.
const (
	DiscriminatorProof    byte = 101
	DiscriminatorTreasury byte = 102
)

const (
	discriminatorSize = 8
	treasurySize      = 8 + 32 + 32 + 8 + 8 + 8
	proofSize         = 32 + 8 + 32 + 8 + 8
)

// Treasury is the global protocol state. Amounts are raw units.
type Treasury struct {
	Bump                uint64           `json:"bump"`
	Admin               solana.PublicKey `json:"admin"`
	Difficulty          solana.Hash      `json:"difficulty"`
	LastResetAt         int64            `json:"last_reset_at"`
	RewardRate          uint64           `json:"reward_rate"`
	TotalClaimedRewards uint64           `json:"total_claimed_rewards"`
}

// Proof is a miner's on-chain progress record. A change of Hash marks the
// start of a new mining epoch.
type Proof struct {
	Authority        solana.PublicKey `json:"authority"`
	ClaimableRewards uint64           `json:"claimable_rewards"`
	Hash             solana.Hash      `json:"hash"`
	TotalHashes      uint64           `json:"total_hashes"`
	TotalRewards     uint64           `json:"total_rewards"`
}

// DecodeTreasury parses raw treasury account data.
func DecodeTreasury(data []byte) (*Treasury, error) {
	dec, err := accountDecoder(data, DiscriminatorTreasury, treasurySize)
	if err != nil {
		return nil, fmt.Errorf("treasury: %w", err)
	}

	t := &Treasury{}
	if t.Bump, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("treasury bump: %w", err)
	}
	if err = readKey(dec, (*[32]byte)(&t.Admin)); err != nil {
		return nil, fmt.Errorf("treasury admin: %w", err)
	}
	if err = readKey(dec, (*[32]byte)(&t.Difficulty)); err != nil {
		return nil, fmt.Errorf("treasury difficulty: %w", err)
	}
	if t.LastResetAt, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, fmt.Errorf("treasury last_reset_at: %w", err)
	}
	if t.RewardRate, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("treasury reward_rate: %w", err)
	}
	if t.TotalClaimedRewards, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("treasury total_claimed_rewards: %w", err)
	}
	return t, nil
}

// DecodeProof parses raw proof account data.
func DecodeProof(data []byte) (*Proof, error) {
	dec, err := accountDecoder(data, DiscriminatorProof, proofSize)
	if err != nil {
		return nil, fmt.Errorf("proof: %w", err)
	}

	p := &Proof{}
	if err = readKey(dec, (*[32]byte)(&p.Authority)); err != nil {
		return nil, fmt.Errorf("proof authority: %w", err)
	}
	if p.ClaimableRewards, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("proof claimable_rewards: %w", err)
	}
	if err = readKey(dec, (*[32]byte)(&p.Hash)); err != nil {
		return nil, fmt.Errorf("proof hash: %w", err)
	}
	if p.TotalHashes, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("proof total_hashes: %w", err)
	}
	if p.TotalRewards, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, fmt.Errorf("proof total_rewards: %w", err)
	}
	return p, nil
}

func accountDecoder(data []byte, disc byte, size int) (*bin.Decoder, error) {
	if len(data) < discriminatorSize+size {
		return nil, fmt.Errorf("account data too short: %d bytes, want %d", len(data), discriminatorSize+size)
	}
	if data[0] != disc {
		return nil, fmt.Errorf("unexpected discriminator %d, want %d", data[0], disc)
	}
	return bin.NewBinDecoder(data[discriminatorSize:]), nil
}

func readKey(dec *bin.Decoder, out *[32]byte) error {
	b, err := dec.ReadNBytes(32)
	if err != nil {
		return err
	}
	copy(out[:], b)
	return nil
}
