package mining

import (
	"math"
	"strconv"

	"github.com/b0ase/path402/apps/oreminer/internal/chain"
	"github.com/b0ase/path402/apps/oreminer/internal/ore"
)

// HashPlaceholder is shown when no proof hash is available.
const HashPlaceholder = "–"

// Metrics are the user-facing figures derived from one snapshot.
type Metrics struct {
	RewardRate        float64 `json:"reward_rate"`
	ClaimableRewards  float64 `json:"claimable_rewards"`
	CirculatingSupply float64 `json:"circulating_supply"`
	TotalSupply       string  `json:"total_supply"`
	Hash              string  `json:"hash"`
	SessionTimer      uint64  `json:"session_timer"`
}

var unit = math.Pow10(ore.TokenDecimals)

func scale(raw uint64) float64 { return float64(raw) / unit }

// RewardRate is the treasury reward rate in whole tokens, or 0 unless Ok.
func RewardRate(t chain.AsyncResult[ore.Treasury]) float64 {
	v, ok := t.Value()
	if !ok {
		return 0
	}
	return scale(v.RewardRate)
}

// ClaimableRewards is the proof's claimable balance in whole tokens, or 0 unless Ok.
func ClaimableRewards(p chain.AsyncResult[ore.Proof]) float64 {
	v, ok := p.Value()
	if !ok {
		return 0
	}
	return scale(v.ClaimableRewards)
}

// CirculatingSupply is total claimed rewards in whole tokens, or 0 unless Ok.
func CirculatingSupply(t chain.AsyncResult[ore.Treasury]) float64 {
	v, ok := t.Value()
	if !ok {
		return 0
	}
	return scale(v.TotalClaimedRewards)
}

// TotalSupplyDisplay renders the mint supply: "-" while loading, "Err" on
// failure. An Ok value without a numeric ui amount falls back to its string
// form, then to "-".
func TotalSupplyDisplay(s chain.AsyncResult[chain.TokenSupply]) string {
	switch s.Status() {
	case chain.StatusLoading:
		return "-"
	case chain.StatusError:
		return "Err"
	}
	v, _ := s.Value()
	if v.UIAmount != nil {
		return strconv.FormatFloat(*v.UIAmount, 'f', -1, 64)
	}
	if v.UIAmountString != "" {
		return v.UIAmountString
	}
	return "-"
}

// AbbreviateHash returns the first 16 characters of s when it is longer
// than 16, otherwise HashPlaceholder.
func AbbreviateHash(s string) string {
	r := []rune(s)
	if len(r) > 16 {
		return string(r[:16])
	}
	return HashPlaceholder
}

// HashDisplay abbreviates the proof hash, or returns HashPlaceholder unless Ok.
func HashDisplay(p chain.AsyncResult[ore.Proof]) string {
	v, ok := p.Value()
	if !ok {
		return HashPlaceholder
	}
	return AbbreviateHash(v.Hash.String())
}

// Derive computes every metric from snap.
func Derive(snap Snapshot) Metrics {
	return Metrics{
		RewardRate:        RewardRate(snap.Treasury),
		ClaimableRewards:  ClaimableRewards(snap.Proof),
		CirculatingSupply: CirculatingSupply(snap.Treasury),
		TotalSupply:       TotalSupplyDisplay(snap.Supply),
		Hash:              HashDisplay(snap.Proof),
		SessionTimer:      snap.Timer,
	}
}
