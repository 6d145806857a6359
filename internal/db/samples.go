package db

import "time"

// MetricSample is one point of the mining metrics time series.
type MetricSample struct {
	ID                int64   `json:"id"`
	Authority         string  `json:"authority"`
	RewardRate        float64 `json:"reward_rate"`
	ClaimableRewards  float64 `json:"claimable_rewards"`
	CirculatingSupply float64 `json:"circulating_supply"`
	TotalSupply       string  `json:"total_supply"`
	ProofHash         string  `json:"proof_hash"`
	SessionTimer      uint64  `json:"session_timer"`
	SampledAt         int64   `json:"sampled_at"`
}

// InsertSample stores a sample, stamping SampledAt when unset.
func InsertSample(s *MetricSample) error {
	if s.SampledAt == 0 {
		s.SampledAt = time.Now().Unix()
	}
	res, err := db.Exec(`
		INSERT INTO metric_samples
			(authority, reward_rate, claimable_rewards, circulating_supply,
			 total_supply, proof_hash, session_timer, sampled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Authority, s.RewardRate, s.ClaimableRewards, s.CirculatingSupply,
		s.TotalSupply, s.ProofHash, s.SessionTimer, s.SampledAt)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

// GetRecentSamples returns up to limit samples, newest first.
func GetRecentSamples(limit int) ([]MetricSample, error) {
	rows, err := db.Query(`
		SELECT id, authority, reward_rate, claimable_rewards, circulating_supply,
			total_supply, proof_hash, session_timer, sampled_at
		FROM metric_samples ORDER BY sampled_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MetricSample
	for rows.Next() {
		var s MetricSample
		if err := rows.Scan(&s.ID, &s.Authority, &s.RewardRate, &s.ClaimableRewards,
			&s.CirculatingSupply, &s.TotalSupply, &s.ProofHash, &s.SessionTimer,
			&s.SampledAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSamples deletes samples older than cutoff and returns the count removed.
func PruneSamples(cutoff time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM metric_samples WHERE sampled_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
