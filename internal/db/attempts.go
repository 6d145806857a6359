package db

import (
	"database/sql"
	"time"
)

// ProvisioningAttempt records one open-account signature request.
type ProvisioningAttempt struct {
	ID        string  `json:"id"`
	Authority string  `json:"authority"`
	State     string  `json:"state"`
	Signature *string `json:"signature,omitempty"`
	Error     *string `json:"error,omitempty"`
	ErrorKind *string `json:"error_kind,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// UpsertAttempt inserts an attempt or updates its state, signature and error.
func UpsertAttempt(a *ProvisioningAttempt) error {
	now := time.Now().Unix()
	_, err := db.Exec(`
		INSERT INTO provisioning_attempts
			(id, authority, state, signature, error, error_kind, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			signature = excluded.signature,
			error = excluded.error,
			error_kind = excluded.error_kind,
			updated_at = excluded.updated_at`,
		a.ID, a.Authority, a.State, a.Signature, a.Error, a.ErrorKind, now, now)
	return err
}

// GetAttempt returns a single attempt by id.
func GetAttempt(id string) (*ProvisioningAttempt, error) {
	a := &ProvisioningAttempt{}
	err := db.QueryRow(`
		SELECT id, authority, state, signature, error, error_kind, created_at, updated_at
		FROM provisioning_attempts WHERE id = ?`, id).Scan(
		&a.ID, &a.Authority, &a.State, &a.Signature, &a.Error, &a.ErrorKind,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetRecentAttempts returns up to limit attempts, newest first.
func GetRecentAttempts(limit int) ([]ProvisioningAttempt, error) {
	rows, err := db.Query(`
		SELECT id, authority, state, signature, error, error_kind, created_at, updated_at
		FROM provisioning_attempts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProvisioningAttempt
	for rows.Next() {
		var a ProvisioningAttempt
		if err := rows.Scan(&a.ID, &a.Authority, &a.State, &a.Signature, &a.Error,
			&a.ErrorKind, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
