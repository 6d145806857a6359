package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	keyNodeID           = "node_id"
	keyWalletPrivateKey = "wallet_private_key"
)

func GetConfig(key string) (string, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&val)
	if err != nil {
		return "", err
	}
	return val, nil
}

func SetConfig(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	return err
}

// GetWalletKey returns the persisted base58 wallet key, or "" if none.
func GetWalletKey() (string, error) {
	v, err := GetConfig(keyWalletPrivateKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func SetWalletKey(encoded string) error {
	return SetConfig(keyWalletPrivateKey, encoded)
}

// GetNodeID returns the node's stable id, creating it on first use.
func GetNodeID() (string, error) {
	id, err := GetConfig(keyNodeID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	if err := SetConfig(keyNodeID, id); err != nil {
		return "", err
	}
	return id, nil
}
