package chain

import (
	"errors"
	"fmt"
)

// ErrAccountNotFound is returned when an on-chain account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// ErrEmptyResponse is a fetch that returned neither a value nor an error.
var ErrEmptyResponse = errors.New("empty response")

// Fetch sources, used for logging and telemetry labels.
const (
	SourceTreasury    = "treasury"
	SourceProof       = "proof"
	SourceTokenSupply = "token_supply"
	SourceBlockhash   = "blockhash"
)

// FetchError is a network or decode failure while reading chain data.
// It is always transient: the next poll retries the same read.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(source string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Source: source, Err: err}
}
