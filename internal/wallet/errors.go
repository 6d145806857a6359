package wallet

import (
	"errors"
	"fmt"
)

// ErrNotConnected is the connection error: no wallet public key is available.
var ErrNotConnected = errors.New("wallet not connected")

// BuildError is a failure to construct a transaction.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string { return fmt.Sprintf("build transaction: %v", e.Err) }
func (e *BuildError) Unwrap() error { return e.Err }

// SignKind distinguishes why a signature request failed.
type SignKind string

const (
	SignRejected      SignKind = "rejected"
	SignBuildFailed   SignKind = "build_failed"
	SignNetworkFailed SignKind = "network_failed"
	SignBackendFailed SignKind = "backend_failed"
)

// SignError is a failed or rejected signature request.
type SignError struct {
	Kind SignKind
	Err  error
}

func (e *SignError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sign: %s", e.Kind)
	}
	return fmt.Sprintf("sign: %s: %v", e.Kind, e.Err)
}

func (e *SignError) Unwrap() error { return e.Err }

// SignErrorKind classifies err. Build errors map to SignBuildFailed and
// anything unrecognised to SignBackendFailed.
func SignErrorKind(err error) SignKind {
	var se *SignError
	if errors.As(err, &se) {
		return se.Kind
	}
	var be *BuildError
	if errors.As(err, &be) {
		return SignBuildFailed
	}
	return SignBackendFailed
}
