package chain

import "encoding/json"

// Status is the lifecycle stage of a remotely fetched value.
type Status int

const (
	StatusLoading Status = iota
	StatusOk
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "loading"
	}
}

// AsyncResult holds exactly one of Loading, Ok(value) or Error(cause).
// The zero value is Loading. Values are replaced wholesale on every fetch
// and never mutated in place.
type AsyncResult[T any] struct {
	status Status
	value  T
	err    error
}

// Loading returns a result whose first fetch has not completed yet.
func Loading[T any]() AsyncResult[T] {
	return AsyncResult[T]{status: StatusLoading}
}

// Ok wraps a successfully fetched value.
func Ok[T any](v T) AsyncResult[T] {
	return AsyncResult[T]{status: StatusOk, value: v}
}

// Failed wraps a fetch failure.
func Failed[T any](err error) AsyncResult[T] {
	return AsyncResult[T]{status: StatusError, err: err}
}

// FromFetch builds a result from the (value, error) pair a fetcher returns.
// A nil value without an error is ErrEmptyResponse.
func FromFetch[T any](v *T, err error) AsyncResult[T] {
	if err != nil {
		return Failed[T](err)
	}
	if v == nil {
		return Failed[T](ErrEmptyResponse)
	}
	return Ok(*v)
}

func (r AsyncResult[T]) Status() Status { return r.status }
func (r AsyncResult[T]) IsLoading() bool { return r.status == StatusLoading }
func (r AsyncResult[T]) IsOk() bool      { return r.status == StatusOk }
func (r AsyncResult[T]) IsError() bool   { return r.status == StatusError }

// Value returns the wrapped value and true only when the result is Ok.
func (r AsyncResult[T]) Value() (T, bool) {
	if r.status != StatusOk {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Err returns the failure cause, or nil unless the result is Error.
func (r AsyncResult[T]) Err() error {
	if r.status != StatusError {
		return nil
	}
	return r.err
}

type resultJSON struct {
	Status string `json:"status"`
	Value  any    `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r AsyncResult[T]) MarshalJSON() ([]byte, error) {
	out := resultJSON{Status: r.status.String()}
	switch r.status {
	case StatusOk:
		out.Value = r.value
	case StatusError:
		if r.err != nil {
			out.Error = r.err.Error()
		}
	}
	return json.Marshal(out)
}
