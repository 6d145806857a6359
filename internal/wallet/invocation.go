package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// ErrAlreadyInvoked is returned when Invoke is called on an invocation that
// has left Start. A fresh Invocation is required to retry.
var ErrAlreadyInvoked = errors.New("invocation already issued")

// InvokeState is the lifecycle of a signature request.
type InvokeState int

const (
	InvokeStart InvokeState = iota
	InvokePending
	InvokeDone
	InvokeError
)

func (s InvokeState) String() string {
	switch s {
	case InvokeStart:
		return "start"
	case InvokePending:
		return "pending"
	case InvokeDone:
		return "done"
	case InvokeError:
		return "error"
	}
	return "unknown"
}

// BuildFunc constructs the transaction to be signed.
type BuildFunc func(ctx context.Context) (*solana.Transaction, error)

// Invocation tracks one build-and-sign request. It moves Start -> Pending ->
// Done|Error exactly once; the Done signature can be taken exactly once.
type Invocation struct {
	id string

	mu        sync.Mutex
	state     InvokeState
	sig       solana.Signature
	err       error
	taken     bool
	abandoned bool
	startedAt time.Time
	endedAt   time.Time

	done chan struct{}
}

// InvocationSnapshot is a read-only view for the presentation layer.
type InvocationSnapshot struct {
	ID        string   `json:"id"`
	State     string   `json:"state"`
	Signature string   `json:"signature,omitempty"`
	Error     string   `json:"error,omitempty"`
	ErrorKind SignKind `json:"error_kind,omitempty"`
	Abandoned bool     `json:"abandoned,omitempty"`
}

func NewInvocation() *Invocation {
	return &Invocation{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

func (inv *Invocation) ID() string { return inv.id }

// Invoke moves the invocation to Pending and runs build then sign in the
// background. The submission runs detached from ctx cancellation; use
// Abandon to stop observing it.
func (inv *Invocation) Invoke(ctx context.Context, build BuildFunc, signer Signer) error {
	inv.mu.Lock()
	if inv.state != InvokeStart {
		inv.mu.Unlock()
		return ErrAlreadyInvoked
	}
	inv.state = InvokePending
	inv.startedAt = time.Now()
	inv.mu.Unlock()

	go inv.run(context.WithoutCancel(ctx), build, signer)
	return nil
}

func (inv *Invocation) run(ctx context.Context, build BuildFunc, signer Signer) {
	tx, err := build(ctx)
	if err != nil {
		var be *BuildError
		if !errors.As(err, &be) {
			err = &BuildError{Err: err}
		}
		inv.finish(solana.Signature{}, err)
		return
	}
	sig, err := signer.RequestSignature(ctx, tx)
	inv.finish(sig, err)
}

func (inv *Invocation) finish(sig solana.Signature, err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if err != nil {
		inv.state = InvokeError
		inv.err = err
	} else {
		inv.state = InvokeDone
		inv.sig = sig
	}
	inv.endedAt = time.Now()
	close(inv.done)
}

// Done is closed when the invocation reaches Done or Error.
func (inv *Invocation) Done() <-chan struct{} { return inv.done }

func (inv *Invocation) State() InvokeState {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

func (inv *Invocation) Pending() bool { return inv.State() == InvokePending }

// Err returns the failure cause once the invocation is in Error.
func (inv *Invocation) Err() error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.err
}

// Take returns the signature the first time it is called after Done.
// Later calls, and calls on an abandoned invocation, return false.
func (inv *Invocation) Take() (solana.Signature, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.state != InvokeDone || inv.taken || inv.abandoned {
		return solana.Signature{}, false
	}
	inv.taken = true
	return inv.sig, true
}

// Abandon stops the result from being observed through Take.
func (inv *Invocation) Abandon() {
	inv.mu.Lock()
	inv.abandoned = true
	inv.mu.Unlock()
}

func (inv *Invocation) Abandoned() bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.abandoned
}

// Elapsed is the time spent between Invoke and completion (or now).
func (inv *Invocation) Elapsed() time.Duration {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.startedAt.IsZero() {
		return 0
	}
	if inv.endedAt.IsZero() {
		return time.Since(inv.startedAt)
	}
	return inv.endedAt.Sub(inv.startedAt)
}

func (inv *Invocation) Snapshot() InvocationSnapshot {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	s := InvocationSnapshot{
		ID:        inv.id,
		State:     inv.state.String(),
		Abandoned: inv.abandoned,
	}
	if inv.state == InvokeDone {
		s.Signature = inv.sig.String()
	}
	if inv.err != nil {
		s.Error = inv.err.Error()
		s.ErrorKind = SignErrorKind(inv.err)
	}
	return s
}
