package toolbar

// State is the orchestrator's mining state, independent of visibility.
type State int

const (
	StateInsufficientFunds State = iota
	StateProvisioning
	StateIdle
	StateActive
)

// AllStates lists every state in declaration order.
func AllStates() []State {
	return []State{StateInsufficientFunds, StateProvisioning, StateIdle, StateActive}
}

func (s State) String() string {
	switch s {
	case StateInsufficientFunds:
		return "insufficient_funds"
	case StateProvisioning:
		return "provisioning"
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	}
	return "unknown"
}

// Phase is what the presentation layer renders.
type Phase string

const (
	PhaseInsufficientFundsCollapsed Phase = "insufficient_funds_collapsed"
	PhaseProvisioning               Phase = "provisioning"
	PhaseIdleCollapsed              Phase = "idle_collapsed"
	PhaseIdleOpen                   Phase = "idle_open"
	PhaseActiveCollapsed            Phase = "active_collapsed"
	PhaseActiveOpen                 Phase = "active_open"
)

// DerivePhase maps state and visibility to a phase. Opening the toolbar
// without an account is the provisioning prompt.
func DerivePhase(s State, open bool) Phase {
	switch s {
	case StateActive:
		if open {
			return PhaseActiveOpen
		}
		return PhaseActiveCollapsed
	case StateIdle:
		if open {
			return PhaseIdleOpen
		}
		return PhaseIdleCollapsed
	default:
		if open {
			return PhaseProvisioning
		}
		return PhaseInsufficientFundsCollapsed
	}
}
