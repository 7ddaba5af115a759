package supervisor

// State is one of the six Supervisor states.
type State int

const (
	StateIdle State = iota
	StateDFUActive
	StateDFUVerify
	StateRunningApp
	StateEmergencyRecovery
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDFUActive:
		return "DFU_ACTIVE"
	case StateDFUVerify:
		return "DFU_VERIFY"
	case StateRunningApp:
		return "RUNNING_APP"
	case StateEmergencyRecovery:
		return "EMERGENCY_RECOVERY"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// admissibleTransitions is the table from §4.2: a transition not listed
// here is itself an error and forces the machine into StateError from the
// originating state.
var admissibleTransitions = map[State]map[State]bool{
	// IDLE's path to RUNNING_APP is always indirect, via JUMP_APP
	// transitioning to DFU_VERIFY first (§4.2); DFU_VERIFY is therefore
	// the admissible target here, not RUNNING_APP itself.
	StateIdle: {
		StateDFUActive:         true,
		StateDFUVerify:         true,
		StateEmergencyRecovery: true,
		StateError:             true,
	},
	StateDFUActive: {
		StateDFUVerify:         true,
		StateIdle:              true,
		StateEmergencyRecovery: true,
		StateError:             true,
	},
	StateDFUVerify: {
		StateRunningApp:        true,
		StateIdle:              true,
		StateEmergencyRecovery: true,
		StateError:             true,
	},
	StateRunningApp: {
		StateIdle:              true,
		StateEmergencyRecovery: true,
		StateError:             true,
	},
	StateEmergencyRecovery: {
		StateIdle:  true,
		StateError: true,
	},
	StateError: {
		StateIdle:              true,
		StateEmergencyRecovery: true,
	},
}

// isAdmissible reports whether transitioning from `from` to `to` appears
// in the admissible-transitions table. A self-transition is never
// admissible; callers that need to re-enter a state do so explicitly.
func isAdmissible(from, to State) bool {
	return admissibleTransitions[from][to]
}
