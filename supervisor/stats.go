package supervisor

import (
	"github.com/fenwick-embedded/dfucore/internal/logging"
)

// ProtocolVersion and BuildID are the fixed identifiers returned by
// GET_VERSION's extended-form payload. GET_STATUS does not carry them.
const (
	ProtocolVersion = "1.0"
	BuildID         = "dfucore-dev"
)

// Stats is a read-only snapshot of the Supervisor's counters and session
// progress, suitable for logging or a CLI's `stats` subcommand.
type Stats struct {
	State             string
	PreviousState     string
	PacketsProcessed  uint64
	PacketsDropped    uint64
	ErrorCount        uint64
	RecoveryAttempts  uint64
	AppLaunchAttempts uint64
	SessionActive     bool
	BytesReceived     uint32
	TotalSize         uint32
}

// Stats returns a snapshot of the current counters.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Supervisor) statsLocked() Stats {
	return Stats{
		State:             s.state.String(),
		PreviousState:     s.previousState.String(),
		PacketsProcessed:  s.packetsProcessed,
		PacketsDropped:    s.packetsDropped,
		ErrorCount:        s.errorCount,
		RecoveryAttempts:  s.recoveryAttempts,
		AppLaunchAttempts: s.appLaunchAttempts,
		SessionActive:     s.session.active,
		BytesReceived:     s.session.bytesReceived,
		TotalSize:         s.session.totalSize,
	}
}

// LogStats writes one structured line summarizing the current snapshot.
func (s *Supervisor) LogStats(logger logging.Logger) {
	logger = logging.OrNoop(logger)
	st := s.Stats()
	logger.Info("supervisor stats",
		"state", st.State,
		"packets_processed", st.PacketsProcessed,
		"packets_dropped", st.PacketsDropped,
		"error_count", st.ErrorCount,
		"recovery_attempts", st.RecoveryAttempts,
		"app_launch_attempts", st.AppLaunchAttempts,
		"session_active", st.SessionActive,
		"bytes_received", st.BytesReceived,
		"total_size", st.TotalSize,
	)
}

// statusPayload renders the extended-form GET_STATUS response: the current
// state name, length-prefixed like GET_VERSION's strings, followed by
// bytes_received and total_size as big-endian uint32 values.
func (s *Supervisor) statusPayload() []byte {
	st := s.statsLocked()
	out := make([]byte, 0, 16)
	out = append(out, byte(len(st.State)))
	out = append(out, st.State...)
	out = append(out,
		byte(st.BytesReceived>>24), byte(st.BytesReceived>>16), byte(st.BytesReceived>>8), byte(st.BytesReceived),
		byte(st.TotalSize>>24), byte(st.TotalSize>>16), byte(st.TotalSize>>8), byte(st.TotalSize),
	)
	return out
}
