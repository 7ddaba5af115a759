package supervisor

import (
	"fmt"

	"github.com/fenwick-embedded/dfucore/protocol"
)

// dispatchGlobal implements the five packet types handled the same way
// regardless of current state (ABORT only while in DFU_ACTIVE). It is a pure function of (state, packet) —
// no collaborator, no Supervisor mutation — so it is directly testable in
// isolation, per the design note calling for dispatch logic that does not
// sprinkle side-effectful send/enter calls through itself.
func dispatchGlobal(state State, pkt *protocol.Packet) (protocol.Outcome, bool) {
	switch pkt.Type() {
	case protocol.TypePing:
		return protocol.OutcomeAck(), true
	case protocol.TypeGetStatus:
		// Bare ack here; ProcessCycle attaches the extended-form status
		// payload, since that requires live Supervisor counters this
		// function intentionally has no access to.
		return protocol.OutcomeAck(), true
	case protocol.TypeGetVersion:
		return protocol.OutcomeAck(), true
	case protocol.TypeEmergencyReset:
		return protocol.OutcomeTransition(int(StateEmergencyRecovery)), true
	case protocol.TypeAbort:
		if state == StateDFUActive {
			return protocol.OutcomeAckAndTransition(int(StateIdle)), true
		}
		return protocol.Outcome{}, false
	default:
		return protocol.Outcome{}, false
	}
}

// dispatchPacket routes one packet through the global rules and then, if
// unhandled, the current state's own rules. Unlike dispatchGlobal this is
// a Supervisor method: START_SESSION/DATA/END_SESSION/JUMP_APP need to
// read (and, on success, mutate) live session state and query the flash
// driver, which a pure function cannot do.
func (s *Supervisor) dispatchPacket(pkt *protocol.Packet) protocol.Outcome {
	if pkt.Len() < protocol.MinPacketSize {
		return protocol.OutcomeNack(protocol.ErrInvalidPacket)
	}

	if outcome, handled := dispatchGlobal(s.state, pkt); handled {
		return outcome
	}

	switch s.state {
	case StateIdle:
		return s.dispatchIdle(pkt)
	case StateDFUActive:
		return s.dispatchDFUActive(pkt)
	case StateDFUVerify, StateRunningApp, StateError:
		return protocol.OutcomeNack(protocol.ErrInvalidState)
	case StateEmergencyRecovery:
		return protocol.OutcomeNack(protocol.ErrEmergencyOnly)
	default:
		return protocol.OutcomeNack(protocol.ErrUnknown)
	}
}

// dispatchIdle handles START_SESSION and JUMP_APP, the only two packet
// types accepted from IDLE.
func (s *Supervisor) dispatchIdle(pkt *protocol.Packet) protocol.Outcome {
	switch pkt.Type() {
	case protocol.TypeStartSession:
		return s.dispatchStartSession(pkt)
	case protocol.TypeJumpApp:
		if s.forceBootloaderMode {
			return protocol.OutcomeNack(protocol.ErrBootloaderForced)
		}
		return protocol.OutcomeTransition(int(StateDFUVerify))
	default:
		return protocol.OutcomeNack(protocol.ErrInvalidPacket)
	}
}

func (s *Supervisor) dispatchStartSession(pkt *protocol.Packet) protocol.Outcome {
	if s.forceBootloaderMode {
		return protocol.OutcomeNack(protocol.ErrBootloaderForced)
	}
	if pkt.Len() < protocol.MinStartSessionPacketSize {
		return protocol.OutcomeNack(protocol.ErrInvalidPacket)
	}

	ss, ok := protocol.ParseStartSession(pkt.Payload())
	if !ok {
		return protocol.OutcomeNack(protocol.ErrInvalidPacket)
	}
	if !protocol.ValidSessionSize(ss.TotalSize) || ss.TotalSize > s.cfg.MaxImageSize {
		return protocol.OutcomeNack(protocol.ErrInvalidSessionSize)
	}

	s.session.start(ss)
	return protocol.OutcomeAckAndTransition(int(StateDFUActive))
}

// dispatchDFUActive handles DATA and END_SESSION, the only two packet
// types accepted in DFU_ACTIVE beyond the global set.
func (s *Supervisor) dispatchDFUActive(pkt *protocol.Packet) protocol.Outcome {
	switch pkt.Type() {
	case protocol.TypeData:
		return s.dispatchData(pkt)
	case protocol.TypeEndSession:
		return s.dispatchEndSession()
	default:
		return protocol.OutcomeNack(protocol.ErrInvalidTypeInActive)
	}
}

func (s *Supervisor) dispatchData(pkt *protocol.Packet) protocol.Outcome {
	if pkt.Sequence() != s.session.expectedSeq {
		s.errorCount++
		err := fmt.Errorf("data dispatch: %w", &protocol.NackError{Code: protocol.ErrSequence})
		s.caps.logger().Warn("sequence error",
			"err", err, "got", pkt.Sequence(), "want", s.session.expectedSeq, "error_count", s.errorCount)
		if s.errorCount > uint64(s.cfg.MaxSequenceErrors) {
			return protocol.OutcomeNackAndTransition(protocol.ErrSequence, int(StateEmergencyRecovery))
		}
		return protocol.OutcomeNack(protocol.ErrSequence)
	}

	payload := pkt.Payload()
	address := s.cfg.ApplicationStart + s.session.bytesReceived

	if !s.caps.Flash.StartWrite(address, payload) {
		return protocol.OutcomeNack(protocol.ErrFlashBusy)
	}

	s.session.runningCRC = protocol.UpdateCRC16(s.session.runningCRC, payload)
	s.session.bytesReceived += uint32(len(payload))
	s.session.expectedSeq++
	return protocol.OutcomeAck()
}

func (s *Supervisor) dispatchEndSession() protocol.Outcome {
	if s.session.bytesReceived == s.session.totalSize {
		return protocol.OutcomeAckAndTransition(int(StateDFUVerify))
	}
	err := fmt.Errorf("end session: %w", &protocol.IncompleteTransferError{
		Received: s.session.bytesReceived,
		Total:    s.session.totalSize,
	})
	s.caps.logger().Error("incomplete transfer", "err", err)
	return protocol.OutcomeNackAndTransition(protocol.ErrIncompleteTransfer, int(StateError))
}
