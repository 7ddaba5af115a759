package supervisor

import (
	"testing"
	"time"

	"github.com/fenwick-embedded/dfucore/clock"
	"github.com/fenwick-embedded/dfucore/config"
	"github.com/fenwick-embedded/dfucore/flash"
	"github.com/fenwick-embedded/dfucore/protocol"
	"github.com/fenwick-embedded/dfucore/wire"
)

func TestDispatchGlobalPing(t *testing.T) {
	pkt := protocol.NewPacket(protocol.BuildPacket(1, protocol.TypePing, nil))
	outcome, handled := dispatchGlobal(StateIdle, &pkt)
	if !handled {
		t.Fatal("expected PING to be handled globally")
	}
	if outcome.Respond != protocol.RespondAck {
		t.Fatalf("expected bare ack, got %s", outcome)
	}
}

func TestDispatchGlobalEmergencyResetFromAnyState(t *testing.T) {
	for _, st := range []State{StateIdle, StateDFUActive, StateDFUVerify, StateRunningApp, StateError} {
		pkt := protocol.NewPacket(protocol.BuildPacket(1, protocol.TypeEmergencyReset, nil))
		outcome, handled := dispatchGlobal(st, &pkt)
		if !handled || !outcome.HasTransition || outcome.NextState != int(StateEmergencyRecovery) {
			t.Fatalf("from %s: expected transition to EMERGENCY_RECOVERY, got %s", st, outcome)
		}
	}
}

func TestDispatchGlobalAbortOnlyInDFUActive(t *testing.T) {
	pkt := protocol.NewPacket(protocol.BuildPacket(1, protocol.TypeAbort, nil))

	outcome, handled := dispatchGlobal(StateDFUActive, &pkt)
	if !handled || outcome.Respond != protocol.RespondAck || !outcome.HasTransition || outcome.NextState != int(StateIdle) {
		t.Fatalf("expected ack+transition to IDLE from DFU_ACTIVE, got %s", outcome)
	}

	if _, handled := dispatchGlobal(StateIdle, &pkt); handled {
		t.Fatal("ABORT should not be globally handled outside DFU_ACTIVE")
	}
}

func newTestSupervisor() *Supervisor {
	return New(config.Default(), Capabilities{
		Flash: flash.NewSimulated(time.Millisecond),
		Clock: clock.NewManual(0),
		Link:  wire.NewRecorder(),
	})
}

func TestDispatchIdleAcceptsStartSession(t *testing.T) {
	s := newTestSupervisor()
	payload := protocol.BuildStartSession(64, 0x1234)
	pkt := protocol.NewPacket(protocol.BuildPacket(0, protocol.TypeStartSession, payload))

	outcome := s.dispatchPacket(&pkt)
	if outcome.Respond != protocol.RespondAck || !outcome.HasTransition || outcome.NextState != int(StateDFUActive) {
		t.Fatalf("expected ack+transition to DFU_ACTIVE, got %s", outcome)
	}
	if !s.session.active || s.session.totalSize != 64 || s.session.expectedCRC != 0x1234 {
		t.Fatalf("session not populated correctly: %+v", s.session)
	}
}

func TestDispatchIdleRejectsOversizeSession(t *testing.T) {
	s := newTestSupervisor()
	payload := protocol.BuildStartSession(s.cfg.MaxImageSize+1, 0)
	pkt := protocol.NewPacket(protocol.BuildPacket(0, protocol.TypeStartSession, payload))

	outcome := s.dispatchPacket(&pkt)
	if outcome.Respond != protocol.RespondNack || outcome.NackCode != protocol.ErrInvalidSessionSize {
		t.Fatalf("expected ErrInvalidSessionSize nack, got %s", outcome)
	}
}

func TestDispatchDataSequenceErrorEscalatesAfterLimit(t *testing.T) {
	s := newTestSupervisor()
	s.session.start(protocol.StartSession{TotalSize: 100, ExpectedCRC: 0})
	s.state = StateDFUActive

	var last protocol.Outcome
	for i := 0; i < int(s.cfg.MaxSequenceErrors)+1; i++ {
		bad := protocol.NewPacket(protocol.BuildPacket(0xFF, protocol.TypeData, []byte{1, 2, 3}))
		last = s.dispatchPacket(&bad)
	}

	if !last.HasTransition || last.NextState != int(StateEmergencyRecovery) {
		t.Fatalf("expected escalation to EMERGENCY_RECOVERY after repeated sequence errors, got %s", last)
	}
}

func TestDispatchDataFlashBusyNacks(t *testing.T) {
	tf := flash.NewSimulated(time.Hour)
	s := New(config.Default(), Capabilities{
		Flash: tf,
		Clock: clock.NewManual(0),
		Link:  wire.NewRecorder(),
	})
	s.session.start(protocol.StartSession{TotalSize: 100, ExpectedCRC: 0})
	s.state = StateDFUActive

	first := protocol.NewPacket(protocol.BuildPacket(1, protocol.TypeData, []byte{1, 2, 3}))
	if outcome := s.dispatchPacket(&first); outcome.Respond != protocol.RespondAck {
		t.Fatalf("expected first write to be accepted, got %s", outcome)
	}

	second := protocol.NewPacket(protocol.BuildPacket(2, protocol.TypeData, []byte{4, 5, 6}))
	outcome := s.dispatchPacket(&second)
	if outcome.Respond != protocol.RespondNack || outcome.NackCode != protocol.ErrFlashBusy {
		t.Fatalf("expected ErrFlashBusy nack while the first write is still in flight, got %s", outcome)
	}
}

func TestDispatchEndSessionIncompleteForcesError(t *testing.T) {
	s := newTestSupervisor()
	s.session.start(protocol.StartSession{TotalSize: 100, ExpectedCRC: 0})
	s.session.bytesReceived = 50
	s.state = StateDFUActive

	pkt := protocol.NewPacket(protocol.BuildPacket(1, protocol.TypeEndSession, nil))
	outcome := s.dispatchPacket(&pkt)
	if outcome.Respond != protocol.RespondNack || outcome.NackCode != protocol.ErrIncompleteTransfer {
		t.Fatalf("expected ErrIncompleteTransfer nack, got %s", outcome)
	}
	if !outcome.HasTransition || outcome.NextState != int(StateError) {
		t.Fatalf("expected transition to ERROR, got %s", outcome)
	}
}
