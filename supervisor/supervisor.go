// Package supervisor implements the bootloader core's state machine: a
// single Supervisor that accepts packets into a bounded queue and drains
// them on process_cycle, dispatching each against the admissible-
// transitions table and its current session.
package supervisor

import (
	"fmt"
	"sync"

	"github.com/fenwick-embedded/dfucore/config"
	"github.com/fenwick-embedded/dfucore/protocol"
	"github.com/fenwick-embedded/dfucore/queue"
)

// Supervisor drives the bootloader's entire lifecycle. All exported
// methods are safe for concurrent use; ReceivePacket is expected to be
// called from the transport's receive path and ProcessCycle from a
// single driving loop, per §5's single-writer-per-field discipline.
type Supervisor struct {
	cfg  config.Config
	caps Capabilities

	mu sync.Mutex

	queue *queue.Ring

	state         State
	previousState State

	stateEntryTime   uint64
	lastActivityTime uint64

	forceBootloaderMode bool

	session session

	packetsProcessed  uint64
	packetsDropped    uint64
	errorCount        uint64
	recoveryAttempts  uint64
	appLaunchAttempts uint64
}

// New constructs a Supervisor in IDLE. It panics if any required
// capability (Flash, Clock, Link) is nil — these are wiring bugs, not
// runtime conditions a caller can recover from. A zero-value cfg is
// replaced with config.Default(), per the initialisation contract: a
// caller that passes the zero value still gets the documented defaults,
// not a supervisor that NACKs and errors on its first packet.
func New(cfg config.Config, caps Capabilities) *Supervisor {
	if caps.Flash == nil {
		panic("supervisor: Capabilities.Flash is required")
	}
	if caps.Clock == nil {
		panic("supervisor: Capabilities.Clock is required")
	}
	if caps.Link == nil {
		panic("supervisor: Capabilities.Link is required")
	}
	if cfg == (config.Config{}) {
		cfg = config.Default()
	}

	s := &Supervisor{
		cfg:   cfg,
		caps:  caps,
		state: StateIdle,
	}
	s.queue = queue.New(s.onQueueDrop)
	s.stateEntryTime = caps.Clock.NowMicros()
	s.lastActivityTime = s.stateEntryTime
	return s
}

// onQueueDrop is passed to queue.New as the back-pressure callback. It
// always fires synchronously from within ReceivePacket, which already
// holds s.mu, so it must not re-lock.
func (s *Supervisor) onQueueDrop() {
	s.packetsDropped++
	s.caps.logger().Warn("packet dropped, queue full", "packets_dropped", s.packetsDropped)
	if s.packetsDropped > uint64(s.cfg.MaxQueueDrops) && s.state != StateEmergencyRecovery {
		s.transitionTo(StateEmergencyRecovery)
	}
}

// Reinit clears force_bootloader_mode. Per §4.4 this flag only clears on
// an explicit reinitialization, never as a side effect of any ordinary
// state transition.
func (s *Supervisor) Reinit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceBootloaderMode = false
}

// ReceivePacket copies b into the inbound queue. It returns false if the
// queue was full and the packet was dropped; the caller is not expected
// to retry, per the ring's drop-and-count back-pressure semantics.
func (s *Supervisor) ReceivePacket(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := s.queue.Enqueue(b)
	if accepted {
		s.lastActivityTime = s.caps.Clock.NowMicros()
	}
	return accepted
}

// ProcessCycle advances the Supervisor by one tick: timeout checks, a
// flash-completion poll, state-specific background work, then a full
// drain of the inbound queue. now is the caller's current clock reading,
// used for every timeout check in the cycle; state-entry times recorded by
// transitions are read from caps.Clock instead.
func (s *Supervisor) ProcessCycle(now uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkTimeouts(now)
	s.caps.Flash.IsOperationComplete()
	s.runBackgroundWork()
	s.drainQueue()
}

func (s *Supervisor) checkTimeouts(now uint64) {
	elapsed := elapsedMicros(s.stateEntryTime, now)

	switch s.state {
	case StateDFUActive:
		if sinceActivity := elapsedMicros(s.lastActivityTime, now); s.session.active && sinceActivity > uint64(s.cfg.SessionTimeout.Microseconds()) {
			s.caps.logger().Warn("session timed out", "elapsed_us", sinceActivity)
			s.transitionTo(StateError)
		}
	case StateDFUVerify:
		if elapsed > uint64(s.cfg.ValidationTimeout.Microseconds()) {
			s.caps.logger().Warn("verification timed out")
			s.transitionTo(StateError)
		}
	case StateError:
		if elapsed >= uint64(s.cfg.ErrorSelfHeal.Microseconds()) {
			s.transitionTo(StateIdle)
		}
	case StateEmergencyRecovery:
		if elapsed >= uint64(s.cfg.RecoverySelfHeal.Microseconds()) {
			s.packetsDropped = 0
			s.errorCount = 0
			s.transitionTo(StateIdle)
		}
	}
}

// elapsedMicros returns now-since, saturating at 0 if the clock somehow
// reports a regression (the Manual test double permits rewinding).
func elapsedMicros(since, now uint64) uint64 {
	if now < since {
		return 0
	}
	return now - since
}

// runBackgroundWork performs the one piece of autonomous, non-dispatch
// progress each state makes per cycle.
func (s *Supervisor) runBackgroundWork() {
	switch s.state {
	case StateDFUVerify:
		s.verifyImage()
	case StateRunningApp:
		// Entry already launched the application; a simulated core has
		// nothing further to run, so the next cycle returns to IDLE.
		s.transitionTo(StateIdle)
	}
}

func (s *Supervisor) verifyImage() {
	data, err := s.caps.Flash.ReadBack(s.cfg.ApplicationStart, s.session.bytesReceived)
	if err != nil {
		s.caps.logger().Error("verify read-back failed", "err", fmt.Errorf("verify: read-back: %w", err))
		s.transitionTo(StateError)
		return
	}
	actual := protocol.CalculateCRC16(data)
	// Cross-check against both the CRC the peer declared at START_SESSION
	// and the CRC folded incrementally as DATA packets arrived: a mismatch
	// against the latter without one against the former would mean the
	// write path and the read-back path disagree on what was written.
	if actual != s.session.expectedCRC || actual != s.session.runningCRC {
		err := fmt.Errorf("verify: %w", &protocol.ChecksumMismatchError{Expected: s.session.expectedCRC, Actual: actual})
		s.caps.logger().Error("verify checksum mismatch", "err", err, "running_crc", s.session.runningCRC)
		s.transitionTo(StateError)
		return
	}
	s.transitionTo(StateRunningApp)
}

// drainQueue dequeues and dispatches every packet currently buffered.
// packetsProcessed counts every dequeue, regardless of the dispatch
// outcome, matching the "processed" counter's literal meaning: work the
// Supervisor took off the queue, not work it accepted.
func (s *Supervisor) drainQueue() {
	for {
		pkt, ok := s.queue.Dequeue()
		if !ok {
			return
		}
		s.packetsProcessed++
		outcome := s.dispatchPacket(&pkt)
		s.applyOutcome(pkt.Type(), outcome)
	}
}

func (s *Supervisor) applyOutcome(pktType byte, outcome protocol.Outcome) {
	switch {
	case pktType == protocol.TypeGetStatus && outcome.Respond == protocol.RespondAck:
		// dispatchGlobal returns a bare ack for GET_STATUS; only
		// ProcessCycle has the live counters needed for the extended form.
		s.caps.Link.SendAckPayload(s.statusPayload())
	case pktType == protocol.TypeGetVersion && outcome.Respond == protocol.RespondAck:
		s.caps.Link.SendAckPayload(protocol.VersionInfo{Protocol: ProtocolVersion, Build: BuildID}.Encode())
	case outcome.Respond == protocol.RespondAck:
		s.caps.Link.SendAck()
	case outcome.Respond == protocol.RespondAckPayload:
		s.caps.Link.SendAckPayload(outcome.Payload)
	case outcome.Respond == protocol.RespondNack:
		s.caps.Link.SendNack(outcome.NackCode)
	}

	if outcome.HasTransition {
		s.transitionTo(State(outcome.NextState))
	}
}

// transitionTo moves the Supervisor to target, forcing StateError if the
// move is not in the admissible-transitions table, then runs target's
// entry action. Must be called with s.mu held.
func (s *Supervisor) transitionTo(target State) {
	from := s.state
	if !isAdmissible(from, target) {
		s.caps.logger().Error("inadmissible transition, forcing ERROR",
			"from", from.String(), "to", target.String())
		target = StateError
	}

	s.previousState = from
	s.state = target
	s.stateEntryTime = s.caps.Clock.NowMicros()
	s.caps.logger().Info("state transition", "from", from.String(), "to", target.String())

	s.runEntryAction(target)
}

func (s *Supervisor) runEntryAction(state State) {
	switch state {
	case StateIdle:
		s.session.reset()
	case StateEmergencyRecovery:
		s.recoveryAttempts++
		s.forceBootloaderMode = true
		s.session.reset()
	case StateRunningApp:
		s.appLaunchAttempts++
		s.caps.launch()
	case StateError:
		s.errorCount++
	}
}
