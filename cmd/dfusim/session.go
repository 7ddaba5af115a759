package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fenwick-embedded/dfucore/clock"
	"github.com/fenwick-embedded/dfucore/config"
	"github.com/fenwick-embedded/dfucore/flash"
	"github.com/fenwick-embedded/dfucore/internal/image"
	"github.com/fenwick-embedded/dfucore/internal/logging"
	"github.com/fenwick-embedded/dfucore/protocol"
	"github.com/fenwick-embedded/dfucore/supervisor"
	"github.com/fenwick-embedded/dfucore/wire"
)

// dataChunkSize is the payload size dfusim splits a loaded image into,
// well under MaxPacketSize so any non-trivial image exercises more than
// one DATA packet.
const dataChunkSize = 64

// flashLatency is the simulated write latency dfusim's flash device
// models. A real peer would simply wait for an ACK before sending the
// next packet; dfusim sleeps a little past this latency between a
// flash-busy NACK and its retry so the retry is expected to land.
const flashLatency = 2 * time.Millisecond

// maxWaitCycles bounds how many ProcessCycle ticks dfusim waits for a
// single response before giving up on a hung core.
const maxWaitCycles = 1000

// tickMicros is the simulated clock's advance per cycle.
const tickMicros = 1000

// teeLink forwards every frame to an inner Link and, if raw is set,
// also writes the framed bytes a real peer would see.
type teeLink struct {
	recorder *wire.Recorder
	raw      wire.Link
}

func (t *teeLink) SendAck() {
	t.recorder.SendAck()
	if t.raw != nil {
		t.raw.SendAck()
	}
}

func (t *teeLink) SendAckPayload(payload []byte) {
	t.recorder.SendAckPayload(payload)
	if t.raw != nil {
		t.raw.SendAckPayload(payload)
	}
}

func (t *teeLink) SendNack(code byte) {
	t.recorder.SendNack(code)
	if t.raw != nil {
		t.raw.SendNack(code)
	}
}

// session drives one simulated DFU transfer, pacing itself on the core's
// ACK/NACK responses the way a real peer would rather than firing every
// packet at once — the 16-slot inbound queue would otherwise overflow on
// any image bigger than a handful of chunks.
type session struct {
	sup      *supervisor.Supervisor
	clk      *clock.Manual
	recorder *wire.Recorder
}

func newSession(cfg config.Config, logger logging.Logger, rawOut io.Writer) *session {
	clk := clock.NewManual(0)
	recorder := wire.NewRecorder()

	link := &teeLink{recorder: recorder}
	if rawOut != nil {
		link.raw = wire.NewStreamLink(rawOut)
	}

	sup := supervisor.New(cfg, supervisor.Capabilities{
		Flash:  flash.NewSimulated(flashLatency),
		Clock:  clk,
		Link:   link,
		Logger: logger,
	})
	return &session{sup: sup, clk: clk, recorder: recorder}
}

// sendAndWait enqueues pkt and cycles the core until it produces a new
// response frame, returning that frame.
func (s *session) sendAndWait(pkt []byte) (wire.Frame, error) {
	before := len(s.recorder.Frames)
	s.sup.ReceivePacket(pkt)

	for i := 0; i < maxWaitCycles; i++ {
		s.clk.Advance(tickMicros)
		s.sup.ProcessCycle(s.clk.NowMicros())
		if len(s.recorder.Frames) > before {
			return s.recorder.Frames[len(s.recorder.Frames)-1], nil
		}
	}
	return wire.Frame{}, fmt.Errorf("dfusim: no response within %d cycles", maxWaitCycles)
}

// sendData sends one DATA chunk, retrying on a flash-busy NACK until it
// is accepted or a real error NACK arrives.
func (s *session) sendData(seq byte, chunk []byte) error {
	for {
		frame, err := s.sendAndWait(protocol.BuildPacket(seq, protocol.TypeData, chunk))
		if err != nil {
			return err
		}
		if frame.Ack {
			return nil
		}
		if frame.NackCode != protocol.ErrFlashBusy {
			return fmt.Errorf("dfusim: DATA seq %d rejected: %s", seq, protocol.NackName(frame.NackCode))
		}
		time.Sleep(flashLatency + time.Millisecond)
	}
}

// runUntilSettled cycles the core, with no further packets pending,
// until it reaches RUNNING_APP->IDLE or ERROR, or the cycle budget runs
// out.
func (s *session) runUntilSettled() supervisor.Stats {
	for i := 0; i < maxCycles; i++ {
		s.clk.Advance(tickMicros)
		s.sup.ProcessCycle(s.clk.NowMicros())

		st := s.sup.Stats()
		if st.State == "ERROR" {
			return st
		}
		if st.State == "IDLE" && st.PreviousState == "RUNNING_APP" {
			return st
		}
	}
	return s.sup.Stats()
}

// maxCycles bounds runUntilSettled's patience for a core stuck cycling
// between states.
const maxCycles = 10000

// runSession loads imagePath and drives it through a full simulated DFU
// session, pacing DATA packets on the core's own ACK/NACK responses. If
// rawOut is non-nil, every frame the core emits is also written there in
// the framed byte form a real peer would see.
func runSession(cfg config.Config, imagePath string, logger logging.Logger, rawOut io.Writer) (supervisor.Stats, error) {
	data, err := image.Load(imagePath)
	if err != nil {
		return supervisor.Stats{}, fmt.Errorf("dfusim: loading image: %w", err)
	}
	if len(data) == 0 {
		return supervisor.Stats{}, fmt.Errorf("dfusim: image %s is empty", imagePath)
	}

	s := newSession(cfg, logger, rawOut)
	crc := protocol.CalculateCRC16(data)

	startFrame, err := s.sendAndWait(protocol.BuildPacket(0, protocol.TypeStartSession, protocol.BuildStartSession(uint32(len(data)), crc)))
	if err != nil {
		return supervisor.Stats{}, err
	}
	if !startFrame.Ack {
		return supervisor.Stats{}, fmt.Errorf("dfusim: START_SESSION rejected: %s", protocol.NackName(startFrame.NackCode))
	}

	seq := byte(1)
	for offset := 0; offset < len(data); offset += dataChunkSize {
		end := offset + dataChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := s.sendData(seq, data[offset:end]); err != nil {
			return supervisor.Stats{}, err
		}
		seq++
	}

	endFrame, err := s.sendAndWait(protocol.BuildPacket(seq, protocol.TypeEndSession, nil))
	if err != nil {
		return supervisor.Stats{}, err
	}
	if !endFrame.Ack {
		return supervisor.Stats{}, fmt.Errorf("dfusim: END_SESSION rejected: %s", protocol.NackName(endFrame.NackCode))
	}

	return s.runUntilSettled(), nil
}
