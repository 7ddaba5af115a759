package supervisor

import "github.com/fenwick-embedded/dfucore/protocol"

// session is the per-transfer state, populated on START_SESSION and
// cleared on IDLE entry.
type session struct {
	totalSize     uint32
	expectedCRC   uint16
	expectedSeq   byte
	bytesReceived uint32
	runningCRC    uint16
	active        bool
}

// reset clears the session to its IDLE-entry state.
func (s *session) reset() {
	*s = session{}
}

// start populates the session from an accepted START_SESSION.
func (s *session) start(ss protocol.StartSession) {
	s.totalSize = ss.TotalSize
	s.expectedCRC = ss.ExpectedCRC
	s.expectedSeq = 1
	s.bytesReceived = 0
	s.runningCRC = protocol.CRC16Seed
	s.active = true
}
