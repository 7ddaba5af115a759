package protocol

import "encoding/binary"

// StartSession is the parsed payload of a START_SESSION packet: a 32-bit
// total size followed by a 16-bit CRC, both big-endian on the wire.
type StartSession struct {
	TotalSize   uint32
	ExpectedCRC uint16
}

// ParseStartSession decodes a START_SESSION packet's payload. The caller
// must already have established the packet carries at least
// MinStartSessionPacketSize bytes.
func ParseStartSession(payload []byte) (StartSession, bool) {
	if len(payload) < StartSessionPayloadSize {
		return StartSession{}, false
	}
	return StartSession{
		TotalSize:   binary.BigEndian.Uint32(payload[0:4]),
		ExpectedCRC: binary.BigEndian.Uint16(payload[4:6]),
	}, true
}

// ValidSessionSize reports whether a declared total size is admissible:
// 0 < totalSize <= MaxImageSize.
func ValidSessionSize(totalSize uint32) bool {
	return totalSize > 0 && totalSize <= MaxImageSize
}

// BuildStartSession encodes a START_SESSION payload for use by test
// doubles and the CLI harness that drive the core as a peer would.
func BuildStartSession(totalSize uint32, expectedCRC uint16) []byte {
	payload := make([]byte, StartSessionPayloadSize)
	binary.BigEndian.PutUint32(payload[0:4], totalSize)
	binary.BigEndian.PutUint16(payload[4:6], expectedCRC)
	return payload
}

// BuildPacket assembles a full packet: sequence, type, and payload.
func BuildPacket(seq, typ byte, payload []byte) []byte {
	out := make([]byte, MinPacketSize+len(payload))
	out[0] = seq
	out[1] = typ
	copy(out[2:], payload)
	return out
}

// VersionInfo is the extended-form payload for GET_VERSION: a fixed build
// and protocol-version identifier.
type VersionInfo struct {
	Protocol string
	Build    string
}

// Encode renders VersionInfo as a length-prefixed pair of strings,
// suitable for attaching to an OutcomeAckPayload outcome.
func (v VersionInfo) Encode() []byte {
	out := make([]byte, 0, 2+len(v.Protocol)+len(v.Build))
	out = append(out, byte(len(v.Protocol)))
	out = append(out, v.Protocol...)
	out = append(out, byte(len(v.Build)))
	out = append(out, v.Build...)
	return out
}
