// Package l2cap provides the minimal L2CAP framing this module needs to
// carry ATT PDUs over a byte-stream transport. The L2CAP protocol itself
// (channel management, connection-oriented channels, segmentation across
// multiple controller packets) is out of scope; this package only frames
// and de-frames the fixed ATT channel the way a real controller would
// hand frames to a host stack.
package l2cap

import (
	"encoding/binary"
	"fmt"
)

// Channel IDs relevant to an LE ATT bearer.
const (
	ChannelATT      uint16 = 0x0004 // Attribute Protocol
	ChannelLESignal uint16 = 0x0005 // LE L2CAP Signaling
	ChannelSMP      uint16 = 0x0006 // Security Manager Protocol
)

// MTU bounds per Bluetooth Core Spec Vol 3, Part G, Section 5.2.1.
const (
	DefaultMTU    = 23
	MinMTU        = 23
	MaxMTU        = 517
	HeaderLen            = 4 // Length (2 bytes) + Channel ID (2 bytes)
)

// Packet is a single L2CAP frame: [Length:2][ChannelID:2][Payload:N].
type Packet struct {
	ChannelID uint16
	Payload   []byte
}

// Encode serializes a Packet to its wire form.
func (p *Packet) Encode() []byte {
	buf := make([]byte, HeaderLen+len(p.Payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(p.Payload)))
	binary.LittleEndian.PutUint16(buf[2:4], p.ChannelID)
	copy(buf[4:], p.Payload)
	return buf
}

// Decode parses a complete frame (header + payload) from data.
func Decode(data []byte) (*Packet, error) {
	if len(data) < HeaderLen {
		return nil, fmt.Errorf("l2cap: frame too short (need %d bytes, got %d)", HeaderLen, len(data))
	}
	length := binary.LittleEndian.Uint16(data[0:2])
	channelID := binary.LittleEndian.Uint16(data[2:4])
	if len(data) < HeaderLen+int(length) {
		return nil, fmt.Errorf("l2cap: truncated frame (declared %d bytes, have %d)", length, len(data)-HeaderLen)
	}
	payload := make([]byte, length)
	copy(payload, data[4:4+length])
	return &Packet{ChannelID: channelID, Payload: payload}, nil
}

// NewATTPacket wraps an ATT PDU for the fixed ATT channel.
func NewATTPacket(payload []byte) *Packet {
	return &Packet{ChannelID: ChannelATT, Payload: payload}
}
