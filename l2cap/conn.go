package l2cap

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
)

// Conn is the downward interface the ATT multiplexer is built on: a
// reliable, ordered byte-stream carrying length-framed L2CAP packets,
// plus the two pieces of connection state the multiplexer needs
// (the local receive MTU it advertises, and a disconnect signal).
//
// This is deliberately narrow: establishing the underlying link
// (HCI, a kernel Bluetooth socket, a simulated peer) is out of scope
// for this module. Anything that can read/write length-framed L2CAP
// packets can satisfy this interface.
type Conn interface {
	// ReadPacket blocks until the next L2CAP packet arrives, or returns
	// an error (including io.EOF) when the link is gone.
	ReadPacket() (*Packet, error)
	// WritePacket sends one L2CAP packet.
	WritePacket(p *Packet) error
	// LocalMTU is the MTU this side is prepared to receive.
	LocalMTU() uint16
	// Disconnected is closed once the link is gone; ReadPacket will
	// also have returned an error by then, but callers that only care
	// about liveness (not inbound PDUs) can select on this directly.
	Disconnected() <-chan struct{}
	Close() error
}

// streamConn frames an arbitrary io.ReadWriteCloser (a Unix domain
// socket standing in for a kernel L2CAP/HCI socket, same as the
// net.Conn this module's teacher framed its own simulated links with)
// with the length-prefixed packet format in packet.go.
type streamConn struct {
	rw       io.ReadWriteCloser
	localMTU uint16

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// NewConn wraps rw as an L2CAP Conn. localMTU is the MTU advertised to
// the peer during ATT MTU exchange; it is not enforced on inbound reads
// here, since the ultimate receive buffer bound is the caller's.
func NewConn(rw io.ReadWriteCloser, localMTU uint16) Conn {
	if localMTU < MinMTU {
		localMTU = DefaultMTU
	}
	return &streamConn{rw: rw, localMTU: localMTU, done: make(chan struct{})}
}

func (c *streamConn) ReadPacket() (*Packet, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(c.rw, header[:]); err != nil {
		c.signalClosed()
		return nil, err
	}
	length := binary.LittleEndian.Uint16(header[0:2])
	channelID := binary.LittleEndian.Uint16(header[2:4])
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(c.rw, payload); err != nil {
			c.signalClosed()
			return nil, err
		}
	}
	return &Packet{ChannelID: channelID, Payload: payload}, nil
}

func (c *streamConn) WritePacket(p *Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.rw.Write(p.Encode())
	if err != nil {
		c.signalClosed()
	}
	return err
}

func (c *streamConn) LocalMTU() uint16 { return c.localMTU }

func (c *streamConn) Disconnected() <-chan struct{} { return c.done }

func (c *streamConn) Close() error {
	c.signalClosed()
	return c.rw.Close()
}

func (c *streamConn) signalClosed() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Loopback returns two Conns connected to each other in-process, for
// tests and for driving cmd/gattctl without a real controller. It is
// the client/server pairing currantlabs-ble's simulated net.Conn-backed
// links and this module's teacher's Unix-socket-backed Connections both
// stand in for; here it's a plain net.Pipe, no socket file needed.
func Loopback(mtuA, mtuB uint16) (a, b Conn) {
	pa, pb := net.Pipe()
	return NewConn(pa, mtuA), NewConn(pb, mtuB)
}
