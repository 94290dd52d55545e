package att

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/user/blegatt/l2cap"
	"github.com/user/blegatt/logger"
)

// InvalidResponseError reports that the peer violated an ATT protocol
// invariant (a response opcode that does not answer the pending
// request, or a response with no request pending). It fails the
// operation that triggered it; conservative callers (this multiplexer
// included) also mark the connection failed.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string { return "att: invalid response: " + e.Reason }

// TransportError wraps a failure of the underlying link itself (a read
// or write error, or disconnection). It is always fatal to the whole
// connection.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("att: transport failure: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// Multiplexer owns the single L2CAP link for a connection, runs its
// read loop, and is the only writer to the link.
type Multiplexer struct {
	conn l2cap.Conn
	slot *Slot
	log  *logger.Prefixed

	writeMu sync.Mutex

	mtuMu        sync.Mutex
	mtu          uint16
	mtuExchanged bool

	unsolicited atomic.Value // func(interface{})

	failedMu sync.Mutex
	failed   error

	stopped chan struct{}
	once    sync.Once
}

// NewMultiplexer creates a multiplexer over conn. Call Run to start its
// read loop; it does not start itself so the façade can finish wiring
// its unsolicited handler first.
func NewMultiplexer(conn l2cap.Conn, log *logger.Prefixed) *Multiplexer {
	m := &Multiplexer{
		conn:    conn,
		slot:    NewSlot(),
		log:     log,
		mtu:     l2cap.DefaultMTU,
		stopped: make(chan struct{}),
	}
	m.slot.OnTimeout(func(opcode uint8, handle Handle) {
		m.markFailed(&TransportError{Err: fmt.Errorf("request timeout (opcode 0x%02X, handle %s)", opcode, handle)})
	})
	return m
}

// SetUnsolicitedHandler installs the callback invoked for every
// server-initiated PDU (notification or indication). For an indication,
// the multiplexer has already written HANDLE_VALUE_CONFIRMATION and the
// write has completed before this handler is called.
func (m *Multiplexer) SetUnsolicitedHandler(fn func(pdu interface{})) {
	m.unsolicited.Store(fn)
}

// Run drives the read loop until the link closes or a fatal protocol
// violation is observed. It blocks; callers run it in its own goroutine.
func (m *Multiplexer) Run() {
	defer func() {
		m.markFailed(&TransportError{Err: fmt.Errorf("connection closed")})
		m.once.Do(func() { close(m.stopped) })
	}()

	for {
		pkt, err := m.conn.ReadPacket()
		if err != nil {
			m.markFailed(&TransportError{Err: err})
			return
		}
		if pkt.ChannelID != l2cap.ChannelATT {
			continue // LE signalling / SMP: out of scope
		}
		decoded, err := DecodePacket(pkt.Payload)
		if err != nil {
			m.log.Warn("dropping unparseable ATT PDU: %v", err)
			continue
		}
		m.log.TraceJSON("rx", decoded)
		if err := m.dispatch(decoded); err != nil {
			m.markFailed(err)
			return
		}
	}
}

// Stopped is closed once Run has returned.
func (m *Multiplexer) Stopped() <-chan struct{} { return m.stopped }

func (m *Multiplexer) dispatch(pdu interface{}) error {
	switch p := pdu.(type) {
	case *HandleValueNotification:
		m.invokeUnsolicited(p)
		return nil

	case *HandleValueIndication:
		// Confirmation must be sent, and its write must complete,
		// before the callback is invoked - never in a detached
		// goroutine racing the callback.
		if _, err := m.writeRaw(&HandleValueConfirmation{}); err != nil {
			return &TransportError{Err: err}
		}
		m.invokeUnsolicited(p)
		return nil

	case *ErrorResponse:
		if err := m.slot.Complete(OpErrorResponse, p); err != nil {
			return &InvalidResponseError{Reason: err.Error()}
		}
		return nil

	default:
		opcode, err := OpcodeOf(pdu)
		if err != nil {
			return &InvalidResponseError{Reason: err.Error()}
		}
		if err := m.slot.Complete(opcode, pdu); err != nil {
			return &InvalidResponseError{Reason: err.Error()}
		}
		return nil
	}
}

func (m *Multiplexer) invokeUnsolicited(pdu interface{}) {
	fn, _ := m.unsolicited.Load().(func(interface{}))
	if fn == nil {
		return
	}
	fn(pdu)
}

// SendRequestAndAwaitResponse registers the pending-request slot before
// writing anything to the wire, since the continuation must exist
// before the request can possibly be answered, then sends pdu and waits
// for either the matching response, an ATT error response (returned as
// *Error), ctx cancellation, or the request timeout.
func (m *Multiplexer) SendRequestAndAwaitResponse(ctx context.Context, opcode uint8, handle Handle, pdu interface{}) (interface{}, error) {
	if failed := m.Failed(); failed != nil {
		return nil, failed
	}

	resultC, err := m.slot.Start(opcode, handle, 0)
	if err != nil {
		return nil, err
	}

	if _, err := m.writeRaw(pdu); err != nil {
		m.slot.Fail(err)
		return nil, err
	}

	select {
	case res := <-resultC:
		if res.Err != nil {
			return nil, res.Err
		}
		if errResp, ok := res.Packet.(*ErrorResponse); ok {
			return nil, &Error{Code: errResp.ErrorCode, RequestOpcode: errResp.RequestOpcode, Handle: errResp.Handle}
		}
		return res.Packet, nil
	case <-ctx.Done():
		// The caller detaches, but the slot stays registered: the
		// eventual response still lands in resultC's buffer-of-1 and
		// is drained, just unobserved. Nothing else to do here.
		return nil, ctx.Err()
	}
}

// SendCommand writes a command PDU (WRITE_CMD, SIGNED_WRITE_CMD) with
// no response expected; it bypasses the request slot entirely.
func (m *Multiplexer) SendCommand(pdu interface{}) error {
	if failed := m.Failed(); failed != nil {
		return failed
	}
	_, err := m.writeRaw(pdu)
	return err
}

func (m *Multiplexer) writeRaw(pdu interface{}) (int, error) {
	payload, err := EncodePacket(pdu)
	if err != nil {
		return 0, errors.Wrap(err, "att: encode")
	}
	m.log.TraceJSON("tx", pdu)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := m.conn.WritePacket(l2cap.NewATTPacket(payload)); err != nil {
		return 0, &TransportError{Err: err}
	}
	return len(payload), nil
}

// ExchangeMTU performs the one-shot ATT_EXCHANGE_MTU_REQ/RSP exchange
// and applies the min(client,server) rule, floored at the default MTU.
// It runs at most once per connection: a call after a completed
// exchange fails without sending anything.
func (m *Multiplexer) ExchangeMTU(ctx context.Context, clientRxMTU uint16) (uint16, error) {
	if m.MTUExchanged() {
		return m.MTU(), fmt.Errorf("att: MTU already exchanged on this connection")
	}
	if clientRxMTU < l2cap.DefaultMTU {
		clientRxMTU = l2cap.DefaultMTU
	}
	rsp, err := m.SendRequestAndAwaitResponse(ctx, OpExchangeMTURequest, HandleInvalid, &ExchangeMTURequest{ClientRxMTU: clientRxMTU})
	if err != nil {
		return m.MTU(), err
	}
	serverMTU := rsp.(*ExchangeMTUResponse).ServerRxMTU

	negotiated := clientRxMTU
	if serverMTU < negotiated {
		negotiated = serverMTU
	}
	if negotiated < l2cap.DefaultMTU {
		negotiated = l2cap.DefaultMTU
	}

	m.mtuMu.Lock()
	m.mtu = negotiated
	m.mtuExchanged = true
	m.mtuMu.Unlock()

	return negotiated, nil
}

// MTU returns the currently negotiated ATT_MTU.
func (m *Multiplexer) MTU() uint16 {
	m.mtuMu.Lock()
	defer m.mtuMu.Unlock()
	return m.mtu
}

// MTUExchanged reports whether an MTU exchange has completed.
func (m *Multiplexer) MTUExchanged() bool {
	m.mtuMu.Lock()
	defer m.mtuMu.Unlock()
	return m.mtuExchanged
}

// Failed returns the error that marked the connection failed, or nil.
func (m *Multiplexer) Failed() error {
	m.failedMu.Lock()
	defer m.failedMu.Unlock()
	return m.failed
}

func (m *Multiplexer) markFailed(err error) {
	m.failedMu.Lock()
	if m.failed == nil {
		m.failed = err
	}
	m.failedMu.Unlock()
	m.slot.FailAll(err)
}

// Close closes the underlying link. Any pending request fails with a
// cancellation error.
func (m *Multiplexer) Close() error {
	m.slot.Cancel()
	return m.conn.Close()
}
