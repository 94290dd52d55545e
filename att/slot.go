package att

import (
	"fmt"
	"sync"
	"time"
)

// DefaultRequestTimeout is the ATT transaction timeout mandated by the
// Bluetooth Core Spec (30 seconds); expiry marks the link failed.
const DefaultRequestTimeout = 30 * time.Second

// Response is what a pending request resolves to: either the decoded
// response packet, or an error (ATT error response, invalid response,
// timeout, or cancellation).
type Response struct {
	Packet interface{}
	Err    error
}

// pendingRequest is one ATT request, either active (the slot's current
// outstanding request, matched against inbound responses) or waiting
// in the FIFO queue for its turn to become active.
type pendingRequest struct {
	opcode  uint8
	handle  Handle
	timeout time.Duration
	resultC chan Response
	sentAt  time.Time
	timer   *time.Timer

	// activated is closed once this request becomes the active one.
	// A Start call blocked in the queue waits on it before returning.
	activated chan struct{}
}

// Slot enforces the single-in-flight-request invariant: at most one
// request is ever active at a time. Concurrent Start calls queue FIFO
// and are activated, one at a time, in the order they arrived. It
// matches inbound responses to the active request.
type Slot struct {
	mu      sync.Mutex
	pending *pendingRequest
	queue   []*pendingRequest

	onTimeout func(opcode uint8, handle Handle)
}

// NewSlot creates an empty (no request outstanding) slot.
func NewSlot() *Slot {
	return &Slot{}
}

// OnTimeout installs a callback invoked when a request times out
// without a response (the multiplexer uses this to mark the link
// failed).
func (s *Slot) OnTimeout(fn func(opcode uint8, handle Handle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTimeout = fn
}

// Start waits its turn - immediately, if nothing is outstanding, or
// after every earlier Start call has completed, failed, or timed out
// otherwise - then becomes the active request and returns the channel
// its eventual Response will arrive on. Concurrent callers are served
// strictly in the order they called Start.
func (s *Slot) Start(opcode uint8, handle Handle, timeout time.Duration) (<-chan Response, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	pr := &pendingRequest{
		opcode:    opcode,
		handle:    handle,
		timeout:   timeout,
		resultC:   make(chan Response, 1),
		activated: make(chan struct{}),
	}

	s.mu.Lock()
	if s.pending == nil {
		s.activate(pr)
		s.mu.Unlock()
		return pr.resultC, nil
	}
	s.queue = append(s.queue, pr)
	s.mu.Unlock()

	<-pr.activated
	return pr.resultC, nil
}

// activate makes pr the active request and starts its timeout timer.
// Callers must hold s.mu.
func (s *Slot) activate(pr *pendingRequest) {
	pr.sentAt = time.Now()
	pr.timer = time.AfterFunc(pr.timeout, func() { s.timeout(pr) })
	s.pending = pr
	close(pr.activated)
}

// advance activates the next queued request, if any. Callers must
// hold s.mu and must have already cleared s.pending.
func (s *Slot) advance() {
	if len(s.queue) == 0 {
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.activate(next)
}

func (s *Slot) timeout(pr *pendingRequest) {
	s.mu.Lock()
	if s.pending != pr {
		s.mu.Unlock()
		return // already completed or failed
	}
	s.pending = nil
	onTimeout := s.onTimeout
	s.advance()
	s.mu.Unlock()

	pr.resultC <- Response{Err: fmt.Errorf("att: request timeout (opcode 0x%02X, handle %s)", pr.opcode, pr.handle)}
	close(pr.resultC)

	if onTimeout != nil {
		onTimeout(pr.opcode, pr.handle)
	}
}

// Complete delivers a successfully-decoded response to the active
// request. responseOpcode must be the canonical response for the
// active request's opcode, or OpErrorResponse - any other opcode is a
// protocol violation the caller should turn into invalid_response and
// leave the slot untouched (so the real response, if it ever arrives,
// is still rejected rather than silently accepted late).
func (s *Slot) Complete(responseOpcode uint8, packet interface{}) error {
	s.mu.Lock()
	pr := s.pending
	if pr == nil {
		s.mu.Unlock()
		return fmt.Errorf("att: no pending request for response opcode 0x%02X", responseOpcode)
	}
	expected := GetResponseOpcode(pr.opcode)
	if responseOpcode != expected && responseOpcode != OpErrorResponse {
		s.mu.Unlock()
		return fmt.Errorf("att: unexpected response opcode 0x%02X for request 0x%02X (expected 0x%02X)", responseOpcode, pr.opcode, expected)
	}
	s.pending = nil
	s.advance()
	s.mu.Unlock()

	pr.timer.Stop()
	pr.resultC <- Response{Packet: packet}
	close(pr.resultC)
	return nil
}

// Fail delivers err to the active request only and activates the next
// queued request, if any. Used for a failure specific to this one
// request (for example, an encode error for its own PDU) that doesn't
// by itself mean the connection is dead.
func (s *Slot) Fail(err error) {
	s.mu.Lock()
	pr := s.pending
	s.pending = nil
	if pr != nil {
		s.advance()
	}
	s.mu.Unlock()

	if pr == nil {
		return
	}
	pr.timer.Stop()
	pr.resultC <- Response{Err: err}
	close(pr.resultC)
}

// FailAll delivers err to the active request and to every request
// still waiting in the queue, without activating any of them. Used
// when the connection itself has failed, so nothing queued could ever
// be sent.
func (s *Slot) FailAll(err error) {
	s.mu.Lock()
	pr := s.pending
	s.pending = nil
	queued := s.queue
	s.queue = nil
	s.mu.Unlock()

	if pr != nil {
		pr.timer.Stop()
		pr.resultC <- Response{Err: err}
		close(pr.resultC)
	}
	for _, q := range queued {
		close(q.activated)
		q.resultC <- Response{Err: err}
		close(q.resultC)
	}
}

// HasPending reports whether a request is currently active.
func (s *Slot) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Cancel fails the active request and drains the queue with a
// cancellation error, without invoking onTimeout. Used on disconnect.
func (s *Slot) Cancel() {
	s.FailAll(fmt.Errorf("att: request cancelled (connection closed)"))
}
