package att

import "fmt"

// Fragmenter reassembles the Prepare Write Request queue for a long
// write. One Fragmenter is used per long-write round; the caller
// (gatt's write sub-procedure) discards it once the round completes or
// fails.
type Fragmenter struct {
	queue []*PrepareWriteResponse
}

// NewFragmenter creates an empty reassembly queue.
func NewFragmenter() *Fragmenter {
	return &Fragmenter{}
}

// ShouldFragment reports whether value is too large for a single
// WRITE_REQ/WRITE_CMD at the given MTU (max value size = mtu-3).
func ShouldFragment(mtu int, value []byte) bool {
	if mtu <= 0 {
		mtu = l2capDefaultMTU
	}
	return len(value) > mtu-3
}

// FragmentWrite splits value into PrepareWriteRequest chunks of at most
// mtu-5 bytes each (opcode + handle + offset leave mtu-5 for value),
// all sized against the single mtu given. Callers that need to
// resample the MTU before each chunk - because it can change mid
// procedure - should use NextPrepareWriteChunk instead.
func FragmentWrite(handle Handle, value []byte, mtu int) ([]*PrepareWriteRequest, error) {
	if !ShouldFragment(mtu, value) {
		return nil, fmt.Errorf("att: value (%d bytes) does not need fragmentation at MTU %d", len(value), mtu)
	}
	if mtu-5 <= 0 {
		return nil, fmt.Errorf("att: MTU %d too small to fragment a write", mtu)
	}

	var reqs []*PrepareWriteRequest
	for offset := 0; offset < len(value); {
		req, _ := NextPrepareWriteChunk(handle, value, offset, mtu)
		reqs = append(reqs, req)
		offset += len(req.Value)
	}
	return reqs, nil
}

// NextPrepareWriteChunk returns the next PrepareWriteRequest chunk of
// value starting at offset, sized to fit the current mtu (mtu-5 bytes
// of value per chunk), and whether any bytes remain beyond it. It
// returns nil, false once offset has consumed the whole value.
// Calling this fresh for each chunk, rather than fragmenting the whole
// value against one mtu up front, lets a long write honor an MTU that
// changes mid procedure.
func NextPrepareWriteChunk(handle Handle, value []byte, offset int, mtu int) (*PrepareWriteRequest, bool) {
	if offset >= len(value) {
		return nil, false
	}
	if mtu <= 0 {
		mtu = l2capDefaultMTU
	}
	maxChunk := mtu - 5
	if maxChunk <= 0 {
		maxChunk = 1
	}
	end := offset + maxChunk
	if end > len(value) {
		end = len(value)
	}
	req := &PrepareWriteRequest{
		Handle: handle,
		Offset: uint16(offset),
		Value:  clone(value[offset:end]),
	}
	return req, end < len(value)
}

// AddPrepareWriteResponse appends the echoed chunk to the reassembly
// queue, validating that its offset matches the bytes already queued
// (the server must echo request order; a mismatch is invalid_response).
func (f *Fragmenter) AddPrepareWriteResponse(resp *PrepareWriteResponse) error {
	if resp == nil {
		return fmt.Errorf("att: nil prepare write response")
	}
	expected := uint16(0)
	for _, r := range f.queue {
		expected += uint16(len(r.Value))
	}
	if resp.Offset != expected {
		return fmt.Errorf("att: prepare write offset mismatch (expected %d, got %d)", expected, resp.Offset)
	}
	f.queue = append(f.queue, resp)
	return nil
}

// Reassembled concatenates every queued chunk's value in order.
func (f *Fragmenter) Reassembled() []byte {
	total := 0
	for _, r := range f.queue {
		total += len(r.Value)
	}
	out := make([]byte, 0, total)
	for _, r := range f.queue {
		out = append(out, r.Value...)
	}
	return out
}

// Len returns the number of chunks queued so far.
func (f *Fragmenter) Len() int { return len(f.queue) }

const l2capDefaultMTU = 23
