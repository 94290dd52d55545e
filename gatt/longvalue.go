package gatt

import (
	"context"
	"sync/atomic"

	"github.com/user/blegatt/att"
)

// longWriteGate ensures only one prepare/execute write sequence may be
// outstanding on a connection at a time, since the queue they build
// lives on the server and a second interleaved sequence would corrupt
// it.
type longWriteGate struct {
	busy int32
}

func (g *longWriteGate) acquire() bool {
	return atomic.CompareAndSwapInt32(&g.busy, 0, 1)
}

func (g *longWriteGate) release() {
	atomic.StoreInt32(&g.busy, 0)
}

// readLongValue runs the ATT_READ_BLOB_REQ loop: an initial
// ATT_READ_REQ, then successive blob reads at growing offsets until a
// response shorter than MTU-1 bytes signals the end of the value, or
// the server returns Invalid Offset for the read past the end. The
// MTU is resampled immediately before each request, since a
// concurrent exchange could change it mid procedure.
func readLongValue(ctx context.Context, mux *att.Multiplexer, handle att.Handle) ([]byte, error) {
	mtu := int(mux.MTU())
	first, err := mux.SendRequestAndAwaitResponse(ctx, att.OpReadRequest, handle, &att.ReadRequest{Handle: handle})
	if err != nil {
		return nil, err
	}
	value := append([]byte{}, first.(*att.ReadResponse).Value...)

	if len(value) < mtu-1 {
		// A short first response means the whole value fit in one PDU.
		return value, nil
	}

	for {
		mtu = int(mux.MTU())
		rsp, err := mux.SendRequestAndAwaitResponse(ctx, att.OpReadBlobRequest, handle, &att.ReadBlobRequest{
			Handle: handle,
			Offset: uint16(len(value)),
		})
		if err != nil {
			if att.IsError(err, att.ErrInvalidOffset) {
				break
			}
			return nil, err
		}
		blob := rsp.(*att.ReadBlobResponse).Value
		value = append(value, blob...)
		if len(blob) < mtu-1 {
			break
		}
	}
	return value, nil
}

// writeLongValue runs the ATT_PREPARE_WRITE_REQ / ATT_EXECUTE_WRITE_REQ
// sequence for a value too large for a single WRITE_REQ. Each chunk is
// sized against the MTU as it stands immediately before that chunk is
// sent, not against the MTU at the start of the procedure, since a
// concurrent exchange could change it mid write. When reliable is
// true, every queued chunk's echo is compared against what was sent
// before execute is issued, aborting with a cancel on any mismatch.
func writeLongValue(ctx context.Context, mux *att.Multiplexer, handle att.Handle, value []byte, reliable bool) error {
	frag := att.NewFragmenter()
	for offset := 0; offset < len(value); {
		req, _ := att.NextPrepareWriteChunk(handle, value, offset, int(mux.MTU()))

		rsp, err := mux.SendRequestAndAwaitResponse(ctx, att.OpPrepareWriteRequest, handle, req)
		if err != nil {
			abortLongWrite(ctx, mux)
			return err
		}
		echoed := rsp.(*att.PrepareWriteResponse)
		if reliable && (echoed.Handle != req.Handle || echoed.Offset != req.Offset || string(echoed.Value) != string(req.Value)) {
			abortLongWrite(ctx, mux)
			return &InvalidResponseError{Reason: "reliable write echo mismatch"}
		}
		if err := frag.AddPrepareWriteResponse(echoed); err != nil {
			abortLongWrite(ctx, mux)
			return &InvalidResponseError{Reason: err.Error()}
		}
		offset += len(req.Value)
	}

	_, err := mux.SendRequestAndAwaitResponse(ctx, att.OpExecuteWriteRequest, handle, &att.ExecuteWriteRequest{Flags: att.ExecuteWriteExecute})
	return err
}

func abortLongWrite(ctx context.Context, mux *att.Multiplexer) {
	_, _ = mux.SendRequestAndAwaitResponse(ctx, att.OpExecuteWriteRequest, att.HandleInvalid, &att.ExecuteWriteRequest{Flags: att.ExecuteWriteCancel})
}
