package gatt

import (
	"context"
	"fmt"

	"github.com/user/blegatt/att"
)

// ReadCharacteristic reads a characteristic's value, transparently
// running the read-blob continuation loop if the value turns out to be
// longer than fits in one ATT_READ_RSP.
func (c *Client) ReadCharacteristic(ctx context.Context, ch Characteristic) ([]byte, error) {
	if !ch.CanRead() {
		return nil, fmt.Errorf("gatt: characteristic %s is not readable", ch.UUID)
	}
	return readLongValue(ctx, c.mux, ch.ValueHandle)
}

// ReadDescriptor reads a descriptor's raw value.
func (c *Client) ReadDescriptor(ctx context.Context, d Descriptor) ([]byte, error) {
	return readLongValue(ctx, c.mux, d.Handle)
}

// ReadUsingCharacteristicUUID implements the "Read Using Characteristic
// UUID" sub-procedure: ATT_READ_BY_TYPE_REQ addressed by UUID rather
// than handle, useful when a characteristic's handle isn't cached yet.
// It returns the first matching value found in [start, end].
func (c *Client) ReadUsingCharacteristicUUID(ctx context.Context, start, end att.Handle, uuid UUID) ([]byte, error) {
	rsp, err := c.mux.SendRequestAndAwaitResponse(ctx, att.OpReadByTypeRequest, start, &att.ReadByTypeRequest{
		StartHandle: start,
		EndHandle:   end,
		Type:        uuid.Bytes(),
	})
	if err != nil {
		return nil, err
	}
	r := rsp.(*att.ReadByTypeResponse)
	length := int(r.Length)
	if length < 3 || len(r.AttributeData) < length {
		return nil, &InvalidResponseError{Reason: "malformed Read By Type Response"}
	}
	// entry = [handle:2][value:length-2]; return only the first entry's value.
	return append([]byte{}, r.AttributeData[2:length]...), nil
}

// ReadMultipleCharacteristics reads several characteristics' values in
// one round trip (ATT_READ_MULTIPLE_REQ). It returns the values
// concatenated exactly as ATT transmits them, with no length prefixes
// and no splitting; separating them needs each handle's fixed value
// length, which the caller has to know. Values of variable length
// cannot be separated reliably.
func (c *Client) ReadMultipleCharacteristics(ctx context.Context, handles []att.Handle) ([]byte, error) {
	if len(handles) < 2 {
		return nil, fmt.Errorf("gatt: read multiple requires at least two handles")
	}
	rsp, err := c.mux.SendRequestAndAwaitResponse(ctx, att.OpReadMultipleRequest, handles[0], &att.ReadMultipleRequest{Handles: handles})
	if err != nil {
		return nil, err
	}
	return rsp.(*att.ReadMultipleResponse).Values, nil
}

// WriteCharacteristic writes a characteristic's value. withResponse
// selects ATT_WRITE_REQ (acknowledged) over ATT_WRITE_CMD
// (fire-and-forget). A value too large for the current MTU falls back
// to the prepare/execute write sub-procedure when withResponse is true;
// with withResponse false it is rejected with an error, since WRITE_CMD
// cannot itself be fragmented. reliableWrites controls
// that fallback only: when true, each queued chunk's echo is verified
// against what was sent before the write is executed.
func (c *Client) WriteCharacteristic(ctx context.Context, ch Characteristic, value []byte, withResponse, reliableWrites bool) error {
	if withResponse && !ch.CanWrite() {
		return fmt.Errorf("gatt: characteristic %s does not support Write Request", ch.UUID)
	}
	if !withResponse && !ch.CanWriteWithoutResponse() {
		return fmt.Errorf("gatt: characteristic %s does not support Write Command", ch.UUID)
	}

	if att.ShouldFragment(int(c.mux.MTU()), value) {
		if !withResponse {
			return fmt.Errorf("gatt: value too large for Write Command at current MTU; use WriteCharacteristic with withResponse=true")
		}
		return c.writeLong(ctx, ch.ValueHandle, value, reliableWrites)
	}

	if !withResponse {
		return c.mux.SendCommand(&att.WriteCommand{Handle: ch.ValueHandle, Value: value})
	}
	_, err := c.mux.SendRequestAndAwaitResponse(ctx, att.OpWriteRequest, ch.ValueHandle, &att.WriteRequest{Handle: ch.ValueHandle, Value: value})
	return err
}

// WriteDescriptor writes a descriptor's value (ATT_WRITE_REQ, falling
// back to the long-write sub-procedure if needed). reliableWrites has
// the same meaning as in WriteCharacteristic.
func (c *Client) WriteDescriptor(ctx context.Context, d Descriptor, value []byte, reliableWrites bool) error {
	if att.ShouldFragment(int(c.mux.MTU()), value) {
		return c.writeLong(ctx, d.Handle, value, reliableWrites)
	}
	_, err := c.mux.SendRequestAndAwaitResponse(ctx, att.OpWriteRequest, d.Handle, &att.WriteRequest{Handle: d.Handle, Value: value})
	return err
}

func (c *Client) writeLong(ctx context.Context, handle att.Handle, value []byte, reliable bool) error {
	if !c.writeGate.acquire() {
		return ErrInLongWrite
	}
	defer c.writeGate.release()
	return writeLongValue(ctx, c.mux, handle, value, reliable)
}

// SignedWriteCharacteristic always fails: see ErrSignedWriteUnsupported.
func (c *Client) SignedWriteCharacteristic(ch Characteristic, value []byte) error {
	if !ch.CanSignedWrite() {
		return fmt.Errorf("gatt: characteristic %s does not support Signed Write Command", ch.UUID)
	}
	return ErrSignedWriteUnsupported
}
