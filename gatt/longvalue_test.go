package gatt

import (
	"bytes"
	"context"
	"testing"

	"github.com/user/blegatt/att"
)

func TestReadCharacteristicShortValue(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} {
		if r, ok := req.(*att.ReadRequest); ok && r.Handle == 3 {
			return &att.ReadResponse{Value: []byte{42}}
		}
		return nil
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, Properties: uint8(PropRead)}
	value, err := client.ReadCharacteristic(context.Background(), ch)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(value, []byte{42}) {
		t.Fatalf("got %#v", value)
	}
}

func TestReadCharacteristicLongValueUsesReadBlob(t *testing.T) {
	full := bytes.Repeat([]byte{0x7E}, 40)
	client := newTestClient(t, func(req interface{}) interface{} {
		switch r := req.(type) {
		case *att.ReadRequest:
			return &att.ReadResponse{Value: full[:22]} // mtu-1 = 22 at default MTU 23
		case *att.ReadBlobRequest:
			if int(r.Offset) >= len(full) {
				return &att.ErrorResponse{RequestOpcode: att.OpReadBlobRequest, Handle: r.Handle, ErrorCode: att.ErrInvalidOffset}
			}
			end := int(r.Offset) + 22
			if end > len(full) {
				end = len(full)
			}
			return &att.ReadBlobResponse{Value: full[r.Offset:end]}
		}
		return nil
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, Properties: uint8(PropRead)}
	value, err := client.ReadCharacteristic(context.Background(), ch)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(value, full) {
		t.Fatalf("got %d bytes, want %d matching bytes", len(value), len(full))
	}
}

func TestWriteCharacteristicShortValue(t *testing.T) {
	var gotValue []byte
	client := newTestClient(t, func(req interface{}) interface{} {
		if r, ok := req.(*att.WriteRequest); ok {
			gotValue = r.Value
			return &att.WriteResponse{}
		}
		return nil
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, Properties: uint8(PropWrite)}
	if err := client.WriteCharacteristic(context.Background(), ch, []byte{1, 2, 3}, true, true); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotValue, []byte{1, 2, 3}) {
		t.Fatalf("got %#v", gotValue)
	}
}

func TestWriteCharacteristicLongValueUsesPrepareExecute(t *testing.T) {
	value := bytes.Repeat([]byte{0x11}, 50)
	var reassembled []byte
	executed := false

	client := newTestClient(t, func(req interface{}) interface{} {
		switch r := req.(type) {
		case *att.PrepareWriteRequest:
			reassembled = append(reassembled, r.Value...)
			return &att.PrepareWriteResponse{Handle: r.Handle, Offset: r.Offset, Value: r.Value}
		case *att.ExecuteWriteRequest:
			executed = r.Flags == att.ExecuteWriteExecute
			return &att.ExecuteWriteResponse{}
		}
		return nil
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, Properties: uint8(PropWrite)}
	if err := client.WriteCharacteristic(context.Background(), ch, value, true, true); err != nil {
		t.Fatal(err)
	}
	if !executed {
		t.Fatal("expected ExecuteWriteRequest with Execute flag")
	}
	if !bytes.Equal(reassembled, value) {
		t.Fatalf("server reassembled %d bytes, want %d", len(reassembled), len(value))
	}
}

func TestWriteCharacteristicLongValueNonReliableIgnoresEchoMismatch(t *testing.T) {
	value := bytes.Repeat([]byte{0x11}, 50)
	executed := false

	client := newTestClient(t, func(req interface{}) interface{} {
		switch r := req.(type) {
		case *att.PrepareWriteRequest:
			// Echo back a mutated value; a reliable write would abort
			// on this mismatch, a non-reliable one should not care.
			return &att.PrepareWriteResponse{Handle: r.Handle, Offset: r.Offset, Value: bytes.Repeat([]byte{0xFF}, len(r.Value))}
		case *att.ExecuteWriteRequest:
			executed = r.Flags == att.ExecuteWriteExecute
			return &att.ExecuteWriteResponse{}
		}
		return nil
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, Properties: uint8(PropWrite)}
	if err := client.WriteCharacteristic(context.Background(), ch, value, true, false); err != nil {
		t.Fatal(err)
	}
	if !executed {
		t.Fatal("expected ExecuteWriteRequest with Execute flag despite the echo mismatch")
	}
}

func TestWriteCharacteristicLongValueReliableAbortsOnEchoMismatch(t *testing.T) {
	value := bytes.Repeat([]byte{0x11}, 50)
	cancelled := false

	client := newTestClient(t, func(req interface{}) interface{} {
		switch r := req.(type) {
		case *att.PrepareWriteRequest:
			return &att.PrepareWriteResponse{Handle: r.Handle, Offset: r.Offset, Value: bytes.Repeat([]byte{0xFF}, len(r.Value))}
		case *att.ExecuteWriteRequest:
			cancelled = r.Flags == att.ExecuteWriteCancel
			return &att.ExecuteWriteResponse{}
		}
		return nil
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, Properties: uint8(PropWrite)}
	if err := client.WriteCharacteristic(context.Background(), ch, value, true, true); err == nil {
		t.Fatal("expected an error from a reliable write whose echo doesn't match")
	}
	if !cancelled {
		t.Fatal("expected the write to be cancelled after the echo mismatch")
	}
}

func TestWriteCharacteristicRejectsUnwritable(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} { return nil })
	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, Properties: uint8(PropRead)}
	if err := client.WriteCharacteristic(context.Background(), ch, []byte{1}, true, true); err == nil {
		t.Fatal("expected error writing a non-writable characteristic")
	}
}

func TestSignedWriteCharacteristicIsUnsupported(t *testing.T) {
	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, Properties: uint8(PropAuthenticatedSignedWrites)}
	if err := (&Client{}).SignedWriteCharacteristic(ch, []byte{1}); err != ErrSignedWriteUnsupported {
		t.Fatalf("got %v, want ErrSignedWriteUnsupported", err)
	}
}
