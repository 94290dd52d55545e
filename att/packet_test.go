package att

import (
	"bytes"
	"testing"
)

func roundTrip(t *testing.T, pkt interface{}) interface{} {
	t.Helper()
	encoded, err := EncodePacket(pkt)
	if err != nil {
		t.Fatalf("EncodePacket(%T): %v", pkt, err)
	}
	decoded, err := DecodePacket(encoded)
	if err != nil {
		t.Fatalf("DecodePacket(%T bytes): %v", pkt, err)
	}
	return decoded
}

func TestExchangeMTURoundTrip(t *testing.T) {
	decoded := roundTrip(t, &ExchangeMTURequest{ClientRxMTU: 185})
	got, ok := decoded.(*ExchangeMTURequest)
	if !ok || got.ClientRxMTU != 185 {
		t.Fatalf("got %#v", decoded)
	}
}

func TestReadBlobRoundTrip(t *testing.T) {
	decoded := roundTrip(t, &ReadBlobRequest{Handle: 0x0042, Offset: 23})
	got, ok := decoded.(*ReadBlobRequest)
	if !ok || got.Handle != 0x0042 || got.Offset != 23 {
		t.Fatalf("got %#v", decoded)
	}
}

func TestFindByTypeValueRoundTrip(t *testing.T) {
	decoded := roundTrip(t, &FindByTypeValueRequest{
		StartHandle: 0x0001,
		EndHandle:   0xFFFF,
		Type:        0x2800,
		Value:       []byte{0x0F, 0x18},
	})
	got, ok := decoded.(*FindByTypeValueRequest)
	if !ok {
		t.Fatalf("got %#v", decoded)
	}
	if got.StartHandle != 0x0001 || got.EndHandle != 0xFFFF || got.Type != 0x2800 {
		t.Fatalf("got %#v", got)
	}
	if !bytes.Equal(got.Value, []byte{0x0F, 0x18}) {
		t.Fatalf("value mismatch: %#v", got.Value)
	}
}

func TestReadMultipleRequestRequiresTwoHandles(t *testing.T) {
	_, err := EncodePacket(&ReadMultipleRequest{Handles: []Handle{1}})
	if err == nil {
		t.Fatal("expected error encoding a single-handle ReadMultipleRequest")
	}
}

func TestErrorResponseRoundTrip(t *testing.T) {
	decoded := roundTrip(t, &ErrorResponse{RequestOpcode: OpReadRequest, Handle: 0x0010, ErrorCode: ErrInvalidHandle})
	got, ok := decoded.(*ErrorResponse)
	if !ok || got.ErrorCode != ErrInvalidHandle || got.Handle != 0x0010 {
		t.Fatalf("got %#v", decoded)
	}
}

func TestHandleValueConfirmationIsOneByte(t *testing.T) {
	encoded, err := EncodePacket(&HandleValueConfirmation{})
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) != 1 || encoded[0] != OpHandleValueConfirmation {
		t.Fatalf("got %#v", encoded)
	}
}

func TestDecodePacketRejectsEmptyInput(t *testing.T) {
	if _, err := DecodePacket(nil); err == nil {
		t.Fatal("expected error decoding empty packet")
	}
}

func TestDecodePacketRejectsUnknownOpcode(t *testing.T) {
	if _, err := DecodePacket([]byte{0xFF}); err == nil {
		t.Fatal("expected error decoding unknown opcode")
	}
}

func TestOpcodeOfMatchesEncodedOpcode(t *testing.T) {
	pkt := &WriteRequest{Handle: 1, Value: []byte{1, 2, 3}}
	opcode, err := OpcodeOf(pkt)
	if err != nil {
		t.Fatal(err)
	}
	if opcode != OpWriteRequest {
		t.Fatalf("got opcode 0x%02X, want 0x%02X", opcode, OpWriteRequest)
	}
}
