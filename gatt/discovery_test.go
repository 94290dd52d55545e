package gatt

import (
	"context"
	"testing"

	"github.com/user/blegatt/att"
)

func le16bytes(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }

func TestDiscoverServicesSinglePage(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} {
		switch r := req.(type) {
		case *att.ReadByGroupTypeRequest:
			if r.StartHandle > 1 {
				return &att.ErrorResponse{RequestOpcode: att.OpReadByGroupTypeRequest, Handle: r.StartHandle, ErrorCode: att.ErrAttributeNotFound}
			}
			entry := append(append(le16bytes(1), le16bytes(4)...), le16bytes(0x180F)...)
			return &att.ReadByGroupTypeResponse{Length: byte(len(entry)), AttributeData: entry}
		}
		return nil
	})

	services, err := client.DiscoverServices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(services) != 1 {
		t.Fatalf("got %d services, want 1", len(services))
	}
	if !services[0].UUID.Equal(UUID16(0x180F)) {
		t.Fatalf("got UUID %s, want 0x180F", services[0].UUID)
	}
	if services[0].StartHandle != 1 || services[0].EndHandle != 4 {
		t.Fatalf("got handles %s-%s", services[0].StartHandle, services[0].EndHandle)
	}
}

func TestDiscoverCharacteristics(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} {
		r, ok := req.(*att.ReadByTypeRequest)
		if !ok {
			return nil
		}
		if r.StartHandle > 2 {
			return &att.ErrorResponse{RequestOpcode: att.OpReadByTypeRequest, Handle: r.StartHandle, ErrorCode: att.ErrAttributeNotFound}
		}
		entry := append(append(append(le16bytes(2), 0x12), le16bytes(3)...), le16bytes(0x2A19)...)
		return &att.ReadByTypeResponse{Length: byte(len(entry)), AttributeData: entry}
	})

	svc := Service{UUID: UUID16(0x180F), StartHandle: 1, EndHandle: 4}
	chars, err := client.DiscoverCharacteristics(context.Background(), svc)
	if err != nil {
		t.Fatal(err)
	}
	if len(chars) != 1 {
		t.Fatalf("got %d characteristics, want 1", len(chars))
	}
	c := chars[0]
	if !c.UUID.Equal(UUID16(0x2A19)) || c.ValueHandle != 3 || c.Properties != 0x12 {
		t.Fatalf("got %#v", c)
	}
	if !c.CanRead() || !c.CanNotify() || c.CanWrite() {
		t.Fatalf("property decoding wrong for 0x%02X", c.Properties)
	}
	if c.EndHandle != svc.EndHandle {
		t.Fatalf("got end handle %s, want %s (last characteristic in service)", c.EndHandle, svc.EndHandle)
	}
}

func TestDiscoverCharacteristicsByUUIDStopsAfterMatch(t *testing.T) {
	var requests []att.Handle
	client := newTestClient(t, func(req interface{}) interface{} {
		r, ok := req.(*att.ReadByTypeRequest)
		if !ok {
			return nil
		}
		requests = append(requests, r.StartHandle)
		switch r.StartHandle {
		case 1:
			// Two declarations in the first page: a non-matching
			// characteristic at handle 1, then the target at handle
			// 3, which is the last entry in the page. A correct
			// implementation must read one further page to learn the
			// match's end handle.
			entry := append(append(append(le16bytes(1), 0x02), le16bytes(2)...), le16bytes(0x2A00)...)
			entry = append(entry, append(append(append(le16bytes(3), 0x12), le16bytes(4)...), le16bytes(0x2A19)...)...)
			return &att.ReadByTypeResponse{Length: 7, AttributeData: entry}
		case 4:
			entry := append(append(append(le16bytes(5), 0x02), le16bytes(6)...), le16bytes(0x2A01)...)
			return &att.ReadByTypeResponse{Length: 7, AttributeData: entry}
		default:
			t.Fatalf("unexpected Read By Type Request at handle %s after a match was already found", r.StartHandle)
			return nil
		}
	})

	svc := Service{UUID: UUID16(0x180F), StartHandle: 1, EndHandle: 10}
	chars, err := client.DiscoverCharacteristicsByUUID(context.Background(), svc, UUID16(0x2A19))
	if err != nil {
		t.Fatal(err)
	}
	if len(chars) != 1 {
		t.Fatalf("got %d characteristics, want 1", len(chars))
	}
	c := chars[0]
	if !c.UUID.Equal(UUID16(0x2A19)) || c.DeclarationHandle != 3 || c.ValueHandle != 4 {
		t.Fatalf("got %#v", c)
	}
	if c.EndHandle != 4 {
		t.Fatalf("got end handle %s, want 4 (just before the next declaration at handle 5)", c.EndHandle)
	}
	if len(requests) != 2 {
		t.Fatalf("got %d Read By Type requests, want 2 (one to find the match, one to bound it)", len(requests))
	}
}

func TestDiscoverCharacteristicsByUUIDNoMatch(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} {
		r, ok := req.(*att.ReadByTypeRequest)
		if !ok {
			return nil
		}
		if r.StartHandle > 2 {
			return &att.ErrorResponse{RequestOpcode: att.OpReadByTypeRequest, Handle: r.StartHandle, ErrorCode: att.ErrAttributeNotFound}
		}
		entry := append(append(append(le16bytes(2), 0x12), le16bytes(3)...), le16bytes(0x2A19)...)
		return &att.ReadByTypeResponse{Length: byte(len(entry)), AttributeData: entry}
	})

	svc := Service{UUID: UUID16(0x180F), StartHandle: 1, EndHandle: 4}
	chars, err := client.DiscoverCharacteristicsByUUID(context.Background(), svc, UUID16(0x2A00))
	if err != nil {
		t.Fatal(err)
	}
	if len(chars) != 0 {
		t.Fatalf("got %d characteristics, want 0", len(chars))
	}
}

func TestDiscoverDescriptors(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} {
		r, ok := req.(*att.FindInformationRequest)
		if !ok {
			return nil
		}
		if r.StartHandle > 4 {
			return &att.ErrorResponse{RequestOpcode: att.OpFindInformationRequest, Handle: r.StartHandle, ErrorCode: att.ErrAttributeNotFound}
		}
		entry := append(le16bytes(4), le16bytes(0x2902)...)
		return &att.FindInformationResponse{Format: 0x01, Data: entry}
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, EndHandle: 4}
	descs, err := client.DiscoverDescriptors(context.Background(), ch)
	if err != nil {
		t.Fatal(err)
	}
	if len(descs) != 1 || !descs[0].UUID.Equal(UUIDClientCharConfig) || descs[0].Handle != 4 {
		t.Fatalf("got %#v", descs)
	}
}

func TestDiscoverServicesPropagatesProtocolError(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} {
		if r, ok := req.(*att.ReadByGroupTypeRequest); ok {
			return &att.ErrorResponse{RequestOpcode: att.OpReadByGroupTypeRequest, Handle: r.StartHandle, ErrorCode: att.ErrRequestNotSupported}
		}
		return nil
	})

	if _, err := client.DiscoverServices(context.Background()); err == nil {
		t.Fatal("expected an error when the server refuses Read By Group Type")
	}
}
