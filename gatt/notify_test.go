package gatt

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/user/blegatt/att"
)

func TestEncodeDecodeCCCDValue(t *testing.T) {
	b := encodeCCCDValue(true, false)
	notify, indicate, err := decodeCCCDValue(b)
	if err != nil {
		t.Fatal(err)
	}
	if !notify || indicate {
		t.Fatalf("got notify=%v indicate=%v", notify, indicate)
	}
}

func TestSubscribeFailsWithoutCCCD(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} { return nil })
	// No descriptor range at all (ValueHandle == EndHandle): discovery
	// finds nothing to search, so there is no CCCD.
	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, EndHandle: 3, Properties: uint8(PropNotify)}

	err := client.Subscribe(context.Background(), ch, true, false, func([]byte, bool) {})
	if _, ok := err.(*ConfigurationNotAllowedError); !ok {
		t.Fatalf("got %v, want *ConfigurationNotAllowedError", err)
	}
}

func TestSubscribeRoutesNotifications(t *testing.T) {
	var cccdWritten []byte
	client := newTestClient(t, func(req interface{}) interface{} {
		switch r := req.(type) {
		case *att.FindInformationRequest:
			entry := append(le16bytes(4), le16bytes(0x2902)...)
			return &att.FindInformationResponse{Format: 0x01, Data: entry}
		case *att.WriteRequest:
			cccdWritten = r.Value
			return &att.WriteResponse{}
		}
		return nil
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, EndHandle: 4, Properties: uint8(PropNotify)}

	received := make(chan []byte, 1)
	if err := client.Subscribe(context.Background(), ch, true, false, func(value []byte, isIndication bool) {
		received <- value
	}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(cccdWritten, []byte{0x01, 0x00}) {
		t.Fatalf("got CCCD write %#v, want notifications-enabled", cccdWritten)
	}

	// Simulate the server pushing a notification by dispatching it
	// directly into the sink, the same call path the multiplexer uses.
	client.sink.dispatch(&att.HandleValueNotification{Handle: 3, Value: []byte{99}})

	select {
	case got := <-received:
		if !bytes.Equal(got, []byte{99}) {
			t.Fatalf("got %#v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestUnsubscribeStopsRouting(t *testing.T) {
	client := newTestClient(t, func(req interface{}) interface{} {
		switch req.(type) {
		case *att.FindInformationRequest:
			entry := append(le16bytes(4), le16bytes(0x2902)...)
			return &att.FindInformationResponse{Format: 0x01, Data: entry}
		case *att.WriteRequest:
			return &att.WriteResponse{}
		}
		return nil
	})

	ch := Characteristic{UUID: UUID16(0x2A19), ValueHandle: 3, EndHandle: 4, Properties: uint8(PropNotify)}

	called := false
	if err := client.Subscribe(context.Background(), ch, true, false, func([]byte, bool) { called = true }); err != nil {
		t.Fatal(err)
	}
	if err := client.Unsubscribe(context.Background(), ch); err != nil {
		t.Fatal(err)
	}

	client.sink.dispatch(&att.HandleValueNotification{Handle: 3, Value: []byte{1}})
	if called {
		t.Fatal("handler should not be invoked after Unsubscribe")
	}
}
