package l2cap

import (
	"bytes"
	"testing"
	"time"
)

func TestLoopbackRoundTrip(t *testing.T) {
	a, b := Loopback(DefaultMTU, DefaultMTU)
	defer a.Close()
	defer b.Close()

	payload := []byte{0xAA, 0xBB, 0xCC}
	go func() {
		if err := a.WritePacket(NewATTPacket(payload)); err != nil {
			t.Error(err)
		}
	}()

	pkt, err := b.ReadPacket()
	if err != nil {
		t.Fatal(err)
	}
	if pkt.ChannelID != ChannelATT {
		t.Fatalf("got channel 0x%04X, want ATT", pkt.ChannelID)
	}
	if !bytes.Equal(pkt.Payload, payload) {
		t.Fatalf("got %#v, want %#v", pkt.Payload, payload)
	}
}

func TestConnCloseSignalsDisconnected(t *testing.T) {
	a, b := Loopback(DefaultMTU, DefaultMTU)
	defer b.Close()

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-a.Disconnected():
	case <-time.After(time.Second):
		t.Fatal("Disconnected channel was not closed")
	}
}

func TestPacketEncodeDecodeRoundTrip(t *testing.T) {
	p := &Packet{ChannelID: ChannelATT, Payload: []byte{1, 2, 3, 4}}
	decoded, err := Decode(p.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if decoded.ChannelID != p.ChannelID || !bytes.Equal(decoded.Payload, p.Payload) {
		t.Fatalf("got %#v, want %#v", decoded, p)
	}
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	if _, err := Decode([]byte{0x05, 0x00, 0x04, 0x00}); err == nil {
		t.Fatal("expected error decoding a frame with a declared length it doesn't have")
	}
}
