package gatt

import (
	"context"
	"testing"

	"github.com/user/blegatt/att"
	"github.com/user/blegatt/l2cap"
)

// newTestClient starts a Client against a loopback peer driven by
// handle: for every decoded inbound PDU, handle returns the PDU to
// write back, or nil to send nothing (used for commands and
// confirmations the test doesn't care about).
func newTestClient(t *testing.T, handle func(req interface{}) interface{}) *Client {
	t.Helper()
	centralSide, peerSide := l2cap.Loopback(l2cap.DefaultMTU, l2cap.DefaultMTU)
	t.Cleanup(func() { centralSide.Close(); peerSide.Close() })

	go func() {
		for {
			pkt, err := peerSide.ReadPacket()
			if err != nil {
				return
			}
			req, err := att.DecodePacket(pkt.Payload)
			if err != nil {
				continue
			}
			if mtuReq, ok := req.(*att.ExchangeMTURequest); ok {
				resp, err := att.EncodePacket(&att.ExchangeMTUResponse{ServerRxMTU: mtuReq.ClientRxMTU})
				if err == nil {
					peerSide.WritePacket(l2cap.NewATTPacket(resp))
				}
				continue
			}
			resp := handle(req)
			if resp == nil {
				continue
			}
			payload, err := att.EncodePacket(resp)
			if err != nil {
				continue
			}
			if err := peerSide.WritePacket(l2cap.NewATTPacket(payload)); err != nil {
				return
			}
		}
	}()

	client := NewClient(centralSide, ClientConfig{})
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("client.Start: %v", err)
	}
	return client
}
